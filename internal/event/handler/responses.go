package handler

import (
	"time"

	"muster/internal/event"
	id "muster/pkg/domain"
)

// eventView is the wire shape of one event.
type eventView struct {
	ID           string  `json:"id"`
	Timestamp    string  `json:"timestamp"`
	ObjID        string  `json:"obj_id"`
	ObjType      string  `json:"obj_type"`
	ObjName      string  `json:"obj_name"`
	Action       string  `json:"action"`
	Status       string  `json:"status"`
	StatusReason string  `json:"status_reason"`
	Level        string  `json:"level"`
	ClusterID    *string `json:"cluster_id,omitempty"`
	Project      string  `json:"project"`
	User         string  `json:"user"`
}

type listResponse struct {
	Events     []eventView `json:"events"`
	NextMarker string      `json:"next_marker,omitempty"`
}

type showResponse struct {
	Event eventView `json:"event"`
}

// toView maps an event to its wire shape for the negotiated microversion.
// Fields introduced after the negotiated version are withheld entirely.
func toView(e *event.Event, version id.APIVersion) eventView {
	view := eventView{
		ID:           e.ID.String(),
		Timestamp:    e.Timestamp.UTC().Format(time.RFC3339Nano),
		ObjID:        e.ObjID,
		ObjType:      e.ObjType,
		ObjName:      e.ObjName,
		Action:       e.Action,
		Status:       e.Status,
		StatusReason: e.StatusReason,
		Level:        e.Level.String(),
		Project:      e.Project,
		User:         e.User,
	}
	if version.SupportsField("cluster_id") {
		cid := ""
		if !e.ClusterID.IsNil() {
			cid = e.ClusterID.String()
		}
		view.ClusterID = &cid
	}
	return view
}
