package handler

import (
	"net/http"
	"strconv"

	eventservice "muster/internal/event/service"
	dErrors "muster/pkg/domain-errors"
)

// allowedParams is the full set of query parameters the list endpoint
// accepts. Anything else is a client error, never silently ignored.
var allowedParams = map[string]bool{
	"limit":          true,
	"marker":         true,
	"sort":           true,
	"global_project": true,
	"obj_id":         true,
	"obj_type":       true,
	"obj_name":       true,
	"cluster_id":     true,
	"action":         true,
}

// parseListRequest maps query parameters onto a service request. Type errors
// (bad booleans, bad integers) are rejected here; semantic validation
// (sort keys, markers, microversion gates) belongs to the query engine.
func parseListRequest(r *http.Request) (eventservice.ListRequest, error) {
	query := r.URL.Query()
	for key := range query {
		if !allowedParams[key] {
			return eventservice.ListRequest{}, dErrors.New(dErrors.CodeBadRequest, "unknown parameter: "+key)
		}
	}

	req := eventservice.ListRequest{
		ObjID:     query.Get("obj_id"),
		ObjType:   query.Get("obj_type"),
		ObjName:   query.Get("obj_name"),
		Action:    query.Get("action"),
		ClusterID: query.Get("cluster_id"),
		Sort:      query.Get("sort"),
		Marker:    query.Get("marker"),
	}

	if raw := query.Get("global_project"); raw != "" {
		global, err := strconv.ParseBool(raw)
		if err != nil {
			return eventservice.ListRequest{}, dErrors.New(dErrors.CodeBadRequest, "global_project must be a boolean")
		}
		req.GlobalProject = global
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return eventservice.ListRequest{}, dErrors.New(dErrors.CodeBadRequest, "limit must be an integer")
		}
		req.Limit = &limit
	}

	return req, nil
}
