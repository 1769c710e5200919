// Package event defines the immutable event record the control plane keeps
// for every action performed on a managed object, and the contracts for
// storing and querying those records.
package event

import (
	"strings"
	"time"

	dErrors "muster/pkg/domain-errors"

	id "muster/pkg/domain"
)

// Level is the severity of an event. Levels are numeric-ordered so stores can
// filter by minimum severity with a single comparison.
type Level int

const (
	LevelDebug    Level = 10
	LevelInfo     Level = 20
	LevelWarning  Level = 30
	LevelError    Level = 40
	LevelCritical Level = 50
)

var levelNames = map[Level]string{
	LevelDebug:    "DEBUG",
	LevelInfo:     "INFO",
	LevelWarning:  "WARNING",
	LevelError:    "ERROR",
	LevelCritical: "CRITICAL",
}

var levelsByName = map[string]Level{
	"DEBUG":    LevelDebug,
	"INFO":     LevelInfo,
	"WARNING":  LevelWarning,
	"ERROR":    LevelError,
	"CRITICAL": LevelCritical,
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "INFO"
}

// ParseLevel maps a severity name to its Level. Unknown names are rejected.
func ParseLevel(s string) (Level, error) {
	if l, ok := levelsByName[strings.ToUpper(s)]; ok {
		return l, nil
	}
	return 0, dErrors.New(dErrors.CodeBadRequest, "unknown severity level: "+s)
}

// Object types an event can reference.
const (
	ObjTypeCluster  = "CLUSTER"
	ObjTypeNode     = "NODE"
	ObjTypePolicy   = "POLICY"
	ObjTypeReceiver = "RECEIVER"
	ObjTypeAction   = "ACTION"
)

// Action names recorded by the orchestration engine. The set is open: the
// engine may record actions this package does not enumerate.
const (
	ActionClusterCreate   = "CLUSTER_CREATE"
	ActionClusterDelete   = "CLUSTER_DELETE"
	ActionClusterUpdate   = "CLUSTER_UPDATE"
	ActionClusterScaleIn  = "CLUSTER_SCALE_IN"
	ActionClusterScaleOut = "CLUSTER_SCALE_OUT"
	ActionNodeCreate      = "NODE_CREATE"
	ActionNodeDelete      = "NODE_DELETE"
	ActionNodeUpdate      = "NODE_UPDATE"
	ActionPolicyAttach    = "POLICY_ATTACH"
	ActionPolicyDetach    = "POLICY_DETACH"
)

// Action statuses at the moment of recording.
const (
	StatusStart     = "START"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// Event is one immutable record of an action/status transition on a managed
// object. Once persisted it is never mutated or deleted by normal operation;
// retention is an administrative concern outside this package.
type Event struct {
	ID           id.EventID
	Timestamp    time.Time
	ObjID        string
	ObjType      string
	ObjName      string
	Action       string
	Status       string
	StatusReason string
	Level        Level
	ClusterID    id.ClusterID // nil for cluster-independent events
	Project      string
	User         string
}

// Filter restricts a scan to matching events. Zero-valued fields do not
// constrain the scan. Project is ANDed in by the query engine before the
// filter reaches a store; it is never taken from client input.
type Filter struct {
	ObjID     string
	ObjType   string
	ObjName   string
	Action    string
	ClusterID id.ClusterID
	Project   string
	MinLevel  Level
}

// Matches reports whether e satisfies every constraint in f.
func (f Filter) Matches(e *Event) bool {
	if f.ObjID != "" && e.ObjID != f.ObjID {
		return false
	}
	if f.ObjType != "" && e.ObjType != f.ObjType {
		return false
	}
	if f.ObjName != "" && e.ObjName != f.ObjName {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if !f.ClusterID.IsNil() && e.ClusterID != f.ClusterID {
		return false
	}
	if f.Project != "" && e.Project != f.Project {
		return false
	}
	if f.MinLevel != 0 && e.Level < f.MinLevel {
		return false
	}
	return true
}

// SortKey names a sortable event attribute.
type SortKey string

const (
	SortByTimestamp SortKey = "timestamp"
	SortByLevel     SortKey = "level"
	SortByObjType   SortKey = "obj_type"
	SortByObjName   SortKey = "obj_name"
	SortByAction    SortKey = "action"
	SortByStatus    SortKey = "status"
)

var sortKeys = map[SortKey]bool{
	SortByTimestamp: true,
	SortByLevel:     true,
	SortByObjType:   true,
	SortByObjName:   true,
	SortByAction:    true,
	SortByStatus:    true,
}

// Sort describes the scan order. The event id is always the implicit
// tie-break so pagination stays stable when sort keys collide.
type Sort struct {
	Key  SortKey
	Desc bool
}

// DefaultSort orders by creation time ascending.
func DefaultSort() Sort { return Sort{Key: SortByTimestamp} }

// ParseSort parses a "key" or "key:dir" sort spec, dir being "asc" or "desc".
func ParseSort(s string) (Sort, error) {
	if s == "" {
		return DefaultSort(), nil
	}
	key, dir, hasDir := strings.Cut(s, ":")
	sk := SortKey(key)
	if !sortKeys[sk] {
		return Sort{}, dErrors.New(dErrors.CodeBadRequest, "unknown sort key: "+key)
	}
	sort := Sort{Key: sk}
	if hasDir {
		switch dir {
		case "asc":
		case "desc":
			sort.Desc = true
		default:
			return Sort{}, dErrors.New(dErrors.CodeBadRequest, "sort direction must be asc or desc")
		}
	}
	return sort, nil
}

// keyOf extracts the comparable sort value from an event.
func (s Sort) keyOf(e *Event) any {
	switch s.Key {
	case SortByLevel:
		return int(e.Level)
	case SortByObjType:
		return e.ObjType
	case SortByObjName:
		return e.ObjName
	case SortByAction:
		return e.Action
	case SortByStatus:
		return e.Status
	default:
		return e.Timestamp
	}
}

// Less orders two events per the sort, with id as the final tie-break.
// Used by the memory store; the postgres store expresses the same order
// in SQL.
func (s Sort) Less(a, b *Event) bool {
	av, bv := s.keyOf(a), s.keyOf(b)
	if cmp := compareValues(av, bv); cmp != 0 {
		if s.Desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return a.ID.String() < b.ID.String()
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		bv := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
		return 0
	case int:
		bv := b.(int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	default:
		av2, bv2 := a.(string), b.(string)
		return strings.Compare(av2, bv2)
	}
}
