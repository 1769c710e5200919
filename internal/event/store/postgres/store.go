// Package postgres persists event records in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"muster/internal/event"
	id "muster/pkg/domain"
	"muster/pkg/platform/sentinel"
)

// Store is the PostgreSQL event store. It is pure I/O: scoping, limit capping
// and filter validation live in the query engine.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const eventColumns = `id, timestamp, obj_id, obj_type, obj_name, action, status, status_reason, level, cluster_id, project, user_id`

// sortColumns maps sort keys to their column expressions. Only keys present
// here can reach SQL; the query engine has already validated the sort spec.
var sortColumns = map[event.SortKey]string{
	event.SortByTimestamp: "timestamp",
	event.SortByLevel:     "level",
	event.SortByObjType:   "obj_type",
	event.SortByObjName:   "obj_name",
	event.SortByAction:    "action",
	event.SortByStatus:    "status",
}

// filterConds renders the filter as SQL predicates, appending bind values to
// args. The page query and the marker-resolution query share it so a marker
// can never resolve outside the filter's scope.
func filterConds(filter event.Filter, args *[]any) []string {
	var conds []string
	arg := func(v any) string {
		*args = append(*args, v)
		return fmt.Sprintf("$%d", len(*args))
	}

	if filter.ObjID != "" {
		conds = append(conds, "obj_id = "+arg(filter.ObjID))
	}
	if filter.ObjType != "" {
		conds = append(conds, "obj_type = "+arg(filter.ObjType))
	}
	if filter.ObjName != "" {
		conds = append(conds, "obj_name = "+arg(filter.ObjName))
	}
	if filter.Action != "" {
		conds = append(conds, "action = "+arg(filter.Action))
	}
	if !filter.ClusterID.IsNil() {
		conds = append(conds, "cluster_id = "+arg(uuid.UUID(filter.ClusterID)))
	}
	if filter.Project != "" {
		conds = append(conds, "project = "+arg(filter.Project))
	}
	if filter.MinLevel != 0 {
		conds = append(conds, "level >= "+arg(int(filter.MinLevel)))
	}
	return conds
}

// Append inserts the event. Events are never updated, so a plain INSERT is
// the whole write path; a duplicate id is a conflict, not an upsert.
// Timestamps are clamped in SQL to be non-decreasing across appends, matching
// the in-memory store, so a backdated write can never land before positions
// already served to keyset pages.
func (s *Store) Append(ctx context.Context, e *event.Event) error {
	if e == nil || e.ID.IsNil() {
		return fmt.Errorf("append event: id is required")
	}

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, GREATEST($2, (SELECT COALESCE(MAX(timestamp), $2) FROM events)),
			$3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	var clusterID *uuid.UUID
	if !e.ClusterID.IsNil() {
		cid := uuid.UUID(e.ClusterID)
		clusterID = &cid
	}

	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(e.ID),
		e.Timestamp,
		e.ObjID,
		e.ObjType,
		e.ObjName,
		e.Action,
		e.Status,
		e.StatusReason,
		int(e.Level),
		clusterID,
		e.Project,
		e.User,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("append event: %w", sentinel.ErrConflict)
		}
		return infraErr("append event", err)
	}
	return nil
}

// Get returns the event with the given id, or sentinel.ErrNotFound.
func (s *Store) Get(ctx context.Context, eventID id.EventID) (*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	e, err := scanEvent(s.db.QueryRowContext(ctx, query, uuid.UUID(eventID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, infraErr("get event", err)
	}
	return e, nil
}

// Scan runs a filtered, keyset-paginated query. The marker is resolved to its
// (sort value, id) position first; paging on that position instead of an
// offset keeps pages stable under concurrent appends.
func (s *Store) Scan(ctx context.Context, filter event.Filter, sortSpec event.Sort, marker *id.EventID, limit int) ([]*event.Event, *id.EventID, error) {
	sortCol, ok := sortColumns[sortSpec.Key]
	if !ok {
		sortCol = "timestamp"
	}

	var args []any
	conds := filterConds(filter, &args)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if marker != nil {
		// Resolve the marker to its sort position under the same predicates
		// as the page itself. A marker outside the filter (notably another
		// project's event) must read exactly like an unknown one, or the
		// error becomes an existence oracle across projects.
		var margs []any
		mconds := filterConds(filter, &margs)
		margs = append(margs, uuid.UUID(*marker))
		mconds = append(mconds, fmt.Sprintf("id = $%d", len(margs)))

		var sortVal any
		var markerID uuid.UUID
		row := s.db.QueryRowContext(ctx,
			`SELECT `+sortCol+`, id FROM events WHERE `+strings.Join(mconds, " AND "), margs...)
		if err := row.Scan(&sortVal, &markerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, sentinel.ErrInvalidMarker
			}
			return nil, nil, infraErr("resolve marker", err)
		}

		cmp := ">"
		if sortSpec.Desc {
			cmp = "<"
		}
		sortArg := arg(sortVal)
		idArg := arg(markerID.String())
		conds = append(conds, fmt.Sprintf(
			"(%s %s %s OR (%s = %s AND id::text > %s))",
			sortCol, cmp, sortArg, sortCol, sortArg, idArg))
	}

	dir := "ASC"
	if sortSpec.Desc {
		dir = "DESC"
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id::text ASC", sortCol, dir)
	// Fetch one extra row to learn whether a next page exists.
	query += " LIMIT " + arg(limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, infraErr("scan events", err)
	}
	defer rows.Close()

	var page []*event.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("scan event row: %w", err)
		}
		page = append(page, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, infraErr("iterate events", err)
	}

	var next *id.EventID
	if len(page) > limit {
		page = page[:limit]
		last := page[len(page)-1].ID
		next = &last
	}
	return page, next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*event.Event, error) {
	var (
		e         event.Event
		eventID   uuid.UUID
		level     int
		clusterID *uuid.UUID
	)
	err := row.Scan(
		&eventID,
		&e.Timestamp,
		&e.ObjID,
		&e.ObjType,
		&e.ObjName,
		&e.Action,
		&e.Status,
		&e.StatusReason,
		&level,
		&clusterID,
		&e.Project,
		&e.User,
	)
	if err != nil {
		return nil, err
	}
	e.ID = id.EventID(eventID)
	e.Level = event.Level(level)
	if clusterID != nil {
		e.ClusterID = id.ClusterID(*clusterID)
	}
	return &e, nil
}

// infraErr wraps driver failures, tagging connection-class errors with
// sentinel.ErrUnavailable so the service layer can answer 503 instead of 500.
func infraErr(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && strings.HasPrefix(string(pqErr.Code), "08") {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
