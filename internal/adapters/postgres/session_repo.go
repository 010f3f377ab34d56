package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/core/ports"
)

// SessionRepo implements ports.SessionRepository with pgx.
//
// The editable session state (endpoints, waypoints, shapes, drawing state)
// lives in one JSONB document; the generation counter and the assembled
// route live in their own columns so the bump and the compare-and-set can
// be single UPDATE statements.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, session *domain.PlanSession) error {
	doc, err := sessionDoc(session)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO plan_sessions (id, name, doc, generation, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5)
	`, session.ID, session.Name, doc, session.CreatedAt, session.UpdatedAt)
	return err
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*domain.PlanSession, error) {
	var row sessionRow
	err := r.db.Pool.QueryRow(ctx, `
		SELECT name, doc, route, generation, created_at, updated_at
		FROM plan_sessions WHERE id = $1
	`, id).Scan(&row.Name, &row.Doc, &row.RouteDoc, &row.Generation, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	row.ID = id
	return row.session()
}

func (r *SessionRepo) List(ctx context.Context) ([]domain.PlanSession, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, doc, generation, created_at, updated_at
		FROM plan_sessions ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.PlanSession
	for rows.Next() {
		var row sessionRow
		if err := rows.Scan(&row.ID, &row.Name, &row.Doc, &row.Generation, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, err
		}
		session, err := row.session()
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

func (r *SessionRepo) Update(ctx context.Context, session *domain.PlanSession) error {
	doc, err := sessionDoc(session)
	if err != nil {
		return err
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE plan_sessions SET name = $2, doc = $3, updated_at = $4 WHERE id = $1
	`, session.ID, session.Name, doc, session.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM plan_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) BumpGeneration(ctx context.Context, id string) (int64, error) {
	var generation int64
	err := r.db.Pool.QueryRow(ctx, `
		UPDATE plan_sessions SET generation = generation + 1
		WHERE id = $1 RETURNING generation
	`, id).Scan(&generation)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ports.ErrNotFound
	}
	return generation, err
}

func (r *SessionRepo) StoreRoute(ctx context.Context, id string, generation int64, route *domain.AssembledRoute) (bool, error) {
	var routeDoc []byte
	if route != nil {
		var err error
		routeDoc, err = json.Marshal(route)
		if err != nil {
			return false, fmt.Errorf("encode route: %w", err)
		}
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE plan_sessions SET route = $3, updated_at = now()
		WHERE id = $1 AND generation = $2
	`, id, generation, routeDoc)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// sessionRow is one plan_sessions row as scanned.
type sessionRow struct {
	ID         string
	Name       string
	Doc        []byte
	RouteDoc   []byte
	Generation int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// session decodes the row into the domain type. The doc is unmarshaled
// first and the scanned columns are applied on top: the columns are
// authoritative, and older docs may still carry values for them.
func (row sessionRow) session() (*domain.PlanSession, error) {
	var session domain.PlanSession
	if err := json.Unmarshal(row.Doc, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", row.ID, err)
	}
	session.ID = row.ID
	session.Name = row.Name
	session.Generation = row.Generation
	session.CreatedAt = row.CreatedAt
	session.UpdatedAt = row.UpdatedAt
	session.LastRoute = nil
	if len(row.RouteDoc) > 0 {
		var route domain.AssembledRoute
		if err := json.Unmarshal(row.RouteDoc, &route); err != nil {
			return nil, fmt.Errorf("decode route for session %s: %w", row.ID, err)
		}
		session.LastRoute = &route
	}
	return &session, nil
}

// sessionDoc serializes the editable part of a session. The generation and
// route columns stay authoritative, so both are stripped from the document.
func sessionDoc(session *domain.PlanSession) ([]byte, error) {
	clone := *session
	clone.LastRoute = nil
	clone.Generation = 0
	doc, err := json.Marshal(&clone)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", session.ID, err)
	}
	return doc, nil
}
