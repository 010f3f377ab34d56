package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/core/ports"
)

// TollReportRepo implements ports.TollReportRepository.
type TollReportRepo struct {
	db *DB
}

// NewTollReportRepo creates a new TollReportRepo.
func NewTollReportRepo(db *DB) *TollReportRepo {
	return &TollReportRepo{db: db}
}

func (r *TollReportRepo) Store(ctx context.Context, report *domain.TollReport) error {
	doc, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode toll report: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO toll_reports (id, generated_at, doc)
		VALUES ($1, $2, $3)
	`, report.ID, report.GeneratedAt, doc)
	return err
}

func (r *TollReportRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM toll_reports WHERE id = $1`, id)
	return err
}

func (r *TollReportRepo) Latest(ctx context.Context) (*domain.TollReport, error) {
	var doc []byte
	err := r.db.Pool.QueryRow(ctx, `
		SELECT doc FROM toll_reports ORDER BY generated_at DESC LIMIT 1
	`).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var report domain.TollReport
	if err := json.Unmarshal(doc, &report); err != nil {
		return nil, fmt.Errorf("decode toll report: %w", err)
	}
	return &report, nil
}
