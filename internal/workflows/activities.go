package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/core/ports"
)

// TollAggregate is the intermediate result of scanning all sessions.
type TollAggregate struct {
	Sessions int
	Totals   map[string]float64 // currency -> amount
}

// TollReportActivities holds the activity implementations for the toll
// report workflow.
type TollReportActivities struct {
	Sessions  ports.SessionRepository
	Reports   ports.TollReportRepository
	Publisher ports.EventPublisher
}

// CollectTollTotals sums per-currency toll totals across every session that
// has a stored route. Currencies are never converted or merged.
func (a *TollReportActivities) CollectTollTotals(ctx context.Context) (TollAggregate, error) {
	sessions, err := a.Sessions.List(ctx)
	if err != nil {
		return TollAggregate{}, fmt.Errorf("list sessions: %w", err)
	}

	agg := TollAggregate{Totals: map[string]float64{}}
	for _, s := range sessions {
		if s.LastRoute == nil || len(s.LastRoute.Tolls) == 0 {
			continue
		}
		agg.Sessions++
		for currency, amount := range s.LastRoute.Tolls {
			agg.Totals[currency] += amount
		}
	}
	return agg, nil
}

// StoreTollReport persists the aggregate as a new report and returns its ID.
func (a *TollReportActivities) StoreTollReport(ctx context.Context, agg TollAggregate) (string, error) {
	report := &domain.TollReport{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Sessions:    agg.Sessions,
		Totals:      agg.Totals,
	}
	if err := a.Reports.Store(ctx, report); err != nil {
		return "", fmt.Errorf("store toll report: %w", err)
	}
	return report.ID, nil
}

// BroadcastTollReport pushes the stored report to realtime subscribers.
func (a *TollReportActivities) BroadcastTollReport(ctx context.Context, reportID string) error {
	report, err := a.Reports.Latest(ctx)
	if err != nil {
		return fmt.Errorf("load toll report: %w", err)
	}
	if report.ID != reportID {
		return fmt.Errorf("toll report %s is no longer the latest", reportID)
	}

	data, err := json.Marshal(struct {
		Type   string             `json:"type"`
		Report *domain.TollReport `json:"report"`
	}{Type: "toll_report", Report: report})
	if err != nil {
		return fmt.Errorf("marshal toll report: %w", err)
	}

	if a.Publisher == nil {
		log.Printf("BROADCAST (no publisher) → report=%s", reportID)
		return nil
	}
	return a.Publisher.PublishBroadcast(ctx, data)
}

// DeleteTollReport removes a report (saga compensation / rollback).
func (a *TollReportActivities) DeleteTollReport(ctx context.Context, reportID string) error {
	if err := a.Reports.Delete(ctx, reportID); err != nil {
		return fmt.Errorf("delete toll report %s: %w", reportID, err)
	}
	log.Printf("Toll report %s deleted (saga compensation)", reportID)
	return nil
}
