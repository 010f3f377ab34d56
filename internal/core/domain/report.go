package domain

import "time"

// TollReport aggregates per-currency toll totals across every session's last
// generated route, produced by the scheduled reporting workflow.
type TollReport struct {
	ID          string             `json:"id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Sessions    int                `json:"sessions"`
	Totals      map[string]float64 `json:"totals"` // currency -> amount
}
