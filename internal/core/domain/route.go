package domain

// Money is an amount in a single currency.
type Money struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// Fare is one toll charge inside a section.
type Fare struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Price Money  `json:"price"`
}

// TollInfo carries the provider's toll data for one section. Total, when
// present, is the provider's own precomputed total for the whole route and
// takes precedence over summing individual fares.
type TollInfo struct {
	Total *Money `json:"total,omitempty"`
	Fares []Fare `json:"fares,omitempty"`
}

// SectionSummary holds per-section length/duration and optional tolls.
type SectionSummary struct {
	LengthMeters    int       `json:"length_meters"`
	DurationSeconds int       `json:"duration_seconds"`
	Tolls           *TollInfo `json:"tolls,omitempty"`
}

// NoticeSeverity ranks how strongly a notice should be surfaced.
type NoticeSeverity int

const (
	SeverityInfo NoticeSeverity = iota
	SeverityNoThrough
	SeverityViolatedRestriction
	SeverityBlockedRoad
)

// Notice is a provider warning attached to a section, referenced from spans
// by index.
type Notice struct {
	Code     string         `json:"code"`
	Title    string         `json:"title,omitempty"`
	Severity NoticeSeverity `json:"severity"`
}

// NoThroughRestriction marks a stretch where through traffic is not allowed.
type NoThroughRestriction struct {
	Type string `json:"type,omitempty"`
}

// Span annotates a stretch of a section's geometry, starting at Offset into
// that section's decoded coordinate array. Offsets are section-local on the
// wire and re-based to global indices during assembly.
type Span struct {
	Offset                   int   `json:"offset"`
	NoticeRefs               []int `json:"notice_refs,omitempty"`
	NoThroughRestrictionRefs []int `json:"no_through_restriction_refs,omitempty"`
}

// RouteSection is one leg of the provider's response.
type RouteSection struct {
	ID                    string                 `json:"id,omitempty"`
	Polyline              string                 `json:"polyline"`
	Summary               SectionSummary         `json:"summary"`
	Spans                 []Span                 `json:"spans,omitempty"`
	Notices               []Notice               `json:"notices,omitempty"`
	NoThroughRestrictions []NoThroughRestriction `json:"no_through_restrictions,omitempty"`
}

// AssembledRoute is the single continuous route rebuilt from a multi-section
// provider response. It is recomputed in full on every response and never
// mutated incrementally.
type AssembledRoute struct {
	Coordinates           []GeoPoint             `json:"coordinates"`
	Spans                 []Span                 `json:"spans,omitempty"`
	Notices               []Notice               `json:"notices,omitempty"`
	NoThroughRestrictions []NoThroughRestriction `json:"no_through_restrictions,omitempty"`
	LengthMeters          int                    `json:"length_meters"`
	DurationSeconds       int                    `json:"duration_seconds"`
	// Tolls maps currency code to total. Currencies are never merged.
	Tolls map[string]float64 `json:"tolls,omitempty"`
}

// SpanSeverity returns the highest severity among the notices a span
// references. Blocked roads outrank violated vehicle restrictions, which
// outrank no-through restrictions. Callers use this for overlay coloring.
func SpanSeverity(span Span, notices []Notice) NoticeSeverity {
	max := SeverityInfo
	for _, ref := range span.NoticeRefs {
		if ref < 0 || ref >= len(notices) {
			continue
		}
		if s := notices[ref].Severity; s > max {
			max = s
		}
	}
	if max == SeverityInfo && len(span.NoThroughRestrictionRefs) > 0 {
		max = SeverityNoThrough
	}
	return max
}
