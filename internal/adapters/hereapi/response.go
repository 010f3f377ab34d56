package hereapi

import (
	"strings"

	"github.com/otzarri/fleetplan/internal/core/domain"
)

// Wire types for the subset of the routes response the planner consumes.

type routesResponse struct {
	Routes []wireRoute `json:"routes"`
}

type wireRoute struct {
	ID       string        `json:"id"`
	Sections []wireSection `json:"sections"`
}

type wireSection struct {
	ID                    string         `json:"id"`
	Polyline              string         `json:"polyline"`
	Summary               wireSummary    `json:"summary"`
	Spans                 []wireSpan     `json:"spans"`
	Notices               []wireNotice   `json:"notices"`
	NoThroughRestrictions []wireNoticeNT `json:"noThroughRestrictions"`
	Tolls                 []wireToll     `json:"tolls"`
	TollSummary           *struct {
		Total *wireMoney `json:"total"`
	} `json:"tollSummary"`
}

type wireSummary struct {
	Length   int `json:"length"`
	Duration int `json:"duration"`
}

type wireSpan struct {
	Offset                   int   `json:"offset"`
	NoticeIndices            []int `json:"noticeIndices"`
	NoThroughRestrictionRefs []int `json:"noThroughRestrictions"`
}

type wireNotice struct {
	Code     string `json:"code"`
	Title    string `json:"title"`
	Severity string `json:"severity"`
}

type wireNoticeNT struct {
	Type string `json:"type"`
}

type wireToll struct {
	Fares []wireFare `json:"fares"`
}

type wireFare struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Price wireMoney `json:"price"`
}

type wireMoney struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

func (ws wireSection) toDomain() domain.RouteSection {
	sec := domain.RouteSection{
		ID:       ws.ID,
		Polyline: ws.Polyline,
		Summary: domain.SectionSummary{
			LengthMeters:    ws.Summary.Length,
			DurationSeconds: ws.Summary.Duration,
		},
	}

	for _, sp := range ws.Spans {
		sec.Spans = append(sec.Spans, domain.Span{
			Offset:                   sp.Offset,
			NoticeRefs:               sp.NoticeIndices,
			NoThroughRestrictionRefs: sp.NoThroughRestrictionRefs,
		})
	}
	for _, n := range ws.Notices {
		sec.Notices = append(sec.Notices, domain.Notice{
			Code:     n.Code,
			Title:    n.Title,
			Severity: noticeSeverity(n.Code),
		})
	}
	for _, nt := range ws.NoThroughRestrictions {
		sec.NoThroughRestrictions = append(sec.NoThroughRestrictions, domain.NoThroughRestriction{Type: nt.Type})
	}

	if len(ws.Tolls) > 0 || ws.TollSummary != nil {
		info := &domain.TollInfo{}
		if ws.TollSummary != nil && ws.TollSummary.Total != nil {
			info.Total = &domain.Money{
				Value:    ws.TollSummary.Total.Value,
				Currency: ws.TollSummary.Total.Currency,
			}
		}
		for _, toll := range ws.Tolls {
			for _, f := range toll.Fares {
				info.Fares = append(info.Fares, domain.Fare{
					ID:   f.ID,
					Name: f.Name,
					Price: domain.Money{
						Value:    f.Price.Value,
						Currency: f.Price.Currency,
					},
				})
			}
		}
		sec.Summary.Tolls = info
	}

	return sec
}

// noticeSeverity ranks a notice by its code. Blocked roads outrank violated
// vehicle restrictions; anything unrecognized is informational.
func noticeSeverity(code string) domain.NoticeSeverity {
	switch {
	case strings.Contains(code, "blockedRoad"):
		return domain.SeverityBlockedRoad
	case strings.Contains(code, "violated") && strings.Contains(code, "Restriction"):
		return domain.SeverityViolatedRestriction
	case strings.Contains(code, "noThrough"):
		return domain.SeverityNoThrough
	default:
		return domain.SeverityInfo
	}
}
