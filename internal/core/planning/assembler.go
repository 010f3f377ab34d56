package planning

import (
	"github.com/otzarri/fleetplan/internal/core/domain"
	"github.com/otzarri/fleetplan/internal/pkg/flexpolyline"
)

// Assemble reconstructs one continuous route from a multi-section provider
// response. Each section arrives independently polyline-encoded with
// section-local span offsets; assembly decodes, deduplicates the shared
// junction vertex between consecutive legs, and re-bases every span offset
// onto the merged coordinate array.
//
// A section whose polyline fails to decode contributes nothing: its
// coordinates and spans are dropped and offset bookkeeping continues as if
// the section had length zero, so one bad leg cannot shift every later
// restriction overlay along the path. Notices and no-through restrictions
// are not offset-based and are merged regardless.
func Assemble(sections []domain.RouteSection) domain.AssembledRoute {
	route := domain.AssembledRoute{}

	offset := 0 // coordinates actually appended so far
	for _, section := range sections {
		decoded, err := flexpolyline.Decode(section.Polyline)

		route.LengthMeters += section.Summary.LengthMeters
		route.DurationSeconds += section.Summary.DurationSeconds

		// Notice refs inside spans are section-local too; shift them onto
		// the merged notice slice before appending the section's notices.
		noticeBase := len(route.Notices)
		restrictionBase := len(route.NoThroughRestrictions)
		route.Notices = append(route.Notices, section.Notices...)
		route.NoThroughRestrictions = append(route.NoThroughRestrictions, section.NoThroughRestrictions...)

		if err != nil || len(decoded) == 0 {
			continue
		}

		// Consecutive legs share their junction vertex: the end of leg N is
		// the start of leg N+1. Appending both would add a double vertex and,
		// worse, shift every later span offset by one.
		base := offset
		points := decoded
		if len(route.Coordinates) > 0 {
			last := route.Coordinates[len(route.Coordinates)-1]
			first := domain.GeoPoint{Lat: decoded[0].Lat, Lon: decoded[0].Lon}
			if last == first {
				points = decoded[1:]
				base = offset - 1
			}
		}

		for _, span := range section.Spans {
			route.Spans = append(route.Spans, domain.Span{
				Offset:                   span.Offset + base,
				NoticeRefs:               shiftRefs(span.NoticeRefs, noticeBase),
				NoThroughRestrictionRefs: shiftRefs(span.NoThroughRestrictionRefs, restrictionBase),
			})
		}

		for _, p := range points {
			route.Coordinates = append(route.Coordinates, domain.GeoPoint{Lat: p.Lat, Lon: p.Lon})
		}
		offset = base + len(decoded)
	}

	route.Tolls = tollTotals(sections)
	return route
}

// tollTotals picks the provider's precomputed total from the first section
// when present; it reflects the whole route and is authoritative. Only when
// absent are individual fares summed, grouped per currency code. Currencies
// are never merged into one number.
func tollTotals(sections []domain.RouteSection) map[string]float64 {
	if len(sections) == 0 {
		return nil
	}

	if t := sections[0].Summary.Tolls; t != nil && t.Total != nil {
		return map[string]float64{t.Total.Currency: t.Total.Value}
	}

	var totals map[string]float64
	for _, section := range sections {
		if section.Summary.Tolls == nil {
			continue
		}
		for _, fare := range section.Summary.Tolls.Fares {
			if totals == nil {
				totals = make(map[string]float64)
			}
			totals[fare.Price.Currency] += fare.Price.Value
		}
	}
	return totals
}

func shiftRefs(refs []int, base int) []int {
	if len(refs) == 0 {
		return nil
	}
	out := make([]int, len(refs))
	for i, r := range refs {
		out[i] = r + base
	}
	return out
}
