package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PaginatedResponse wraps list results with pagination metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination contains offset-based pagination info.
type Pagination struct {
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// SetLinkHeaders adds RFC 8288 Link headers and X-Total-Count for paginated
// responses, and fills in the HasMore flag. It uses the current request path.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) Pagination {
	p.HasMore = p.Offset+p.Limit < p.Total

	base := c.Path()
	links := []string{
		fmt.Sprintf(`<%s?offset=0&limit=%d>; rel="first"`, base, p.Limit),
	}

	if p.Offset > 0 {
		prev := p.Offset - p.Limit
		if prev < 0 {
			prev = 0
		}
		links = append(links, fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="prev"`, base, prev, p.Limit))
	}

	if p.HasMore {
		links = append(links, fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="next"`, base, p.Offset+p.Limit, p.Limit))
	}

	lastOffset := p.Total - p.Limit
	if lastOffset < 0 {
		lastOffset = 0
	}
	links = append(links, fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="last"`, base, lastOffset, p.Limit))

	c.Set("Link", strings.Join(links, ", "))
	c.Set("X-Total-Count", fmt.Sprintf("%d", p.Total))
	return p
}
