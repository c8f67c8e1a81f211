package localstore

import (
	"context"
	"strings"

	"github.com/finpro/contact-search-api/internal/models"
)

// windowFactor bounds the candidate scan: the engine reads at most
// pageSize * windowFactor rows from the front of the store before filtering
const windowFactor = 10

// fieldAccessors maps a filter key to the Contact field it matches against.
// Adding or removing a searchable field is a one-line change here.
var fieldAccessors = map[string]func(*models.Contact) string{
	"name":                func(c *models.Contact) string { return c.Name },
	"email":               func(c *models.Contact) string { return c.Email },
	"phone":               func(c *models.Contact) string { return c.Phone },
	"linkedin":            func(c *models.Contact) string { return c.Linkedin },
	"position":            func(c *models.Contact) string { return c.Position },
	"company":             func(c *models.Contact) string { return c.Company },
	"companyPhone":        func(c *models.Contact) string { return c.CompanyPhone },
	"website":             func(c *models.Contact) string { return c.Website },
	"domain":              func(c *models.Contact) string { return c.Domain },
	"facebook":            func(c *models.Contact) string { return c.Facebook },
	"linkedinCompanyPage": func(c *models.Contact) string { return c.LinkedinCompanyPage },
	"state":               func(c *models.Contact) string { return c.State },
}

// Search answers a filtered, paginated query against the store without
// touching ClickHouse. The engine scans a bounded window of pageSize*10 rows
// in natural key order and filters in memory, so the reported total is the
// match count within that window, not the full store. Result sets larger
// than the window under-report total; that approximation is part of this
// engine's contract and must not be "fixed" to a full scan without
// reconsidering its performance envelope.
func (s *Store) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	req.Normalize()

	window, err := s.Window(ctx, req.PageSize*windowFactor)
	if err != nil {
		return nil, err
	}

	filters := req.Filters()
	matched := window
	if len(filters) > 0 {
		matched = matched[:0:0]
		for i := range window {
			if matches(&window[i], filters, req.Logic) {
				matched = append(matched, window[i])
			}
		}
	}

	total := len(matched)
	start := (req.Page - 1) * req.PageSize
	end := start + req.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	rows := matched[start:end]
	if rows == nil {
		rows = []models.Contact{}
	}

	return &models.SearchResponse{
		Rows:     rows,
		Total:    int64(total),
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

// matches applies the active predicates to one record. AND requires every
// predicate to hold, OR at least one. With zero active filters every record
// matches regardless of combinator.
func matches(c *models.Contact, filters map[string]string, logic string) bool {
	if len(filters) == 0 {
		return true
	}
	for key, value := range filters {
		accessor, ok := fieldAccessors[key]
		if !ok {
			continue
		}
		hit := containsFold(accessor(c), value)
		if logic == string(models.LogicOr) {
			if hit {
				return true
			}
		} else if !hit {
			return false
		}
	}
	return logic != string(models.LogicOr)
}

// containsFold reports whether field contains filter, case-insensitively.
// An empty filter always matches.
func containsFold(field, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(filter))
}
