package models

import "strings"

// Contact represents one denormalized lead record. Every field is always
// present; the empty string means "unknown". Fields are never null so filter
// logic stays total.
type Contact struct {
	ID                  int64  `json:"-" db:"id"`
	Name                string `json:"name" db:"name"`
	Email               string `json:"email" db:"email"`
	Phone               string `json:"phone" db:"phone"`
	Linkedin            string `json:"linkedin" db:"linkedin"`
	Position            string `json:"position" db:"position"`
	Company             string `json:"company" db:"company"`
	CompanyPhone        string `json:"companyPhone" db:"company_phone"`
	Website             string `json:"website" db:"website"`
	Domain              string `json:"domain" db:"domain"`
	Facebook            string `json:"facebook" db:"facebook"`
	Twitter             string `json:"twitter" db:"twitter"`
	LinkedinCompanyPage string `json:"linkedinCompanyPage" db:"linkedin_company_page"`
	Country             string `json:"country" db:"country"`
	State               string `json:"state" db:"state"`
}

// CleanValue trims surrounding whitespace and collapses the literal junk
// tokens "null" (any case) and "undefined" to the empty string. Source CSVs
// are inconsistent enough that these show up as real cell values.
func CleanValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "null") || v == "undefined" {
		return ""
	}
	return v
}

// SearchLogic is the boolean combinator applied across active filters
type SearchLogic string

const (
	LogicAnd SearchLogic = "AND"
	LogicOr  SearchLogic = "OR"
)

// SearchRequest is the query shape consumed by both the ClickHouse engine
// and the local fallback engine. Country and twitter are intentionally not
// filterable.
type SearchRequest struct {
	Logic               string `json:"logic"`
	Page                int    `json:"page"`
	PageSize            int    `json:"pageSize"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	Phone               string `json:"phone"`
	Linkedin            string `json:"linkedin"`
	Position            string `json:"position"`
	Company             string `json:"company"`
	CompanyPhone        string `json:"companyPhone"`
	Website             string `json:"website"`
	Domain              string `json:"domain"`
	Facebook            string `json:"facebook"`
	LinkedinCompanyPage string `json:"linkedinCompanyPage"`
	State               string `json:"state"`
}

// Normalize clamps pagination and logic to their valid ranges
func (r *SearchRequest) Normalize() {
	r.Logic = strings.ToUpper(strings.TrimSpace(r.Logic))
	if r.Logic != string(LogicOr) {
		r.Logic = string(LogicAnd)
	}
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize <= 0 || r.PageSize > 1000 {
		r.PageSize = 100
	}
}

// Filters returns the per-field filter values keyed by JSON field name.
// Inactive filters (empty after trimming) are omitted entirely.
func (r *SearchRequest) Filters() map[string]string {
	all := map[string]string{
		"name":                r.Name,
		"email":               r.Email,
		"phone":               r.Phone,
		"linkedin":            r.Linkedin,
		"position":            r.Position,
		"company":             r.Company,
		"companyPhone":        r.CompanyPhone,
		"website":             r.Website,
		"domain":              r.Domain,
		"facebook":            r.Facebook,
		"linkedinCompanyPage": r.LinkedinCompanyPage,
		"state":               r.State,
	}
	active := make(map[string]string)
	for k, v := range all {
		if strings.TrimSpace(v) != "" {
			active[k] = v
		}
	}
	return active
}

// SearchResponse is the result shape shared by both engines. For the local
// fallback engine Total is bounded by the scanned window; for ClickHouse it
// is the authoritative full-dataset count.
type SearchResponse struct {
	Rows     []Contact `json:"rows"`
	Total    int64     `json:"total"`
	Page     int       `json:"page,omitempty"`
	PageSize int       `json:"pageSize,omitempty"`
}
