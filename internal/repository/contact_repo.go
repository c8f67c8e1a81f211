package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/finpro/contact-search-api/internal/clickhouse"
	"github.com/finpro/contact-search-api/internal/models"
)

// contactRepo is the concrete implementation of ContactRepository, backed by
// the ClickHouse contacts table
type contactRepo struct {
	ck *clickhouse.Conn
}

// NewContactRepo creates a new contact repository
func NewContactRepo(ck *clickhouse.Conn) ContactRepository {
	return &contactRepo{ck: ck}
}

const contactColumns = `name, email, phone, linkedin, position, company, company_phone, website, domain, facebook, twitter, linkedin_company_page, country, state`

// Search runs the authoritative search. The data page and the full match
// count are fetched in parallel; unlike the local fallback engine, total
// here covers the whole dataset.
func (r *contactRepo) Search(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	req.Normalize()
	offset := (req.Page - 1) * req.PageSize

	timeout := r.ck.QueryTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	where, args := buildWhere(req)
	if where == "" {
		where = "1"
	}

	type dataResult struct {
		rows []models.Contact
		err  error
	}
	type countResult struct {
		total uint64
		err   error
	}
	dataChan := make(chan dataResult, 1)
	countChan := make(chan countResult, 1)

	go func() {
		query := fmt.Sprintf(`SELECT %s FROM contacts WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
			contactColumns, where, req.PageSize, offset)
		rows, err := r.ck.Query(ctx, query, args...)
		if err != nil {
			dataChan <- dataResult{err: err}
			return
		}
		defer rows.Close()

		var out []models.Contact
		for rows.Next() {
			var c models.Contact
			err := rows.Scan(
				&c.Name, &c.Email, &c.Phone, &c.Linkedin, &c.Position, &c.Company,
				&c.CompanyPhone, &c.Website, &c.Domain, &c.Facebook, &c.Twitter,
				&c.LinkedinCompanyPage, &c.Country, &c.State,
			)
			if err != nil {
				dataChan <- dataResult{err: err}
				return
			}
			out = append(out, c)
		}
		dataChan <- dataResult{rows: out, err: rows.Err()}
	}()

	go func() {
		query := fmt.Sprintf(`SELECT count() FROM contacts WHERE %s`, where)
		var total uint64
		err := r.ck.QueryRow(ctx, query, args...).Scan(&total)
		countChan <- countResult{total: total, err: err}
	}()

	dataRes := <-dataChan
	countRes := <-countChan

	if dataRes.err != nil {
		return nil, fmt.Errorf("contact search failed: %w", dataRes.err)
	}
	if countRes.err != nil {
		return nil, fmt.Errorf("contact count failed: %w", countRes.err)
	}

	rows := dataRes.rows
	if rows == nil {
		rows = []models.Contact{}
	}

	return &models.SearchResponse{
		Rows:     rows,
		Total:    int64(countRes.total),
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

// BatchInsert appends a batch of contacts to the dataset, tagged with the
// originating upload
func (r *contactRepo) BatchInsert(ctx context.Context, contacts []models.Contact, fileID int64) error {
	if len(contacts) == 0 {
		return nil
	}

	batch, err := r.ck.PrepareBatch(ctx, fmt.Sprintf(`INSERT INTO contacts (%s, file_id, created_at) VALUES`, contactColumns))
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	now := time.Now()
	for i := range contacts {
		c := &contacts[i]
		err := batch.Append(
			c.Name, c.Email, c.Phone, c.Linkedin, c.Position, c.Company,
			c.CompanyPhone, c.Website, c.Domain, c.Facebook, c.Twitter,
			c.LinkedinCompanyPage, c.Country, c.State,
			uint64(fileID), now,
		)
		if err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// Count returns the total number of contacts in the dataset
func (r *contactRepo) Count(ctx context.Context) (uint64, error) {
	var count uint64
	err := r.ck.QueryRow(ctx, `SELECT count() FROM contacts`).Scan(&count)
	return count, err
}

// buildWhere constructs the WHERE clause. AND requires all filled filters to
// match, OR any of them. LIKE runs against the lowercased materialized
// columns so the ngram bloom filter indexes apply; phone filters compare
// digits only.
func buildWhere(req *models.SearchRequest) (string, []interface{}) {
	var parts []string
	var args []interface{}

	add := func(expr, val string) {
		if strings.TrimSpace(val) == "" {
			return
		}
		parts = append(parts, expr+" LIKE ?")
		args = append(args, "%"+strings.ToLower(val)+"%")
	}

	add("name_lc", req.Name)
	add("email_lc", req.Email)
	add("replaceRegexpAll(phone, '[^0-9]+', '')", onlyDigits(req.Phone))
	add("linkedin_lc", req.Linkedin)
	add("position_lc", req.Position)
	add("company_lc", req.Company)
	add("replaceRegexpAll(company_phone, '[^0-9]+', '')", onlyDigits(req.CompanyPhone))
	add("website_lc", req.Website)
	add("domain_lc", req.Domain)
	add("facebook_lc", req.Facebook)
	add("linkedin_company_page_lc", req.LinkedinCompanyPage)
	add("lowerUTF8(state)", req.State)

	if len(parts) == 0 {
		return "", nil
	}
	return "(" + strings.Join(parts, " "+req.Logic+" ") + ")", args
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
