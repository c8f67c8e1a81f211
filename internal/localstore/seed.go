package localstore

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/finpro/contact-search-api/internal/models"
)

// seedBatchSize is the number of rows buffered before a flush
const seedBatchSize = 100

// SeedResult reports the outcome of a seeding run so the caller can decide
// whether to log or surface it.
type SeedResult struct {
	// Skipped is true when the store already held rows and seeding was a no-op
	Skipped bool
	// Rows is the number of rows inserted by this run
	Rows int64
}

// SeedFromCSV populates the store from a CSV resource with a header row.
// Seeding is idempotent per store lifetime: if the store already contains at
// least one record the run is skipped. Rows are buffered into batches of
// seedBatchSize and each batch is flushed atomically; cancellation is
// observed between batches, so already-issued flushes complete and no partial
// batch is ever written. Batches are flushed strictly in file order.
func (s *Store) SeedFromCSV(ctx context.Context, r io.Reader) (*SeedResult, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		s.log.Debug().Int64("existing", count).Msg("Store already seeded, skipping")
		return &SeedResult{Skipped: true}, nil
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	headerMap := make(map[string]int)
	for i, h := range header {
		headerMap[strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))] = i
	}

	result := &SeedResult{}
	batch := make([]models.Contact, 0, seedBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.PutBatch(ctx, batch); err != nil {
			return err
		}
		result.Rows += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, fmt.Errorf("failed to read CSV row: %w", err)
		}

		batch = append(batch, contactFromRecord(record, headerMap))

		if len(batch) >= seedBatchSize {
			if err := flush(); err != nil {
				return result, err
			}
			// Cancellation is checked only between batches so an in-flight
			// flush always completes
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			default:
			}
		}
	}

	if err := flush(); err != nil {
		return result, err
	}

	s.log.Info().Int64("rows", result.Rows).Msg("Store seeded from CSV")
	return result, nil
}

// contactFromRecord maps named CSV columns to Contact fields. Columns are
// matched exactly against the lower-case header names; a missing column maps
// to the empty string.
func contactFromRecord(record []string, headerMap map[string]int) models.Contact {
	field := func(name string) string {
		if idx, ok := headerMap[name]; ok && idx < len(record) {
			return models.CleanValue(record[idx])
		}
		return ""
	}
	return models.Contact{
		Name:                field("name"),
		Email:               field("email"),
		Phone:               field("phone"),
		Linkedin:            field("linkedin"),
		Position:            field("position"),
		Company:             field("company"),
		CompanyPhone:        field("company phone"),
		Website:             field("website"),
		Domain:              field("domain"),
		Facebook:            field("facebook"),
		Twitter:             field("twitter"),
		LinkedinCompanyPage: field("linkedin company page"),
		Country:             field("country"),
		State:               field("state"),
	}
}
