package service

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/finpro/contact-search-api/internal/config"
	"github.com/finpro/contact-search-api/internal/models"
	"github.com/finpro/contact-search-api/internal/repository"
)

// ingestService is the concrete implementation of IngestService. Uploads
// are processed in background goroutines; a semaphore caps how many CSVs
// are ingested concurrently.
type ingestService struct {
	repos *repository.Repositories
	cfg   *config.Config
	log   zerolog.Logger
	sem   chan struct{}
	wg    sync.WaitGroup
}

// newIngestService creates a new IngestService
func newIngestService(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *ingestService {
	maxConcurrency := cfg.Ingest.MaxConcurrency
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &ingestService{
		repos: repos,
		cfg:   cfg,
		log:   log.With().Str("service", "ingest").Logger(),
		sem:   make(chan struct{}, maxConcurrency),
	}
}

// Record persists a freshly staged upload and returns its id
func (s *ingestService) Record(ctx context.Context, upload *models.Upload) (int64, error) {
	return s.repos.Upload.Create(ctx, upload)
}

// List returns recent uploads, newest first
func (s *ingestService) List(ctx context.Context, limit int) ([]models.Upload, error) {
	return s.repos.Upload.List(ctx, limit)
}

// Start schedules ingestion of an uploaded CSV. It returns immediately; the
// semaphore provides backpressure against too many concurrent ingestions.
func (s *ingestService) Start(uploadID int64, path string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sem <- struct{}{}
		defer func() { <-s.sem }()
		s.process(context.Background(), uploadID, path)
	}()
}

// Wait blocks until all in-flight ingestions have finished
func (s *ingestService) Wait() {
	s.wg.Wait()
}

// process streams one CSV into ClickHouse in batches, updating the upload
// row with progress as it goes. The upload file is removed on success.
func (s *ingestService) process(ctx context.Context, uploadID int64, path string) {
	start := time.Now()

	if err := s.repos.Upload.MarkProcessing(ctx, uploadID); err != nil {
		s.log.Error().Err(err).Int64("upload_id", uploadID).Msg("Failed to mark upload processing")
		return
	}

	file, err := os.Open(path)
	if err != nil {
		s.fail(ctx, uploadID, fmt.Errorf("open: %w", err))
		return
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		s.fail(ctx, uploadID, fmt.Errorf("read header: %w", err))
		return
	}
	headerMap := make(map[string]int)
	for i, h := range header {
		headerMap[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))] = i
	}
	if !hasKnownColumn(headerMap) {
		s.fail(ctx, uploadID, errors.New("no recognized columns in CSV"))
		return
	}

	batchSize := s.cfg.Ingest.BatchSize
	batch := make([]models.Contact, 0, batchSize)
	var inserted int64
	var lastUpdate time.Time
	const updateEvery = time.Second

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.repos.Contact.BatchInsert(ctx, batch, uploadID); err != nil {
			return err
		}
		inserted += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.fail(ctx, uploadID, fmt.Errorf("read: %w", err))
			return
		}

		batch = append(batch, contactFromCSV(record, headerMap))

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				s.fail(ctx, uploadID, fmt.Errorf("flush: %w", err))
				return
			}
		}

		if time.Since(lastUpdate) >= updateEvery {
			lastUpdate = time.Now()
			if err := s.repos.Upload.UpdateProgress(ctx, uploadID, inserted+int64(len(batch))); err != nil {
				s.log.Warn().Err(err).Int64("upload_id", uploadID).Msg("Failed to update progress")
			}
		}
	}

	if err := flush(); err != nil {
		s.fail(ctx, uploadID, fmt.Errorf("final flush: %w", err))
		return
	}

	if err := s.repos.Upload.MarkSucceeded(ctx, uploadID, inserted); err != nil {
		s.log.Error().Err(err).Int64("upload_id", uploadID).Msg("Failed to mark upload succeeded")
	}
	if err := os.Remove(path); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("Failed to remove ingested file")
	}

	s.log.Info().
		Int64("upload_id", uploadID).
		Int64("rows", inserted).
		Dur("duration", time.Since(start)).
		Float64("rows_per_sec", float64(inserted)/time.Since(start).Seconds()).
		Msg("Ingestion completed")
}

// fail records an ingestion failure. Already-flushed batches stay in the
// dataset; the upload row carries the reason.
func (s *ingestService) fail(ctx context.Context, uploadID int64, err error) {
	s.log.Error().Err(err).Int64("upload_id", uploadID).Msg("Ingestion failed")
	if markErr := s.repos.Upload.MarkFailed(ctx, uploadID, err.Error()); markErr != nil {
		s.log.Error().Err(markErr).Int64("upload_id", uploadID).Msg("Failed to mark upload failed")
	}
}

// contactColumnNames are the CSV header names consumed by ingestion; any
// other column is ignored
var contactColumnNames = []string{
	"name", "email", "phone", "linkedin", "position", "company",
	"company phone", "website", "domain", "facebook", "twitter",
	"linkedin company page", "country", "state",
}

func hasKnownColumn(headerMap map[string]int) bool {
	for _, name := range contactColumnNames {
		if _, ok := headerMap[name]; ok {
			return true
		}
	}
	return false
}

// contactFromCSV maps named columns to Contact fields, cleaning junk tokens
func contactFromCSV(record []string, headerMap map[string]int) models.Contact {
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
