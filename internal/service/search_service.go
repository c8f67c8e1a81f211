package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/finpro/contact-search-api/internal/localstore"
	"github.com/finpro/contact-search-api/internal/models"
	"github.com/finpro/contact-search-api/internal/repository"
)

// searchService is the concrete implementation of SearchService
type searchService struct {
	repos *repository.Repositories
	local *localstore.Store
	log   zerolog.Logger
}

// newSearchService creates a new SearchService
func newSearchService(repos *repository.Repositories, local *localstore.Store, log zerolog.Logger) *searchService {
	return &searchService{
		repos: repos,
		local: local,
		log:   log.With().Str("service", "search").Logger(),
	}
}

// usageDate returns today's quota date. The daily window resets at IST
// midnight to match the user base.
func usageDate() string {
	ist, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.Now().UTC().Format("2006-01-02")
	}
	return time.Now().In(ist).Format("2006-01-02")
}

// normalizedKey builds a canonical representation of a query for cache
// lookups and history correlation
func normalizedKey(req *models.SearchRequest) string {
	norm := func(s string) string { return strings.TrimSpace(strings.ToLower(s)) }
	return fmt.Sprintf("logic=%s|name=%s|email=%s|phone=%s|linkedin=%s|position=%s|company=%s|companyPhone=%s|website=%s|domain=%s|facebook=%s|linkedinCompanyPage=%s|state=%s|page=%d|size=%d",
		req.Logic, norm(req.Name), norm(req.Email), norm(req.Phone), norm(req.Linkedin),
		norm(req.Position), norm(req.Company), norm(req.CompanyPhone), norm(req.Website),
		norm(req.Domain), norm(req.Facebook), norm(req.LinkedinCompanyPage), norm(req.State),
		req.Page, req.PageSize,
	)
}

// Search answers a contact query. Identical repeated queries on the same
// device are served from the last-search cache without consuming quota.
// ClickHouse is the authoritative engine; if it fails and a local store is
// configured the windowed fallback engine answers instead (its total is
// window-bounded). Only searches with results count against the daily limit.
func (s *searchService) Search(ctx context.Context, claims *models.AuthClaims, req *models.SearchRequest, ip, userAgent string) (*models.SearchResponse, error) {
	req.Normalize()
	key := normalizedKey(req)

	cached, err := s.repos.SearchLog.GetSnapshotByKey(ctx, claims.UserID, claims.DeviceFingerprint, key)
	if err != nil {
		s.log.Warn().Err(err).Msg("Snapshot lookup failed")
	}
	if cached != nil && cached.TotalResults > 0 {
		var rows []models.Contact
		if err := json.Unmarshal(cached.Snapshot, &rows); err == nil {
			return &models.SearchResponse{Rows: rows, Total: cached.TotalResults, Page: req.Page, PageSize: req.PageSize}, nil
		}
	}

	user, err := s.repos.User.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	used, err := s.repos.SearchLog.GetDailyUsage(ctx, claims.UserID, usageDate())
	if err != nil {
		return nil, err
	}
	if used >= user.DailySearchLimit {
		return nil, ErrQuotaExceeded
	}

	resp, err := s.repos.Contact.Search(ctx, req)
	if err != nil {
		resp = s.fallback(ctx, req, err)
	}

	s.record(ctx, claims, req, key, resp, ip, userAgent)
	return resp, nil
}

// fallback answers from the local store when ClickHouse is down. When even
// that fails the user sees an empty result set rather than an error page.
func (s *searchService) fallback(ctx context.Context, req *models.SearchRequest, cause error) *models.SearchResponse {
	if s.local == nil {
		s.log.Error().Err(cause).Msg("Search failed and no local store configured")
		return &models.SearchResponse{Rows: []models.Contact{}, Total: 0, Page: req.Page, PageSize: req.PageSize}
	}

	s.log.Warn().Err(cause).Msg("Search failed, answering from local store")
	resp, err := s.local.Search(ctx, req)
	if err != nil {
		s.log.Error().Err(err).Msg("Local store search failed")
		return &models.SearchResponse{Rows: []models.Contact{}, Total: 0, Page: req.Page, PageSize: req.PageSize}
	}
	return resp
}

// record logs the search, refreshes the device snapshot, and consumes quota.
// All of it is best-effort; a failed write never fails the search.
func (s *searchService) record(ctx context.Context, claims *models.AuthClaims, req *models.SearchRequest, key string, resp *models.SearchResponse, ip, userAgent string) {
	snapshot, err := json.Marshal(resp.Rows)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal snapshot")
		return
	}
	params, _ := json.Marshal(req)

	if err := s.repos.SearchLog.Insert(ctx, &models.SearchLog{
		UserID:            claims.UserID,
		DeviceFingerprint: claims.DeviceFingerprint,
		IPAddress:         ip,
		UserAgent:         userAgent,
		Params:            params,
		NormalizedKey:     key,
		TotalResults:      resp.Total,
	}); err != nil {
		s.log.Warn().Err(err).Msg("Failed to log search")
	}

	if err := s.repos.SearchLog.UpsertSnapshot(ctx, &models.SearchSnapshot{
		UserID:            claims.UserID,
		DeviceFingerprint: claims.DeviceFingerprint,
		NormalizedKey:     key,
		Snapshot:          snapshot,
		TotalResults:      resp.Total,
		Params:            params,
	}); err != nil {
		s.log.Warn().Err(err).Msg("Failed to cache snapshot")
	}

	if resp.Total > 0 {
		if err := s.repos.SearchLog.IncrementDailyUsage(ctx, claims.UserID, usageDate()); err != nil {
			s.log.Warn().Err(err).Msg("Failed to increment usage")
		}
	}
}

// History returns a page of the user's past searches
func (s *searchService) History(ctx context.Context, userID string, page, limit int) ([]models.SearchLog, int, error) {
	return s.repos.SearchLog.ListByUser(ctx, userID, page, limit)
}

// LastSearch returns the cached last search for the user's current device
func (s *searchService) LastSearch(ctx context.Context, userID, fingerprint string) (*models.SearchSnapshot, error) {
	return s.repos.SearchLog.GetSnapshot(ctx, userID, fingerprint)
}
