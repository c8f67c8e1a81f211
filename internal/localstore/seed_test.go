package localstore_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

const seedHeader = "name, email, phone, linkedin, position, company, company phone, website, domain, facebook, twitter, linkedin company page, country, state"

func seedCSV(rows ...string) string {
	return seedHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

func TestSeedFromCSV(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	csv := seedCSV(
		"Alice Johnson,alice@acme.com,555-0101,,Engineer,Acme,,,acme.com,,,,US,California",
		"Bob Smith,bob@globex.com,555-0202,,Manager,Globex,,,globex.com,,,,US,Texas",
	)

	result, err := store.SeedFromCSV(ctx, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("SeedFromCSV failed: %v", err)
	}
	if result.Skipped {
		t.Error("first seed should not be skipped")
	}
	if result.Rows != 2 {
		t.Errorf("expected 2 rows seeded, got %d", result.Rows)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 rows in store, got %d", count)
	}

	window, err := store.Window(ctx, 10)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if window[0].Name != "Alice Johnson" || window[0].Email != "alice@acme.com" {
		t.Errorf("unexpected first row: %+v", window[0])
	}
	if window[1].Company != "Globex" || window[1].State != "Texas" {
		t.Errorf("unexpected second row: %+v", window[1])
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := seedCSV("Alice,alice@acme.com,,,,,,,,,,,,")
	if _, err := store.SeedFromCSV(ctx, strings.NewReader(first)); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}

	// A second run with different content must be a no-op
	second := seedCSV(
		"Carol,carol@initech.com,,,,,,,,,,,,",
		"Dave,dave@initech.com,,,,,,,,,,,,",
	)
	result, err := store.SeedFromCSV(ctx, strings.NewReader(second))
	if err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	if !result.Skipped {
		t.Error("second seed should be skipped")
	}
	if result.Rows != 0 {
		t.Errorf("second seed inserted %d rows, want 0", result.Rows)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row after reseed, got %d", count)
	}
}

func TestSeedNormalizesJunkValues(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	csv := seedCSV(
		"null,NULL,undefined,  Null ,ok, trimmed  ,,,,,,,,",
	)
	if _, err := store.SeedFromCSV(ctx, strings.NewReader(csv)); err != nil {
		t.Fatalf("SeedFromCSV failed: %v", err)
	}

	window, err := store.Window(ctx, 1)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	c := window[0]
	if c.Name != "" || c.Email != "" || c.Phone != "" || c.Linkedin != "" {
		t.Errorf("junk tokens not normalized: %+v", c)
	}
	if c.Position != "ok" {
		t.Errorf("Position = %q, want %q", c.Position, "ok")
	}
	if c.Company != "trimmed" {
		t.Errorf("Company = %q, want %q", c.Company, "trimmed")
	}
}

func TestSeedStripsHeaderBOM(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	csv := "\uFEFF" + seedCSV("Alice,alice@acme.com,,,,,,,,,,,,")
	if _, err := store.SeedFromCSV(ctx, strings.NewReader(csv)); err != nil {
		t.Fatalf("SeedFromCSV failed: %v", err)
	}

	window, err := store.Window(ctx, 1)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if window[0].Name != "Alice" {
		t.Errorf("BOM-prefixed name column not matched, got %+v", window[0])
	}
}

func TestSeedUnknownColumnsIgnored(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	csv := "name,unknown column,email\nAlice,junk,alice@acme.com\n"
	if _, err := store.SeedFromCSV(ctx, strings.NewReader(csv)); err != nil {
		t.Fatalf("SeedFromCSV failed: %v", err)
	}

	window, err := store.Window(ctx, 1)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if window[0].Name != "Alice" || window[0].Email != "alice@acme.com" {
		t.Errorf("unexpected row: %+v", window[0])
	}
	if window[0].Phone != "" {
		t.Errorf("missing column should map to empty string, got %q", window[0].Phone)
	}
}

func TestSeedShortRecords(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// A record with fewer cells than the header must not panic; missing
	// trailing columns map to the empty string
	csv := seedHeader + "\nAlice,alice@acme.com\n"
	if _, err := store.SeedFromCSV(ctx, strings.NewReader(csv)); err != nil {
		t.Fatalf("SeedFromCSV failed: %v", err)
	}

	window, err := store.Window(ctx, 1)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if window[0].Name != "Alice" || window[0].State != "" {
		t.Errorf("unexpected row: %+v", window[0])
	}
}

func TestSeedFlushesInBatches(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	// 250 rows spans two full batches plus a final partial flush
	rows := make([]string, 250)
	for i := range rows {
		rows[i] = fmt.Sprintf("contact-%03d,c%03d@acme.com,,,,,,,,,,,,", i, i)
	}
	result, err := store.SeedFromCSV(ctx, strings.NewReader(seedCSV(rows...)))
	if err != nil {
		t.Fatalf("SeedFromCSV failed: %v", err)
	}
	if result.Rows != 250 {
		t.Errorf("expected 250 rows seeded, got %d", result.Rows)
	}

	window, err := store.Window(ctx, 300)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if len(window) != 250 {
		t.Fatalf("expected 250 rows, got %d", len(window))
	}
	// File order must survive batching
	if window[0].Name != "contact-000" || window[249].Name != "contact-249" {
		t.Errorf("rows out of order: first=%q last=%q", window[0].Name, window[249].Name)
	}
}

// cancelingLineReader yields one CSV line per Read call and cancels the
// context just before delivering line cancelAt, so cancellation lands at a
// known point in the row stream.
type cancelingLineReader struct {
	lines    []string
	next     int
	cancelAt int
	cancel   context.CancelFunc
}

func (r *cancelingLineReader) Read(p []byte) (int, error) {
	if r.next >= len(r.lines) {
		return 0, io.EOF
	}
	if r.next == r.cancelAt {
		r.cancel()
	}
	line := r.lines[r.next] + "\n"
	r.next++
	return copy(p, line), nil
}

func TestSeedCancelledBetweenBatches(t *testing.T) {
	store := openTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make([]string, 0, 151)
	lines = append(lines, seedHeader)
	for i := 0; i < 150; i++ {
		lines = append(lines, fmt.Sprintf("contact-%03d,c%03d@acme.com,,,,,,,,,,,,", i, i))
	}
	// Cancel while reading row 101, after the first batch of 100 has been
	// flushed. The flushed batch must survive; nothing past it may land.
	r := &cancelingLineReader{lines: lines, cancelAt: 101, cancel: cancel}

	result, err := store.SeedFromCSV(ctx, r)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.Rows != 100 {
		t.Errorf("Rows = %d, want 100", result.Rows)
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 100 {
		t.Errorf("expected exactly the first batch persisted, got %d rows", count)
	}
}

func TestSeedCancelledContext(t *testing.T) {
	store := openTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.SeedFromCSV(ctx, strings.NewReader(seedCSV("Alice,,,,,,,,,,,,,")))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no rows persisted, got %d", count)
	}
}
