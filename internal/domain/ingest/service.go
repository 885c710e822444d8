// Package ingest normalizes extracted candidates into canonical records
// and drives the periodic fetch-store-categorize cycle.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/FACorreiaa/finance-ingest/internal/domain/source"
	"github.com/FACorreiaa/finance-ingest/internal/domain/transaction"
	"github.com/FACorreiaa/finance-ingest/pkg/observability"
)

// maxSnippetLen bounds the raw text stored per record so one verbose
// email body cannot bloat the table.
const maxSnippetLen = 1000

// Outcome summarizes one source's ingestion pass.
type Outcome struct {
	Inserted int
	Skipped  map[string]int
}

func (o Outcome) skipped(reason string) Outcome {
	if o.Skipped == nil {
		o.Skipped = make(map[string]int)
	}
	o.Skipped[reason]++
	return o
}

// Service writes normalized candidates to the store.
type Service struct {
	store    transaction.Store
	currency string
	logger   *slog.Logger
}

func NewService(store transaction.Store, currency string, logger *slog.Logger) *Service {
	return &Service{store: store, currency: currency, logger: logger}
}

// normalize maps a source candidate onto the canonical record shape.
// Dates are truncated to day precision and optional fields become NULLs
// rather than empty strings.
func (s *Service) normalize(tag string, c source.Candidate) *transaction.Record {
	snippet := c.Snippet
	if snippet == "" {
		snippet = c.Raw
	}
	snippet = truncateSnippet(snippet)

	rec := &transaction.Record{
		Date:       truncateToDay(c.Date),
		Merchant:   c.Merchant,
		Amount:     c.Amount,
		Currency:   s.currency,
		Source:     tag,
		RawSnippet: snippet,
	}
	if c.NaturalKey != "" {
		rec.NaturalKey = &c.NaturalKey
	}
	if c.Subject != "" {
		rec.Subject = &c.Subject
	}
	if c.FromAddress != "" {
		rec.FromAddress = &c.FromAddress
	}
	return rec
}

// truncateSnippet cuts on a rune boundary so a multibyte character
// straddling the limit cannot produce invalid UTF-8, which Postgres
// rejects at insert time.
func truncateSnippet(s string) string {
	if len(s) <= maxSnippetLen {
		return s
	}
	cut := maxSnippetLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Ingest upserts every candidate from one source and reports what was
// inserted versus skipped. Candidates without a merchant are dropped:
// a record with no merchant cannot be categorized or displayed.
func (s *Service) Ingest(ctx context.Context, tag string, candidates []source.Candidate) (Outcome, error) {
	outcome := Outcome{}
	for _, cand := range candidates {
		if cand.Merchant == "" {
			outcome = outcome.skipped("no_merchant")
			observability.RecordsSkipped.WithLabelValues(tag, "no_merchant").Inc()
			continue
		}

		inserted, err := s.store.Upsert(ctx, s.normalize(tag, cand))
		if err != nil {
			return outcome, fmt.Errorf("failed to upsert candidate: %w", err)
		}
		if inserted {
			outcome.Inserted++
			observability.RecordsIngested.WithLabelValues(tag).Inc()
		} else {
			outcome = outcome.skipped("duplicate")
			observability.RecordsSkipped.WithLabelValues(tag, "duplicate").Inc()
		}
	}

	s.logger.Info("source ingested",
		slog.String("source", tag),
		slog.Int("candidates", len(candidates)),
		slog.Int("inserted", outcome.Inserted),
		slog.Any("skipped", outcome.Skipped))

	return outcome, nil
}
