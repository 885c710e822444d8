// Package source implements the connectors that pull raw financial
// signals (email feed, SMS gateway, statement files) and extract
// candidate transactions from them.
package source

import (
	"context"

	"github.com/FACorreiaa/finance-ingest/internal/domain/extract"
)

// Candidate couples an extracted (date, merchant, amount) tuple with the
// source metadata the normalizer needs.
type Candidate struct {
	extract.Candidate

	// NaturalKey is the source-provided stable identifier used for
	// dedup. Empty for sources without one (SMS, statement lines).
	NaturalKey  string
	Subject     string
	FromAddress string
	Snippet     string
}

// Source fetches candidates from one configured origin. A Fetch error
// means the source is unreachable this cycle; individual messages that
// yield no candidate are skipped silently inside Fetch.
type Source interface {
	Tag() string
	Fetch(ctx context.Context) ([]Candidate, error)
}
