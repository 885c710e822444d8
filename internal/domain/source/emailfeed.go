package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/FACorreiaa/finance-ingest/internal/domain/extract"
)

// feedMessage is one message from the email export bridge.
type feedMessage struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	Date    string `json:"date"` // RFC 5322 Date header
	Snippet string `json:"snippet"`
	Body    string `json:"body"`
}

// EmailSource fetches messages matching one search query from an email
// feed endpoint. Each configured query is its own source tag, and each
// message carries a stable id used as the natural key.
type EmailSource struct {
	tag          string
	feedURL      string
	query        string
	maxResults   int
	displayNames map[string]string
	client       *http.Client
	now          func() time.Time
}

// NewEmailSource creates an email feed source for a single query.
func NewEmailSource(tag, feedURL, query string, maxResults int, displayNames map[string]string) *EmailSource {
	return &EmailSource{
		tag:          tag,
		feedURL:      feedURL,
		query:        query,
		maxResults:   maxResults,
		displayNames: displayNames,
		client:       &http.Client{Timeout: 10 * time.Second},
		now:          time.Now,
	}
}

func (s *EmailSource) Tag() string { return s.tag }

// Fetch retrieves matching messages and extracts a candidate from each.
// A message without a recognizable amount still yields a candidate with
// amount 0.0 so the transaction is not silently lost.
func (s *EmailSource) Fetch(ctx context.Context) ([]Candidate, error) {
	u, err := url.Parse(s.feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed url: %w", err)
	}
	q := u.Query()
	q.Set("q", s.query)
	q.Set("max", strconv.Itoa(s.maxResults))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch email feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("email feed returned status %d", resp.StatusCode)
	}

	var messages []feedMessage
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("failed to decode email feed: %w", err)
	}

	candidates := make([]Candidate, 0, len(messages))
	for _, msg := range messages {
		full := msg.Subject + "\n" + msg.Snippet + "\n" + msg.Body

		amount, _ := extract.Amount(full)
		candidates = append(candidates, Candidate{
			Candidate: extract.Candidate{
				Date:     extract.EmailDate(msg.Date, s.now()),
				Merchant: extract.MerchantOrFallback(full, s.tag, s.displayNames),
				Amount:   amount,
				Raw:      msg.Snippet,
			},
			NaturalKey:  msg.ID,
			Subject:     msg.Subject,
			FromAddress: msg.From,
			Snippet:     msg.Snippet,
		})
	}

	return candidates, nil
}
