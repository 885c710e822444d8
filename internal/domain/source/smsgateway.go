package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/FACorreiaa/finance-ingest/internal/domain/extract"
)

// gatewayMessage is one forwarded SMS from the gateway app.
type gatewayMessage struct {
	Body string `json:"body"`
	Date string `json:"date"` // YYYY-MM-DD, possibly with a time suffix
}

// SMSSource pulls forwarded messages from a phone-side gateway endpoint.
// Gateways expose no stable message id, so SMS candidates carry no
// natural key and rely on content-level dedup downstream.
type SMSSource struct {
	gatewayURL string
	client     *http.Client
	now        func() time.Time
}

func NewSMSSource(gatewayURL string) *SMSSource {
	return &SMSSource{
		gatewayURL: gatewayURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

func (s *SMSSource) Tag() string { return "sms" }

// Fetch retrieves the gateway inbox and keeps only messages that look
// like debit notifications. OTPs, promotions and balance alerts fail the
// transaction pattern and are dropped.
func (s *SMSSource) Fetch(ctx context.Context) ([]Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.gatewayURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	var messages []gatewayMessage
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("failed to decode sms gateway response: %w", err)
	}

	candidates := make([]Candidate, 0, len(messages))
	for _, msg := range messages {
		amount, merchant, ok := extract.SMSTransaction(msg.Body)
		if !ok {
			continue
		}

		dateStr := msg.Date
		if len(dateStr) > 10 {
			dateStr = dateStr[:10]
		}

		candidates = append(candidates, Candidate{
			Candidate: extract.Candidate{
				Date:     extract.DateOrNow(dateStr, s.now()),
				Merchant: merchant,
				Amount:   amount,
				Raw:      msg.Body,
			},
			Snippet: msg.Body,
		})
	}

	return candidates, nil
}
