package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmailSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "from:auto-confirm@amazon.in", r.URL.Query().Get("q"))
		assert.Equal(t, "25", r.URL.Query().Get("max"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{
				"id": "msg-001",
				"subject": "Your order has shipped",
				"from": "auto-confirm@amazon.in",
				"date": "Thu, 14 Mar 2024 23:30:00 +0000",
				"snippet": "Rs 1,499.00 spent at Amazon Retail",
				"body": "Order details inside."
			},
			{
				"id": "msg-002",
				"subject": "Newsletter",
				"from": "news@amazon.in",
				"date": "not a date",
				"snippet": "no purchase info here",
				"body": ""
			}
		]`))
	}))
	defer srv.Close()

	src := NewEmailSource("amazon", srv.URL, "from:auto-confirm@amazon.in", 25, map[string]string{"amazon": "Amazon.in"})
	src.now = fixedNow

	candidates, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	first := candidates[0]
	assert.Equal(t, "msg-001", first.NaturalKey)
	assert.Equal(t, "Your order has shipped", first.Subject)
	assert.Equal(t, "auto-confirm@amazon.in", first.FromAddress)
	assert.Equal(t, 1499.00, first.Amount)
	assert.Equal(t, "Amazon Retail", first.Merchant)
	// 23:30 UTC on March 14 is March 15 in the reference zone.
	assert.Equal(t, "2024-03-15", first.Date.Format("2006-01-02"))

	// No amount and no anchor: amount zero, merchant from display name,
	// date from the processing day.
	second := candidates[1]
	assert.Equal(t, "msg-002", second.NaturalKey)
	assert.Equal(t, 0.0, second.Amount)
	assert.Equal(t, "Amazon.in", second.Merchant)
	assert.Equal(t, "2024-06-01", second.Date.Format("2006-01-02"))
}

func TestEmailSource_Fetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewEmailSource("amazon", srv.URL, "q", 10, nil)
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestSMSSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"body": "Rs 450 debited at SWIGGY", "date": "2024-03-20T09:15:00"},
			{"body": "Your OTP is 482913", "date": "2024-03-20"},
			{"body": "INR 99 paid in PhonePe", "date": ""}
		]`))
	}))
	defer srv.Close()

	src := NewSMSSource(srv.URL)
	src.now = fixedNow

	candidates, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, 450.0, candidates[0].Amount)
	assert.Equal(t, "SWIGGY", candidates[0].Merchant)
	assert.Equal(t, "2024-03-20", candidates[0].Date.Format("2006-01-02"))
	assert.Empty(t, candidates[0].NaturalKey)

	assert.Equal(t, 99.0, candidates[1].Amount)
	assert.Equal(t, "PhonePe", candidates[1].Merchant)
	assert.Equal(t, "2024-06-01", candidates[1].Date.Format("2006-01-02"))
}

func TestSMSSource_Fetch_Unreachable(t *testing.T) {
	src := NewSMSSource("http://127.0.0.1:1")
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
}

func TestStatementSource_Fetch(t *testing.T) {
	dir := t.TempDir()

	csvBody := "Date,Description,Amount\n" +
		"15/03/2024,AMAZON RETAIL,\"1,499.00\"\n" +
		"16/03/2024,,200\n" +
		"17/03/2024,JUNK ROW,N/A\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "card.csv"), []byte(csvBody), 0o644))

	txtBody := "Statement of Account\n" +
		"15-03-2024 SWIGGY BANGALORE 450.50\n" +
		"TOTAL DEBITS 4500.00\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bank.txt"), []byte(txtBody), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "scan.pdf"), []byte("%PDF"), 0o644))

	src := NewStatementSource(dir, testLogger())
	src.now = fixedNow

	candidates, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	byMerchant := map[string]float64{}
	for _, c := range candidates {
		byMerchant[c.Merchant] = c.Amount
		assert.Empty(t, c.NaturalKey)
	}
	assert.Equal(t, 1499.00, byMerchant["AMAZON RETAIL"])
	assert.Equal(t, 200.0, byMerchant["Statement Item"])
	assert.Equal(t, 450.50, byMerchant["SWIGGY BANGALORE"])
}

func TestStatementSource_Fetch_MissingFolder(t *testing.T) {
	src := NewStatementSource(filepath.Join(t.TempDir(), "nope"), testLogger())
	_, err := src.Fetch(context.Background())
	require.Error(t, err)
}
