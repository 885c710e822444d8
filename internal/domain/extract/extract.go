// Package extract turns free-form financial text into structured
// candidate fields. Every function here is pure so each heuristic can be
// tested in isolation from store and network concerns.
package extract

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Candidate is the (date, merchant, amount) tuple an extractor produces
// before normalization into a canonical record.
type Candidate struct {
	Date     time.Time
	Merchant string
	Amount   float64
	Raw      string
}

// Amount patterns accept the numeric token either after or before a
// currency marker (symbol or code), with up to two decimal digits.
// Thousands separators are stripped before matching.
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:₹|INR|Rs\.?)\s*([0-9]+(?:\.[0-9]{1,2})?)`),
	regexp.MustCompile(`(?i)([0-9]+(?:\.[0-9]{1,2})?)\s*(?:INR|₹|Rs\.?)`),
}

// Amount finds the first currency-marked numeric token in document
// order. Absence of a match is not an error; the caller decides whether
// to default or drop.
func Amount(text string) (float64, bool) {
	cleaned := strings.ReplaceAll(text, ",", "")

	best := -1
	var bestVal float64
	for _, pat := range amountPatterns {
		loc := pat.FindStringSubmatchIndex(cleaned)
		if loc == nil {
			continue
		}
		if best != -1 && loc[0] >= best {
			continue
		}
		val, err := strconv.ParseFloat(cleaned[loc[2]:loc[3]], 64)
		if err != nil {
			continue
		}
		best = loc[0]
		bestVal = val
	}

	if best == -1 {
		return 0, false
	}
	return bestVal, true
}

// Merchant anchor phrases, tried in order. A match is only accepted when
// the trimmed span is 2-64 characters long.
var merchantAnchors = []*regexp.Regexp{
	regexp.MustCompile(`(?i)at\s+([A-Za-z0-9 &\-\._]+)`),
	regexp.MustCompile(`(?i)merchant\s*:\s*([A-Za-z0-9 &\-\._]+)`),
	regexp.MustCompile(`(?i)spent at\s+([A-Za-z0-9 &\-\._]+)`),
}

// Merchant extracts a merchant name from anchor phrases like "at X" or
// "merchant: X".
func Merchant(text string) (string, bool) {
	for _, pat := range merchantAnchors {
		m := pat.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := strings.Trim(m[1], " .,-")
		if len(name) >= 2 && len(name) <= 64 {
			return name, true
		}
	}
	return "", false
}

// MerchantOrFallback falls back to the per-source display name, then to
// a title-cased source tag, when no anchor matches.
func MerchantOrFallback(text, sourceTag string, displayNames map[string]string) string {
	if name, ok := Merchant(text); ok {
		return name
	}
	if label, ok := displayNames[sourceTag]; ok {
		return label
	}
	return titleCase(sourceTag)
}

func titleCase(s string) string {
	prevLetter := false
	return strings.Map(func(r rune) rune {
		wasLetter := prevLetter
		prevLetter = unicode.IsLetter(r)
		if !wasLetter {
			return unicode.ToUpper(r)
		}
		return unicode.ToLower(r)
	}, s)
}

// Date formats accepted across sources: day-month-year in two
// punctuation variants and ISO year-month-day.
var dateFormats = []string{
	"02-01-2006",
	"02/01/2006",
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
}

// ParseDate parses a bare calendar date in any accepted textual order.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, format := range dateFormats {
		if t, err := time.ParseInLocation(format, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateOrNow parses a date and falls back to the processing day on
// failure. Best-effort by design: a bad date never drops a record.
func DateOrNow(raw string, now time.Time) time.Time {
	if t, ok := ParseDate(raw); ok {
		return t
	}
	return Day(now)
}

// Day truncates a timestamp to day precision.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// referenceZone is the fixed zone email timestamps are normalized in.
var referenceZone = loadReferenceZone()

func loadReferenceZone() *time.Location {
	if loc, err := time.LoadLocation("Asia/Kolkata"); err == nil {
		return loc
	}
	return time.FixedZone("IST", 5*3600+30*60)
}

// EmailDate normalizes an RFC 5322 Date header to a calendar day in the
// reference timezone, falling back to the processing day.
func EmailDate(header string, now time.Time) time.Time {
	t, err := mail.ParseDate(strings.TrimSpace(header))
	if err != nil {
		return Day(now)
	}
	return Day(t.In(referenceZone))
}

// smsPattern matches e.g. "Rs 4500 debited at AMAZON" in one pass:
// amount, then within 40 characters an "at"/"in" anchor and merchant.
var smsPattern = regexp.MustCompile(`(?i)(?:₹|INR|Rs\.?)\s*([0-9]+(?:\.[0-9]{1,2})?).{0,40}?(?:at|in)\s+([A-Za-z0-9 &\-\._]{2,64})`)

// SMSTransaction extracts the amount and merchant from a transactional
// SMS body. Bodies that do not look transactional yield no candidate.
func SMSTransaction(body string) (float64, string, bool) {
	m := smsPattern.FindStringSubmatch(body)
	if m == nil {
		return 0, "", false
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", false
	}
	merchant := strings.Trim(m[2], " .,-")
	if merchant == "" {
		return 0, "", false
	}
	return amount, merchant, true
}
