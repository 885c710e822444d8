package extract

import (
	"strconv"
	"strings"
	"time"
)

// Column-name aliases for tabular statement rows, in priority order:
// the first present alias wins.
var (
	dateAliases     = []string{"Date", "Txn Date", "date"}
	merchantAliases = []string{"Description", "Narration", "Merchant"}
	amountAliases   = []string{"Amount", "Debit", "Credit"}
)

// StatementLine interprets one line of extracted statement text as a
// transaction row: first whitespace token date-like (length >= 8), last
// token a plain decimal numeral, merchant in between. A best-effort
// columnar split that accepts false positives and negatives.
func StatementLine(line string, now time.Time) (Candidate, bool) {
	parts := strings.Fields(line)
	if len(parts) < 3 {
		return Candidate{}, false
	}

	dateTok := parts[0]
	if len(dateTok) < 8 {
		return Candidate{}, false
	}

	amtTok := strings.ReplaceAll(parts[len(parts)-1], ",", "")
	if !isPlainDecimal(amtTok) {
		return Candidate{}, false
	}
	amount, err := strconv.ParseFloat(amtTok, 64)
	if err != nil {
		return Candidate{}, false
	}

	return Candidate{
		Date:     DateOrNow(dateTok, now),
		Merchant: strings.TrimSpace(strings.Join(parts[1:len(parts)-1], " ")),
		Amount:   amount,
		Raw:      line,
	}, true
}

// TabularRow maps a structured statement row through the column aliases.
// Rows with an unparsable amount are dropped rather than inserted with a
// garbage value.
func TabularRow(row map[string]string, now time.Time) (Candidate, bool) {
	amtStr := firstAlias(row, amountAliases)
	if amtStr == "" {
		amtStr = "0"
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(amtStr, ",", ""), 64)
	if err != nil {
		return Candidate{}, false
	}

	dateStr := firstAlias(row, dateAliases)
	if len(dateStr) > 10 {
		dateStr = dateStr[:10]
	}

	return Candidate{
		Date:     DateOrNow(dateStr, now),
		Merchant: strings.TrimSpace(firstAlias(row, merchantAliases)),
		Amount:   amount,
		Raw:      rowString(row),
	}, true
}

// isPlainDecimal reports whether s is digits with at most one dot.
func isPlainDecimal(s string) bool {
	if s == "" {
		return false
	}
	dots := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return strings.Trim(s, ".") != ""
}

func firstAlias(row map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if v, ok := row[alias]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func rowString(row map[string]string) string {
	pairs := make([]string, 0, len(row))
	for _, alias := range [][]string{dateAliases, merchantAliases, amountAliases} {
		for _, key := range alias {
			if v, ok := row[key]; ok {
				pairs = append(pairs, key+"="+v)
			}
		}
	}
	return strings.Join(pairs, " ")
}
