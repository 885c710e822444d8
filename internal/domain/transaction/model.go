// Package transaction defines the canonical transaction record and its
// persistent store contract.
package transaction

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Uncategorized is the sentinel label for records no stage has categorized.
const Uncategorized = "Uncategorized"

// Record is the canonical transaction record. Category holds the
// rule-assigned label, AICategory the model prediction, and UserCategory
// the human override; the three are independent fields with a fixed read
// precedence (see EffectiveCategory).
type Record struct {
	ID           uuid.UUID `db:"id"`
	Date         time.Time `db:"date"`
	Merchant     string    `db:"merchant"`
	Category     *string   `db:"category"`
	AICategory   *string   `db:"ai_category"`
	UserCategory *string   `db:"user_category"`
	Amount       float64   `db:"amount"`
	Currency     string    `db:"currency"`
	Source       string    `db:"source"`
	NaturalKey   *string   `db:"natural_key"`
	Subject      *string   `db:"subject"`
	FromAddress  *string   `db:"from_address"`
	RawSnippet   string    `db:"raw_snippet"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// EffectiveCategory resolves the category a consumer should display:
// user override first, then model prediction, then rule assignment.
func (r *Record) EffectiveCategory() string {
	for _, c := range []*string{r.UserCategory, r.AICategory, r.Category} {
		if c != nil && strings.TrimSpace(*c) != "" {
			return *c
		}
	}
	return Uncategorized
}

// CategoryTotal is one row of the spend-by-category aggregation.
type CategoryTotal struct {
	Category string  `db:"category"`
	Total    float64 `db:"total"`
}

// TrendPoint is one row of the spend-by-date aggregation.
type TrendPoint struct {
	Date  time.Time `db:"date"`
	Total float64   `db:"total"`
}

// RuleTarget is a record eligible for the deterministic rule pass.
type RuleTarget struct {
	ID       uuid.UUID `db:"id"`
	Merchant string    `db:"merchant"`
}

// TrainingRow is one labeled example for the statistical pass. Label is
// the effective prior label (user override if present, else rule
// category); Text concatenates merchant, subject, and raw snippet.
type TrainingRow struct {
	ID    uuid.UUID `db:"id"`
	Label string    `db:"label"`
	Text  string    `db:"text"`
}

// PredictTarget is a record whose ai_category the model may fill.
type PredictTarget struct {
	ID   uuid.UUID `db:"id"`
	Text string    `db:"text"`
}
