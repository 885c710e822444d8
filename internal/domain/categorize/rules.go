// Package categorize assigns spending categories in two stages: a
// deterministic keyword pass first, then a statistical model trained on
// already-labeled history.
package categorize

import (
	"context"
	"fmt"
	"strings"

	"github.com/FACorreiaa/finance-ingest/internal/domain/transaction"
)

// Rule maps merchant keywords to a category. Rules are evaluated in
// configured order and the first keyword hit wins.
type Rule struct {
	Category string
	Keywords []string
}

// Match returns the category of the first rule whose keyword appears in
// the merchant name, case-insensitively.
func Match(rules []Rule, merchant string) (string, bool) {
	lowered := strings.ToLower(merchant)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if kw == "" {
				continue
			}
			if strings.Contains(lowered, strings.ToLower(kw)) {
				return rule.Category, true
			}
		}
	}
	return "", false
}

// ApplyRules runs the keyword pass over every transaction still missing
// a rule category and fills matches in. Already-categorized rows are
// never touched; a concurrent write between select and update simply
// leaves the other writer's value in place.
func ApplyRules(ctx context.Context, store transaction.Store, rules []Rule) (int, error) {
	targets, err := store.RuleTargets(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load rule targets: %w", err)
	}

	updated := 0
	for _, target := range targets {
		category, ok := Match(rules, target.Merchant)
		if !ok {
			continue
		}
		set, err := store.SetCategoryIfBlank(ctx, target.ID, category)
		if err != nil {
			return updated, fmt.Errorf("failed to set rule category: %w", err)
		}
		if set {
			updated++
		}
	}
	return updated, nil
}
