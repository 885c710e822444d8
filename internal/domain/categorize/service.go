package categorize

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FACorreiaa/finance-ingest/internal/domain/transaction"
	"github.com/FACorreiaa/finance-ingest/pkg/observability"
)

// Service runs the two-stage categorization cascade against the store.
type Service struct {
	store  transaction.Store
	rules  []Rule
	logger *slog.Logger
}

func NewService(store transaction.Store, rules []Rule, logger *slog.Logger) *Service {
	return &Service{store: store, rules: rules, logger: logger}
}

// Run applies the keyword rules and then the statistical model, in that
// order so rule labels are part of the training set the model sees.
// Returns the number of rows each stage labeled.
func (s *Service) Run(ctx context.Context) (ruleUpdates, aiUpdates int, err error) {
	ruleUpdates, err = ApplyRules(ctx, s.store, s.rules)
	if err != nil {
		return 0, 0, fmt.Errorf("rule pass failed: %w", err)
	}
	observability.RecordsCategorized.WithLabelValues("rules").Add(float64(ruleUpdates))

	aiUpdates, err = s.runModel(ctx)
	if err != nil {
		return ruleUpdates, 0, fmt.Errorf("model pass failed: %w", err)
	}
	observability.RecordsCategorized.WithLabelValues("model").Add(float64(aiUpdates))

	return ruleUpdates, aiUpdates, nil
}

// runModel retrains from labeled history every cycle, then predicts for
// rows that have neither a model nor a user label. Retraining per cycle
// keeps the model current with user overrides without a separate
// training pipeline.
func (s *Service) runModel(ctx context.Context) (int, error) {
	rows, err := s.store.TrainingSet(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load training set: %w", err)
	}

	labels := make([]string, len(rows))
	texts := make([]string, len(rows))
	for i, row := range rows {
		labels[i] = row.Label
		texts[i] = row.Text
	}

	model := Train(labels, texts)
	if model == nil {
		s.logger.Debug("skipping model pass, not enough labeled history",
			slog.Int("labeled_rows", len(rows)))
		return 0, nil
	}

	targets, err := s.store.PredictTargets(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load predict targets: %w", err)
	}

	updated := 0
	for _, target := range targets {
		category, ok := model.Predict(target.Text)
		if !ok {
			continue
		}
		set, err := s.store.SetAICategoryIfBlank(ctx, target.ID, category)
		if err != nil {
			return updated, fmt.Errorf("failed to set model category: %w", err)
		}
		if set {
			updated++
		}
	}
	return updated, nil
}
