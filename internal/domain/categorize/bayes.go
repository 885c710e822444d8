package categorize

import (
	"strings"

	"github.com/jbrukh/bayesian"
)

// Model is a naive Bayes classifier over tf-idf weighted tokens, built
// fresh from labeled history. The classifier library requires at least
// two classes, so a Model trained on a degenerate corpus stays unready
// and predicts nothing.
type Model struct {
	classifier *bayesian.Classifier
	classes    []bayesian.Class
}

// tokenize lowercases and splits on whitespace. Merchant names plus
// subject and snippet text give the model its vocabulary.
func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Train builds a model from (label, text) pairs. Returns nil when the
// corpus has fewer than two distinct labels or no usable documents.
func Train(labels []string, texts []string) *Model {
	seen := make(map[string]bool)
	var classes []bayesian.Class
	for _, label := range labels {
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		classes = append(classes, bayesian.Class(label))
	}
	if len(classes) < 2 {
		return nil
	}

	classifier := bayesian.NewClassifierTfIdf(classes...)
	trained := 0
	for i, label := range labels {
		tokens := tokenize(texts[i])
		if label == "" || len(tokens) == 0 {
			continue
		}
		classifier.Learn(tokens, bayesian.Class(label))
		trained++
	}
	if trained == 0 {
		return nil
	}
	classifier.ConvertTermsFreqToTfIdf()

	return &Model{classifier: classifier, classes: classes}
}

// Predict returns the most likely category for the text. Empty token
// streams and nil models yield no prediction.
func (m *Model) Predict(text string) (string, bool) {
	if m == nil {
		return "", false
	}
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return "", false
	}
	_, idx, _ := m.classifier.LogScores(tokens)
	if idx < 0 || idx >= len(m.classes) {
		return "", false
	}
	return string(m.classes[idx]), true
}
