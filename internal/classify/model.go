package classify

import (
	"math"
	"strings"
	"unicode"
)

// model is a multinomial Naive Bayes text classifier with additive
// smoothing. Weights are built once during training and never mutated
// afterwards, so a trained model is safe for concurrent use.
type model struct {
	labels      []string                  // registration order, used for tie-breaking
	labelIndex  map[string]int
	docCounts   []int                     // documents per label
	tokenCounts []map[string]int          // label index -> token -> count
	tokenTotals []int                     // total tokens per label
	vocab       map[string]struct{}
	totalDocs   int
}

func newModel() *model {
	return &model{
		labelIndex: make(map[string]int),
		vocab:      make(map[string]struct{}),
	}
}

// train adds one labelled document. Labels are registered in first-seen
// order; classify breaks score ties in favor of the earlier label.
func (m *model) train(text, label string) {
	idx, ok := m.labelIndex[label]
	if !ok {
		idx = len(m.labels)
		m.labelIndex[label] = idx
		m.labels = append(m.labels, label)
		m.docCounts = append(m.docCounts, 0)
		m.tokenCounts = append(m.tokenCounts, make(map[string]int))
		m.tokenTotals = append(m.tokenTotals, 0)
	}

	m.docCounts[idx]++
	m.totalDocs++
	for _, tok := range tokenize(text) {
		m.tokenCounts[idx][tok]++
		m.tokenTotals[idx]++
		m.vocab[tok] = struct{}{}
	}
}

// classify returns the highest-scoring label for the text, or "" if the
// model is untrained. Scores are log-space: log prior plus the sum of
// smoothed per-token conditional log-likelihoods.
func (m *model) classify(text string) string {
	if m.totalDocs == 0 {
		return ""
	}

	toks := tokenize(text)
	vocabSize := float64(len(m.vocab))

	best := 0
	bestScore := math.Inf(-1)
	for i := range m.labels {
		score := math.Log(float64(m.docCounts[i]) / float64(m.totalDocs))
		denom := float64(m.tokenTotals[i]) + vocabSize
		for _, tok := range toks {
			score += math.Log((float64(m.tokenCounts[i][tok]) + 1) / denom)
		}
		// strict greater-than keeps the first-registered label on ties
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	return m.labels[best]
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
