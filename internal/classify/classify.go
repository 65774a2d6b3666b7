// Package classify assigns a department and urgency to complaint free text.
// A pair of Naive Bayes models is trained once from the embedded seed
// corpus; a deterministic keyword override forces CRITICAL urgency for
// life-safety terms regardless of model output.
package classify

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/linnemanlabs/redress/internal/complaint"
)

//go:embed corpus.yaml
var corpusYAML []byte

// minTextLen is the shortest input worth classifying. Anything below it
// short-circuits to the catch-all defaults.
const minTextLen = 5

type corpusSample struct {
	Text  string `yaml:"text"`
	Label string `yaml:"label"`
}

type corpus struct {
	Version          int            `yaml:"version"`
	Categories       []corpusSample `yaml:"categories"`
	Urgencies        []corpusSample `yaml:"urgencies"`
	CriticalKeywords []string       `yaml:"critical_keywords"`
}

// Classifier maps complaint text to (department, urgency). It is immutable
// after New and safe for concurrent use. It never errors: absent signal
// degrades to (Others, MEDIUM).
type Classifier struct {
	category *model
	urgency  *model
	keywords []string
}

// New trains category and urgency models from the embedded seed corpus.
func New() (*Classifier, error) {
	var c corpus
	if err := yaml.Unmarshal(corpusYAML, &c); err != nil {
		return nil, fmt.Errorf("parse seed corpus: %w", err)
	}
	if len(c.Categories) == 0 || len(c.Urgencies) == 0 {
		return nil, fmt.Errorf("seed corpus is empty (version %d)", c.Version)
	}

	cat := newModel()
	for _, s := range c.Categories {
		if !complaint.ValidDepartment(complaint.Department(s.Label)) {
			return nil, fmt.Errorf("seed corpus: unknown department %q", s.Label)
		}
		cat.train(s.Text, s.Label)
	}

	urg := newModel()
	for _, s := range c.Urgencies {
		urg.train(s.Text, s.Label)
	}

	return &Classifier{
		category: cat,
		urgency:  urg,
		keywords: c.CriticalKeywords,
	}, nil
}

// Categorize predicts the owning department for the text.
func (c *Classifier) Categorize(text string) complaint.Department {
	if len(text) < minTextLen {
		return complaint.DeptOthers
	}
	return complaint.Department(c.category.classify(text))
}

// UrgencyOf predicts the urgency for the text. A critical keyword match
// forces CRITICAL without consulting the statistical model.
func (c *Classifier) UrgencyOf(text string) complaint.Urgency {
	if len(text) < minTextLen {
		return complaint.UrgencyMedium
	}
	lower := strings.ToLower(text)
	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			return complaint.UrgencyCritical
		}
	}
	return complaint.Urgency(c.urgency.classify(text))
}

// Triage runs both predictions over the same text.
func (c *Classifier) Triage(text string) (complaint.Department, complaint.Urgency) {
	return c.Categorize(text), c.UrgencyOf(text)
}
