package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Offer is the read-mostly offer+test bundle owned by the offer directory.
// The capability token grants public access; the application deadline is the
// sole authority for expiry, however long ago the token was generated.
type Offer struct {
	ID       uuid.UUID
	Token    string
	Title    string
	Company  string
	Deadline time.Time
	Enabled  bool
	Test     *Test
}

// Expired reports whether the application deadline has passed at the given time.
func (o *Offer) Expired(now time.Time) bool { return now.After(o.Deadline) }

// Test is a timed multiple-choice assessment attached to an offer.
type Test struct {
	Name            string         `json:"testName"`
	DurationMinutes int            `json:"testDurationMinutes"`
	PassingScore    int            `json:"passingScorePercent"`
	MaxAttempts     *int           `json:"maxAttempts"`
	Questions       []Question     `json:"questions"`
	Policy          SecurityPolicy `json:"securityPolicy"`
}

// Question is a single multiple-choice question.
type Question struct {
	Prompt      string    `json:"question"`
	Options     []string  `json:"options"`
	Correct     AnswerKey `json:"correctAnswer"`
	Points      int       `json:"points"`
	Explanation string    `json:"explanation,omitempty"`
}

// AnswerKey is the canonical integer index of the correct option. Stored data
// sometimes carries it as a JSON string; it is coerced here, at the decode
// boundary, so comparisons downstream are always int against int.
type AnswerKey int

// UnmarshalJSON accepts a JSON number or a numeric string.
func (k *AnswerKey) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*k = AnswerKey(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("answer key: %s", b)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("answer key %q: %w", s, err)
	}
	*k = AnswerKey(n)
	return nil
}

// SecurityPolicy is the anti-cheating configuration shown to the client.
// Every omitted flag defaults to false: a client that omits a flag behaves
// identically to one that sends false.
type SecurityPolicy struct {
	PreventCopy         bool `json:"preventCopy"`
	PreventTabSwitch    bool `json:"preventTabSwitch"`
	FullscreenMode      bool `json:"fullscreenMode"`
	PreventDevTools     bool `json:"preventDevTools"`
	AllowBackNavigation bool `json:"allowBackNavigation"`
	ShowResults         bool `json:"showResults"`
}

const (
	// DefaultPassingScore applies when a test omits passingScorePercent.
	DefaultPassingScore = 60
	// DefaultQuestionPoints applies when a question omits points.
	DefaultQuestionPoints = 1
)

// Normalize fills documented defaults in place. It is the single defaulting
// point for test configuration; callers receive a complete, typed value.
func (t *Test) Normalize() {
	if t == nil {
		return
	}
	if t.PassingScore <= 0 {
		t.PassingScore = DefaultPassingScore
	}
	for i := range t.Questions {
		if t.Questions[i].Points <= 0 {
			t.Questions[i].Points = DefaultQuestionPoints
		}
	}
}
