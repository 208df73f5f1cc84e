package httpapi

import (
	"time"

	"github.com/NourhenHamza/TalentGo-sub002/internal/model"
)

// Views assemble the sanitized client payloads. Answer keys and explanations
// never leave this boundary.

// QuestionView is a question as shown to the candidate: no correct answer
// index, no explanation.
type QuestionView struct {
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
}

// TestView is the sanitized test definition.
type TestView struct {
	Name            string               `json:"testName"`
	DurationMinutes int                  `json:"testDurationMinutes"`
	PassingScore    int                  `json:"passingScorePercent"`
	MaxAttempts     *int                 `json:"maxAttempts"`
	Questions       []QuestionView       `json:"questions"`
	Policy          model.SecurityPolicy `json:"securityPolicy"`
}

// OfferView is the public slice of an offer.
type OfferView struct {
	Title    string    `json:"title"`
	Company  string    `json:"company"`
	Deadline time.Time `json:"applicationDeadline"`
}

// ExpirationInfo lets the client render a deadline countdown.
type ExpirationInfo struct {
	Deadline         time.Time `json:"deadline"`
	Expired          bool      `json:"expired"`
	RemainingSeconds int64     `json:"remainingSeconds"`
}

// ResolveResponse is the payload of GET /api/assessments/{token}.
type ResolveResponse struct {
	Offer      OfferView      `json:"offer"`
	Test       *TestView      `json:"test,omitempty"`
	Expiration ExpirationInfo `json:"expirationInfo"`
}

func newTestView(t *model.Test) *TestView {
	if t == nil {
		return nil
	}
	qs := make([]QuestionView, 0, len(t.Questions))
	for _, q := range t.Questions {
		qs = append(qs, QuestionView{Prompt: q.Prompt, Options: q.Options, Points: q.Points})
	}
	return &TestView{
		Name:            t.Name,
		DurationMinutes: t.DurationMinutes,
		PassingScore:    t.PassingScore,
		MaxAttempts:     t.MaxAttempts,
		Questions:       qs,
		Policy:          t.Policy,
	}
}

func newExpirationInfo(o *model.Offer, now time.Time) ExpirationInfo {
	info := ExpirationInfo{Deadline: o.Deadline, Expired: o.Expired(now)}
	if !info.Expired {
		info.RemainingSeconds = int64(o.Deadline.Sub(now).Seconds())
	}
	return info
}

func newResolveResponse(o *model.Offer, now time.Time) ResolveResponse {
	return ResolveResponse{
		Offer:      OfferView{Title: o.Title, Company: o.Company, Deadline: o.Deadline},
		Test:       newTestView(o.Test),
		Expiration: newExpirationInfo(o, now),
	}
}

// AuthResponse is the payload of POST /api/assessments/{token}/auth.
type AuthResponse struct {
	CandidacyID  string              `json:"candidacyId"`
	IsNew        bool                `json:"isNew"`
	NextStep     model.Step          `json:"nextStep"`
	Attempts     model.AttemptStatus `json:"attemptStatus"`
	SessionToken string              `json:"sessionToken"`
	ExpiresAt    time.Time           `json:"expiresAt"`
}

// FormResponse is the payload of POST /api/assessments/{token}/form.
type FormResponse struct {
	NextStep model.Step `json:"nextStep"`
}

// SecuritySummary reports telemetry counters on a finalized attempt.
type SecuritySummary struct {
	ViolationCount     int  `json:"violationCount"`
	TestLocked         bool `json:"testLocked"`
	SuspiciousActivity bool `json:"suspiciousActivity"`
}

// SubmitResponse is the payload of POST /api/assessments/{token}/submit.
type SubmitResponse struct {
	Score       int                 `json:"scorePercent"`
	Passed      bool                `json:"passed"`
	Attempts    model.AttemptStatus `json:"attemptStatus"`
	Security    SecuritySummary     `json:"securityInfo"`
	ShowResults bool                `json:"showResults"`
}

// ResultView is the latest attempt as shown on the candidacy view.
type ResultView struct {
	Score            int                `json:"scorePercent"`
	Passed           bool               `json:"passed"`
	Status           model.ResultStatus `json:"status"`
	CompletedAt      time.Time          `json:"completedAt"`
	TimeSpentSeconds int                `json:"timeSpentSeconds"`
	Security         SecuritySummary    `json:"securityInfo"`
}

// OfferSummary is the offer slice on the candidacy view.
type OfferSummary struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	Expired bool   `json:"expired"`
}

// CandidacyResponse is the payload of GET /api/candidacies/{id}.
type CandidacyResponse struct {
	ID             string               `json:"id"`
	Status         model.CandidacyStatus `json:"status"`
	Personal       *model.PersonalInfo  `json:"personalInfo,omitempty"`
	Documents      model.Documents      `json:"documents"`
	TestAttempts   int                  `json:"testAttempts"`
	Attempts       model.AttemptStatus  `json:"attemptStatus"`
	Result         *ResultView          `json:"testResult,omitempty"`
	CompletedSteps []model.StepEntry    `json:"completedSteps"`
	NextStep       model.Step           `json:"nextStep"`
	Offer          OfferSummary         `json:"offer"`
}

func newCandidacyResponse(c *model.Candidacy, o *model.Offer, next model.Step, now time.Time) CandidacyResponse {
	var maxAttempts *int
	if o.Test != nil {
		maxAttempts = o.Test.MaxAttempts
	}
	resp := CandidacyResponse{
		ID:           c.ID.String(),
		Status:       c.Status,
		Personal:     c.Personal,
		Documents:    c.Documents,
		TestAttempts: c.TestAttempts,
		Attempts: model.AttemptStatus{
			Attempts:    c.TestAttempts,
			MaxAttempts: maxAttempts,
			CanRetake:   maxAttempts == nil || c.TestAttempts < *maxAttempts,
		},
		CompletedSteps: c.Session.CompletedSteps,
		NextStep:       next,
		Offer:          OfferSummary{Title: o.Title, Company: o.Company, Expired: o.Expired(now)},
	}
	if c.Result != nil {
		resp.Result = &ResultView{
			Score:            c.Result.Score,
			Passed:           c.Result.Passed,
			Status:           c.Result.Status,
			CompletedAt:      c.Result.CompletedAt,
			TimeSpentSeconds: c.Result.TimeSpentSeconds,
			Security: SecuritySummary{
				ViolationCount:     c.Result.Security.ViolationCount,
				TestLocked:         c.Result.Security.TestLocked,
				SuspiciousActivity: c.Result.Security.SuspiciousActivity,
			},
		}
	}
	return resp
}
