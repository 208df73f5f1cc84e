// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// CandidacyStatus is the review state of a candidacy. This subsystem writes
// StatusPending exactly once at creation; all later transitions belong to the
// company-side review workflow.
type CandidacyStatus string

const (
	StatusPending  CandidacyStatus = "pending"
	StatusReviewed CandidacyStatus = "reviewed"
	StatusAccepted CandidacyStatus = "accepted"
	StatusRejected CandidacyStatus = "rejected"
)

// Step is one stage of the candidate flow.
type Step string

const (
	StepAccess   Step = "access"
	StepAuth     Step = "auth"
	StepForm     Step = "form"
	StepTest     Step = "test"
	StepResults  Step = "results"
	StepComplete Step = "complete"
)

// ResultStatus is the state of the latest test attempt.
type ResultStatus string

const (
	ResultInProgress ResultStatus = "in_progress"
	ResultCompleted  ResultStatus = "completed"
	ResultTerminated ResultStatus = "terminated"
)

// Identity is the federated identity bound to a candidacy. The tuple
// (offer, provider, provider id) is unique: at most one candidacy per external
// identity per offer, enforced by the database.
type Identity struct {
	Provider   string            `json:"provider"`
	ProviderID string            `json:"providerId"`
	Email      string            `json:"verifiedEmail"`
	VerifiedAt time.Time         `json:"verificationTimestamp"`
	Metadata   map[string]string `json:"providerMetadata,omitempty"`
}

// PersonalInfo is the candidate form data, mutable via the form step.
type PersonalInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

// FileMeta records metadata for a document held by the external store.
type FileMeta struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Documents holds metadata for the candidate's uploaded documents.
type Documents struct {
	CV          *FileMeta `json:"cv,omitempty"`
	CoverLetter string    `json:"coverLetter,omitempty"`
}

// SecurityViolation is one client-reported anti-cheating event, stamped with
// the attempt it occurred in. The list on a candidacy is append-only.
type SecurityViolation struct {
	Type            string    `json:"violationType"`
	Description     string    `json:"description,omitempty"`
	ClientTimestamp time.Time `json:"clientTimestamp"`
	AttemptNumber   int       `json:"attemptNumber"`
	RecordedAt      time.Time `json:"recordedAt"`
}

// SecurityData summarizes the security telemetry of one attempt. The flags are
// advisory for human review: a locked or flagged attempt is still scored.
type SecurityData struct {
	Violations         []SecurityViolation `json:"violations"`
	ViolationCount     int                 `json:"violationCount"`
	TestLocked         bool                `json:"testLocked"`
	SuspiciousActivity bool                `json:"suspiciousActivity"`
}

// AnswerCheck records correctness of one submitted answer.
type AnswerCheck struct {
	QuestionIndex int  `json:"questionIndex"`
	Selected      int  `json:"selectedAnswer"`
	Correct       bool `json:"correct"`
}

// TestResult is the outcome of the latest attempt. It is overwritten on each
// new attempt; historical violations persist on the candidacy independently.
type TestResult struct {
	Score            int           `json:"score"`
	Passed           bool          `json:"passed"`
	Answers          []AnswerCheck `json:"answers"`
	StartedAt        time.Time     `json:"startedAt"`
	CompletedAt      time.Time     `json:"completedAt"`
	TimeSpentSeconds int           `json:"timeSpentSeconds"`
	Status           ResultStatus  `json:"status"`
	Security         SecurityData  `json:"securityData"`
}

// StepEntry is one completed step in the session audit trail.
type StepEntry struct {
	Step        Step      `json:"step"`
	CompletedAt time.Time `json:"completedAt"`
}

// SessionData is the append-only session audit trail for a candidacy.
type SessionData struct {
	AccessedAt     time.Time   `json:"accessedAt"`
	CompletedSteps []StepEntry `json:"completedSteps"`
	IPAddress      string      `json:"ipAddress,omitempty"`
	UserAgent      string      `json:"userAgent,omitempty"`
}

// HasStep reports whether the given step is already recorded.
func (s SessionData) HasStep(step Step) bool {
	for _, e := range s.CompletedSteps {
		if e.Step == step {
			return true
		}
	}
	return false
}

// Candidacy is the public application record binding one external identity to
// one offer. Created exactly once at first successful identity binding.
type Candidacy struct {
	ID           uuid.UUID
	OfferID      uuid.UUID
	Identity     Identity
	Personal     *PersonalInfo
	Documents    Documents
	TestAttempts int
	Violations   []SecurityViolation
	Result       *TestResult
	Status       CandidacyStatus
	Session      SessionData
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FormComplete reports whether the candidate has submitted the form step.
func (c *Candidacy) FormComplete() bool { return c.Personal != nil }

// AttemptStatus reports retake eligibility to the client.
type AttemptStatus struct {
	Attempts    int  `json:"attempts"`
	MaxAttempts *int `json:"maxAttempts"`
	CanRetake   bool `json:"canRetake"`
}
