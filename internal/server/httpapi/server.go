package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/NourhenHamza/TalentGo-sub002/internal/docstore"
	"github.com/NourhenHamza/TalentGo-sub002/internal/errs"
	"github.com/NourhenHamza/TalentGo-sub002/internal/model"
	"github.com/NourhenHamza/TalentGo-sub002/internal/scoring"
	"github.com/NourhenHamza/TalentGo-sub002/internal/service"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Server wires services into HTTP handlers.
type Server struct {
	access  service.AccessService
	assess  service.AssessmentService
	signKey []byte
	log     *zap.Logger
}

// New constructs the HTTP server with injected services.
func New(access service.AccessService, assess service.AssessmentService, signKey []byte, log *zap.Logger) *Server {
	return &Server{access: access, assess: assess, signKey: signKey, log: log}
}

// Handler returns the full candidate-facing handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/assessments/{token}", s.handleResolve)
	mux.HandleFunc("POST /api/assessments/{token}/auth", s.handleAuthenticate)
	mux.HandleFunc("POST /api/assessments/{token}/form", s.handleSubmitForm)
	mux.HandleFunc("POST /api/assessments/{token}/submit", s.handleSubmitResults)
	mux.HandleFunc("GET /api/candidacies/{id}", s.handleGetCandidacy)

	return Logging(s.log)(Recover(s.log)(mux))
}

// --- Resolve ---

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	o, err := s.access.Resolve(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newResolveResponse(o, time.Now()))
}

// --- Authenticate ---

type authRequest struct {
	Provider   string `json:"provider"`
	Credential string `json:"credential"`
}

func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.ErrValidation)
		return
	}
	res, err := s.access.Authenticate(r.Context(), service.AuthInput{
		Token:      r.PathValue("token"),
		Provider:   req.Provider,
		Credential: req.Credential,
		IP:         remoteIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, AuthResponse{
		CandidacyID:  res.Candidacy.ID.String(),
		IsNew:        res.IsNew,
		NextStep:     res.NextStep,
		Attempts:     res.Attempts,
		SessionToken: res.SessionToken,
		ExpiresAt:    res.ExpiresAt,
	})
}

// --- Form ---

type formRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CoverLetter string `json:"coverLetter"`
}

func (s *Server) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	candidacyID, err := s.candidacyFromBearer(r)
	if err != nil {
		s.writeError(w, errs.ErrUnauthorized)
		return
	}

	in, err := parseFormInput(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	next, err := s.assess.SubmitForm(r.Context(), r.PathValue("token"), candidacyID, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, FormResponse{NextStep: next})
}

// parseFormInput accepts multipart (with optional cv file) or plain JSON.
func parseFormInput(r *http.Request) (service.FormInput, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(ct, "multipart/") {
		if err := r.ParseMultipartForm(docstore.MaxUploadBytes + 1<<20); err != nil {
			return service.FormInput{}, errs.ErrValidation
		}
		in := service.FormInput{
			Personal: model.PersonalInfo{
				FirstName: r.FormValue("firstName"),
				LastName:  r.FormValue("lastName"),
				Email:     r.FormValue("email"),
				Phone:     r.FormValue("phone"),
			},
			CoverLetter: r.FormValue("coverLetter"),
		}
		if file, header, err := r.FormFile("cv"); err == nil {
			in.CV = &docstore.Upload{
				OriginalName: header.Filename,
				MimeType:     header.Header.Get("Content-Type"),
				Size:         header.Size,
				Content:      file,
			}
		}
		return in, nil
	}

	var req formRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return service.FormInput{}, errs.ErrValidation
	}
	return service.FormInput{
		Personal: model.PersonalInfo{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
		},
		CoverLetter: req.CoverLetter,
	}, nil
}

// --- Submit results ---

type violationPayload struct {
	Type        string    `json:"violationType"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

type securityBatch struct {
	Violations         []violationPayload `json:"violations"`
	TestLocked         bool               `json:"testLocked"`
	SuspiciousActivity bool               `json:"suspiciousActivity"`
}

type submitRequest struct {
	Answers          []scoring.Answer `json:"answers"`
	TimeSpentSeconds int              `json:"timeSpentSeconds"`
	Security         *securityBatch   `json:"security"`
}

func (s *Server) handleSubmitResults(w http.ResponseWriter, r *http.Request) {
	candidacyID, err := s.candidacyFromBearer(r)
	if err != nil {
		s.writeError(w, errs.ErrUnauthorized)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.ErrValidation)
		return
	}
	in := service.ResultInput{
		Answers:          req.Answers,
		TimeSpentSeconds: req.TimeSpentSeconds,
	}
	if req.Security != nil {
		in.TestLocked = req.Security.TestLocked
		in.SuspiciousActivity = req.Security.SuspiciousActivity
		for _, v := range req.Security.Violations {
			in.Violations = append(in.Violations, service.ViolationInput{
				Type:            v.Type,
				Description:     v.Description,
				ClientTimestamp: v.Timestamp,
			})
		}
	}

	out, err := s.assess.SubmitResults(r.Context(), r.PathValue("token"), candidacyID, in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SubmitResponse{
		Score:    out.Result.Score,
		Passed:   out.Result.Passed,
		Attempts: out.Attempts,
		Security: SecuritySummary{
			ViolationCount:     out.Result.Security.ViolationCount,
			TestLocked:         out.Result.Security.TestLocked,
			SuspiciousActivity: out.Result.Security.SuspiciousActivity,
		},
		ShowResults: out.ShowResults,
	})
}

// --- Candidacy view ---

func (s *Server) handleGetCandidacy(w http.ResponseWriter, r *http.Request) {
	principal, err := s.candidacyFromBearer(r)
	if err != nil {
		s.writeError(w, errs.ErrUnauthorized)
		return
	}
	id, err := uuid.FromString(r.PathValue("id"))
	if err != nil {
		s.writeError(w, errs.ErrNotFound)
		return
	}
	// A session token only grants access to its own candidacy.
	if id != principal {
		s.writeError(w, errs.ErrNotFound)
		return
	}

	c, o, err := s.assess.GetCandidacy(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	next := service.NextStep(c, o.Test)
	s.writeJSON(w, http.StatusOK, newCandidacyResponse(c, o, next, time.Now()))
}

// --- Shared helpers ---

// remoteIP strips the port from the remote address. IPv6 addresses come back
// without brackets so limiter keys have one form per client.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type errorBody struct {
	Error errorInfo `json:"error"`
}

type errorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// classify maps sentinel errors to a stable machine-checkable kind and status.
// The calling UI branches on kind ("closed" vs "broken link" vs "try again").
func classify(err error) (string, int) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, errs.ErrExpired):
		return "expired", http.StatusGone
	case errors.Is(err, errs.ErrValidation):
		return "validation", http.StatusBadRequest
	case errors.Is(err, errs.ErrAttemptsExhausted):
		return "attempts_exhausted", http.StatusForbidden
	case errors.Is(err, errs.ErrUnauthorized):
		return "unauthorized", http.StatusUnauthorized
	case errors.Is(err, errs.ErrRateLimited):
		return "rate_limited", http.StatusTooManyRequests
	default:
		return "internal", http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind, code := classify(err)
	msg := err.Error()
	if kind == "internal" {
		s.log.Error("internal error", zap.Error(err))
		msg = "internal error"
	}
	s.writeJSON(w, code, errorBody{Error: errorInfo{Kind: kind, Message: msg}})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}
