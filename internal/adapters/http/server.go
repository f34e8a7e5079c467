package httpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"

	"ecavalidator/internal/domain"
	"ecavalidator/internal/ports"
	"ecavalidator/internal/repourl"
)

const maxBodyBytes = 8 << 20

// Server exposes validation over HTTP. status may be nil, in which case the
// status history endpoint is not mounted.
type Server struct {
	validator ports.Validator
	lookup    ports.IdentityLookup
	status    ports.StatusStore
	logger    *slog.Logger
	timeout   time.Duration
}

type Option func(*Server)

// WithValidationTimeout bounds a single POST /eca evaluation. Zero disables it.
func WithValidationTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

func New(validator ports.Validator, lookup ports.IdentityLookup, status ports.StatusStore, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{validator: validator, lookup: lookup, status: status, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns a chi.Router with every endpoint mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.getHealthz)
	r.Route("/eca", func(r chi.Router) {
		r.Post("/", s.postValidate)
		r.Get("/lookup", s.getLookup)
		if s.status != nil {
			r.Get("/status", s.getStatus)
		}
	})
	return r
}

func (s *Server) getHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// postValidate answers 200 when every commit passed or warned and 403 when at
// least one commit failed. Both carry the full per-commit report.
func (s *Server) postValidate(w http.ResponseWriter, r *http.Request) {
	var body validationRequestDTO
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	req, err := toRequest(body)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.validator.Validate(ctx, req)
	if err != nil {
		s.logger.Warn("validation could not complete",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("repo", req.RepoURL),
			slog.Any("error", err))
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if !resp.Passed {
		status = http.StatusForbidden
	}
	writeJSON(w, status, responseToDTO(resp))
}

func toRequest(body validationRequestDTO) (*domain.ValidationRequest, error) {
	req := &domain.ValidationRequest{
		RepoURL:    body.RepoURL,
		StrictMode: body.StrictMode,
		Commits:    body.Commits,
	}
	if body.Provider == "" {
		p, err := repourl.DetectProvider(body.RepoURL)
		if err != nil {
			return nil, err
		}
		req.Provider = p
		return req, nil
	}
	p, err := domain.ParseProvider(body.Provider)
	if err != nil {
		return nil, err
	}
	req.Provider = p
	return req, nil
}

func (s *Server) getLookup(w http.ResponseWriter, r *http.Request) {
	var email string
	if err := runtime.BindQueryParameter("form", true, true, "email", r.URL.Query(), &email); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}
	provider := domain.ProviderGitHub
	var rawProvider string
	if err := runtime.BindQueryParameter("form", true, false, "provider", r.URL.Query(), &rawProvider); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}
	if rawProvider != "" {
		p, err := domain.ParseProvider(rawProvider)
		if err != nil {
			writeError(w, err)
			return
		}
		provider = p
	}

	res, err := s.lookup.Lookup(r.Context(), domain.GitIdentity{Email: email}, provider)
	if err != nil {
		writeError(w, err)
		return
	}

	switch v := res.(type) {
	case domain.KnownAccount:
		dto := lookupDTO{
			Name:                     v.Account.Name,
			Mail:                     v.Account.Email,
			Signed:                   v.AgreementSigned(),
			CanContributeSpecProject: v.CanContributeToSpecProject(),
		}
		if !dto.Signed {
			writeJSON(w, http.StatusForbidden, dto)
			return
		}
		writeJSON(w, http.StatusOK, dto)
	case domain.BotStub:
		writeJSON(w, http.StatusOK, lookupDTO{
			Name:   v.Bot.IdentityFor(provider).Username,
			Mail:   email,
			Bot:    true,
			Signed: true,
		})
	default:
		writeError(w, domain.ErrNotFound)
	}
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	var repoURL string
	if err := runtime.BindQueryParameter("form", true, true, "repoUrl", r.URL.Query(), &repoURL); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}
	var limit int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	records, err := s.status.ListStatus(r.Context(), repoURL, limit)
	if err != nil {
		writeError(w, fmt.Errorf("%w: status store: %w", domain.ErrUnavailable, err))
		return
	}
	out := make([]statusDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, statusDTO{
			CommitHash: rec.CommitHash,
			Provider:   string(rec.Provider),
			Verdict:    rec.Verdict,
			Reason:     rec.Reason,
			CheckedAt:  rec.CheckedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("elapsed", time.Since(start)))
	})
}
