// Package validation evaluates pushed commits against the contributor
// agreement policy and aggregates the per-commit verdicts.
package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"ecavalidator/internal/domain"
	"ecavalidator/internal/ports"
	"ecavalidator/internal/services/identity"
)

const defaultWorkers = 8

type Service struct {
	identities *identity.Service
	projects   ports.ProjectRegistry
	recorder   ports.StatusRecorder
	logger     *slog.Logger
	workers    int
	now        func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithWorkers bounds how many commits are evaluated concurrently.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithRecorder hands every completed validation to r for persistence.
func WithRecorder(r ports.StatusRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

func New(identities *identity.Service, projects ports.ProjectRegistry, opts ...Option) *Service {
	s := &Service{
		identities: identities,
		projects:   projects,
		logger:     slog.New(slog.DiscardHandler),
		workers:    defaultWorkers,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate evaluates every commit of req. A failing commit is reported in the
// response; an error is returned only for malformed requests and collaborator
// failures, in which case no partial response is produced.
func (s *Service) Validate(ctx context.Context, req *domain.ValidationRequest) (domain.ValidationResponse, error) {
	if err := checkRequest(req); err != nil {
		return domain.ValidationResponse{}, err
	}

	project, found, err := s.project(ctx, req.RepoURL)
	if err != nil {
		return domain.ValidationResponse{}, err
	}
	projectID := ""
	if found {
		projectID = project.ID
	}

	ev := &evaluation{
		resolver:    s.identities.Session(req.Provider, projectID),
		strict:      req.StrictMode,
		specProject: found && project.SpecProject,
	}

	results := make([]domain.CommitResult, len(req.Commits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range req.Commits {
		g.Go(func() error {
			res, err := ev.evaluate(gctx, &req.Commits[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.ValidationResponse{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.ValidationResponse{}, fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}

	resp := domain.ValidationResponse{Passed: true, Commits: results}
	for _, r := range results {
		if r.Verdict == domain.VerdictFail {
			resp.Passed = false
			break
		}
	}

	s.logger.Info("validated push",
		slog.String("repo", req.RepoURL),
		slog.String("provider", string(req.Provider)),
		slog.String("project", projectID),
		slog.Bool("strict", req.StrictMode),
		slog.Int("commits", len(results)),
		slog.Int("errors", resp.Errors()),
		slog.Int("warnings", resp.Warnings()),
		slog.Bool("passed", resp.Passed))

	s.record(ctx, req, resp)
	return resp, nil
}

func checkRequest(req *domain.ValidationRequest) error {
	switch {
	case req == nil:
		return fmt.Errorf("%w: missing request", domain.ErrInvalidRequest)
	case req.Commits == nil:
		return fmt.Errorf("%w: missing commit list", domain.ErrInvalidRequest)
	case req.RepoURL == "":
		return fmt.Errorf("%w: missing repository URL", domain.ErrInvalidRequest)
	case !req.Provider.Valid():
		return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidRequest, req.Provider)
	}
	return nil
}

func (s *Service) project(ctx context.Context, repoURL string) (domain.Project, bool, error) {
	p, err := s.projects.GetProject(ctx, repoURL)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Debug("repository not part of a known project", slog.String("repo", repoURL))
		return domain.Project{}, false, nil
	}
	if err != nil {
		return domain.Project{}, false, fmt.Errorf("%w: project registry: %w", domain.ErrUnavailable, err)
	}
	return p, true, nil
}

func (s *Service) record(ctx context.Context, req *domain.ValidationRequest, resp domain.ValidationResponse) {
	if s.recorder == nil || len(resp.Commits) == 0 {
		return
	}
	now := s.now().UTC()
	records := make([]domain.StatusRecord, 0, len(resp.Commits))
	for _, c := range resp.Commits {
		if c.Hash == "" {
			continue
		}
		records = append(records, domain.StatusRecord{
			RepoURL:    req.RepoURL,
			Provider:   req.Provider,
			CommitHash: c.Hash,
			Verdict:    c.Verdict,
			Reason:     c.Reason,
			CheckedAt:  now,
		})
	}
	if err := s.recorder.Record(ctx, records...); err != nil {
		s.logger.Warn("could not record validation status",
			slog.String("repo", req.RepoURL),
			slog.Any("error", err))
	}
}
