// Package identity maps raw git identities onto registered accounts and bots.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"ecavalidator/internal/domain"
	"ecavalidator/internal/ports"
)

type Service struct {
	accounts ports.AccountLookup
	bots     ports.BotRegistry
	logger   *slog.Logger
}

type Option func(*Service)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(accounts ports.AccountLookup, bots ports.BotRegistry, opts ...Option) *Service {
	s := &Service{
		accounts: accounts,
		bots:     bots,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session returns a resolver scoped to one validation request. Lookups are
// cached by email for the lifetime of the session only. An empty projectID
// matches against every registered bot.
func (s *Service) Session(provider domain.Provider, projectID string) *Session {
	return &Session{
		svc:       s,
		provider:  provider,
		projectID: projectID,
		cache:     make(map[string]entry),
	}
}

// Lookup resolves a single identity without a project scope.
func (s *Service) Lookup(ctx context.Context, id domain.GitIdentity, provider domain.Provider) (domain.Resolution, error) {
	return s.Session(provider, "").Resolve(ctx, id)
}

// entry is the cached outcome for one email; both nil means unresolved.
type entry struct {
	account *domain.Account
	bot     *domain.BotRegistration
}

func (e entry) resolution(id domain.GitIdentity) domain.Resolution {
	switch {
	case e.account != nil:
		return domain.KnownAccount{Git: id, Account: *e.account}
	case e.bot != nil:
		return domain.BotStub{Git: id, Bot: *e.bot}
	default:
		return domain.Unresolved{Git: id}
	}
}

// Session is safe for concurrent use. Concurrent lookups of the same email
// share one registry call.
type Session struct {
	svc       *Service
	provider  domain.Provider
	projectID string

	group singleflight.Group

	mu         sync.Mutex
	cache      map[string]entry
	bots       []domain.BotRegistration
	botsLoaded bool
}

// Resolve maps id to a known account, a bot stub or Unresolved. Registry
// failures are returned wrapped in domain.ErrUnavailable.
func (s *Session) Resolve(ctx context.Context, id domain.GitIdentity) (domain.Resolution, error) {
	key := strings.ToLower(strings.TrimSpace(id.Email))
	if key == "" {
		return domain.Unresolved{Git: id}, nil
	}

	s.mu.Lock()
	cached, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		return cached.resolution(id), nil
	}

	v, err, _ := s.group.Do("identity:"+key, func() (any, error) {
		e, err := s.resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[key] = e
		s.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(entry).resolution(id), nil
}

func (s *Session) resolve(ctx context.Context, email string) (entry, error) {
	acct, err := s.svc.accounts.FindAccountByEmail(ctx, email)
	if err == nil {
		return entry{account: &acct}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return entry{}, fmt.Errorf("%w: account lookup for %s: %w", domain.ErrUnavailable, email, err)
	}

	bots, err := s.loadBots(ctx)
	if err != nil {
		return entry{}, err
	}
	for i := range bots {
		if strings.EqualFold(bots[i].IdentityFor(s.provider).Email, email) {
			s.svc.logger.Debug("identity matched bot registration",
				slog.String("email", email),
				slog.String("bot", bots[i].ID),
				slog.String("project", bots[i].ProjectID))
			bot := bots[i]
			return entry{bot: &bot}, nil
		}
	}

	s.svc.logger.Debug("identity not resolved", slog.String("email", email))
	return entry{}, nil
}

func (s *Session) loadBots(ctx context.Context) ([]domain.BotRegistration, error) {
	s.mu.Lock()
	if s.botsLoaded {
		bots := s.bots
		s.mu.Unlock()
		return bots, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("bots", func() (any, error) {
		bots, err := s.svc.bots.ListBots(ctx, s.projectID)
		if err != nil {
			return nil, fmt.Errorf("%w: bot registry: %w", domain.ErrUnavailable, err)
		}
		s.mu.Lock()
		s.bots = bots
		s.botsLoaded = true
		s.mu.Unlock()
		return bots, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.BotRegistration), nil
}
