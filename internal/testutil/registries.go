// Package testutil provides in-memory registries for tests.
package testutil

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"ecavalidator/internal/domain"
)

// Accounts is an in-memory AccountLookup keyed by lower-cased email.
type Accounts struct {
	mu       sync.Mutex
	byEmail  map[string]domain.Account
	Err      error
	Calls    atomic.Int64
	Failures map[string]error
}

func NewAccounts(accounts ...domain.Account) *Accounts {
	a := &Accounts{byEmail: make(map[string]domain.Account), Failures: make(map[string]error)}
	for _, acct := range accounts {
		a.Add(acct)
	}
	return a
}

func (a *Accounts) Add(acct domain.Account) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byEmail[strings.ToLower(acct.Email)] = acct
}

func (a *Accounts) FindAccountByEmail(_ context.Context, email string) (domain.Account, error) {
	a.Calls.Add(1)
	if a.Err != nil {
		return domain.Account{}, a.Err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err, ok := a.Failures[strings.ToLower(email)]; ok {
		return domain.Account{}, err
	}
	acct, ok := a.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return acct, nil
}

// Bots is an in-memory BotRegistry.
type Bots struct {
	Registrations []domain.BotRegistration
	Err           error
	Calls         atomic.Int64
}

func (b *Bots) ListBots(_ context.Context, projectID string) ([]domain.BotRegistration, error) {
	b.Calls.Add(1)
	if b.Err != nil {
		return nil, b.Err
	}
	var out []domain.BotRegistration
	for _, bot := range b.Registrations {
		if projectID == "" || bot.ProjectID == projectID {
			out = append(out, bot)
		}
	}
	return out, nil
}

// Projects is an in-memory ProjectRegistry matching exact repository URLs.
type Projects struct {
	ByRepo map[string]domain.Project
	Err    error
}

func (p *Projects) GetProject(_ context.Context, repoURL string) (domain.Project, error) {
	if p.Err != nil {
		return domain.Project{}, p.Err
	}
	proj, ok := p.ByRepo[repoURL]
	if !ok {
		return domain.Project{}, domain.ErrNotFound
	}
	return proj, nil
}

// SampleBots mirrors the bot registrations used across the service tests.
func SampleBots() []domain.BotRegistration {
	return []domain.BotRegistration{
		{ID: "1", ProjectID: "sample.proj", Username: "projbot", Email: "1.bot@eclipse.org"},
		{
			ID: "10", ProjectID: "sample.proto", Username: "protobot", Email: "2.bot@eclipse.org",
			Sites: map[string]domain.SiteIdentity{
				"github.com": {Username: "protobot-gh", Email: "2.bot-github@eclipse.org"},
			},
		},
		{
			ID: "11", ProjectID: "spec.proj", Username: "specbot", Email: "3.bot@eclipse.org",
			Sites: map[string]domain.SiteIdentity{
				"gitlab.eclipse.org": {Username: "protobot-gl", Email: "3.bot-gitlab@eclipse.org"},
			},
		},
	}
}

// SignedOff returns a commit authored and committed by id with a matching footer.
func SignedOff(hash string, id domain.GitIdentity) domain.Commit {
	author := id
	return domain.Commit{
		Hash:      hash,
		Subject:   "Commit " + hash,
		Body:      "Change body\n\nSigned-off-by: " + id.Name + " <" + id.Email + ">",
		Author:    &author,
		Committer: &author,
	}
}
