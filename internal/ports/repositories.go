package ports

import (
	"context"

	"ecavalidator/internal/domain"
)

// AccountLookup finds registered accounts. Returns domain.ErrNotFound when no
// account uses the address.
type AccountLookup interface {
	FindAccountByEmail(ctx context.Context, email string) (domain.Account, error)
}

// BotRegistry lists bot registrations. An empty projectID lists every bot.
type BotRegistry interface {
	ListBots(ctx context.Context, projectID string) ([]domain.BotRegistration, error)
}

// ProjectRegistry finds the project owning a repository. Returns
// domain.ErrNotFound for repositories outside any known project.
type ProjectRegistry interface {
	GetProject(ctx context.Context, repoURL string) (domain.Project, error)
}

// StatusStore persists commit verdicts.
type StatusStore interface {
	SaveStatus(ctx context.Context, records []domain.StatusRecord) error
	ListStatus(ctx context.Context, repoURL string, limit int) ([]domain.StatusRecord, error)
}
