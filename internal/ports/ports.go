package ports

import (
	"context"

	"ecavalidator/internal/domain"
)

// Validator evaluates a push against the contributor agreement policy.
type Validator interface {
	Validate(ctx context.Context, req *domain.ValidationRequest) (domain.ValidationResponse, error)
}

// IdentityLookup resolves a single identity outside of a validation request.
type IdentityLookup interface {
	Lookup(ctx context.Context, identity domain.GitIdentity, provider domain.Provider) (domain.Resolution, error)
}

// StatusRecorder accepts verdicts for asynchronous persistence.
type StatusRecorder interface {
	Record(ctx context.Context, records ...domain.StatusRecord) error
}
