package validation

import (
	"context"
	"fmt"

	"ecavalidator/internal/commits"
	"ecavalidator/internal/domain"
)

const (
	ReasonInvalidMetadata = "invalid commit metadata"
	ReasonNotSigned       = "contributor agreement not signed"
	ReasonSpecProject     = "not authorized to contribute to specification project"
	ReasonSignoff         = "missing or mismatched signed-off-by footer"
)

// resolver is the part of identity.Session used by the evaluator.
type resolver interface {
	Resolve(ctx context.Context, id domain.GitIdentity) (domain.Resolution, error)
}

// evaluation holds the request level context shared by every commit.
type evaluation struct {
	resolver    resolver
	strict      bool
	specProject bool
}

type role struct {
	name string
	res  domain.Resolution
}

// evaluate runs the ordered checks for one commit. The first check that does
// not pass decides the verdict and the reason. Errors come only from identity
// resolution.
func (e *evaluation) evaluate(ctx context.Context, c *domain.Commit) (domain.CommitResult, error) {
	result := domain.CommitResult{Verdict: domain.VerdictPending}
	if c != nil {
		result.Hash = c.Hash
	}

	if !commits.IsStructurallyValid(c) {
		return fail(result, ReasonInvalidMetadata), nil
	}

	author, err := e.resolver.Resolve(ctx, *c.Author)
	if err != nil {
		return result, err
	}
	committer, err := e.resolver.Resolve(ctx, *c.Committer)
	if err != nil {
		return result, err
	}
	roles := []role{{"author", author}, {"committer", committer}}

	for _, r := range roles {
		if !r.res.AgreementSigned() {
			return fail(result, describe(ReasonNotSigned, r)), nil
		}
	}

	if e.specProject {
		for _, r := range roles {
			if !r.res.CanContributeToSpecProject() {
				return fail(result, describe(ReasonSpecProject, r)), nil
			}
		}
	}

	if !commits.MatchesSignoff(c) {
		result.Reason = ReasonSignoff
		if e.strict {
			result.Verdict = domain.VerdictFail
		} else {
			result.Verdict = domain.VerdictWarn
		}
		return result, nil
	}

	result.Verdict = domain.VerdictPass
	return result, nil
}

func fail(r domain.CommitResult, reason string) domain.CommitResult {
	r.Verdict = domain.VerdictFail
	r.Reason = reason
	return r
}

func describe(reason string, r role) string {
	return fmt.Sprintf("%s (%s: %s)", reason, r.name, r.res.Identity().Email)
}
