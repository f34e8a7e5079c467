package commits

import "ecavalidator/internal/domain"

// IsStructurallyValid checks the fields every commit must carry: a hash and
// both author and committer email addresses.
func IsStructurallyValid(c *domain.Commit) bool {
	if c == nil || c.Hash == "" {
		return false
	}
	return c.Author != nil && c.Author.Email != "" &&
		c.Committer != nil && c.Committer.Email != ""
}
