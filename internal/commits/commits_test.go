package commits

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecavalidator/internal/domain"
)

const (
	testName  = "Tester McTesterson"
	testEmail = "test.user@eclipse-foundation.org"
)

// baseCommit is a known good commit.
func baseCommit() *domain.Commit {
	user := &domain.GitIdentity{Name: testName, Email: testEmail}
	return &domain.Commit{
		Hash:      "abc123f",
		Subject:   "Testing commit helpers #1337",
		Body:      fmt.Sprintf("Sample body content\n\nSigned-off-by: %s <%s>", testName, testEmail),
		Author:    user,
		Committer: user,
		Parents:   []string{},
	}
}

func TestMatchesSignoff(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"only footer", fmt.Sprintf("Signed-off-by: %s <%s>", testName, testEmail), true},
		{"upper-cased footer email", fmt.Sprintf("Signed-off-by: %s <%s>", testName, strings.ToUpper(testEmail)), true},
		{"body and footer", fmt.Sprintf("Sample body content\n\nSigned-off-by: %s <%s>", testName, testEmail), true},
		{"no name", fmt.Sprintf("Sample body content\n\nSigned-off-by:<%s>", testEmail), true},
		{"second footer matches", fmt.Sprintf("Signed-off-by: Other <other@example.org>\nSigned-off-by: %s <%s>", testName, testEmail), true},
		{"brackets in name", fmt.Sprintf("Signed-off-by: Jane <jd> Doe <%s>", testEmail), true},
		{"last address wins", fmt.Sprintf("Signed-off-by: %s <old@example.org> <%s>", testName, testEmail), true},
		{"no brackets", fmt.Sprintf("Sample body content\n\nSigned-off-by:%s", testEmail), false},
		{"missing closing bracket", fmt.Sprintf("Signed-off-by: %s <%s", testName, testEmail), false},
		{"missing email", fmt.Sprintf("Signed-off-by: %s", testName), false},
		{"empty brackets", fmt.Sprintf("Signed-off-by: %s <>", testName), false},
		{"marker typo", fmt.Sprintf("Sample body content\n\nSign-off-by: %s <%s>", testName, testEmail), false},
		{"marker upper case", fmt.Sprintf("Sample body content\n\nSIGNED-OFF-BY: %s <%s>", testName, testEmail), false},
		{"other email", fmt.Sprintf("Signed-off-by: %s <known_bad@email.org>", testName), false},
		{"no footer", "Sample body content", false},
		{"empty body", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := baseCommit()
			c.Body = tt.body
			assert.Equal(t, tt.want, MatchesSignoff(c))
		})
	}
}

func TestMatchesSignoff_AuthorCasing(t *testing.T) {
	c := baseCommit()
	c.Author = &domain.GitIdentity{Name: testName, Email: strings.ToUpper(testEmail)}
	assert.True(t, MatchesSignoff(c))
}

func TestMatchesSignoff_NilInputs(t *testing.T) {
	assert.False(t, MatchesSignoff(nil))

	c := baseCommit()
	c.Author = nil
	assert.False(t, MatchesSignoff(c))
}

func TestSignoffEmails(t *testing.T) {
	body := "Fix things\n\nSigned-off-by: A <a@example.org>\nCo-authored-by: B <b@example.org>\nSigned-off-by:<c@example.org>"
	require.Equal(t, []string{"a@example.org", "c@example.org"}, SignoffEmails(body))
	assert.Nil(t, SignoffEmails("no footers here"))
	assert.Equal(t, []string{"a@b.org"}, SignoffEmails("Signed-off-by: Jane Doe <old@x.org> <a@b.org>"))
	assert.Equal(t, []string{"a@b.org"}, SignoffEmails("Signed-off-by: Jane <jd> Doe <a@b.org>"))
}

func TestIsStructurallyValid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *domain.Commit)
		want   bool
	}{
		{"known good", func(*domain.Commit) {}, true},
		{"no author", func(c *domain.Commit) { c.Author = nil }, false},
		{"no author mail", func(c *domain.Commit) { c.Author = &domain.GitIdentity{Name: "Some Name"} }, false},
		{"no committer", func(c *domain.Commit) { c.Committer = nil }, false},
		{"no committer mail", func(c *domain.Commit) { c.Committer = &domain.GitIdentity{Name: "Some Name"} }, false},
		{"no hash", func(c *domain.Commit) { c.Hash = "" }, false},
		{"no body", func(c *domain.Commit) { c.Body = "" }, true},
		{"no parents", func(c *domain.Commit) { c.Parents = nil }, true},
		{"no subject", func(c *domain.Commit) { c.Subject = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := baseCommit()
			tt.mutate(c)
			assert.Equal(t, tt.want, IsStructurallyValid(c))
		})
	}
	assert.False(t, IsStructurallyValid(nil))
}
