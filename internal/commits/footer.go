// Package commits holds the structural and footer checks applied to a single
// commit before any identity lookup.
package commits

import (
	"regexp"
	"strings"

	"ecavalidator/internal/domain"
)

// signedOffBy matches one "Signed-off-by:" footer. The marker is case
// sensitive and the name is free text. The email is taken from the last
// bracketed address on the line.
var signedOffBy = regexp.MustCompile(`Signed-off-by:([^\n]*)<([^<>\n]*@[^<>\n]*)>`)

// SignoffEmails returns the email of every signed-off-by footer in body, in order.
func SignoffEmails(body string) []string {
	matches := signedOffBy.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[2]))
	}
	return out
}

// MatchesSignoff reports whether the commit body carries a signed-off-by
// footer whose email equals the author email, ignoring case.
func MatchesSignoff(c *domain.Commit) bool {
	if c == nil || c.Author == nil || c.Author.Email == "" {
		return false
	}
	for _, email := range SignoffEmails(c.Body) {
		if strings.EqualFold(email, c.Author.Email) {
			return true
		}
	}
	return false
}
