// Package repourl normalises repository URLs for registry matching.
package repourl

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"ecavalidator/internal/domain"
)

// Normalize lower-cases scheme and host and strips a trailing slash and a
// single trailing ".git" so URLs from different providers compare equal.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(strings.TrimRight(raw, "/"), ".git")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(strings.TrimRight(u.Path, "/"), ".git")
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}

// ScrubGerrit removes the ".git" suffix gerrit repositories are listed without.
func ScrubGerrit(raw string) string {
	return strings.TrimSuffix(raw, ".git")
}

// DetectProvider infers the hosting provider from a repository URL.
func DetectProvider(raw string) (domain.Provider, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("%w: cannot detect provider for %q", domain.ErrInvalidRequest, raw)
	}
	host := strings.ToLower(u.Hostname())
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registrable = host
	}
	if registrable == "github.com" {
		return domain.ProviderGitHub, nil
	}

	label := strings.SplitN(host, ".", 2)[0]
	switch {
	case label == "gitlab" || registrable == "gitlab.com":
		return domain.ProviderGitLab, nil
	case label == "git" || label == "gerrit" || strings.HasPrefix(u.Path, "/r/") || strings.HasPrefix(u.Path, "/c/"):
		return domain.ProviderGerrit, nil
	}
	return "", fmt.Errorf("%w: cannot detect provider for host %q", domain.ErrInvalidRequest, host)
}
