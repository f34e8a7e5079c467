package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Core domain models used internally. The HTTP adapter owns its own DTOs;
// the commit payload shares the wire names the hook clients already send.

// GitIdentity is a name/email pair as reported by git. Empty strings mean absent.
type GitIdentity struct {
	Name  string `json:"name"`
	Email string `json:"mail"`
}

type Commit struct {
	Hash      string       `json:"hash"`
	Subject   string       `json:"subject"`
	Body      string       `json:"body"`
	Author    *GitIdentity `json:"author"`
	Committer *GitIdentity `json:"committer"`
	Parents   []string     `json:"parents"`
	Head      bool         `json:"head"`
}

// Provider is the hosting platform a repository lives on.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGitLab Provider = "gitlab"
	ProviderGerrit Provider = "gerrit"
)

// ParseProvider accepts provider names in any casing.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderGitHub, ProviderGitLab, ProviderGerrit:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown provider %q", ErrInvalidRequest, s)
	}
}

func (p Provider) Valid() bool {
	_, err := ParseProvider(string(p))
	return err == nil
}

// SiteKey is the key used by the bot registry for provider specific identities.
// Gerrit has no overrides and returns "".
func (p Provider) SiteKey() string {
	switch p {
	case ProviderGitHub:
		return "github.com"
	case ProviderGitLab:
		return "gitlab.eclipse.org"
	default:
		return ""
	}
}

func (p *Provider) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*p = ""
		return nil
	}
	parsed, err := ParseProvider(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ECA is the agreement state attached to an account.
type ECA struct {
	Signed                   bool `json:"signed"`
	CanContributeSpecProject bool `json:"can_contribute_spec_project"`
}

type Account struct {
	ID        int
	Name      string
	Email     string
	ECA       ECA
	Committer bool
}

type SiteIdentity struct {
	Username string
	Email    string
}

// BotRegistration is an automated account registered for a project.
// Sites is keyed by Provider.SiteKey.
type BotRegistration struct {
	ID        string
	ProjectID string
	Username  string
	Email     string
	Sites     map[string]SiteIdentity
}

// IdentityFor returns the identity the bot uses on the given provider,
// falling back to the default username and email.
func (b BotRegistration) IdentityFor(p Provider) SiteIdentity {
	key := p.SiteKey()
	if site, ok := b.Sites[key]; ok && key != "" {
		out := site
		if out.Email == "" {
			out.Email = b.Email
		}
		if out.Username == "" {
			out.Username = b.Username
		}
		return out
	}
	return SiteIdentity{Username: b.Username, Email: b.Email}
}

type Project struct {
	ID          string
	Name        string
	SpecProject bool
	Repos       map[Provider][]string
}

type ValidationRequest struct {
	RepoURL    string   `json:"repoUrl"`
	Provider   Provider `json:"provider"`
	StrictMode bool     `json:"strictMode"`
	Commits    []Commit `json:"commits"`
}

// Verdict is the outcome of evaluating one commit. Higher values are more severe.
type Verdict int

const (
	VerdictPending Verdict = iota
	VerdictPass
	VerdictWarn
	VerdictFail
)

func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "PASS"
	case VerdictWarn:
		return "WARN"
	case VerdictFail:
		return "FAIL"
	default:
		return "PENDING"
	}
}

func (v Verdict) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *Verdict) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "PASS":
		*v = VerdictPass
	case "WARN":
		*v = VerdictWarn
	case "FAIL":
		*v = VerdictFail
	case "PENDING", "":
		*v = VerdictPending
	default:
		return fmt.Errorf("unknown verdict %q", b)
	}
	return nil
}

type CommitResult struct {
	Hash    string
	Verdict Verdict
	Reason  string
}

type ValidationResponse struct {
	Passed  bool
	Commits []CommitResult
}

func (r ValidationResponse) Errors() int   { return r.count(VerdictFail) }
func (r ValidationResponse) Warnings() int { return r.count(VerdictWarn) }

func (r ValidationResponse) count(v Verdict) int {
	n := 0
	for _, c := range r.Commits {
		if c.Verdict == v {
			n++
		}
	}
	return n
}

// StatusRecord is a persisted verdict for one commit of a validated push.
type StatusRecord struct {
	RepoURL    string
	Provider   Provider
	CommitHash string
	Verdict    Verdict
	Reason     string
	CheckedAt  time.Time
}
