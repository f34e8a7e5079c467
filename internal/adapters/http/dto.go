package httpadapter

import (
	"time"

	"ecavalidator/internal/domain"
)

type validationRequestDTO struct {
	RepoURL    string          `json:"repoUrl"`
	Provider   string          `json:"provider"`
	StrictMode bool            `json:"strictMode"`
	Commits    []domain.Commit `json:"commits"`
}

type commitResultDTO struct {
	Hash    string         `json:"hash"`
	Verdict domain.Verdict `json:"verdict"`
	Reason  string         `json:"reason,omitempty"`
}

// ValidationResponseDTO is the body of POST /eca.
type ValidationResponseDTO struct {
	Passed       bool              `json:"passed"`
	ErrorCount   int               `json:"errorCount"`
	WarningCount int               `json:"warningCount"`
	Commits      []commitResultDTO `json:"commits"`
}

func responseToDTO(r domain.ValidationResponse) ValidationResponseDTO {
	out := ValidationResponseDTO{
		Passed:       r.Passed,
		ErrorCount:   r.Errors(),
		WarningCount: r.Warnings(),
		Commits:      make([]commitResultDTO, 0, len(r.Commits)),
	}
	for _, c := range r.Commits {
		out.Commits = append(out.Commits, commitResultDTO{Hash: c.Hash, Verdict: c.Verdict, Reason: c.Reason})
	}
	return out
}

type lookupDTO struct {
	Name                     string `json:"name"`
	Mail                     string `json:"mail"`
	Bot                      bool   `json:"bot"`
	Signed                   bool   `json:"signed"`
	CanContributeSpecProject bool   `json:"can_contribute_spec_project"`
}

type statusDTO struct {
	CommitHash string         `json:"hash"`
	Provider   string         `json:"provider"`
	Verdict    domain.Verdict `json:"verdict"`
	Reason     string         `json:"reason,omitempty"`
	CheckedAt  time.Time      `json:"checkedAt"`
}
