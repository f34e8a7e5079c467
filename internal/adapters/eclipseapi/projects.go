package eclipseapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"ecavalidator/internal/domain"
	"ecavalidator/internal/repourl"
)

const (
	projectsPageSize = 100
	maxProjectPages  = 500
)

type repoPayload struct {
	URL string `json:"url"`
}

type projectPayload struct {
	ProjectID        string          `json:"project_id"`
	Name             string          `json:"name"`
	SpecWorkingGroup json.RawMessage `json:"spec_project_working_group"`
	GithubRepos      []repoPayload   `json:"github_repos"`
	GitlabRepos      []repoPayload   `json:"gitlab_repos"`
	GerritRepos      []repoPayload   `json:"gerrit_repos"`
}

func (p projectPayload) isSpec() bool {
	v := bytes.TrimSpace(p.SpecWorkingGroup)
	switch string(v) {
	case "", "null", "[]", "{}", `""`, "false":
		return false
	}
	return true
}

func (p projectPayload) toDomain() domain.Project {
	urls := func(in []repoPayload, scrub bool) []string {
		out := make([]string, 0, len(in))
		for _, r := range in {
			u := r.URL
			if scrub {
				u = repourl.ScrubGerrit(u)
			}
			out = append(out, u)
		}
		return out
	}
	return domain.Project{
		ID:          p.ProjectID,
		Name:        p.Name,
		SpecProject: p.isSpec(),
		Repos: map[domain.Provider][]string{
			domain.ProviderGitHub: urls(p.GithubRepos, false),
			domain.ProviderGitLab: urls(p.GitlabRepos, false),
			domain.ProviderGerrit: urls(p.GerritRepos, true),
		},
	}
}

func (c *Client) fetchProjects(ctx context.Context) ([]projectPayload, error) {
	var all []projectPayload
	for page := 1; page <= maxProjectPages; page++ {
		var batch []projectPayload
		q := url.Values{
			"page":     {strconv.Itoa(page)},
			"pagesize": {strconv.Itoa(projectsPageSize)},
		}
		if err := c.getJSON(ctx, c.projectsURL+"/api/projects", q, &batch); err != nil {
			return nil, fmt.Errorf("projects page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		if len(batch) < projectsPageSize {
			break
		}
	}
	c.logger.Debug("loaded project listing", slog.Int("projects", len(all)))
	return all, nil
}

// Projects returns every known project with gerrit URLs scrubbed of ".git".
func (c *Client) Projects(ctx context.Context) ([]domain.Project, error) {
	all, err := c.projects.get(ctx, c.fetchProjects)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Project, 0, len(all))
	for _, p := range all {
		out = append(out, p.toDomain())
	}
	return out, nil
}

// GetProject implements ports.ProjectRegistry.
func (c *Client) GetProject(ctx context.Context, repoURL string) (domain.Project, error) {
	projects, err := c.Projects(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	want := repourl.Normalize(repoURL)
	for _, p := range projects {
		for _, repos := range p.Repos {
			for _, r := range repos {
				if repourl.Normalize(r) == want {
					return p, nil
				}
			}
		}
	}
	return domain.Project{}, domain.ErrNotFound
}
