package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"ecavalidator/internal/domain"
	"ecavalidator/internal/repourl"
)

// AccountLookup
func (db *DB) FindAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	var a domain.Account
	err := db.Pool.QueryRow(ctx, `
        SELECT id, name, email, eca_signed, can_contribute_spec_project, is_committer
        FROM accounts
        WHERE lower(email) = $1
    `, strings.ToLower(email)).Scan(&a.ID, &a.Name, &a.Email, &a.ECA.Signed, &a.ECA.CanContributeSpecProject, &a.Committer)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, domain.ErrNotFound
	}
	return a, err
}

func (db *DB) UpsertAccount(ctx context.Context, a domain.Account) error {
	_, err := db.Pool.Exec(ctx, `
        INSERT INTO accounts (id, name, email, eca_signed, can_contribute_spec_project, is_committer)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            email = EXCLUDED.email,
            eca_signed = EXCLUDED.eca_signed,
            can_contribute_spec_project = EXCLUDED.can_contribute_spec_project,
            is_committer = EXCLUDED.is_committer
    `, a.ID, a.Name, a.Email, a.ECA.Signed, a.ECA.CanContributeSpecProject, a.Committer)
	return err
}

// BotRegistry
func (db *DB) ListBots(ctx context.Context, projectID string) ([]domain.BotRegistration, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT b.id, b.project_id, b.username, b.email,
               COALESCE(s.site, ''), COALESCE(s.username, ''), COALESCE(s.email, '')
        FROM bots b
        LEFT JOIN bot_sites s ON s.bot_id = b.id
        WHERE $1::text = '' OR b.project_id = $1
        ORDER BY b.id, s.site
    `, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BotRegistration
	index := make(map[string]int)
	for rows.Next() {
		var b domain.BotRegistration
		var site string
		var siteID domain.SiteIdentity
		if err := rows.Scan(&b.ID, &b.ProjectID, &b.Username, &b.Email, &site, &siteID.Username, &siteID.Email); err != nil {
			return nil, err
		}
		i, ok := index[b.ID]
		if !ok {
			index[b.ID] = len(out)
			out = append(out, b)
			i = len(out) - 1
		}
		if site != "" {
			if out[i].Sites == nil {
				out[i].Sites = make(map[string]domain.SiteIdentity)
			}
			out[i].Sites[site] = siteID
		}
	}
	return out, rows.Err()
}

func (db *DB) UpsertBot(ctx context.Context, b domain.BotRegistration) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
        INSERT INTO bots (id, project_id, username, email) VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET
            project_id = EXCLUDED.project_id, username = EXCLUDED.username, email = EXCLUDED.email
    `, b.ID, b.ProjectID, b.Username, b.Email); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM bot_sites WHERE bot_id = $1`, b.ID); err != nil {
		return err
	}
	for site, id := range b.Sites {
		if _, err = tx.Exec(ctx, `
            INSERT INTO bot_sites (bot_id, site, username, email) VALUES ($1, $2, $3, $4)
        `, b.ID, site, id.Username, id.Email); err != nil {
			return err
		}
	}
	return nil
}

// ProjectRegistry
func (db *DB) GetProject(ctx context.Context, repoURL string) (domain.Project, error) {
	var p domain.Project
	err := db.Pool.QueryRow(ctx, `
        SELECT p.id, p.name, p.spec_project
        FROM projects p
        JOIN project_repos r ON r.project_id = p.id
        WHERE r.normalized_url = $1
        ORDER BY p.id
        LIMIT 1
    `, repourl.Normalize(repoURL)).Scan(&p.ID, &p.Name, &p.SpecProject)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Project{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Project{}, err
	}

	rows, err := db.Pool.Query(ctx, `SELECT provider, url FROM project_repos WHERE project_id = $1 ORDER BY provider, url`, p.ID)
	if err != nil {
		return domain.Project{}, err
	}
	defer rows.Close()
	p.Repos = make(map[domain.Provider][]string)
	for rows.Next() {
		var provider, url string
		if err := rows.Scan(&provider, &url); err != nil {
			return domain.Project{}, err
		}
		p.Repos[domain.Provider(provider)] = append(p.Repos[domain.Provider(provider)], url)
	}
	return p, rows.Err()
}

func (db *DB) UpsertProject(ctx context.Context, p domain.Project) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
        INSERT INTO projects (id, name, spec_project) VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, spec_project = EXCLUDED.spec_project
    `, p.ID, p.Name, p.SpecProject); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `DELETE FROM project_repos WHERE project_id = $1`, p.ID); err != nil {
		return err
	}
	for provider, urls := range p.Repos {
		for _, u := range urls {
			if provider == domain.ProviderGerrit {
				u = repourl.ScrubGerrit(u)
			}
			if _, err = tx.Exec(ctx, `
                INSERT INTO project_repos (project_id, provider, url, normalized_url) VALUES ($1, $2, $3, $4)
                ON CONFLICT DO NOTHING
            `, p.ID, string(provider), u, repourl.Normalize(u)); err != nil {
				return err
			}
		}
	}
	return nil
}
