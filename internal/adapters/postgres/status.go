package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"ecavalidator/internal/domain"
)

const defaultStatusLimit = 100

// SaveStatus upserts one row per repository and commit in a single batch.
func (db *DB) SaveStatus(ctx context.Context, records []domain.StatusRecord) error {
	if len(records) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
            INSERT INTO commit_validation_status (repo_url, provider, commit_hash, verdict, reason, checked_at)
            VALUES ($1, $2, $3, $4, $5, $6)
            ON CONFLICT (repo_url, commit_hash) DO UPDATE SET
                provider = EXCLUDED.provider,
                verdict = EXCLUDED.verdict,
                reason = EXCLUDED.reason,
                checked_at = EXCLUDED.checked_at
        `, r.RepoURL, string(r.Provider), r.CommitHash, r.Verdict.String(), r.Reason, r.CheckedAt)
	}
	return db.Pool.SendBatch(ctx, batch).Close()
}

// ListStatus returns the most recent verdicts for a repository, newest first.
func (db *DB) ListStatus(ctx context.Context, repoURL string, limit int) ([]domain.StatusRecord, error) {
	if limit <= 0 {
		limit = defaultStatusLimit
	}
	rows, err := db.Pool.Query(ctx, `
        SELECT repo_url, provider, commit_hash, verdict, reason, checked_at
        FROM commit_validation_status
        WHERE repo_url = $1
        ORDER BY checked_at DESC, id DESC
        LIMIT $2
    `, repoURL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StatusRecord
	for rows.Next() {
		var r domain.StatusRecord
		var provider, verdict string
		if err := rows.Scan(&r.RepoURL, &provider, &r.CommitHash, &verdict, &r.Reason, &r.CheckedAt); err != nil {
			return nil, err
		}
		r.Provider = domain.Provider(provider)
		if err := r.Verdict.UnmarshalText([]byte(verdict)); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
