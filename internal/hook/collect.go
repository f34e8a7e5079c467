package hook

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"ecavalidator/internal/domain"
)

// Update is one line of pre-receive input.
type Update struct {
	Old plumbing.Hash
	New plumbing.Hash
	Ref string
}

// ParseUpdates reads "<old> <new> <ref>" lines. Blank lines are skipped.
func ParseUpdates(r io.Reader) ([]Update, error) {
	var out []Update
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected \"<old> <new> <ref>\", got %q", line, sc.Text())
		}
		if !plumbing.IsHash(fields[0]) || !plumbing.IsHash(fields[1]) {
			return nil, fmt.Errorf("line %d: invalid object name", line)
		}
		out = append(out, Update{
			Old: plumbing.NewHash(fields[0]),
			New: plumbing.NewHash(fields[1]),
			Ref: fields[2],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read updates: %w", err)
	}
	return out, nil
}

// Collector lists the commits a push introduces.
type Collector struct {
	repo    *git.Repository
	baseRef string
	logger  *slog.Logger
}

// Open opens the repository at gitDir, bare or not.
func Open(gitDir, baseRef string, logger *slog.Logger) (*Collector, error) {
	repo, err := git.PlainOpenWithOptions(gitDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", gitDir, err)
	}
	return NewCollector(repo, baseRef, logger), nil
}

func NewCollector(repo *git.Repository, baseRef string, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Collector{repo: repo, baseRef: baseRef, logger: logger}
}

// Collect returns the commits reachable from each update's new tip but not
// from its old tip or the base ref, newest first. Branch deletions contribute
// nothing. The pushed tips are marked as Head.
func (c *Collector) Collect(ctx context.Context, updates []Update) ([]domain.Commit, error) {
	seen := make(map[plumbing.Hash]bool)
	var out []domain.Commit
	for _, u := range updates {
		if u.New.IsZero() {
			c.logger.Debug("skipping deletion", slog.String("ref", u.Ref))
			continue
		}
		excluded, err := c.excluded(ctx, u.Old)
		if err != nil {
			return nil, err
		}
		for h := range seen {
			excluded[h] = true
		}

		tip, err := c.repo.CommitObject(u.New)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", u.New, err)
		}
		iter := object.NewCommitPreorderIter(tip, excluded, nil)
		err = iter.ForEach(func(commit *object.Commit) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			seen[commit.Hash] = true
			out = append(out, toDomain(commit, commit.Hash == u.New))
			return nil
		})
		iter.Close()
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", u.Ref, err)
		}
	}
	return out, nil
}

// excluded marks every ancestor of old and of the base ref. Tips that do not
// exist in the repository are ignored.
func (c *Collector) excluded(ctx context.Context, old plumbing.Hash) (map[plumbing.Hash]bool, error) {
	set := make(map[plumbing.Hash]bool)
	var tips []plumbing.Hash
	if !old.IsZero() {
		tips = append(tips, old)
	}
	if c.baseRef != "" {
		base, err := c.repo.ResolveRevision(plumbing.Revision(c.baseRef))
		if err != nil {
			c.logger.Debug("base ref not resolvable", slog.String("ref", c.baseRef), slog.Any("error", err))
		} else {
			tips = append(tips, *base)
		}
	}

	for _, h := range tips {
		if set[h] {
			continue
		}
		commit, err := c.repo.CommitObject(h)
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", h, err)
		}
		iter := object.NewCommitPreorderIter(commit, set, nil)
		err = iter.ForEach(func(a *object.Commit) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			set[a.Hash] = true
			return nil
		})
		iter.Close()
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", h, err)
		}
	}
	return set, nil
}

func toDomain(c *object.Commit, head bool) domain.Commit {
	subject, _, _ := strings.Cut(c.Message, "\n")
	parents := make([]string, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}
	return domain.Commit{
		Hash:      c.Hash.String(),
		Subject:   strings.TrimSpace(subject),
		Body:      c.Message,
		Author:    &domain.GitIdentity{Name: c.Author.Name, Email: c.Author.Email},
		Committer: &domain.GitIdentity{Name: c.Committer.Name, Email: c.Committer.Email},
		Parents:   parents,
		Head:      head,
	}
}
