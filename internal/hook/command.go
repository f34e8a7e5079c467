package hook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ecavalidator/internal/domain"
)

const (
	ExitRejected = 1
	ExitFailure  = 1
	ExitUsage    = 2
)

type options struct {
	server      string
	repoURL     string
	provider    string
	strict      bool
	gitDir      string
	baseRef     string
	errorPrefix string
	timeout     time.Duration
	verbose     bool
}

// NewRootCmd builds the pre-receive hook command. Updates are read from stdin.
func NewRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:           "eca-hook",
		Short:         "Validate pushed commits against the Eclipse Contributor Agreement",
		Long:          "eca-hook reads pre-receive updates from stdin, collects the pushed commits and asks the validation service whether they may be accepted.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.server, "server", envOr("ECA_SERVER", "http://localhost:8080/eca"), "validation endpoint")
	f.StringVar(&opts.repoURL, "repo-url", os.Getenv("ECA_REPO_URL"), "canonical URL of the repository being pushed to")
	f.StringVar(&opts.provider, "provider", os.Getenv("ECA_PROVIDER"), "github, gitlab or gerrit; detected from --repo-url when empty")
	f.BoolVar(&opts.strict, "strict", false, "treat missing sign-off as an error")
	f.StringVar(&opts.gitDir, "git-dir", ".", "repository receiving the push")
	f.StringVar(&opts.baseRef, "base-ref", "HEAD", "commits reachable from this ref are not validated")
	f.StringVar(&opts.errorPrefix, "error-prefix", "GL-HOOK-ERR:", "prefix for error lines")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")
	return cmd
}

func run(ctx context.Context, opts options, stdin io.Reader, stdout, stderr io.Writer) error {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	if opts.repoURL == "" {
		return Exit(ExitUsage, "--repo-url is required", nil)
	}
	var provider domain.Provider
	if opts.provider != "" {
		p, err := domain.ParseProvider(opts.provider)
		if err != nil {
			return Exit(ExitUsage, "invalid --provider", err)
		}
		provider = p
	}

	updates, err := ParseUpdates(stdin)
	if err != nil {
		return Exit(ExitUsage, "invalid hook input", err)
	}

	collector, err := Open(opts.gitDir, opts.baseRef, logger)
	if err != nil {
		return fail(stdout, opts.errorPrefix, err)
	}
	commits, err := collector.Collect(ctx, updates)
	if err != nil {
		return fail(stdout, opts.errorPrefix, err)
	}
	logger.Debug("collected commits", slog.Int("updates", len(updates)), slog.Int("commits", len(commits)))
	if len(commits) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()
	client := NewClient(opts.server, &http.Client{})
	resp, err := client.Validate(ctx, domain.ValidationRequest{
		RepoURL:    opts.repoURL,
		Provider:   provider,
		StrictMode: opts.strict,
		Commits:    commits,
	})
	switch {
	case errors.Is(err, ErrRejected):
		Report(stdout, resp, opts.errorPrefix)
		return Exit(ExitRejected, "push rejected", nil)
	case err != nil:
		return fail(stdout, opts.errorPrefix, err)
	}
	Report(stdout, resp, opts.errorPrefix)
	return nil
}

// fail tells the pusher to retry later; details go to the returned error.
func fail(w io.Writer, prefix string, cause error) error {
	fmt.Fprintf(w, "%s Unable to validate commit, server error encountered.\n\n"+
		"Please contact the administrator, and retry the commit at a later time.\n\n", prefix)
	return Exit(ExitFailure, "validation unavailable", cause)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
