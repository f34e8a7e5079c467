package eclipseapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecavalidator/internal/domain"
)

const botsJSON = `[
  {"id": "1", "email": "1.bot@eclipse.org", "projectId": "sample.proj", "username": "projbot"},
  {"id": 10, "email": "2.bot@eclipse.org", "projectId": "sample.proto", "username": "protobot",
   "github.com": {"email": "2.bot-github@eclipse.org", "username": "protobot-gh"}},
  {"id": "11", "email": "3.bot@eclipse.org", "projectId": "spec.proj", "username": "specbot",
   "gitlab.eclipse.org": {"email": "3.bot-gitlab@eclipse.org", "username": "protobot-gl"}}
]`

type fakeAPI struct {
	botCalls     atomic.Int64
	projectPages atomic.Int64
	failAccounts bool
	bots         string
	projects     []string

	// projectsHeld, when set, receives a value once a project page request
	// arrives and the handler then waits for projectsRelease.
	projectsHeld    chan struct{}
	projectsRelease chan struct{}
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/account/profile", func(w http.ResponseWriter, r *http.Request) {
		if f.failAccounts {
			http.Error(w, "upstream exploded", http.StatusBadGateway)
			return
		}
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Query().Get("mail") {
		case "signed@eclipse.org":
			fmt.Fprint(w, `[{"uid": 42, "name": "Signed User", "mail": "Signed@Eclipse.org",
				"eca": {"signed": true, "can_contribute_spec_project": true}, "is_committer": true}]`)
		case "gone@eclipse.org":
			http.NotFound(w, r)
		default:
			fmt.Fprint(w, `[]`)
		}
	})
	mux.HandleFunc("/bots", func(w http.ResponseWriter, r *http.Request) {
		f.botCalls.Add(1)
		if f.bots != "" {
			fmt.Fprint(w, f.bots)
			return
		}
		fmt.Fprint(w, botsJSON)
	})
	mux.HandleFunc("/api/projects", func(w http.ResponseWriter, r *http.Request) {
		f.projectPages.Add(1)
		if f.projectsHeld != nil {
			f.projectsHeld <- struct{}{}
			<-f.projectsRelease
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page-1 < len(f.projects) {
			fmt.Fprint(w, f.projects[page-1])
			return
		}
		fmt.Fprint(w, `[]`)
	})
	return mux
}

func newTestClient(t *testing.T, api *fakeAPI, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)
	opts = append([]Option{WithToken("secret")}, opts...)
	return New(server.URL, server.URL+"/", server.URL, opts...)
}

func TestFindAccountByEmail(t *testing.T) {
	c := newTestClient(t, &fakeAPI{})

	acct, err := c.FindAccountByEmail(context.Background(), "signed@eclipse.org")
	require.NoError(t, err)
	assert.Equal(t, domain.Account{
		ID:        42,
		Name:      "Signed User",
		Email:     "Signed@Eclipse.org",
		ECA:       domain.ECA{Signed: true, CanContributeSpecProject: true},
		Committer: true,
	}, acct)

	_, err = c.FindAccountByEmail(context.Background(), "nobody@example.org")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.FindAccountByEmail(context.Background(), "gone@eclipse.org")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFindAccountByEmail_UpstreamError(t *testing.T) {
	c := newTestClient(t, &fakeAPI{failAccounts: true})

	_, err := c.FindAccountByEmail(context.Background(), "signed@eclipse.org")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.Contains(t, se.Body, "upstream exploded")
}

func TestFindAccountByEmail_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	c := New(server.URL, server.URL, server.URL)

	_, err := c.FindAccountByEmail(context.Background(), "signed@eclipse.org")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestListBots(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	all, err := c.ListBots(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	scoped, err := c.ListBots(context.Background(), "sample.proto")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	bot := scoped[0]
	assert.Equal(t, "10", bot.ID)
	assert.Equal(t, "protobot", bot.Username)
	assert.Equal(t, domain.SiteIdentity{Username: "protobot-gh", Email: "2.bot-github@eclipse.org"}, bot.Sites["github.com"])
	assert.Equal(t, "2.bot-github@eclipse.org", bot.IdentityFor(domain.ProviderGitHub).Email)

	assert.Equal(t, int64(1), api.botCalls.Load(), "listing should be cached")
}

func TestListBots_MalformedField(t *testing.T) {
	for _, field := range []string{"email", "username", "projectId"} {
		t.Run(field, func(t *testing.T) {
			api := &fakeAPI{bots: fmt.Sprintf(`[{"id": "1", %q: 42}]`, field)}
			c := newTestClient(t, api)

			_, err := c.ListBots(context.Background(), "")
			require.ErrorContains(t, err, "bot "+field)
		})
	}
}

func TestListBots_CacheExpiry(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api, WithCacheTTL(time.Minute))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.bots.now = func() time.Time { return now }

	_, err := c.ListBots(context.Background(), "")
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = c.ListBots(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), api.botCalls.Load())
}

func TestListBots_ConcurrentRefreshShared(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.ListBots(context.Background(), "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, api.botCalls.Load(), int64(10))
	assert.GreaterOrEqual(t, api.botCalls.Load(), int64(1))
}

func TestProjects_PaginationAndScrubbing(t *testing.T) {
	api := &fakeAPI{projects: []string{
		`[{"project_id": "technology.jgit", "name": "JGit",
		   "spec_project_working_group": [],
		   "github_repos": [{"url": "https://github.com/eclipse/jgit.git"}],
		   "gerrit_repos": [{"url": "https://git.eclipse.org/r/jgit/jgit.git"}]}]`,
	}}
	c := newTestClient(t, api)

	projects, err := c.Projects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 1)
	p := projects[0]
	assert.False(t, p.SpecProject)
	assert.Equal(t, []string{"https://git.eclipse.org/r/jgit/jgit"}, p.Repos[domain.ProviderGerrit])
	assert.Equal(t, []string{"https://github.com/eclipse/jgit.git"}, p.Repos[domain.ProviderGitHub])
	assert.Equal(t, int64(1), api.projectPages.Load())
}

func TestGetProject(t *testing.T) {
	var full []string
	page := "["
	for i := 0; i < projectsPageSize; i++ {
		if i > 0 {
			page += ","
		}
		page += fmt.Sprintf(`{"project_id": "p%d", "github_repos": [{"url": "https://github.com/eclipse/p%d"}]}`, i, i)
	}
	page += "]"
	full = append(full, page,
		`[{"project_id": "ee4j.spec", "name": "Spec", "spec_project_working_group": {"id": "jakarta-ee"},
		   "gitlab_repos": [{"url": "https://gitlab.eclipse.org/eclipse/spec.git"}]}]`)
	api := &fakeAPI{projects: full}
	c := newTestClient(t, api)

	p, err := c.GetProject(context.Background(), "https://gitlab.eclipse.org/eclipse/spec")
	require.NoError(t, err)
	assert.Equal(t, "ee4j.spec", p.ID)
	assert.True(t, p.SpecProject)
	assert.Equal(t, int64(2), api.projectPages.Load())

	p, err = c.GetProject(context.Background(), "https://github.com/eclipse/p7.git")
	require.NoError(t, err)
	assert.Equal(t, "p7", p.ID)

	_, err = c.GetProject(context.Background(), "https://github.com/unknown/repo")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetProject_CancelledCallerDoesNotFailOthers(t *testing.T) {
	api := &fakeAPI{
		projects: []string{`[{"project_id": "ee4j.foo",
			"github_repos": [{"url": "https://github.com/eclipse/foo"}]}]`},
		projectsHeld:    make(chan struct{}, 1),
		projectsRelease: make(chan struct{}),
	}
	c := newTestClient(t, api)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.GetProject(ctxA, "https://github.com/eclipse/foo")
		errA <- err
	}()
	<-api.projectsHeld

	type result struct {
		p   domain.Project
		err error
	}
	resB := make(chan result, 1)
	go func() {
		p, err := c.GetProject(context.Background(), "https://github.com/eclipse/foo")
		resB <- result{p, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(api.projectsRelease)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "ee4j.foo", b.p.ID)
	assert.Equal(t, int64(1), api.projectPages.Load())
}
