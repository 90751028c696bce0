package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"gitjournal/api/internal/app"
	"gitjournal/api/internal/config"
	"gitjournal/api/internal/digest"
	"gitjournal/api/internal/discussion"
	"gitjournal/api/internal/localstate"
	"gitjournal/api/internal/logging"
	"gitjournal/api/internal/session"
)

const storedBody = "2024/03/05\n\n## Done\n- a\n\n## Next\n- b"

// memoryRepo is an in-memory discussion holding one thread.
type memoryRepo struct {
	comments []discussion.Comment
	tokens   []string
}

func (m *memoryRepo) GetDiscussion(_ context.Context, owner, repo string, number int, token string) (discussion.Discussion, error) {
	m.tokens = append(m.tokens, token)
	if owner != "octo" || repo != "journal" || number != 7 {
		return discussion.Discussion{}, discussion.ErrNotFound
	}
	return discussion.Discussion{ID: "D_7", Title: "Journal", Comments: append([]discussion.Comment(nil), m.comments...)}, nil
}

func (m *memoryRepo) DiscussionID(context.Context, string, string, int, string) (string, error) {
	return "D_7", nil
}

func (m *memoryRepo) CreateComment(_ context.Context, _, body, _ string) (discussion.Comment, error) {
	c := discussion.Comment{ID: "DC_new", Body: body, URL: "https://github.com/octo/journal/discussions/7#new"}
	m.comments = append([]discussion.Comment{c}, m.comments...)
	return c, nil
}

func (m *memoryRepo) UpdateComment(_ context.Context, commentID, body, _ string) (discussion.Comment, error) {
	for i := range m.comments {
		if m.comments[i].ID == commentID {
			m.comments[i].Body = body
			return m.comments[i], nil
		}
	}
	return discussion.Comment{}, discussion.ErrNotFound
}

func (m *memoryRepo) RepositoryID(context.Context, string, string, string) (string, error) {
	return "R_1", nil
}

func (m *memoryRepo) ResolveCategoryID(context.Context, string, string, string, string) (string, error) {
	return "DIC_1", nil
}

func (m *memoryRepo) CreateDiscussion(_ context.Context, _, _, title, _, _ string) (discussion.Discussion, error) {
	return discussion.Discussion{ID: "D_42", Title: title, URL: "https://github.com/octo/journal/discussions/42"}, nil
}

func (m *memoryRepo) Viewer(_ context.Context, token string) (string, error) {
	if token != "ghp_cli" {
		return "", discussion.ErrUnauthorized
	}
	return "octocat", nil
}

type stubDigest struct {
	last digest.Request
	err  error
}

func (s *stubDigest) Fetch(_ context.Context, req digest.Request) (string, error) {
	s.last = req
	if s.err != nil {
		return "", s.err
	}
	return "- reviewed PR #5\n", nil
}

type harness struct {
	repo      *memoryRepo
	digest    *stubDigest
	statePath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("GITHUB_TOKEN", "ghp_cli")
	t.Setenv("GITHUB_REPO", "octo/journal")
	return &harness{
		repo:      &memoryRepo{comments: []discussion.Comment{{ID: "DC_1", Body: storedBody}}},
		digest:    &stubDigest{},
		statePath: filepath.Join(t.TempDir(), "state.yaml"),
	}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	factory := func(cfg config.Config, state *localstate.Store, logger *slog.Logger) *app.Service {
		return app.New(cfg, h.repo, h.digest, state, logger)
	}
	root := newRootCommand(&Options{EnvFile: filepath.Join(t.TempDir(), "none.env")}, logging.Discard(), factory)
	return executeCommand(root, stdin, append([]string{"--state", h.statePath, "--log-level", "error"}, args...)...)
}

// executeCommand runs a cobra command with the given args and captures stdout.
func executeCommand(root *cobra.Command, stdin string, args ...string) (string, error) {
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	_, err := root.ExecuteC()
	return out.String(), err
}

func TestLoginCheck(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "", "login-check")
	if err != nil {
		t.Fatalf("login-check error = %v", err)
	}
	if strings.TrimSpace(out) != "authenticated as octocat" {
		t.Fatalf("login-check output = %q", out)
	}
}

func TestCommandsRequireToken(t *testing.T) {
	h := newHarness(t)
	t.Setenv("GITHUB_TOKEN", "")

	_, err := h.run(t, "", "entries", "list", "--owner", "octo", "--repo", "journal", "--number", "7")
	if !errors.Is(err, session.ErrUnauthenticated) {
		t.Fatalf("entries list error = %v, want ErrUnauthenticated", err)
	}
	if len(h.repo.tokens) != 0 {
		t.Fatalf("expected no GitHub calls without a token")
	}
}

func TestConfigSetThenEntriesList(t *testing.T) {
	h := newHarness(t)

	if _, err := h.run(t, "", "entries", "list"); err == nil || !strings.Contains(err.Error(), "no journal selected") {
		t.Fatalf("entries list without selection error = %v", err)
	}

	out, err := h.run(t, "## Done\n\n## Next\n", "config", "set", "--owner", "octo", "--repo", "journal", "--number", "7", "--template-file", "-")
	if err != nil {
		t.Fatalf("config set error = %v", err)
	}
	if !strings.Contains(out, "saved octo/journal#7") {
		t.Fatalf("config set output = %q", out)
	}

	out, err = h.run(t, "", "entries", "list")
	if err != nil {
		t.Fatalf("entries list error = %v", err)
	}
	if !strings.Contains(out, "2024-03-05  DC_1  Done, Next") {
		t.Fatalf("entries list output = %q", out)
	}
	if h.repo.tokens[0] != "ghp_cli" {
		t.Fatalf("token used = %q", h.repo.tokens[0])
	}

	out, err = h.run(t, "", "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "discussion_number: 7") {
		t.Fatalf("config show output = %q", out)
	}
}

func TestEntriesShow(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "", "entries", "show", "DC_1", "--owner", "octo", "--repo", "journal", "--number", "7")
	if err != nil {
		t.Fatalf("entries show error = %v", err)
	}
	for _, want := range []string{"[0] (preamble)", "[1] ## Done", "    - a", "[2] ## Next"} {
		if !strings.Contains(out, want) {
			t.Errorf("entries show output missing %q:\n%s", want, out)
		}
	}

	_, err = h.run(t, "", "entries", "show", "DC_404", "--owner", "octo", "--repo", "journal", "--number", "7")
	if !errors.Is(err, discussion.ErrNotFound) {
		t.Fatalf("entries show unknown error = %v", err)
	}
}

func TestEntriesNewUsesSavedTemplate(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run(t, "## Done\n", "config", "set", "--owner", "octo", "--repo", "journal", "--number", "7", "--template-file", "-"); err != nil {
		t.Fatalf("config set error = %v", err)
	}

	out, err := h.run(t, "", "entries", "new")
	if err != nil {
		t.Fatalf("entries new error = %v", err)
	}
	if !strings.HasPrefix(out, "created DC_new") {
		t.Fatalf("entries new output = %q", out)
	}
	want := time.Now().Format("2006/01/02") + "\n\n## Done\n"
	if got := h.repo.comments[0].Body; got != want {
		t.Fatalf("created body = %q, want %q", got, want)
	}
}

func TestSectionShowAndEdit(t *testing.T) {
	h := newHarness(t)
	ref := []string{"--owner", "octo", "--repo", "journal", "--number", "7"}

	out, err := h.run(t, "", append([]string{"section", "show", "DC_1", "1", "--gist", "g1"}, ref...)...)
	if err != nil {
		t.Fatalf("section show error = %v", err)
	}
	if !strings.Contains(out, "## Done\n- a\n") || !strings.Contains(out, "-- activity on 2024-03-04\n- reviewed PR #5") {
		t.Fatalf("section show output = %q", out)
	}
	if h.digest.last.SettingsGistID != "g1" || h.digest.last.UntilDate != "2024-03-04" {
		t.Fatalf("digest request = %+v", h.digest.last)
	}

	out, err = h.run(t, "- a\n- c\n", append([]string{"section", "edit", "DC_1", "1"}, ref...)...)
	if err != nil {
		t.Fatalf("section edit error = %v", err)
	}
	if !strings.Contains(out, "updated DC_1 (3 sections)") {
		t.Fatalf("section edit output = %q", out)
	}
	if got := h.repo.comments[0].Body; got != "2024/03/05\n\n## Done\n- a\n- c\n\n## Next\n- b" {
		t.Fatalf("saved body = %q", got)
	}

	if _, err := h.run(t, "x", append([]string{"section", "edit", "DC_1", "zero"}, ref...)...); err == nil {
		t.Fatal("expected error for non-numeric index")
	}
}

func TestSectionShowDigestUnavailable(t *testing.T) {
	h := newHarness(t)
	h.digest.err = &digest.UpstreamError{StatusCode: 502, Body: "bad gateway"}

	out, err := h.run(t, "", "section", "show", "DC_1", "2", "--owner", "octo", "--repo", "journal", "--number", "7")
	if err != nil {
		t.Fatalf("section show error = %v", err)
	}
	if !strings.Contains(out, "-- digest unavailable:") {
		t.Fatalf("section show output = %q", out)
	}
}

func TestDigestCommand(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "", "digest", "--since", "2024-03-01", "--until", "2024-03-02")
	if err != nil {
		t.Fatalf("digest error = %v", err)
	}
	if strings.TrimSpace(out) != "- reviewed PR #5" {
		t.Fatalf("digest output = %q", out)
	}
	if h.digest.last.SinceDate != "2024-03-01" || h.digest.last.UntilDate != "2024-03-02" || h.digest.last.Token != "ghp_cli" {
		t.Fatalf("digest request = %+v", h.digest.last)
	}
}

func TestThreadCreateSelectsDiscussion(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "Daily notes.", "thread", "create", "--body-file", "-")
	if err != nil {
		t.Fatalf("thread create error = %v", err)
	}
	if !strings.Contains(out, "discussions/42") {
		t.Fatalf("thread create output = %q", out)
	}
	st, err := localstate.NewStore(h.statePath).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.Owner != "octo" || st.Repo != "journal" || st.DiscussionNumber != 42 {
		t.Fatalf("state after thread create = %+v", st)
	}
}

func TestDiscussionNumberFromURL(t *testing.T) {
	tests := map[string]int{
		"https://github.com/octo/journal/discussions/42":  42,
		"https://github.com/octo/journal/discussions/42/": 42,
		"https://github.com/octo/journal/issues/42":       0,
		"https://github.com/octo/journal/discussions/x":   0,
		"":                                                0,
	}
	for raw, want := range tests {
		got, ok := discussionNumberFromURL(raw)
		if got != want || ok != (want > 0) {
			t.Errorf("discussionNumberFromURL(%q) = %d, %v", raw, got, ok)
		}
	}
}
