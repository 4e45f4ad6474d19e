package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/booknook/bookfeed/internal/catalog"
	"github.com/booknook/bookfeed/internal/handlers"
	"github.com/booknook/bookfeed/internal/models"
	"github.com/booknook/bookfeed/internal/nav"
	"github.com/booknook/bookfeed/internal/session"
	"github.com/charmbracelet/x/ansi"
)

type harness struct {
	t        *testing.T
	url      string
	stateDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

// newHarnessWith lets a test wrap the backend, e.g. to inject failures
func newHarnessWith(t *testing.T, wrap func(http.Handler) http.Handler) *harness {
	t.Helper()
	t.Setenv("BOOKFEED_API_URL", "")
	t.Setenv("BOOKFEED_STATE_DIR", "")
	t.Setenv("BOOKFEED_TIMEOUT", "")

	h, err := handlers.New(handlers.Options{
		Secret: []byte("test-secret"),
		Params: &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16},
	})
	if err != nil {
		t.Fatal(err)
	}
	var routes http.Handler = h.Routes()
	if wrap != nil {
		routes = wrap(routes)
	}
	srv := httptest.NewServer(routes)
	t.Cleanup(srv.Close)
	return &harness{t: t, url: srv.URL, stateDir: t.TempDir()}
}

// run executes the root command and returns stdout without styling
func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--state-dir", h.stateDir, "--api-url", h.url))
	err := root.ExecuteContext(context.Background())
	return ansi.Strip(out.String()), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run("", args...)
	if err != nil {
		h.t.Fatalf("%v failed: %v", args, err)
	}
	return out
}

func TestSignedOutShell(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun()
	if !strings.Contains(out, "Welcome to Bookfeed") || !strings.Contains(out, "bookfeed login") {
		t.Errorf("Expected sign-in screen, got:\n%s", out)
	}

	for _, args := range [][]string{{"books"}, {"profile"}, {"create", "--name", "x", "--caption", "y"}, {"logout"}} {
		if _, err := h.run("", args...); !errors.Is(err, nav.ErrNotSignedIn) {
			t.Errorf("%v: expected ErrNotSignedIn, got %v", args, err)
		}
	}
}

func TestRegisterCreateAndBrowse(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("register", "--name", "Ann", "--email", "ann@example.com", "--password", "hunter2")
	if !strings.Contains(out, "Welcome, Ann") {
		t.Errorf("Expected welcome, got:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(h.stateDir, "storage.json")); err != nil {
		t.Errorf("Expected session persisted: %v", err)
	}

	// Signed in: the shell opens on the feed and auth screens are refused
	if out := h.mustRun(); !strings.Contains(out, "No recommendations yet") {
		t.Errorf("Expected empty feed, got:\n%s", out)
	}
	if _, err := h.run("", "login", "--email", "ann@example.com", "--password", "hunter2"); !errors.Is(err, nav.ErrAlreadySignedIn) {
		t.Errorf("Expected ErrAlreadySignedIn, got %v", err)
	}

	out = h.mustRun("create", "--name", "Dune", "--author", "Frank Herbert", "--caption", "Spice must flow", "--rating", "5")
	if !strings.Contains(out, "posted") || !strings.Contains(out, "Dune") {
		t.Errorf("Expected success alert, got:\n%s", out)
	}
	if _, err := h.run("", "create", "--caption", "no name"); err == nil {
		t.Error("Expected incomplete form to fail")
	}

	out = h.mustRun("books")
	if !strings.Contains(out, "Dune") || !strings.Contains(out, "★★★★★") {
		t.Errorf("Expected card in feed, got:\n%s", out)
	}

	var books []models.Book
	if err := json.Unmarshal([]byte(h.mustRun("books", "--format", "json")), &books); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if len(books) != 1 || books[0].Name != "Dune" || books[0].Rating != 5 {
		t.Errorf("Unexpected books %+v", books)
	}

	if out := h.mustRun("books", "--format", "yaml"); !strings.Contains(out, "name: Dune") {
		t.Errorf("Expected YAML output, got:\n%s", out)
	}
	if _, err := h.run("", "books", "--format", "csv"); err == nil {
		t.Error("Expected unsupported format error")
	}

	export := filepath.Join(t.TempDir(), "feed.parquet")
	h.mustRun("books", "--format", "json", "--export", export)
	rows, err := catalog.ReadParquet(export)
	if err != nil {
		t.Fatalf("ReadParquet failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Dune" {
		t.Errorf("Unexpected export rows %+v", rows)
	}
	if out := h.mustRun("books", "--from", export); !strings.Contains(out, "Dune") || !strings.Contains(out, "★★★★★") {
		t.Errorf("Expected exported feed, got:\n%s", out)
	}
}

func TestProfileAndLogout(t *testing.T) {
	h := newHarness(t)
	h.mustRun("register", "--name", "Ann", "--email", "ann@example.com", "--password", "hunter2")

	out := h.mustRun("profile")
	for _, want := range []string{"Profile : Ann", "Email : ann@example.com", "Member Since", "Session expires", "bookfeed logout"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in profile:\n%s", want, out)
		}
	}

	if out := h.mustRun("logout"); !strings.Contains(out, "bookfeed login") {
		t.Errorf("Expected sign-in hint after logout, got:\n%s", out)
	}
	if _, err := h.run("", "profile"); !errors.Is(err, nav.ErrNotSignedIn) {
		t.Errorf("Expected ErrNotSignedIn after logout, got %v", err)
	}

	// Password from stdin
	if _, err := h.run("hunter2\n", "login", "--email", "ann@example.com"); err != nil {
		t.Fatalf("Login with prompted password failed: %v", err)
	}
	if out := h.mustRun("profile"); !strings.Contains(out, "ann@example.com") {
		t.Errorf("Expected restored session, got:\n%s", out)
	}
}

func TestLoginFailure(t *testing.T) {
	h := newHarness(t)
	h.mustRun("register", "--name", "Ann", "--email", "ann@example.com", "--password", "hunter2")
	h.mustRun("logout")

	if _, err := h.run("", "login", "--email", "ann@example.com", "--password", "wrong"); !errors.Is(err, session.ErrLoginFailed) {
		t.Errorf("Expected ErrLoginFailed, got %v", err)
	}
	if _, err := h.run("", "login", "--password", "x"); !errors.Is(err, session.ErrMissingCredentials) {
		t.Errorf("Expected ErrMissingCredentials, got %v", err)
	}
	if _, err := h.run("", "books"); !errors.Is(err, nav.ErrNotSignedIn) {
		t.Errorf("Expected still signed out, got %v", err)
	}
}

func TestCreateShowsRefreshFailure(t *testing.T) {
	var failList atomic.Bool
	h := newHarnessWith(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if failList.Load() && r.Method == http.MethodGet && r.URL.Path == "/api/v1/books" {
				http.Error(w, `{"message":"feed unavailable"}`, http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	h.mustRun("register", "--name", "Ann", "--email", "ann@example.com", "--password", "hunter2")
	h.mustRun("create", "--name", "Emma", "--caption", "Sharp and funny", "--rating", "4")

	failList.Store(true)
	out, err := h.run("", "create", "--name", "Dune", "--caption", "Spice must flow", "--rating", "5")
	if err != nil {
		t.Fatalf("Expected the post itself to succeed, got %v", err)
	}
	if !strings.Contains(out, "posted") {
		t.Errorf("Expected success alert, got:\n%s", out)
	}
	if strings.Contains(out, "No recommendations yet") {
		t.Errorf("Expected no empty feed after a failed refresh, got:\n%s", out)
	}
	for _, want := range []string{"Error", "could not be refreshed", "feed unavailable", "bookfeed books"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}

	failList.Store(false)
	if out := h.mustRun("books"); !strings.Contains(out, "Dune") || !strings.Contains(out, "Emma") {
		t.Errorf("Expected retry to show both books, got:\n%s", out)
	}
}

func TestReadPassword(t *testing.T) {
	t.Run("pipe", func(t *testing.T) {
		var prompt bytes.Buffer
		got, err := readPassword(strings.NewReader("hunter2\r\n"), &prompt)
		if err != nil {
			t.Fatal(err)
		}
		if got != "hunter2" {
			t.Errorf("Expected hunter2, got %q", got)
		}
		if prompt.String() != "Password: " {
			t.Errorf("Expected prompt, got %q", prompt.String())
		}
	})

	t.Run("regular file is not a terminal", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pw")
		if err := os.WriteFile(path, []byte("s3cret\n"), 0600); err != nil {
			t.Fatal(err)
		}
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()

		got, err := readPassword(f, &bytes.Buffer{})
		if err != nil {
			t.Fatal(err)
		}
		if got != "s3cret" {
			t.Errorf("Expected s3cret, got %q", got)
		}
	})
}
