package compose

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/booknook/bookfeed/internal/api"
	"github.com/booknook/bookfeed/internal/catalog"
	"github.com/booknook/bookfeed/internal/images"
	"github.com/booknook/bookfeed/internal/session"
	"github.com/booknook/bookfeed/internal/storage"
)

type recorder struct {
	mu        sync.Mutex
	creates   []api.CreateBookRequest
	lists     atomic.Int32
	failWith  string
	failCode  int
	authToken string
	block     chan struct{}
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case api.CreatePath:
		if rec.block != nil {
			<-rec.block
		}
		var req api.CreateBookRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		rec.mu.Lock()
		rec.creates = append(rec.creates, req)
		rec.authToken = r.Header.Get("Authorization")
		rec.mu.Unlock()
		if rec.failCode != 0 {
			w.WriteHeader(rec.failCode)
			_, _ = w.Write([]byte(rec.failWith))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"new","name":"` + req.Name + `","rating":"` + req.Rating + `"}`))
	case api.BooksPath:
		rec.lists.Add(1)
		_, _ = w.Write([]byte(`{"data":[]}`))
	default:
		http.NotFound(w, r)
	}
}

func (rec *recorder) requests() []api.CreateBookRequest {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]api.CreateBookRequest(nil), rec.creates...)
}

func newFlow(t *testing.T, rec *recorder) *Flow {
	t.Helper()
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	client := api.NewClient(srv.URL, 5*time.Second)
	sess := session.NewStore(client, storage.NewMemory())
	return NewFlow(client, sess, catalog.NewStore(client), images.NewFetcher(), images.NewProcessor(t.TempDir()))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		draft   Draft
		wantErr error
	}{
		{name: "complete", draft: Draft{Name: "Dune", Caption: "spice", Rating: 4}},
		{name: "empty name", draft: Draft{Caption: "spice", Rating: 4}, wantErr: ErrIncomplete},
		{name: "blank caption", draft: Draft{Name: "Dune", Caption: "   ", Rating: 4}, wantErr: ErrIncomplete},
		{name: "zero rating", draft: Draft{Name: "Dune", Caption: "spice"}, wantErr: ErrInvalidRating},
		{name: "rating too high", draft: Draft{Name: "Dune", Caption: "spice", Rating: 6}, wantErr: ErrInvalidRating},
		{name: "author optional", draft: Draft{Name: "Dune", Caption: "spice", Rating: 1, Author: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.draft.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSubmitEmptyNameSkipsNetwork(t *testing.T) {
	rec := &recorder{}
	f := newFlow(t, rec)
	f.SetFields("", "great read", "someone")

	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("Expected ErrIncomplete, got %v", err)
	}
	if n := len(rec.requests()); n != 0 {
		t.Errorf("Expected no create request, got %d", n)
	}
}

func TestSubmitWithoutImageSendsPlaceholder(t *testing.T) {
	rec := &recorder{}
	f := newFlow(t, rec)
	f.SetFields("Dune", "spice must flow", "Frank Herbert")
	if err := f.SetRating(5); err != nil {
		t.Fatal(err)
	}

	book, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if book.ID != "new" {
		t.Errorf("Expected created book, got %+v", book)
	}

	reqs := rec.requests()
	if len(reqs) != 1 {
		t.Fatalf("Expected one request, got %d", len(reqs))
	}
	got := reqs[0]
	if got.Image != PlaceholderImage {
		t.Errorf("Expected placeholder image, got %q", got.Image)
	}
	if got.Rating != "5" || got.Name != "Dune" || got.Author != "Frank Herbert" {
		t.Errorf("Unexpected payload %+v", got)
	}
	rec.mu.Lock()
	auth := rec.authToken
	rec.mu.Unlock()
	if auth != "" {
		t.Errorf("Expected no Authorization header without a session, got %q", auth)
	}

	// Success resets the form and refreshes the feed
	if d := f.Draft(); d != NewDraft() {
		t.Errorf("Expected reset draft, got %+v", d)
	}
	if rec.lists.Load() != 1 {
		t.Errorf("Expected one catalog reload, got %d", rec.lists.Load())
	}
}

func TestSubmitWithImageSendsDataURL(t *testing.T) {
	rec := &recorder{}
	f := newFlow(t, rec)

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10))); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "cover.png")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	processed, err := f.PickImage(context.Background(), path)
	if err != nil {
		t.Fatalf("PickImage failed: %v", err)
	}
	if f.Draft().ImageURI != processed.URI {
		t.Error("Expected draft to reference the preview")
	}

	f.SetFields("Emma", "wit", "")
	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got := rec.requests()[0].Image
	if !strings.HasPrefix(got, "data:image/jpeg;base64,") || len(got) <= len("data:image/jpeg;base64,") {
		t.Errorf("Expected JPEG data URL, got %.40q", got)
	}
	if _, err := os.Stat(processed.URI); !os.IsNotExist(err) {
		t.Errorf("Expected preview removed after posting, got %v", err)
	}
}

func TestPickImageReplacesPreview(t *testing.T) {
	f := newFlow(t, &recorder{})

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10))); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "cover.png")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	first, err := f.PickImage(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.PickImage(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(first.URI); !os.IsNotExist(err) {
		t.Errorf("Expected replaced preview removed, got %v", err)
	}
	if _, err := os.Stat(second.URI); err != nil {
		t.Errorf("Expected current preview kept, got %v", err)
	}
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    string
		wantMsg string
	}{
		{name: "server message", code: http.StatusBadRequest, body: `{"message":"Image is required"}`, wantMsg: "Image is required"},
		{name: "no message", code: http.StatusInternalServerError, body: `{}`, wantMsg: "something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{failCode: tt.code, failWith: tt.body}
			f := newFlow(t, rec)
			f.SetFields("Dune", "spice", "Herbert")
			_ = f.SetRating(2)

			_, err := f.Submit(context.Background())
			if err == nil || err.Error() != tt.wantMsg {
				t.Fatalf("Expected %q, got %v", tt.wantMsg, err)
			}
			d := f.Draft()
			if d.Name != "Dune" || d.Rating != 2 {
				t.Errorf("Expected draft kept, got %+v", d)
			}
			if f.Busy() {
				t.Error("Expected busy flag cleared")
			}
			if rec.lists.Load() != 0 {
				t.Error("Expected no catalog reload after failure")
			}
		})
	}
}

func TestSubmitBusy(t *testing.T) {
	rec := &recorder{block: make(chan struct{})}
	f := newFlow(t, rec)
	f.SetFields("Dune", "spice", "")

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !f.Busy() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !f.Busy() {
		t.Fatal("Expected first submission in flight")
	}

	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}

	close(rec.block)
	if err := <-done; err != nil {
		t.Errorf("First submission failed: %v", err)
	}
}

func TestSetRating(t *testing.T) {
	f := newFlow(t, &recorder{})
	if err := f.SetRating(0); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("Expected ErrInvalidRating, got %v", err)
	}
	if f.Draft().Rating != DefaultRating {
		t.Errorf("Expected rating unchanged, got %d", f.Draft().Rating)
	}
}

func TestPickImageMissingKeepsDraft(t *testing.T) {
	f := newFlow(t, &recorder{})
	if _, err := f.PickImage(context.Background(), filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Fatal("Expected error")
	}
	if f.Draft().ImageURI != "" {
		t.Error("Expected no image attached")
	}
}
