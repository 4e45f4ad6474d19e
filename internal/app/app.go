package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/booknook/bookfeed/internal/api"
	"github.com/booknook/bookfeed/internal/catalog"
	"github.com/booknook/bookfeed/internal/compose"
	"github.com/booknook/bookfeed/internal/config"
	"github.com/booknook/bookfeed/internal/images"
	"github.com/booknook/bookfeed/internal/session"
	"github.com/booknook/bookfeed/internal/storage"
)

// App is the root object every command runs against
type App struct {
	Config  *config.Config
	Storage storage.KV
	API     *api.Client
	Session *session.Store
	Catalog *catalog.Store
	Compose *compose.Flow
}

// New wires the stores together and restores any persisted session
func New(cfg *config.Config) (*App, error) {
	kv := storage.NewFile(cfg.StoragePath())
	client := api.NewClient(cfg.APIURL, cfg.Timeout)
	sess := session.NewStore(client, kv)
	if err := sess.Restore(); err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	cat := catalog.NewStore(client)

	a := &App{
		Config:  cfg,
		Storage: kv,
		API:     client,
		Session: sess,
		Catalog: cat,
		Compose: compose.NewFlow(client, sess, cat, images.NewFetcher(), images.NewProcessor(cfg.CacheDir())),
	}
	slog.Debug("App ready", "api_url", cfg.APIURL, "state_dir", cfg.StateDir, "signed_in", sess.State().SignedIn())
	return a, nil
}

type ctxKey struct{}

// WithApp attaches a to ctx
func WithApp(ctx context.Context, a *App) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the App attached by WithApp
func FromContext(ctx context.Context) (*App, bool) {
	a, ok := ctx.Value(ctxKey{}).(*App)
	return a, ok
}
