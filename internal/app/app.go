// ABOUTME: Application state: the client, storage and stores built once at startup
// ABOUTME: Passed explicitly to the CLI commands and the TUI

package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/invayl/tutor-cli/internal/auth"
	"github.com/invayl/tutor-cli/internal/chat"
	"github.com/invayl/tutor-cli/internal/client"
	"github.com/invayl/tutor-cli/internal/config"
	"github.com/invayl/tutor-cli/internal/storage"
)

// App holds everything a command or screen needs
type App struct {
	Config  *config.Config
	Client  *client.Client
	Storage storage.Store
	Auth    *auth.Store
	Chat    *chat.Store
}

// Option adjusts construction; used by tests
type Option func(*options)

type options struct {
	storage storage.Store
	client  []client.Option
}

// WithStorage uses st instead of opening cfg.Storage
func WithStorage(st storage.Store) Option {
	return func(o *options) { o.storage = st }
}

// WithClientOptions appends options for the HTTP client
func WithClientOptions(opts ...client.Option) Option {
	return func(o *options) { o.client = append(o.client, opts...) }
}

// New wires the application from cfg. Close releases storage.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	st := o.storage
	if st == nil {
		var err error
		st, err = storage.Open(cfg.Storage, cfg.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage, err)
		}
	}

	a := &App{Config: cfg, Storage: st}

	clientOpts := []client.Option{
		client.WithTimeout(cfg.Timeout),
		// Auth is assigned below; the source is only consulted per request.
		client.WithCredentialSource(credentialSource{app: a}),
	}
	if cfg.AllProxy != "" {
		dial, err := client.SOCKS5DialContext(cfg.AllProxy)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to configure proxy: %w", err)
		}
		clientOpts = append(clientOpts, client.WithDialContext(dial))
		slog.Debug("Routing backend traffic through SSH proxy")
	}
	clientOpts = append(clientOpts, o.client...)

	a.Client = client.New(cfg.APIURL, clientOpts...)
	a.Auth = auth.NewStore(a.Client, st)
	a.Chat = chat.NewStore(a.Client, chat.WithMaxOutputTokens(cfg.MaxOutputTokens))
	return a, nil
}

type credentialSource struct {
	app *App
}

func (c credentialSource) Credentials() (client.Credentials, bool) {
	if c.app.Auth == nil {
		return client.Credentials{}, false
	}
	return c.app.Auth.Credentials()
}

// Boot restores the saved session and, when logged in, refreshes identity
// and the thread list concurrently. Refresh failures are logged, not fatal.
func (a *App) Boot(ctx context.Context) error {
	if err := a.Auth.HydrateFromStorage(); err != nil {
		return err
	}
	if !a.Auth.State().LoggedIn() {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := a.Auth.FetchCurrentUser(gctx); err != nil {
			slog.Warn("Could not refresh user", "error", client.ErrorMessage(err, "Unauthorized"))
		}
		return nil
	})
	g.Go(func() error {
		if err := a.Chat.FetchThreads(gctx, a.Config.ThreadsLimit, 0, chat.DefaultOwner); err != nil {
			slog.Warn("Could not load threads", "error", client.ErrorMessage(err, "Failed to load sessions"))
		}
		return nil
	})
	return g.Wait()
}

// Logout drops the saved session and forgets the previous user's conversations
func (a *App) Logout() error {
	err := a.Auth.Logout()
	a.Chat = chat.NewStore(a.Client, chat.WithMaxOutputTokens(a.Config.MaxOutputTokens))
	return err
}

// Close releases storage
func (a *App) Close() error {
	return a.Storage.Close()
}
