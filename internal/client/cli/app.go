package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/bmd/internal/client/api"
	"github.com/dmitrijs2005/bmd/internal/client/config"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Backend is the subset of *api.Client the commands use.
type Backend interface {
	LoggedIn() bool
	Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResult, error)
	Login(ctx context.Context, email, password string) (*api.AuthResult, error)
	Logout()
	List(ctx context.Context) ([]api.Workflow, error)
	Submit(ctx context.Context, s api.Submission) (*api.Receipt, error)
	Delete(ctx context.Context, id string) error
	CrateURL(ctx context.Context, id string) (string, error)
	Download(ctx context.Context, url, path string) (int64, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	config *config.Config
	api    Backend
	health Pinger
	closer io.Closer

	mu    sync.Mutex
	mode  Mode
	email string

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	a := &App{
		config: c,
		api:    api.NewClient(c.ServerURL, c.Timeout),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}

	if c.HealthAddress != "" {
		hc, err := api.NewHealthChecker(c.HealthAddress)
		if err != nil {
			return nil, fmt.Errorf("health client: %w", err)
		}
		a.health = hc
		a.closer = hc
	}
	return a, nil
}

func (a *App) isLoggedIn() bool {
	return a.api.LoggedIn()
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		fmt.Fprintf(a.out, "\nSwitched to %s mode\n", mode)
	}
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.email
	if a.mode != "" {
		if s != "" {
			s += " "
		}
		s += string(a.mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) checkOnline(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.health.Ping(ctx); err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// StartOnlineStatusWatcher probes the health endpoint every interval until
// ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Run starts the REPL and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.closer != nil {
		defer a.closer.Close()
	}

	fmt.Fprintln(a.out, "Welcome to the BMD CLI (type 'help' for commands)")

	if a.health != nil {
		go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}
