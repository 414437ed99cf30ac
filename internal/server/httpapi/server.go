// Package httpapi serves the BMD REST API, the webhook receiver and the
// server-rendered pages on a single echo instance.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/bmd/internal/logging"
	"github.com/dmitrijs2005/bmd/internal/server/auth"
	"github.com/dmitrijs2005/bmd/internal/server/config"
	"github.com/dmitrijs2005/bmd/internal/server/models"
	"github.com/dmitrijs2005/bmd/internal/server/services"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// Users is the account surface the handlers need.
type Users interface {
	Authenticate(token string) (string, error)
	Signup(ctx context.Context, req services.SignupRequest) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, p services.ProfileUpdate) error
	LinkORCID(ctx context.Context, userID, orcid string) error
	ChangePassword(ctx context.Context, userID, current, newPassword, confirm string) error
	DeleteAccount(ctx context.Context, userID, confirmEmail string) error
}

// Workflows is the workflow surface the handlers need.
type Workflows interface {
	Submit(ctx context.Context, userID string, sub models.WorkflowSubmission) (*services.SubmitResult, error)
	List(ctx context.Context, userID string) ([]models.Workflow, error)
	Get(ctx context.Context, userID, workflowID string) (*models.Workflow, error)
	Delete(ctx context.Context, userID, workflowID string) error
	ApplyStatus(ctx context.Context, workflowID string, u models.StatusUpdate) error
	CrateURL(ctx context.Context, userID, workflowID string) (string, error)
}

// ORCIDFlow runs the ORCID sign-in used to link an iD to an account.
type ORCIDFlow interface {
	Begin() (auth.LoginAttempt, string, error)
	Finish(ctx context.Context, attempt auth.LoginAttempt, state, code string) (string, error)
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps groups what the server is built from. ORCID may be nil.
type Deps struct {
	Config    *config.Config
	Users     Users
	Workflows Workflows
	ORCID     ORCIDFlow
	DB        Pinger
	Logger    logging.Logger
}

type Server struct {
	cfg       *config.Config
	users     Users
	workflows Workflows
	orcid     ORCIDFlow
	db        Pinger
	logger    logging.Logger
	pages     *renderer
	echo      *echo.Echo
}

func NewServer(d Deps) (*Server, error) {
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       d.Config,
		users:     d.Users,
		workflows: d.Workflows,
		orcid:     d.ORCID,
		db:        d.DB,
		logger:    d.Logger.With("module", "http"),
		pages:     pages,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestContext)
	e.Use(otelecho.Middleware("bmd"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{"method", v.Method, "path", v.URIPath, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				s.logger.Warn(c.Request().Context(), "request failed", append(args, "error", v.Error)...)
				return nil
			}
			s.logger.Info(c.Request().Context(), "request", args...)
			return nil
		},
	}))

	s.echo = e
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	e := s.echo

	e.GET("/healthz", s.healthz)

	api := e.Group("/api")
	api.POST("/auth/signup", s.apiSignup)
	api.POST("/auth/login", s.apiLogin)
	api.POST("/workflows/webhook/:id", s.apiWebhook, s.requireWebhookToken)

	// Middleware is attached per route: a middleware group would also
	// claim every unmatched path below its prefix.
	api.POST("/workflows/submit", s.apiSubmit, s.requireBearer)
	api.GET("/workflows", s.apiListWorkflows, s.requireBearer)
	api.GET("/workflows/:id", s.apiGetWorkflow, s.requireBearer)
	api.DELETE("/workflows/:id", s.apiDeleteWorkflow, s.requireBearer)
	api.GET("/workflows/:id/crate", s.apiCrateURL, s.requireBearer)

	e.StaticFS("/static", echo.MustSubFS(webFS, "web/static"))

	e.GET("/", s.pageRoot)
	e.GET("/login", s.pageLogin)
	e.POST("/login", s.pageLoginSubmit)
	e.GET("/signup", s.pageSignup)
	e.POST("/signup", s.pageSignupSubmit)
	e.GET("/logout", s.pageLogout)

	session := s.requireSession
	e.GET("/select-workflow", s.pageSelectWorkflow, session)
	e.GET("/create/terrestrial", s.pageCreate, session)
	e.POST("/create/terrestrial", s.pageCreateSubmit, session)
	e.GET("/workflows", s.pageWorkflows, session)
	e.POST("/workflows/:id/delete", s.pageDeleteWorkflow, session)
	e.GET("/results/:id", s.pageResults, session)
	e.GET("/account", s.pageAccount, session)
	e.POST("/account/profile", s.pageAccountProfile, session)
	e.POST("/account/password", s.pageAccountPassword, session)
	e.POST("/account/delete", s.pageAccountDelete, session)
	e.GET("/auth/orcid/login", s.pageORCIDLogin, session)
	e.GET("/auth/orcid/callback", s.pageORCIDCallback, session)
}

// Handler exposes the router for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on address until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.echo,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return err
		}
		return nil
	}
}

func (s *Server) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn(ctx, "health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
