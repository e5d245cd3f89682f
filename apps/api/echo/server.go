package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/mastersgang/backend/core"
	"github.com/mastersgang/backend/core/classroom"
	"github.com/mastersgang/backend/core/user"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		UserSvc        user.Service
		ClassroomSvc   classroom.Service
		DisableReqLogs bool
		// SignalShutdown is called when an unrecoverable error mandates a
		// graceful shutdown.
		SignalShutdown func()
	}

	Server interface {
		http.Handler
		Start()
		Stop(ctx context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	auth := authMiddleware(conf, s.opts.UserSvc)
	registerAuthAPI(s.app.Group("/auth"), auth, s.opts.UserSvc, conf, validate)
	registerClassroomAPI(s.app.Group("/class"), auth, s.opts.ClassroomSvc, conf, validate)
}

func (s *server) Start() {
	if err := s.app.Start(s.opts.Conf.Addr()); err != nil && err != http.ErrServerClosed {
		s.app.Logger.Fatal(err)
	}
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Hello world")
}
