package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"vivwendy/internal/config"
	"vivwendy/internal/database"
	"vivwendy/internal/domain/account"
	"vivwendy/internal/domain/audit"
	"vivwendy/internal/domain/person"
	"vivwendy/internal/domain/stats"
	"vivwendy/internal/domain/upload"
	"vivwendy/internal/middleware"
	"vivwendy/internal/pkg/session"
)

const shutdownTimeout = 10 * time.Second

// Server owns the HTTP engine and the services behind it.
type Server struct {
	cfg    *config.Config
	log    *zap.Logger
	engine *gin.Engine

	Accounts *account.Service
	Persons  *person.Service
	Hub      *audit.Hub
}

// Models lists every table the application owns.
func Models() []any {
	models := append(account.Models(), person.Models()...)
	return append(models, audit.Models()...)
}

// New wires repositories, services and routes on top of an open database.
// Schema migration is the caller's job.
func New(cfg *config.Config, db *gorm.DB, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	sx, err := database.SQLX(db)
	if err != nil {
		return nil, err
	}

	sessions := session.New(cfg.Session.Secret, cfg.Session.TTL)
	hub := audit.NewHub(cfg.CORS.AllowedOrigins, log.Named("audit"))
	events := audit.NewStore(db)

	accounts := account.NewService(
		account.NewRepository(db),
		account.NewBcryptHasher(),
		audit.NewFeed(events, hub, log.Named("audit")),
		log.Named("account"),
		account.Options{
			MaxLoginAttempts:  cfg.Auth.MaxLoginAttempts,
			MinPasswordLength: cfg.Auth.MinPasswordLength,
		},
	)

	images := upload.NewLocalStorage(cfg.Uploads.Dir, cfg.Uploads.URLBase, cfg.Uploads.MaxBytes)
	persons := person.NewService(person.NewRepository(db), images, log.Named("person"))

	s := &Server{
		cfg:      cfg,
		log:      log,
		Accounts: accounts,
		Persons:  persons,
		Hub:      hub,
	}

	s.engine = newRouter(cfg, log, sessions, routes{
		account: account.NewHandler(accounts, sessions, account.CookieConfig{
			Name:     cfg.Session.CookieName,
			Secure:   cfg.Session.CookieSecure,
			SameSite: cfg.Session.CookieSameSite,
		}),
		person: person.NewHandler(persons),
		stats:  stats.NewHandler(stats.NewRepository(sx)),
		audit:  audit.NewHandler(hub, events),
	})
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type routes struct {
	account *account.Handler
	person  *person.Handler
	stats   *stats.Handler
	audit   *audit.Handler
}

func newRouter(cfg *config.Config, log *zap.Logger, sessions *session.Manager, h routes) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = cfg.Uploads.MaxBytes
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	r.Static(cfg.Uploads.URLBase, cfg.Uploads.Dir)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		h.account.RegisterPublicRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.SessionAuth(sessions, cfg.Session.CookieName))
		{
			h.account.RegisterProtectedRoutes(protected)
			h.person.RegisterRoutes(protected)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.SessionAuth(sessions, cfg.Session.CookieName), middleware.AdminOnly())
		{
			h.account.RegisterAdminRoutes(admin)
			h.stats.RegisterAdminRoutes(admin)
			h.audit.RegisterAdminRoutes(admin)
		}
	}

	return r
}
