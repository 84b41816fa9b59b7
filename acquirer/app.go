package acquirer

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/eduwebgroup/affipay/acquirer/models"
	"github.com/eduwebgroup/affipay/internal/affipay"
	"github.com/eduwebgroup/affipay/internal/middleware"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	_ "github.com/lib/pq"
)

// App is the main application, it contains all the components of the
// acquirer service and is responsible for starting and stopping them.
type App struct {
	srv    *http.Server
	wg     *sync.WaitGroup
	Addr   string
	logger *slog.Logger
	config *Config
}

func NewApp(logger *slog.Logger, config *Config) *App {
	logger = logger.With(slog.String("app", "acquirer"))

	if config == nil {
		config = DefaultConfig()
	}

	return &App{
		wg:     &sync.WaitGroup{},
		logger: logger,
		config: config,
	}
}

func (a *App) Start() error {
	a.logger.Info("starting app...")

	router := chi.NewRouter()
	router.Use(middleware.NewStructuredLogger(a.logger))

	// Choose repository backend: default to pg for runtime; allow mem only
	// when explicitly enabled for tests.
	var repository *Repository
	backend := getenv("REPO_BACKEND", "pg")
	allowMem := getenv("ALLOW_MEM_BACKEND_FOR_TESTS", "false") == "true"
	switch backend {
	case "pg":
		dsn := getenv("DB_DSN", "")
		if dsn == "" {
			return fmt.Errorf("DB_DSN is required for pg backend")
		}
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxIdleConns(5)
		db.SetMaxOpenConns(10)
		if err := db.Ping(); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		repository = NewPGRepository(db)
	case "mem":
		if !allowMem {
			return fmt.Errorf("mem repository is disabled at runtime; set ALLOW_MEM_BACKEND_FOR_TESTS=true only in tests")
		}
		repository = NewRepository()
	default:
		return fmt.Errorf("unsupported REPO_BACKEND=%s", backend)
	}

	endpoints := a.config.Endpoints()
	transport := affipay.NewTransport(a.logger, a.config.HTTPTimeout)
	tokens := affipay.NewTokenManager(a.logger, transport, affipay.NewMemoryTokenStore(),
		endpoints.AuthURL, a.config.Username, a.config.Password)
	client := affipay.NewClient(a.logger, transport, tokens, endpoints.EcommerceURL)

	acq := NewService(a.logger, repository, client, a.config)
	acq.OnTransactionDone(func(tx *models.Transaction) {
		a.logger.Info("transaction settled",
			slog.String("reference", tx.Reference),
			slog.String("acquirer_reference", tx.AcquirerReference))
	})

	api := NewAPI(acq)
	api.AppendRoutes(router)

	// Health endpoints
	router.Get("/-/live", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	router.Get("/-/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := repository.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	l, err := net.Listen("tcp", a.config.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening tcp port: %w", err)
	}

	a.Addr = l.Addr().String()

	a.srv = &http.Server{
		Handler: router,
	}

	a.wg.Add(1)
	go func() {
		a.logger.Info("http server started", slog.String("addr", a.Addr))

		if err := a.srv.Serve(l); err != nil {
			if err != http.ErrServerClosed {
				a.logger.Error("starting http server", "err", err)
			}

			a.logger.Info("http server stopped")
		}

		a.wg.Done()
	}()

	return nil
}

func (a *App) Shutdown() {
	a.logger.Info("shutting down app...")

	a.srv.Shutdown(context.Background())

	a.wg.Wait()

	a.logger.Info("app stopped")
}
