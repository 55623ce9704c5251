package main

import (
	"context"
	"crypto/tls"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/username/backoffice/backend/src/config"
	"github.com/username/backoffice/backend/src/database"
	"github.com/username/backoffice/backend/src/gateway"
	"github.com/username/backoffice/backend/src/handlers"
	"github.com/username/backoffice/backend/src/logger"
	"github.com/username/backoffice/backend/src/security"
	"github.com/username/backoffice/backend/src/services"
	"github.com/username/backoffice/backend/src/session"
	"github.com/username/backoffice/backend/src/tenant"
)

const sessionPurgeInterval = 10 * time.Minute

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(allowed []string) func(http.Handler) http.Handler {
	allowedOrigins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		allowedOrigins[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowedOrigins[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie")
				w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, Content-Disposition")
			}

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func main() {
	config.LoadDotEnv()
	cfg, err := config.LoadConfig()
	if err != nil {
		stdlog.Fatalf("Invalid configuration: %v", err)
	}
	logger.InitLogger(cfg.LogLevel)

	logger.L.Info("Backoffice BFF starting...")

	logger.L.Info("Initializing database...", "path", cfg.DatabasePath)
	db, err := database.OpenAndMigrate(cfg.DatabasePath)
	if err != nil {
		logger.L.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := session.NewStore(db, cfg.SessionTTL)
	authService := security.NewAuthService(cfg.JWTSecret, cfg.SessionTTL)

	// O gateway precisa do serviço de sessão para o logout forçado, e vice-versa.
	var sessionService *services.SessionService
	gw := gateway.New(gateway.Config{
		CRMScheme:         cfg.CRMScheme,
		CRMHost:           cfg.CRMHost,
		AutomationBaseURL: cfg.AutomationBaseURL,
		BankDirectoryURL:  cfg.BankDirectoryURL,
		DefaultTenant:     cfg.DefaultTenant,
		Timeout:           cfg.HTTPTimeout,
	},
		gateway.WithCredentials(services.SessionCredentials),
		gateway.WithUnauthorizedHandler(func(ctx context.Context) { sessionService.ForceLogout(ctx) }),
	)

	lookupService := services.NewLookupService(gw)
	workspaces := services.NewWorkspaces(gw, lookupService, services.WorkspaceOptions{
		TTL:            cfg.WorkspaceTTL,
		SearchDebounce: cfg.CustomerSearchDebounce,
	})
	sessionService = services.NewSessionService(gw, store, authService, workspaces)
	go sessionService.PurgeLoop(ctx, sessionPurgeInterval)

	routes := handlers.Router{
		Session: handlers.NewSessionHandler(sessionService, cfg.SessionTTL),
		Screens: handlers.NewScreenHandler(sessionService),
		Lookups: handlers.NewLookupHandler(lookupService),
		Admin:   handlers.NewAdminHandler(services.NewWhatsAppUserService(gw), services.NewApprovalLinkService(gw)),
		Pages:   handlers.NewPageHandler(sessionService),
		CSRF:    handlers.NewCSRF(cfg.CSRFAuthKey),
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(proxyHeadersMiddleware)
	r.Use(enableCORS(cfg.AllowedOrigins))
	r.Use(rateLimitMiddleware)
	r.Use(handlers.TenantMiddleware(tenant.NewResolver(cfg.TenantMap, cfg.DefaultTenant)))

	routes.Mount(r)

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.L.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L.Error("Server shutdown failed", "error", err)
		}
	}()

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
