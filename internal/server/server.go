// Package server is the composition root: it wires the database, session
// store, services, and handlers together, defines the routes, and owns the
// listen/shutdown lifecycle. main.go only reads config and calls in here.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/avatar"
	"github.com/sakif/microblog/internal/handler"
	"github.com/sakif/microblog/internal/middleware"
	sqliteRepo "github.com/sakif/microblog/internal/repository/sqlite"
	"github.com/sakif/microblog/internal/service"
	"github.com/sakif/microblog/internal/session"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port       int
	DBPath     string
	AvatarDir  string
	SessionTTL time.Duration

	// RedisAddr switches sessions from in-process memory to Redis when set,
	// for deployments with more than one server process.
	RedisAddr string

	// Google OAuth app credentials. Leave empty to run with local login only.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
}

// Server bundles the router with the resources it must release on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger

	db    *sqliteRepo.DB
	redis *redis.Client // nil when sessions are in memory
}

// New assembles the full dependency chain. Each layer receives only the
// interfaces it needs: services get repositories, handlers get services.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	sessions, err := s.newSessionStore()
	if err != nil {
		db.Close()
		return nil, err
	}

	avatarStore, err := avatar.NewDirStore(cfg.AvatarDir)
	if err != nil {
		s.closeResources()
		return nil, fmt.Errorf("opening avatar storage: %w", err)
	}

	var google *auth.GoogleProvider
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		google = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL)
	} else {
		logger.Warn("Google OAuth credentials not set, Google login disabled")
	}

	authService := service.NewAuthService(db.Users(), sessions, avatarStore, logger)
	postService := service.NewPostService(db.Posts(), db.Users(), logger)
	feedService := service.NewFeedService(db.Posts(), logger)

	feedHandler := handler.NewFeedHandler(feedService, postService, logger)
	postHandler := handler.NewPostHandler(postService, authService, logger)
	authHandler := handler.NewAuthHandler(authService, postService, google, avatarStore, cfg.SessionTTL, logger)

	s.setupRoutes(sessions, feedHandler, postHandler, authHandler)

	return s, nil
}

// newSessionStore picks Redis when an address is configured, in-memory
// otherwise. The Redis connection is pinged up front so a bad address fails
// at startup instead of on the first login.
func (s *Server) newSessionStore() (session.Store, error) {
	if s.config.RedisAddr == "" {
		s.logger.Info("using in-memory session store")
		return session.NewMemoryStore(s.config.SessionTTL), nil
	}

	client := redis.NewClient(&redis.Options{Addr: s.config.RedisAddr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", s.config.RedisAddr, err)
	}

	s.redis = client
	s.logger.Info("using redis session store", slog.String("addr", s.config.RedisAddr))
	return session.NewRedisStore(client, s.config.SessionTTL), nil
}

func (s *Server) setupRoutes(
	sessions session.Store,
	feed *handler.FeedHandler,
	post *handler.PostHandler,
	authH *handler.AuthHandler,
) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Public reads. OptionalUser attaches the session when present so the
	// feed knows who is asking, but never blocks.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalUser(sessions))
		r.Get("/", feed.HandleHome)
		r.Get("/post/{id}", feed.HandlePost)
		r.Get("/error", feed.HandleErrorPage)
		r.Get("/avatar/{username}", authH.HandleAvatar)
	})

	// Account entry points, reachable anonymously.
	s.router.Get("/login", authH.HandleLoginPage)
	s.router.Post("/login", authH.HandleLogin)
	s.router.Post("/register", authH.HandleRegister)
	s.router.Get("/logout", authH.HandleLogout)
	s.router.Get("/auth/google", authH.HandleGoogleLogin)
	s.router.Get("/auth/google/callback", authH.HandleGoogleCallback)

	// Onboarding completion, only for sessions stuck in the pending state.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequirePending(sessions))
		r.Get("/registerUsername", authH.HandleUsernamePage)
		r.Post("/registerUsername", authH.HandleRegisterUsername)
	})

	// Authenticated writes and the profile.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(sessions))
		r.Post("/posts", post.HandleCreate)
		r.Post("/delete/{id}", post.HandleDelete)
		r.Post("/like/{id}", post.HandleLike)
		r.Get("/profile", authH.HandleProfile)
	})
}

// DB exposes the repository for seeding from main. Not used by request code.
func (s *Server) DB() *sqliteRepo.DB {
	return s.db
}

func (s *Server) closeResources() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("closing redis client", slog.String("error", err.Error()))
		}
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("closing database", slog.String("error", err.Error()))
	}
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests and releases the database and Redis connections.
func (s *Server) Start() error {
	defer s.closeResources()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
