package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/readlevel/backend/internal/auth"
	"github.com/readlevel/backend/internal/config"
	"github.com/readlevel/backend/internal/database"
	"github.com/readlevel/backend/internal/generator"
	"github.com/readlevel/backend/internal/library"
	"github.com/readlevel/backend/internal/logger"
	"github.com/readlevel/backend/internal/metrics"
	"github.com/readlevel/backend/internal/middleware"
	"github.com/readlevel/backend/internal/models"
	"github.com/readlevel/backend/internal/quizzes"
	"github.com/readlevel/backend/internal/reading"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// logger is not up yet
		os.Stderr.WriteString("Failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg)
	defer log.Sync()

	// Initialize database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	metrics.Register(prometheus.DefaultRegisterer)

	// Stores
	libraryStore := library.NewStore(db)
	reviewStore := reading.NewStore(db)
	quizStore := quizzes.NewStore(db)

	// Services
	tokens := auth.NewTokens(cfg.JWT.Secret, cfg.JWT.TTL())
	gen := generator.New(cfg.Generator, log)
	libraryService := library.NewService(libraryStore, log)
	readingService := reading.NewService(libraryStore, reviewStore, quizStore, log)
	quizService := quizzes.NewService(quizStore, libraryStore, readingService, gen,
		quizzes.PolicyFromConfig(cfg.Policy), log)

	// Handlers
	authHandler := auth.NewHandler(libraryStore, tokens, log)
	libraryHandler := library.NewHandler(libraryService, log)
	readingHandler := reading.NewHandler(readingService, log)
	quizHandler := quizzes.NewHandler(quizService, log)

	// Setup router
	r := mux.NewRouter()
	r.Use(metrics.Middleware)
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth(tokens))
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")

	admin := middleware.RequireRole(models.RoleAdmin)
	protected.HandleFunc("/books", libraryHandler.ListBooks).Methods("GET")
	protected.Handle("/books", admin(http.HandlerFunc(libraryHandler.CreateBook))).Methods("POST")
	protected.HandleFunc("/books/{id}", libraryHandler.GetBook).Methods("GET")
	protected.HandleFunc("/students/{id}/genre-interests", libraryHandler.GetGenreInterests).Methods("GET")
	protected.HandleFunc("/students/{id}/genre-interests", libraryHandler.PutGenreInterests).Methods("PUT")

	protected.HandleFunc("/students/{id}/lexile", readingHandler.GetLexile).Methods("GET")
	protected.HandleFunc("/students/{id}/reviews", readingHandler.CreateReview).Methods("POST")
	protected.HandleFunc("/students/{id}/recommendations", readingHandler.GetRecommendations).Methods("GET")

	quizHandler.Routes(protected)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"database unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(middleware.RequestLogger(log)(r))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting", zap.String("port", cfg.Server.Port), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
	log.Info("Server stopped")
}
