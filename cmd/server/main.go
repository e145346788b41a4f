package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sparkthread/backend/internal/api"
	"github.com/sparkthread/backend/internal/auth"
	"github.com/sparkthread/backend/internal/config"
	"github.com/sparkthread/backend/internal/feed"
	"github.com/sparkthread/backend/internal/llm"
	"github.com/sparkthread/backend/internal/repository"
	"github.com/sparkthread/backend/internal/repository/postgres"
	"github.com/sparkthread/backend/internal/repository/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}
	log.Info("configuration loaded",
		zap.String("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Bool("api_key_set", cfg.APIKey() != ""))

	repo, err := openRepository(cfg)
	if err != nil {
		log.Fatal("initialize storage", zap.Error(err))
	}
	defer repo.Close()

	factory, err := llm.NewFactory(llm.Provider(cfg.LLM.Provider), cfg.APIKey(), llm.ModelSet{
		Default: cfg.LLM.Model,
		Search:  cfg.LLM.SearchModel,
		Fast:    cfg.LLM.FastModel,
	})
	if err != nil {
		log.Fatal("initialize completion factory", zap.Error(err))
	}
	client, err := factory.Client()
	if err != nil {
		log.Fatal("initialize completion client", zap.Error(err))
	}

	svc, err := feed.NewService(repo, client, factory.Models(), log)
	if err != nil {
		log.Fatal("initialize feed service", zap.Error(err))
	}

	handler := api.NewHandler(repo, svc, log)

	apiMux := http.NewServeMux()
	handler.RegisterRoutes(apiMux)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)

	// Health stays outside the auth boundary.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/", api.Authenticate(verifier)(apiMux))

	var h http.Handler = mux
	h = api.RequestLogger(log)(h)
	h = api.CORS(api.CORSConfig{AllowedOrigins: cfg.Server.CORSOrigins})(h)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second, // generation calls are slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		log.Info("shutting down")
		if err := server.Shutdown(ctx); err != nil {
			log.Error("server shutdown", zap.Error(err))
		}
	}()

	log.Info("server starting", zap.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}
	log.Info("server stopped")
}

func openRepository(cfg *config.Config) (repository.Repository, error) {
	if cfg.Database.Driver == "postgres" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return postgres.New(ctx, cfg.Database.DSN)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0755); err != nil {
		return nil, err
	}
	return sqlite.New(cfg.Database.DSN)
}
