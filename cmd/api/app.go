package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"pipewright/internal/artifact"
	"pipewright/internal/cache"
	"pipewright/internal/config"
	"pipewright/internal/genspec"
	"pipewright/internal/llm"
	"pipewright/internal/profiler"
	"pipewright/internal/project"
	"pipewright/internal/server"
)

const (
	profileCacheEntries = 128
	profileCacheBytes   = 64 << 20
	profileCacheTTL     = 10 * time.Minute
)

type App struct {
	server *server.Server
	llm    llm.Client
	store  *project.Store
}

func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	gemini, err := llm.NewGeminiClient(context.Background(), cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return nil, err
	}
	client := llm.Wrap(gemini,
		llm.WithLogging(log.Default()),
		llm.WithTimeout(cfg.LLM.Timeout),
	)

	projects := project.NewFromEnv(cfg.Project.Path)

	var artifacts artifact.Store = artifact.NewMemoryStore()
	if cfg.Artifact.Enabled {
		s3, err := artifact.NewS3Store(artifact.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err != nil {
			log.Printf("artifact store unavailable, using memory: %v", err)
		} else {
			artifacts = s3
		}
	}

	svc := &Service{
		gen:       genspec.New(client, log.Default()),
		projects:  projects,
		artifacts: artifacts,
		profiles:  cache.NewLRUTTL[string, *profiler.FileProfile](profileCacheEntries, profileCacheBytes, profileCacheTTL),
	}

	return &App{
		server: server.New(cfg.Port, server.CORS(buildMux(svc))),
		llm:    client,
		store:  projects,
	}, nil
}

func buildMux(svc *Service) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/profile", svc.handleProfile)
	mux.HandleFunc("POST /api/generate/spec", svc.handleGenerateSpec)
	mux.HandleFunc("GET /api/projects", svc.handleListProjects)
	mux.HandleFunc("POST /api/projects", svc.handleCreateProject)
	mux.HandleFunc("GET /api/projects/{id}", svc.handleGetProject)
	mux.HandleFunc("PUT /api/projects/{id}", svc.handleUpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", svc.handleDeleteProject)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	_ = a.llm.Close()
	_ = a.store.Close()
	return err
}
