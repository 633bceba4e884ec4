// The query-server binary runs the HTTP API with an embedded worker, so a
// single process serves requests and streams progress events.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/querypilot/query-core/internal/activities"
	"github.com/querypilot/query-core/internal/catalog"
	"github.com/querypilot/query-core/internal/config"
	"github.com/querypilot/query-core/internal/llm"
	"github.com/querypilot/query-core/internal/logging"
	"github.com/querypilot/query-core/internal/pipeline"
	"github.com/querypilot/query-core/internal/progress"
	"github.com/querypilot/query-core/internal/schemastore"
	"github.com/querypilot/query-core/internal/server"
	"github.com/querypilot/query-core/internal/sqlrunner"
)

func main() {
	cfg, err := config.Load(os.Getenv("QUERY_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	var store schemastore.Store
	if cfg.Minio.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		store, err = schemastore.NewMinio(ctx, schemastore.MinioConfig{
			EndpointURL:     cfg.Minio.EndpointURL,
			AccessKeyID:     cfg.Minio.AccessKeyID,
			SecretAccessKey: cfg.Minio.SecretAccessKey,
			Bucket:          cfg.Minio.Bucket,
			UseSSL:          cfg.Minio.UseSSL,
		})
		cancel()
		if err != nil {
			sugar.Fatalw("connect schema store", "error", err)
		}
	} else {
		store = schemastore.NewMemory()
	}

	hub := progress.NewHub()
	acts := &activities.Activities{
		Store:  store,
		LLM:    llm.New(cfg.LLM.Provider, cfg.LLM.Model),
		Loader: &catalog.Loader{Root: cfg.DataDir},
		Runner: &sqlrunner.Runner{
			MaxRows: cfg.SQL.MaxRows,
			Timeout: time.Duration(cfg.SQL.TimeoutSeconds) * time.Second,
		},
		Reporter:   progress.Multi{&progress.LogReporter{Log: sugar}, hub},
		MaxRetries: cfg.MaxRetries,
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logging.NewTemporalAdapter(logger),
	})
	if err != nil {
		sugar.Fatalw("dial temporal", "error", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(pipeline.TranslateQuestionWorkflow)
	w.RegisterActivity(acts)
	if err := w.Start(); err != nil {
		sugar.Fatalw("start worker", "error", err)
	}
	defer w.Stop()

	if !cfg.LogDev {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	api := &server.Server{
		Temporal:  c,
		Hub:       hub,
		Log:       sugar,
		TaskQueue: cfg.Temporal.TaskQueue,
	}
	api.Routes(r)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		sugar.Infow("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("http server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	sugar.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		sugar.Warnw("http shutdown", "error", err)
	}
}
