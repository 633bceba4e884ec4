package main

import (
	"context"
	"log"
	"os"
	"time"

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

	acts := &activities.Activities{
		Store:  store,
		LLM:    llm.New(cfg.LLM.Provider, cfg.LLM.Model),
		Loader: &catalog.Loader{Root: cfg.DataDir},
		Runner: &sqlrunner.Runner{
			MaxRows: cfg.SQL.MaxRows,
			Timeout: time.Duration(cfg.SQL.TimeoutSeconds) * time.Second,
		},
		Reporter:   &progress.LogReporter{Log: sugar},
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

	sugar.Infow("worker starting",
		"task_queue", cfg.Temporal.TaskQueue,
		"data_dir", cfg.DataDir,
		"llm_provider", cfg.LLM.Provider)

	if err := w.Run(worker.InterruptCh()); err != nil {
		sugar.Fatalw("worker stopped", "error", err)
	}
}
