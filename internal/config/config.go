// Package config loads service configuration from an optional YAML file with
// environment overrides on top.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Temporal struct {
	HostPort  string `yaml:"host_port"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`
}

type SQL struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
	MaxRows        int `yaml:"max_rows"`
}

type LLM struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type Minio struct {
	Enabled         bool   `yaml:"enabled"`
	EndpointURL     string `yaml:"endpoint_url"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	UseSSL          bool   `yaml:"use_ssl"`
}

type Config struct {
	Temporal   Temporal `yaml:"temporal"`
	SQL        SQL      `yaml:"sql"`
	LLM        LLM      `yaml:"llm"`
	Minio      Minio    `yaml:"minio"`
	DataDir    string   `yaml:"data_dir"`
	HTTPAddr   string   `yaml:"http_addr"`
	LogLevel   string   `yaml:"log_level"`
	LogDev     bool     `yaml:"log_dev"`
	MaxRetries int      `yaml:"max_retries"`
}

func defaults() Config {
	return Config{
		Temporal: Temporal{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "query-pipeline",
		},
		SQL:        SQL{TimeoutSeconds: 30, MaxRows: 1000},
		LLM:        LLM{Provider: "openai", Model: "gpt-4o-mini"},
		Minio:      Minio{Bucket: "query-schemas"},
		DataDir:    "./data",
		HTTPAddr:   ":8080",
		LogLevel:   "info",
		MaxRetries: 2,
	}
}

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist) and then applies env overrides.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Temporal.HostPort = getenv("TEMPORAL_HOST_PORT", c.Temporal.HostPort)
	c.Temporal.Namespace = getenv("TEMPORAL_NAMESPACE", c.Temporal.Namespace)
	c.Temporal.TaskQueue = getenv("TEMPORAL_TASK_QUEUE", c.Temporal.TaskQueue)
	c.DataDir = getenv("QUERY_DATA_DIR", c.DataDir)
	c.HTTPAddr = getenv("QUERY_HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = getenv("QUERY_LOG_LEVEL", c.LogLevel)
	c.LLM.Provider = getenv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getenv("LLM_MODEL", c.LLM.Model)
	c.MaxRetries = getenvInt("QUERY_MAX_RETRIES", c.MaxRetries)
	c.SQL.TimeoutSeconds = getenvInt("QUERY_SQL_TIMEOUT_SECONDS", c.SQL.TimeoutSeconds)
	c.SQL.MaxRows = getenvInt("QUERY_SQL_MAX_ROWS", c.SQL.MaxRows)
	c.Minio.EndpointURL = getenv("MINIO_ENDPOINT_URL", c.Minio.EndpointURL)
	c.Minio.AccessKeyID = getenv("MINIO_ACCESS_KEY_ID", c.Minio.AccessKeyID)
	c.Minio.SecretAccessKey = getenv("MINIO_SECRET_ACCESS_KEY", c.Minio.SecretAccessKey)
	c.Minio.Bucket = getenv("MINIO_BUCKET", c.Minio.Bucket)
	if v := os.Getenv("MINIO_ENABLED"); v != "" {
		c.Minio.Enabled = v == "1" || v == "true"
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
