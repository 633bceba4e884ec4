// Package server exposes the pipeline over HTTP: query submission plus a
// per-request progress stream.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"github.com/querypilot/query-core/internal/message"
	"github.com/querypilot/query-core/internal/pipeline"
	"github.com/querypilot/query-core/internal/progress"
)

// WorkflowStarter is the slice of the Temporal client the server needs;
// tests substitute a fake.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

type Server struct {
	Temporal  WorkflowStarter
	Hub       *progress.Hub
	Log       *zap.SugaredLogger
	TaskQueue string
}

// Routes mounts the API on the engine.
func (s *Server) Routes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	v1 := r.Group("/v1")
	v1.POST("/query", s.handleQuery)
	v1.GET("/query/:id/events", s.handleEvents)
}

type queryResponse struct {
	RequestID string                 `json:"request_id"`
	Output    *message.QueryOutput   `json:"output,omitempty"`
	Failure   *message.FailureOutput `json:"failure,omitempty"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req pipeline.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	requestID := "query-" + uuid.NewString()
	run, err := s.Temporal.ExecuteWorkflow(c.Request.Context(), client.StartWorkflowOptions{
		ID:        requestID,
		TaskQueue: s.TaskQueue,
	}, pipeline.TranslateQuestionWorkflow, req)
	if err != nil {
		s.Log.Errorw("start workflow", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to start pipeline"})
		return
	}

	var res message.Result
	if err := run.Get(c.Request.Context(), &res); err != nil {
		s.Log.Errorw("pipeline failed", "request_id", requestID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"request_id": requestID,
			"error":      "pipeline execution failed",
		})
		return
	}

	c.JSON(http.StatusOK, queryResponse{
		RequestID: requestID,
		Output:    res.Output,
		Failure:   res.Failure,
	})
}

// handleEvents streams progress events for a request as server-sent events
// until the client disconnects.
func (s *Server) handleEvents(c *gin.Context) {
	requestID := c.Param("id")
	if requestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request id is required"})
		return
	}

	events, cancel := s.Hub.Subscribe(requestID)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": ping\n\n")
			flusher.Flush()
		case e, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				s.Log.Warnw("marshal progress event", "error", err)
				continue
			}
			fmt.Fprintf(c.Writer, "event: progress\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
