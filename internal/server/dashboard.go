package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleDashboardHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"placeholder_mode": s.cfg.UsePlaceholder,
		"target_endpoint": s.cfg.TargetEndpoint,
		"oauth_configured": s.cfg.IsOAuthConfigured(),
		"api_key_configured": s.cfg.IsAPIKeyConfigured(),
	})
}

func (s *Server) handleDashboardStats(c *gin.Context) {
	stats := s.tracker.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"total_requests":       stats.TotalRequests,
		"successful_requests":  stats.SuccessfulRequests,
		"failed_requests":      stats.FailedRequests,
		"success_rate":         stats.SuccessRate(),
		"avg_latency_ms":       stats.AvgLatencyMS(),
		"total_input_tokens":   stats.TotalInputTokens,
		"total_output_tokens":  stats.TotalOutputTokens,
		"total_cost_usd":       stats.TotalCostUSD,
		"session_start":        stats.SessionStart,
		"session_duration_sec": time.Since(stats.SessionStart).Seconds(),
	})
}

func (s *Server) handleDashboardCalls(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"calls": s.tracker.Calls()})
}

// probeRequest is the candidate upstream a dashboard user wants to test
// before committing it to TARGET_ENDPOINT/TARGET_API_KEY.
type probeRequest struct {
	APIBase string `json:"api_base" binding:"required"`
	APIKey  string `json:"api_key" binding:"required"`
	Model   string `json:"model"`
}

// handleDashboardProbe issues a single minimal chat-completion request
// against a candidate endpoint and reports whether it succeeded.
func (s *Server) handleDashboardProbe(c *gin.Context) {
	var req probeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request: " + err.Error()})
		return
	}

	model := req.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"model": model,
		"messages": []map[string]interface{}{
			{"role": "user", "content": "hi"},
		},
		"max_tokens": 16,
	})

	ctx, cancel := context.WithTimeout(c.Request.Context(), 20*time.Second)
	defer cancel()

	url := strings.TrimRight(req.APIBase, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	start := time.Now()
	resp, err := s.httpClient.Do(httpReq)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error(), "response_time_ms": elapsed})
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"error":   string(body),
			"status":  resp.StatusCode,
			"response_time_ms": elapsed,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"status":            resp.StatusCode,
		"response_time_ms":  elapsed,
	})
}
