package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tiktoken-go/tokenizer"

	"github.com/alexwday/cc-launcher/internal/translator"
	"github.com/alexwday/cc-launcher/internal/usage"
)

const (
	nonStreamingTimeout = 120 * time.Second
	streamingTimeout    = 600 * time.Second
)

func sendAnthropicError(c *gin.Context, status int, errType, message string) {
	c.JSON(status, translator.AnthropicError{
		Type: "error",
		Error: translator.AnthropicErrorInner{
			Type:    errType,
			Message: message,
		},
	})
}

// handleMessages implements POST /v1/messages: the full translate,
// dispatch, and translate-back cycle for both streaming and non-streaming
// requests, including placeholder mode.
func (s *Server) handleMessages(c *gin.Context) {
	start := time.Now()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		sendAnthropicError(c, http.StatusBadRequest, "invalid_request_error", "failed to read request body")
		return
	}

	var req translator.AnthropicRequest
	if err := json.Unmarshal(body, &req); err != nil {
		sendAnthropicError(c, http.StatusBadRequest, "invalid_request_error", "invalid JSON: "+err.Error())
		return
	}

	originalModel := req.Model
	if originalModel == "" {
		originalModel = "claude-sonnet-4-20250514"
	}
	isStreaming := req.Stream != nil && *req.Stream

	if s.cfg.UsePlaceholder {
		s.handlePlaceholder(c, originalModel, isStreaming, start)
		return
	}

	openaiReq := translator.TranslateRequest(&req, s.mapper, s.cfg.DefaultMaxTokens)
	payload, err := json.Marshal(openaiReq)
	if err != nil {
		sendAnthropicError(c, http.StatusInternalServerError, "api_error", "failed to build upstream request")
		return
	}

	targetURL := strings.TrimRight(s.cfg.TargetEndpoint, "/") + "/chat/completions"

	if isStreaming {
		s.handleStreaming(c, targetURL, payload, originalModel, start)
		return
	}
	s.handleNonStreaming(c, targetURL, payload, originalModel, start)
}

func (s *Server) handlePlaceholder(c *gin.Context, model string, isStreaming bool, start time.Time) {
	content := "This is a placeholder response from cc-launcher."
	if isStreaming {
		setupSSEHeaders(c)
		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			sendAnthropicError(c, http.StatusInternalServerError, "api_error", "streaming unsupported")
			return
		}
		for _, event := range translator.PlaceholderStream(model, content) {
			_, _ = c.Writer.Write([]byte(event))
			flusher.Flush()
			time.Sleep(5 * time.Millisecond)
		}
		s.logCall(c, model, http.StatusOK, start, 100, 20)
		return
	}

	resp := translator.BuildPlaceholderResponse(model, content)
	c.JSON(http.StatusOK, resp)
	s.logCall(c, model, http.StatusOK, start, resp.Usage.InputTokens, resp.Usage.OutputTokens)
}

var noAuthWarnOnce sync.Once

// addAuthorization sets the outbound Authorization header, in priority
// order: dev mode, OAuth bearer, static API key. If none is configured it
// logs once and forwards unauthenticated.
func (s *Server) addAuthorization(ctx context.Context, req *http.Request) {
	if s.cfg.DevMode {
		req.Header.Set("Authorization", "Bearer dev-mock-token")
		return
	}
	if s.tokenCache != nil {
		token, err := s.tokenCache.GetToken(ctx)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+token)
			return
		}
		logrus.Warnf("OAuth token fetch failed, falling back: %v", err)
	}
	if s.cfg.TargetAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.TargetAPIKey)
		return
	}
	noAuthWarnOnce.Do(func() {
		logrus.Warn("no authorization configured for target endpoint; forwarding requests unauthenticated")
	})
}

func (s *Server) handleNonStreaming(c *gin.Context, targetURL string, payload []byte, originalModel string, start time.Time) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), nonStreamingTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(payload))
	if err != nil {
		sendAnthropicError(c, http.StatusInternalServerError, "api_error", "failed to build upstream request")
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	s.addAuthorization(ctx, httpReq)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		status, errType := classifyTransportError(err)
		sendAnthropicError(c, status, errType, err.Error())
		s.logCall(c, originalModel, status, start, 0, 0)
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		sendAnthropicError(c, http.StatusBadGateway, "api_error", "failed to read upstream response")
		s.logCall(c, originalModel, http.StatusBadGateway, start, 0, 0)
		return
	}

	if resp.StatusCode >= 400 {
		anthErr := translator.TranslateError(respBody)
		c.JSON(resp.StatusCode, anthErr)
		s.logCall(c, originalModel, resp.StatusCode, start, 0, 0)
		return
	}

	translated, err := translator.TranslateResponse(respBody, originalModel)
	if err != nil {
		sendAnthropicError(c, http.StatusBadGateway, "api_error", "invalid JSON from target")
		s.logCall(c, originalModel, http.StatusBadGateway, start, 0, 0)
		return
	}

	c.JSON(http.StatusOK, translated)
	s.logCall(c, originalModel, http.StatusOK, start, translated.Usage.InputTokens, translated.Usage.OutputTokens)
}

func (s *Server) handleStreaming(c *gin.Context, targetURL string, payload []byte, originalModel string, start time.Time) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), streamingTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(payload))
	if err != nil {
		sendAnthropicError(c, http.StatusInternalServerError, "api_error", "failed to build upstream request")
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	s.addAuthorization(ctx, httpReq)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		status, errType := classifyTransportError(err)
		sendAnthropicError(c, status, errType, err.Error())
		s.logCall(c, originalModel, status, start, 0, 0)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		anthErr := translator.TranslateError(body)
		c.JSON(resp.StatusCode, anthErr)
		s.logCall(c, originalModel, resp.StatusCode, start, 0, 0)
		return
	}

	setupSSEHeaders(c)
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		sendAnthropicError(c, http.StatusInternalServerError, "api_error", "streaming unsupported")
		return
	}

	state := translator.NewStreamTranslator(originalModel)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	disconnected := false
scan:
	for scanner.Scan() {
		events := state.TranslateChunk(scanner.Bytes())
		for _, event := range events {
			if _, err := c.Writer.Write([]byte(event)); err != nil {
				disconnected = true
				break scan
			}
			flusher.Flush()
		}
	}

	status := http.StatusOK
	if disconnected {
		logrus.Warn("client disconnected during stream")
	} else if err := scanner.Err(); err != nil {
		logrus.Errorf("stream read error: %v", err)
		errEvent := fmt.Sprintf("event: error\ndata: %s\n\n", mustMarshal(translator.AnthropicError{
			Type:  "error",
			Error: translator.AnthropicErrorInner{Type: "api_error", Message: err.Error()},
		}))
		_, _ = c.Writer.Write([]byte(errEvent))
		flusher.Flush()
		status = http.StatusInternalServerError
	} else if final := state.FinalizeIfOpen(); len(final) > 0 {
		logrus.Warn("upstream closed stream without [DONE]; synthesizing stream end")
		for _, event := range final {
			_, _ = c.Writer.Write([]byte(event))
		}
		flusher.Flush()
	}

	s.logCall(c, originalModel, status, start, state.InputTokens, state.OutputTokens)
}

func mustMarshal(v interface{}) []byte {
	b, _ := json.Marshal(v)
	return b
}

func setupSSEHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
}

func classifyTransportError(err error) (int, string) {
	msg := err.Error()
	if strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "Timeout") || strings.Contains(msg, "timeout") {
		return http.StatusGatewayTimeout, "overloaded_error"
	}
	return http.StatusBadGateway, "api_error"
}

func (s *Server) logCall(c *gin.Context, model string, status int, start time.Time, inputTokens, outputTokens int64) {
	cost := s.cfg.CalculateCost(model, inputTokens, outputTokens)
	s.tracker.Log(usage.Record{
		Timestamp:    start,
		Method:       c.Request.Method,
		Path:         c.Request.URL.Path,
		Status:       status,
		DurationMS:   time.Since(start).Milliseconds(),
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      cost,
	})
}

// handleCountTokens implements POST /v1/messages/count_tokens: a
// best-effort estimate that never calls the target endpoint.
func (s *Server) handleCountTokens(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		sendAnthropicError(c, http.StatusBadRequest, "invalid_request_error", "failed to read request body")
		return
	}

	var req translator.AnthropicRequest
	if err := json.Unmarshal(body, &req); err != nil {
		sendAnthropicError(c, http.StatusBadRequest, "invalid_request_error", "invalid JSON: "+err.Error())
		return
	}

	enc, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		sendAnthropicError(c, http.StatusInternalServerError, "api_error", "tokenizer unavailable")
		return
	}

	var text strings.Builder
	if req.System.IsText {
		text.WriteString(req.System.Text)
		text.WriteString(" ")
	}
	for _, msg := range req.Messages {
		if msg.Content.IsText {
			text.WriteString(msg.Content.Text)
			text.WriteString(" ")
			continue
		}
		for _, block := range msg.Content.Blocks {
			if block.Type == "text" {
				text.WriteString(block.Text)
				text.WriteString(" ")
			}
		}
	}

	ids, _, err := enc.Encode(text.String())
	if err != nil {
		sendAnthropicError(c, http.StatusInternalServerError, "api_error", "failed to estimate token count")
		return
	}

	c.JSON(http.StatusOK, gin.H{"input_tokens": len(ids)})
}
