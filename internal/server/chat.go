package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/haasonsaas/tome/internal/llm"
	"github.com/haasonsaas/tome/internal/observability"
	"github.com/haasonsaas/tome/internal/stream"
	"github.com/haasonsaas/tome/pkg/models"
)

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	ModelID   string `json:"modelId"`
}

type contextLine struct {
	Context []models.Snippet `json:"context"`
}

// handleChat runs one chat turn: persist the user message, retrieve
// context, stream the model reply to the client verbatim, and capture
// the full reply into the session in the background.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Message = strings.TrimSpace(req.Message)
	if req.SessionID == "" {
		s.jsonError(w, http.StatusBadRequest, "sessionId is required")
		return
	}
	if req.Message == "" {
		s.jsonError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx := context.WithValue(r.Context(), observability.SessionIDKey, req.SessionID)
	ctx, span := s.tracer.Start(ctx, "chat_turn")
	defer span.End()

	session, err := s.config.Sessions.Get(ctx, req.SessionID)
	if err != nil {
		s.logger.Error(ctx, "load session", "error", err)
		s.chatOutcome("error")
		s.jsonError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	model := req.ModelID
	if model == "" {
		model = session.ModelID
	}
	if model == "" {
		model = s.config.DefaultModel
	}
	if req.ModelID != "" && req.ModelID != session.ModelID {
		// Model choice sticks to the session; a failure here only costs
		// the stickiness, not the turn.
		if err := s.config.Sessions.SetModel(ctx, req.SessionID, req.ModelID); err != nil {
			s.logger.Warn(ctx, "persist model choice", "error", err)
		}
	}

	session, err = s.config.Sessions.AppendMessage(ctx, req.SessionID, models.Message{
		Role:    models.RoleUser,
		Content: req.Message,
	})
	if err != nil {
		s.logger.Error(ctx, "persist user message", "error", err)
		s.chatOutcome("error")
		s.jsonError(w, http.StatusInternalServerError, "failed to persist message")
		return
	}

	contextBlock, snippets := s.config.Retriever.BuildContext(ctx, req.Message)
	system := s.config.SystemPrompt
	if contextBlock != "" {
		system = system + "\n\n" + contextBlock
	}

	// The model call and reply capture outlive the client connection: a
	// disconnect mid-stream must not lose the assistant message.
	llmCtx := context.WithoutCancel(ctx)

	start := time.Now()
	rc, err := s.config.Generator.Stream(llmCtx, llm.Request{
		Model:    model,
		System:   system,
		Messages: session.Messages,
	})
	if err != nil {
		s.logger.Error(ctx, "start model stream", "error", err, "model", model)
		s.chatOutcome("error")
		s.jsonError(w, http.StatusInternalServerError, "model backend unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	if len(snippets) > 0 {
		line, err := json.Marshal(contextLine{Context: snippets})
		if err == nil {
			w.Write(append(line, '\n'))
			if flusher != nil {
				flusher.Flush()
			}
		}
	}

	clientCh, captureCh := stream.Fork(rc, 32)

	// Fire and forget: the response ends when the model stream ends, and
	// the client never waits on the capture write.
	go s.captureReply(llmCtx, req.SessionID, model, captureCh, start)

	// Always drain the client channel so the pump never stalls; after a
	// write failure the remaining chunks are discarded.
	clientGone := false
	for chunk := range clientCh {
		if clientGone {
			continue
		}
		if _, err := w.Write(chunk); err != nil {
			clientGone = true
			s.logger.Debug(ctx, "client disconnected mid-stream")
			continue
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// captureReply reassembles the assistant reply from the NDJSON stream
// copy and persists it once the stream ends.
func (s *Server) captureReply(ctx context.Context, sessionID, model string, ch <-chan []byte, start time.Time) {
	var (
		pending bytes.Buffer
		reply   strings.Builder
	)
	for chunk := range ch {
		pending.Write(chunk)
		for {
			raw := pending.Bytes()
			i := bytes.IndexByte(raw, '\n')
			if i < 0 {
				break
			}
			line := make([]byte, i)
			copy(line, raw[:i])
			pending.Next(i + 1)
			s.appendFragment(ctx, &reply, line)
		}
	}
	if pending.Len() > 0 {
		s.appendFragment(ctx, &reply, pending.Bytes())
	}

	if s.metrics != nil {
		s.metrics.StreamDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	}
	s.chatOutcome("success")

	text := strings.TrimSpace(reply.String())
	if text == "" {
		s.logger.Warn(ctx, "model stream produced no reply text")
		return
	}
	if _, err := s.config.Sessions.AppendMessage(ctx, sessionID, models.Message{
		Role:    models.RoleAssistant,
		Content: text,
	}); err != nil {
		s.logger.Error(ctx, "persist assistant message", "error", err)
	}
}

func (s *Server) appendFragment(ctx context.Context, reply *strings.Builder, line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	var fragment struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(line, &fragment); err != nil {
		s.logger.Debug(ctx, "skipping malformed stream line", "error", err)
		return
	}
	reply.WriteString(fragment.Response)
}

func (s *Server) chatOutcome(status string) {
	if s.metrics != nil {
		s.metrics.ChatTurns.WithLabelValues(status).Inc()
	}
}
