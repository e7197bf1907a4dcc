package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/tome/internal/sessions"
	"github.com/haasonsaas/tome/pkg/models"
)

// brokenWriter fails every write after the first n bytes, simulating a
// client that dropped the connection mid-stream.
type brokenWriter struct {
	header  http.Header
	written int
	limit   int
	status  int
}

func newBrokenWriter(limit int) *brokenWriter {
	return &brokenWriter{header: make(http.Header), limit: limit}
}

func (w *brokenWriter) Header() http.Header { return w.header }

func (w *brokenWriter) WriteHeader(status int) { w.status = status }

func (w *brokenWriter) Write(b []byte) (int, error) {
	if w.written >= w.limit {
		return 0, errors.New("connection reset by peer")
	}
	w.written += len(b)
	return len(b), nil
}

// gatedStore blocks assistant-message writes until released, simulating
// a slow or hung session store behind the capture path.
type gatedStore struct {
	sessions.Store
	gate chan struct{}
}

func (g *gatedStore) AppendMessage(ctx context.Context, key string, msg models.Message) (*models.Session, error) {
	if msg.Role == models.RoleAssistant {
		<-g.gate
	}
	return g.Store.AppendMessage(ctx, key, msg)
}

func TestChat_ResponseDoesNotWaitForPersistence(t *testing.T) {
	env := newTestEnv(t)
	gated := &gatedStore{Store: env.sessions, gate: make(chan struct{})}
	env.server.config.Sessions = gated

	body := strings.NewReader(`{"sessionId":"slow","message":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		env.server.ServeHTTP(rec, req)
		close(done)
	}()

	// The response must complete while the assistant write is still
	// blocked; persistence is fire-and-forget.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("response blocked on the session store write")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != env.generator.lines {
		t.Errorf("body = %q, want the full stream before persistence", rec.Body.String())
	}

	// Once the store unblocks, the reply still lands in the session.
	close(gated.gate)
	assistant := waitForAssistant(t, env.sessions, "slow")
	if assistant.Content != "Hello" {
		t.Errorf("persisted reply = %q", assistant.Content)
	}
}

func TestChat_ClientDisconnectStillPersistsReply(t *testing.T) {
	env := newTestEnv(t)
	// Long enough to span several pump reads so writes fail mid-stream.
	env.generator.lines = strings.Repeat(`{"response":"x"}`+"\n", 500)

	body := strings.NewReader(`{"sessionId":"gone","message":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	req.Header.Set("Content-Type", "application/json")

	// Accept the headers and the first chunk, then fail every write.
	w := newBrokenWriter(1)
	env.server.ServeHTTP(w, req)

	// The full reply is captured even though the client saw almost none
	// of it.
	assistant := waitForAssistant(t, env.sessions, "gone")
	if assistant.Content != strings.Repeat("x", 500) {
		t.Errorf("persisted reply has %d chars, want 500", len(assistant.Content))
	}
}
