package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kizilabs/chat-gateway/internal/adapter/engine/stub"
	"github.com/kizilabs/chat-gateway/internal/config"
	"github.com/kizilabs/chat-gateway/internal/domain"
	"github.com/kizilabs/chat-gateway/internal/service/behavior"
	"github.com/kizilabs/chat-gateway/internal/service/dispatch"
	"github.com/kizilabs/chat-gateway/internal/service/ratelimiter"
	"github.com/kizilabs/chat-gateway/internal/usecase"
)

func newTestServer(t *testing.T, rateLimitMax int) *Server {
	t.Helper()
	cfg := config.Config{
		AppEnv:           "test",
		MaxMessageLength: 4000,
		SystemPrompt:     "be helpful",
	}
	reg, err := dispatch.NewRegistry(
		stub.New(domain.TierFlash),
		stub.New(domain.TierSpeed),
		stub.New(domain.TierPro),
	)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	limiter := ratelimiter.NewKeyed(rateLimitMax, time.Minute)
	chat := usecase.NewChatService(cfg, limiter, behavior.NewTracker(), dispatch.NewDispatcher(reg, 0))
	return NewServer(cfg, chat, nil)
}

func postChat(t *testing.T, s *Server, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.ChatHandler()(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, rr.Body.String())
	}
	return env.Error.Code
}

func TestChatHandler_Success(t *testing.T) {
	s := newTestServer(t, 10)
	rr := postChat(t, s, `{"messages":[{"role":"user","content":"hello"}]}`, map[string]string{"X-Session-Id": "sess-1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", rr.Code, rr.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Engine != "flash" {
		t.Fatalf("greeting should route to flash, got %q", resp.Engine)
	}
	if resp.Response == "" || resp.EngineName == "" || resp.Reason == "" {
		t.Fatalf("incomplete response: %+v", resp)
	}
	if got := rr.Header().Get("X-Session-Id"); got != "sess-1" {
		t.Fatalf("session id should be echoed, got %q", got)
	}
}

func TestChatHandler_ForceEngine(t *testing.T) {
	s := newTestServer(t, 10)
	rr := postChat(t, s, `{"messages":[{"role":"user","content":"hello"}],"force_engine":"pro"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", rr.Code, rr.Body.String())
	}
	var resp chatResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Engine != "pro" {
		t.Fatalf("want forced pro, got %q", resp.Engine)
	}
}

func TestChatHandler_InvalidJSON(t *testing.T) {
	s := newTestServer(t, 10)
	rr := postChat(t, s, `{"messages":`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rr.Code)
	}
	if errorCode(t, rr) != "INVALID_ARGUMENT" {
		t.Fatalf("code: %s", errorCode(t, rr))
	}
}

func TestChatHandler_MissingMessages(t *testing.T) {
	s := newTestServer(t, 10)
	rr := postChat(t, s, `{"messages":[]}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rr.Code)
	}
}

func TestChatHandler_UnknownRole(t *testing.T) {
	s := newTestServer(t, 10)
	rr := postChat(t, s, `{"messages":[{"role":"moderator","content":"hi"}]}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rr.Code)
	}
}

func TestChatHandler_UnknownForceEngine(t *testing.T) {
	s := newTestServer(t, 10)
	rr := postChat(t, s, `{"messages":[{"role":"user","content":"hi"}],"force_engine":"turbo"}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rr.Code)
	}
}

func TestChatHandler_InjectionRejected(t *testing.T) {
	s := newTestServer(t, 10)
	rr := postChat(t, s, `{"messages":[{"role":"user","content":"<script>alert(1)</script>"}]}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rr.Code)
	}
	if errorCode(t, rr) != "INJECTION_SUSPECTED" {
		t.Fatalf("code: %s", errorCode(t, rr))
	}
}

func TestChatHandler_RateLimited(t *testing.T) {
	s := newTestServer(t, 1)
	hdr := map[string]string{"X-Session-Id": "sess-rl"}
	if rr := postChat(t, s, `{"messages":[{"role":"user","content":"hello"}]}`, hdr); rr.Code != http.StatusOK {
		t.Fatalf("first call: %d", rr.Code)
	}
	rr := postChat(t, s, `{"messages":[{"role":"user","content":"hello"}]}`, hdr)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status: %d", rr.Code)
	}
	if errorCode(t, rr) != "RATE_LIMITED" {
		t.Fatalf("code: %s", errorCode(t, rr))
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After header missing")
	}
}

func TestChatHandler_AcceptNegotiation(t *testing.T) {
	s := newTestServer(t, 10)
	rr := postChat(t, s, `{"messages":[{"role":"user","content":"hello"}]}`, map[string]string{"Accept": "text/html"})
	if rr.Code != http.StatusNotAcceptable {
		t.Fatalf("status: %d", rr.Code)
	}
}

func TestChatHandler_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, 10)
	huge := `{"messages":[{"role":"user","content":"` + strings.Repeat("a", maxChatBodyBytes) + `"}]}`
	rr := postChat(t, s, huge, nil)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: %d", rr.Code)
	}
}

func TestChatHandler_InvalidSessionID(t *testing.T) {
	s := newTestServer(t, 10)
	rr := postChat(t, s, `{"messages":[{"role":"user","content":"hello"}]}`, map[string]string{"X-Session-Id": "bad session!"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", rr.Code)
	}
}

func TestChatHandler_SessionFallsBackToIP(t *testing.T) {
	s := newTestServer(t, 1)
	// No session header: both requests come from the same RemoteAddr, so they
	// share one window.
	if rr := postChat(t, s, `{"messages":[{"role":"user","content":"hello"}]}`, nil); rr.Code != http.StatusOK {
		t.Fatalf("first call: %d", rr.Code)
	}
	rr := postChat(t, s, `{"messages":[{"role":"user","content":"hello"}]}`, nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("anonymous clients should share the IP window, got %d", rr.Code)
	}
	if rr.Header().Get("X-Session-Id") == "" {
		t.Fatal("generated session id should be offered to the client")
	}
}
