package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/stockroom-core/internal/apiclient"
	"github.com/nerrad567/stockroom-core/internal/infrastructure/config"
	"github.com/nerrad567/stockroom-core/internal/infrastructure/logging"
	"github.com/nerrad567/stockroom-core/internal/inventory"
	"github.com/nerrad567/stockroom-core/internal/prefs"
	"github.com/nerrad567/stockroom-core/internal/workspace"
)

// fakeBackend is the smallest inventory API a view session can sign in to.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()

	var (
		mu     sync.Mutex
		tokens = map[string]string{}
		issued int
	)
	reply := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test server
	}
	user := func(r *http.Request) (string, bool) {
		mu.Lock()
		defer mu.Unlock()
		name, ok := tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		return name, ok
	}

	r := chi.NewRouter()
	r.Post("/token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("username") != "alice" || r.FormValue("password") != "secret" {
			reply(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
			return
		}
		mu.Lock()
		issued++
		token := fmt.Sprintf("tok-alice-%d", issued)
		tokens[token] = "alice"
		mu.Unlock()
		reply(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
	})
	r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
		name, ok := user(r)
		if !ok {
			reply(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		reply(w, http.StatusOK, map[string]string{"username": name, "role": "owner"})
	})
	r.Get("/items", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := user(r); !ok {
			reply(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		reply(w, http.StatusOK, map[string]any{"items": []inventory.Item{
			{ID: 1, Category: "Laptop", Make: "Dell", Model: "Latitude", Quantity: 1, Status: inventory.StatusInStock},
			{ID: 2, Category: "Laptop", Make: "HP", Model: "EliteBook", Quantity: 1, Status: inventory.StatusDeployed},
		}})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// testServer creates a Server backed by a fake inventory API and in-memory preferences.
func testServer(t *testing.T) *Server {
	t.Helper()

	backend := fakeBackend(t)
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			Path:           "/api/v1/ws",
			MaxMessageSize: 65536,
			PingInterval:   30,
			PongTimeout:    10,
		},
		UI:      workspace.Config{SearchDebounce: 20 * time.Millisecond, BannerTimeout: time.Second},
		Logger:  log,
		Backend: apiclient.New(backend.URL, apiclient.WithTimeout(5*time.Second)),
		Prefs:   prefs.NewMemoryRepository(),
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

// ─── Construction ──────────────────────────────────────────────────

func TestNew_RequiresDeps(t *testing.T) {
	log := logging.Discard()
	client := apiclient.New("http://127.0.0.1:1")
	repo := prefs.NewMemoryRepository()

	tests := []struct {
		name string
		deps Deps
	}{
		{"no logger", Deps{Backend: client, Prefs: repo}},
		{"no backend", Deps{Logger: log, Prefs: repo}},
		{"no prefs", Deps{Logger: log, Backend: client}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

// ─── HTTP Endpoint Tests ───────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv := testServer(t)
	router := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	if resp["sessions"] != float64(0) {
		t.Errorf("sessions = %v, want 0", resp["sessions"])
	}
}

func TestRequestID_Generated(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if id := w.Header().Get("X-Request-ID"); len(id) != 36 {
		t.Errorf("X-Request-ID = %q, want a UUID", id)
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if id := w.Header().Get("X-Request-ID"); id != "client-123" {
		t.Errorf("X-Request-ID = %q, want client-123", id)
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestAPINotFound(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	var resp Error
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Code != ErrCodeNotFound {
		t.Errorf("code = %q, want %q", resp.Code, ErrCodeNotFound)
	}
}

func TestRecovery_PanicReturnsInternalError(t *testing.T) {
	srv := testServer(t)
	h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	var resp Error
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Code != ErrCodeInternal || resp.Status != http.StatusInternalServerError {
		t.Errorf("error = %+v, want %s with status 500", resp, ErrCodeInternal)
	}
}

func TestShellServed(t *testing.T) {
	srv := testServer(t)

	for _, path := range []string{"/", "/inventory/item/3"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q, want text/html", ct)
			}
		})
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func TestServer_StartAndClose(t *testing.T) {
	srv := testServer(t)

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start = nil, want error")
	}
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() after Start error: %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() after Close = nil, want error")
	}
}

func TestServer_HealthCheckCancelled(t *testing.T) {
	srv := testServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := srv.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() with cancelled context = nil, want error")
	}
}

// ─── WebSocket Tests ───────────────────────────────────────────────

// inbound is a message as the shell receives it.
type inbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

type renderPayload struct {
	Session struct {
		SignedIn bool   `json:"signedIn"`
		Username string `json:"username"`
	} `json:"session"`
	Fragment string         `json:"fragment"`
	List     inventory.Page `json:"list"`
}

// dial connects a shell to srv and waits for its first render.
func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	expect(t, conn, WSTypeRender, func(m inbound) bool { return true })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	msg := map[string]any{"type": msgType, "payload": payload}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// expect reads until a message of msgType satisfies match.
func expect(t *testing.T, conn *websocket.Conn, msgType string, match func(inbound) bool) inbound {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	//nolint:errcheck // test deadline
	conn.SetReadDeadline(deadline)
	for {
		var m inbound
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("waiting for %s: %v", msgType, err)
		}
		if m.Type == msgType && match(m) {
			return m
		}
	}
}

func decodePayload[T any](t *testing.T, m inbound) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(m.Payload, &v); err != nil {
		t.Fatalf("decoding %s payload: %v", m.Type, err)
	}
	return v
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within 5s")
}

func TestWebSocket_FirstRenderSignedOut(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	resp.Body.Close()
	defer conn.Close()

	m := expect(t, conn, WSTypeRender, func(inbound) bool { return true })
	if snap := decodePayload[renderPayload](t, m); snap.Session.SignedIn {
		t.Error("first render is signed in, want signed out")
	}
	if got := srv.Sessions(); got != 1 {
		t.Errorf("Sessions() = %d, want 1", got)
	}
}

func TestWebSocket_LoginNormalizesFragment(t *testing.T) {
	srv := testServer(t)
	conn := dial(t, srv)

	send(t, conn, WSTypeHashChange, WSHash{Hash: "#/banana"})
	send(t, conn, WSTypeLogin, WSCredentials{Username: "alice", Password: "secret"})

	m := expect(t, conn, WSTypeSession, func(inbound) bool { return true })
	if tok := decodePayload[WSToken](t, m); tok.Token != "tok-alice-1" {
		t.Errorf("session token = %q, want tok-alice-1", tok.Token)
	}

	m = expect(t, conn, WSTypeReplaceHash, func(inbound) bool { return true })
	if h := decodePayload[WSHash](t, m); h.Hash != "#/inventory" {
		t.Errorf("replace_hash = %q, want #/inventory", h.Hash)
	}

	m = expect(t, conn, WSTypeRender, func(m inbound) bool {
		var snap renderPayload
		return json.Unmarshal(m.Payload, &snap) == nil && snap.List.Total == 2
	})
	snap := decodePayload[renderPayload](t, m)
	if !snap.Session.SignedIn || snap.Session.Username != "alice" {
		t.Errorf("session = %+v, want alice signed in", snap.Session)
	}
	if snap.Fragment != "#/inventory" {
		t.Errorf("fragment = %q, want #/inventory", snap.Fragment)
	}
}

func TestWebSocket_LogoutClearsToken(t *testing.T) {
	srv := testServer(t)
	conn := dial(t, srv)

	send(t, conn, WSTypeLogin, WSCredentials{Username: "alice", Password: "secret"})
	expect(t, conn, WSTypeSession, func(m inbound) bool {
		return decodePayload[WSToken](t, m).Token != ""
	})

	send(t, conn, WSTypeLogout, nil)
	expect(t, conn, WSTypeSession, func(m inbound) bool {
		return decodePayload[WSToken](t, m).Token == ""
	})
}

func TestWebSocket_ResumeRejectedClearsToken(t *testing.T) {
	srv := testServer(t)
	conn := dial(t, srv)

	send(t, conn, WSTypeResume, WSToken{Token: "stale"})
	m := expect(t, conn, WSTypeSession, func(inbound) bool { return true })
	if tok := decodePayload[WSToken](t, m); tok.Token != "" {
		t.Errorf("session token = %q, want empty", tok.Token)
	}
}

func TestWebSocket_ResumeSignsIn(t *testing.T) {
	srv := testServer(t)
	first := dial(t, srv)

	send(t, first, WSTypeLogin, WSCredentials{Username: "alice", Password: "secret"})
	m := expect(t, first, WSTypeSession, func(inbound) bool { return true })
	token := decodePayload[WSToken](t, m).Token

	// A reloaded page resumes with the kept token on a new connection.
	second := dial(t, srv)
	send(t, second, WSTypeResume, WSToken{Token: token})
	expect(t, second, WSTypeRender, func(m inbound) bool {
		return decodePayload[renderPayload](t, m).Session.Username == "alice"
	})
}

func TestWebSocket_Ping(t *testing.T) {
	srv := testServer(t)
	conn := dial(t, srv)

	if err := conn.WriteJSON(map[string]string{"type": WSTypePing, "id": "p1"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	m := expect(t, conn, WSTypePong, func(inbound) bool { return true })
	if m.ID != "p1" {
		t.Errorf("pong id = %q, want p1", m.ID)
	}
}

func TestWebSocket_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"invalid JSON", `{not json`, "invalid JSON message"},
		{"unknown type", `{"type":"subscribe"}`, "unknown message type: subscribe"},
		{"bad payload", `{"type":"hashchange","payload":"oops"}`, "invalid hashchange payload"},
		{"intent signed out", `{"type":"intent","payload":{"name":"search","value":"dell"}}`, "not signed in"},
	}

	srv := testServer(t)
	conn := dial(t, srv)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.raw)); err != nil {
				t.Fatalf("write: %v", err)
			}
			m := expect(t, conn, WSTypeError, func(inbound) bool { return true })
			got := decodePayload[map[string]string](t, m)["message"]
			if got != tt.want {
				t.Errorf("error message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWebSocket_DisconnectEndsSession(t *testing.T) {
	srv := testServer(t)
	conn := dial(t, srv)

	if got := srv.Sessions(); got != 1 {
		t.Fatalf("Sessions() = %d, want 1", got)
	}
	conn.Close()
	eventually(t, func() bool { return srv.Sessions() == 0 })
}

func TestWebSocket_CloseDropsSessions(t *testing.T) {
	srv := testServer(t)
	conn := dial(t, srv)

	if err := srv.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if got := srv.Sessions(); got != 0 {
		t.Errorf("Sessions() after Close = %d, want 0", got)
	}

	//nolint:errcheck // test deadline
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
