// Package tests provides end-to-end tests for the plugin protocol.
// These tests simulate the complete flow: Host → Plugin → Provider (mocked).
package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loomhq/openai-plugin/internal/domain"
	"github.com/loomhq/openai-plugin/internal/handler"
)

// Test credentials the mock provider reacts to.
const (
	KEY_SUCCESS   = "sk-e2e-success"
	KEY_RATELIMIT = "sk-e2e-ratelimit"
	KEY_INVALID   = "sk-e2e-invalid"
	KEY_SLOW      = "sk-e2e-slow"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// NewMockProviderServer simulates an OpenAI-compatible provider.
// Behavior is keyed on the bearer credential:
//   - KEY_SUCCESS   → 200 with a valid completion (total_tokens=1000)
//   - KEY_RATELIMIT → 429 {"error":{"message":"slow down"}}
//   - KEY_INVALID   → 401 invalid key
//   - KEY_SLOW      → sleeps 500ms before answering
//   - anything else → 401 (matches a real provider rejecting unknown keys)
func NewMockProviderServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ""
		if auth := r.Header.Get("Authorization"); len(auth) > len("Bearer ") {
			key = auth[len("Bearer "):]
		}

		// The model-listing probe succeeds for any known-good key.
		if r.URL.Path == "/models" && r.Method == http.MethodGet {
			if key == KEY_SUCCESS || key == KEY_RATELIMIT {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]interface{}{"object": "list"})
				return
			}
			if key == KEY_SLOW {
				time.Sleep(500 * time.Millisecond)
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch key {
		case KEY_SUCCESS:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":      "chatcmpl-e2e",
				"object":  "chat.completion",
				"created": 1700000000,
				"model":   "gpt-4",
				"choices": []map[string]interface{}{
					{
						"index":         0,
						"message":       map[string]interface{}{"role": "assistant", "content": "Hello from the mock provider."},
						"finish_reason": "stop",
					},
				},
				"usage": map[string]interface{}{
					"prompt_tokens":     400,
					"completion_tokens": 600,
					"total_tokens":      1000,
				},
			})

		case KEY_RATELIMIT:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{"message": "slow down"},
			})

		case KEY_SLOW:
			time.Sleep(500 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{}`))

		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{"message": "Incorrect API key provided"},
			})
		}
	}))
}

// newPlugin builds the full protocol router the way cmd/plugin does.
func newPlugin(providerURL string, opts ...handler.Option) (*gin.Engine, *domain.ConfigStore) {
	store := domain.NewConfigStore(domain.ProviderConfig{
		Endpoint: providerURL,
		Timeout:  2 * time.Second,
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]handler.Option{handler.WithLogger(logger)}, opts...)
	h := handler.NewPluginHandler(store, opts...)

	router := gin.New()
	router.Use(handler.RecoveryMiddleware(logger))
	router.Use(handler.CORSMiddleware())
	router.GET("/metadata", h.HandleMetadata)
	router.POST("/initialize", h.HandleInitialize)
	router.GET("/health", h.HandleHealth)
	router.POST("/chat/completions", h.HandleChatCompletion)
	router.GET("/models", h.HandleModels)
	router.POST("/cleanup", h.HandleCleanup)
	return router, store
}

func request(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
	return m
}

// TestFullPluginLifecycle walks the protocol the way the host drives it:
// metadata → health (uninitialized) → initialize → health → completion → cleanup.
func TestFullPluginLifecycle(t *testing.T) {
	provider := NewMockProviderServer(t)
	defer provider.Close()

	router, store := newPlugin(provider.URL)

	// 1. Host discovers the plugin.
	w := request(router, http.MethodGet, "/metadata", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metadata failed: %d", w.Code)
	}
	if decode(t, w)["provider_type"] != "openai" {
		t.Fatal("unexpected provider_type in metadata")
	}

	// 2. Health before initialization: unhealthy, no network call.
	w = request(router, http.MethodGet, "/health", "")
	report := decode(t, w)
	if report["healthy"] != false || report["latency_ms"] != float64(0) {
		t.Fatalf("pre-init health report wrong: %v", report)
	}

	// 3. Host initializes the plugin.
	w = request(router, http.MethodPost, "/initialize", `{"api_key":"`+KEY_SUCCESS+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("initialize failed: %d %s", w.Code, w.Body.String())
	}
	if !store.Initialized() {
		t.Fatal("store should be initialized")
	}

	// 4. Health after initialization: healthy, with measured latency.
	w = request(router, http.MethodGet, "/health", "")
	report = decode(t, w)
	if report["healthy"] != true {
		t.Fatalf("expected healthy after init: %v", report)
	}

	// 5. Completion flows through and comes back cost-augmented.
	w = request(router, http.MethodPost, "/chat/completions",
		`{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("completion failed: %d %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	usage := resp["usage"].(map[string]interface{})
	if cost := usage["cost_usd"].(float64); math.Abs(cost-0.03) > 1e-12 {
		t.Errorf("expected cost_usd=0.03, got %v", cost)
	}

	// 6. Cleanup.
	w = request(router, http.MethodPost, "/cleanup", "")
	if w.Code != http.StatusOK {
		t.Fatalf("cleanup failed: %d", w.Code)
	}
}

// TestRateLimitFlowsThroughTaxonomy verifies the provider's 429 surfaces as
// a transient rate_limit_exceeded with the upstream status preserved.
func TestRateLimitFlowsThroughTaxonomy(t *testing.T) {
	provider := NewMockProviderServer(t)
	defer provider.Close()

	router, _ := newPlugin(provider.URL)
	request(router, http.MethodPost, "/initialize", `{"api_key":"`+KEY_RATELIMIT+`"}`)

	w := request(router, http.MethodPost, "/chat/completions",
		`{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	body := decode(t, w)
	if body["code"] != "rate_limit_exceeded" || body["transient"] != true || body["message"] != "slow down" {
		t.Errorf("unexpected error body: %v", body)
	}
}

// TestReinitializationSwitchesCredential confirms re-initialize is a merge,
// not a reset, and later completions use the new key.
func TestReinitializationSwitchesCredential(t *testing.T) {
	provider := NewMockProviderServer(t)
	defer provider.Close()

	router, _ := newPlugin(provider.URL)

	request(router, http.MethodPost, "/initialize", `{"api_key":"`+KEY_RATELIMIT+`"}`)
	w := request(router, http.MethodPost, "/chat/completions",
		`{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 with first key, got %d", w.Code)
	}

	request(router, http.MethodPost, "/initialize", `{"api_key":"`+KEY_SUCCESS+`"}`)
	w = request(router, http.MethodPost, "/chat/completions",
		`{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after re-initialize, got %d: %s", w.Code, w.Body.String())
	}
}

// TestConcurrentInitializeAndComplete hammers initialize and completions in
// parallel; every completion must come back as a coherent response built from
// one complete configuration (success for the good key, 429 for the limited
// one), and the server must not fall over.
func TestConcurrentInitializeAndComplete(t *testing.T) {
	provider := NewMockProviderServer(t)
	defer provider.Close()

	router, _ := newPlugin(provider.URL)
	request(router, http.MethodPost, "/initialize", `{"api_key":"`+KEY_SUCCESS+`"}`)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		keys := []string{KEY_SUCCESS, KEY_RATELIMIT}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			request(router, http.MethodPost, "/initialize", `{"api_key":"`+keys[i%2]+`"}`)
		}
	}()

	errs := make(chan string, 64)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				w := request(router, http.MethodPost, "/chat/completions",
					`{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`)
				switch w.Code {
				case http.StatusOK, http.StatusTooManyRequests:
					// Both keys produce one of these; anything else means a
					// torn config or an unclassified failure.
				default:
					select {
					case errs <- w.Body.String():
					default:
					}
					return
				}
			}
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(stop)
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Errorf("unexpected completion outcome under concurrency: %s", e)
	}
}

// TestUninitializedCompletionRejectedUpstream pins the protocol asymmetry at
// the e2e level: the completion path has no local initialization gate.
func TestUninitializedCompletionRejectedUpstream(t *testing.T) {
	provider := NewMockProviderServer(t)
	defer provider.Close()

	router, _ := newPlugin(provider.URL)

	w := request(router, http.MethodPost, "/chat/completions",
		`{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected upstream 401, got %d: %s", w.Code, w.Body.String())
	}
	if decode(t, w)["code"] != "authentication_failed" {
		t.Error("expected authentication_failed from the provider rejection")
	}
}

// TestSlowProviderTimesOut drives the completion timeout path end to end.
func TestSlowProviderTimesOut(t *testing.T) {
	provider := NewMockProviderServer(t)
	defer provider.Close()

	router, store := newPlugin(provider.URL)
	request(router, http.MethodPost, "/initialize", `{"api_key":"`+KEY_SLOW+`","timeout":0.1}`)

	if store.Snapshot().Timeout != 100*time.Millisecond {
		t.Fatalf("timeout not applied: %v", store.Snapshot().Timeout)
	}

	w := request(router, http.MethodPost, "/chat/completions",
		`{"model":"gpt-4","messages":[{"role":"user","content":"hi"}]}`)

	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["code"] != "timeout" || body["transient"] != true {
		t.Errorf("unexpected timeout body: %v", body)
	}
}
