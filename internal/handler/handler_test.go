package handler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/alabobai/media-bridge/config"
	"github.com/alabobai/media-bridge/internal/backend"
	"github.com/alabobai/media-bridge/internal/gateway"
	"github.com/alabobai/media-bridge/internal/handler"
	"github.com/alabobai/media-bridge/internal/metrics"
	"github.com/alabobai/media-bridge/internal/routing"
	"github.com/alabobai/media-bridge/internal/webhook"
)

func TestHandler(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Handler Suite")
}

var log = slog.New(slog.NewTextHandler(os.Stdout, nil))

// fakeOllama stands in for the local daemon. Healthy by default.
type fakeOllama struct {
	mux     *http.ServeMux
	server  *httptest.Server
	healthy bool
	reply   string
}

func newFakeOllama() *fakeOllama {
	f := &fakeOllama{healthy: true, reply: "local says hi"}
	f.mux = http.NewServeMux()
	f.mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		if !f.healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{{"name": "llama3:latest", "size": 4831838208}},
		})
	})
	f.mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if !f.healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": f.reply},
		})
	})
	f.mux.HandleFunc("/api/pull", func(w http.ResponseWriter, r *http.Request) {})
	f.mux.HandleFunc("/api/delete", func(w http.ResponseWriter, r *http.Request) {})
	f.server = httptest.NewServer(f.mux)
	return f
}

func testConfig(ollamaURL, imageURL, videoURL, moonshotURL, moonshotKey string) *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Environment: config.EnvDev, Address: ":0"},
		Logging: config.LoggingConfig{Level: config.LogLevelInfo},
		Gateway: config.GatewayConfig{
			FailureThreshold: 3,
			SuccessThreshold: 1,
			Cooldown:         "30s",
			ChatAttempts:     2,
			MediaAttempts:    1,
			DelayPolicy:      config.DelayPolicyNone,
			DelayBase:        "10ms",
		},
		Health: config.HealthConfig{ProbeTimeout: "1s", CacheTTL: "100ms"},
		Backends: config.BackendsConfig{
			Ollama:   config.BackendConfig{URL: ollamaURL, Timeout: "5s"},
			Image:    config.BackendConfig{URL: imageURL, Timeout: "5s"},
			Video:    config.BackendConfig{URL: videoURL, Timeout: "5s"},
			Moonshot: config.MoonshotConfig{URL: moonshotURL, APIKey: moonshotKey, Timeout: "5s"},
		},
		Metrics: config.MetricsConfig{BufferSize: 128},
	}
}

type fixture struct {
	bridge       *handler.Bridge
	ollama       *fakeOllama
	image        *httptest.Server
	video        *httptest.Server
	moonshot     *httptest.Server
	pollinations *httptest.Server
	cancel       context.CancelFunc
}

func newFixture(moonshotKey string) *fixture {
	f := &fixture{}
	f.ollama = newFakeOllama()

	f.image = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sdapi/v1/sd-models":
			w.WriteHeader(http.StatusOK)
		case "/sdapi/v1/txt2img":
			json.NewEncoder(w).Encode(map[string]any{"images": []string{"cGl4ZWxz"}})
		}
	}))
	f.video = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/generate":
			json.NewEncoder(w).Encode(map[string]any{"url": "http://cdn/clip.mp4"})
		}
	}))
	f.moonshot = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "cloud says hi"}},
			},
		})
	}))
	f.pollinations = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("free tier text"))
	}))

	cfg := testConfig(f.ollama.server.URL, f.image.URL, f.video.URL, f.moonshot.URL, moonshotKey)

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	collector.Start(ctx)

	gw := gateway.New(cfg.Gateway, collector, log)

	f.bridge = handler.NewBridge(handler.Deps{
		Gateway:      gw,
		Ollama:       backend.NewOllama(cfg.Backends.Ollama.URL, time.Second, log),
		Moonshot:     backend.NewMoonshot(cfg.Backends.Moonshot.URL, moonshotKey, time.Second, log),
		Image:        backend.NewImageBackend(cfg.Backends.Image.URL, time.Second, log),
		Video:        backend.NewVideoBackend(cfg.Backends.Video.URL, time.Second, log),
		Pollinations: backend.NewPollinations(f.pollinations.URL, f.pollinations.URL, time.Second),
		Router:       routing.NewRouter(moonshotKey != ""),
		Webhooks:     webhook.NewStore(),
		Config:       cfg,
		Logger:       log,
	})

	return f
}

func (f *fixture) close() {
	f.cancel()
	f.ollama.server.Close()
	f.image.Close()
	f.video.Close()
	f.moonshot.Close()
	f.pollinations.Close()
}

func postJSON(h http.HandlerFunc, target string, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h(rec, req)
	return rec
}

func decodeBody(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	ExpectWithOffset(1, json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
	return out
}

var _ = Describe("Chat", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture("")
	})

	AfterEach(func() {
		f.close()
	})

	It("should serve a healthy local response without degradation markers", func() {
		rec := postJSON(f.bridge.Chat, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		body := decodeBody(rec)
		Expect(body["content"]).To(Equal("local says hi"))
		Expect(body).NotTo(HaveKey("warning"))
		Expect(body).NotTo(HaveKey("fallback"))
	})

	It("should reject an empty messages list", func() {
		rec := postJSON(f.bridge.Chat, "/api/chat", `{"messages":[]}`)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(decodeBody(rec)["error"]).To(Equal("messages is required"))
	})

	It("should degrade to the hosted text service when the local daemon is down", func() {
		f.ollama.healthy = false

		rec := postJSON(f.bridge.Chat, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		body := decodeBody(rec)
		Expect(body["content"]).To(Equal("free tier text"))
		Expect(body["fallback"]).To(Equal("pollinations-text"))
		Expect(body["route"]).To(Equal("/api/chat"))
		Expect(body["warning"]).To(ContainSubstring("chat.ollama"))
	})

	It("should serve the canned template when every tier is down", func() {
		f.ollama.healthy = false
		f.pollinations.Close()

		rec := postJSON(f.bridge.Chat, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		body := decodeBody(rec)
		Expect(body["fallback"]).To(Equal("template-response"))
		Expect(body["degraded"]).To(BeTrue())
		Expect(body["content"]).To(ContainSubstring("Local model is currently unavailable"))
	})

	It("should stream tokens as server-sent events", func() {
		rec := postJSON(f.bridge.Chat, "/api/chat", `{"messages":[{"role":"user","content":"hi"}],"stream":true}`)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("text/event-stream"))
		Expect(rec.Body.String()).To(ContainSubstring(`data: {"token":"local"}`))
		Expect(rec.Body.String()).To(HaveSuffix("data: [DONE]\n\n"))
	})
})

var _ = Describe("HybridChat", func() {
	var f *fixture

	AfterEach(func() {
		f.close()
	})

	It("should serve locally when no cloud key is configured", func() {
		f = newFixture("")

		rec := postJSON(f.bridge.HybridChat, "/api/hybrid/chat", `{"messages":[{"role":"user","content":"hi"}]}`)

		body := decodeBody(rec)
		Expect(body["content"]).To(Equal("local says hi"))
		Expect(body["provider"]).To(Equal("local"))
		decision := body["routing"].(map[string]any)
		Expect(decision["target"]).To(Equal("local"))
		Expect(decision["reason"]).To(Equal("cloud-not-configured"))
	})

	It("should route forced-cloud requests to the cloud tier", func() {
		f = newFixture("sk-test")

		rec := postJSON(f.bridge.HybridChat, "/api/hybrid/chat",
			`{"messages":[{"role":"user","content":"hi"}],"forceCloud":true,"cloudMode":"instant"}`)

		body := decodeBody(rec)
		Expect(body["content"]).To(Equal("cloud says hi"))
		Expect(body["provider"]).To(Equal("kimi-k2.5"))
		Expect(body["cloudMode"]).To(Equal("instant"))
	})

	It("should route complex tasks to the cloud automatically", func() {
		f = newFixture("sk-test")

		rec := postJSON(f.bridge.HybridChat, "/api/hybrid/chat",
			`{"messages":[{"role":"user","content":"run a deep research pass on this"}]}`)

		body := decodeBody(rec)
		Expect(body["provider"]).To(Equal("kimi-k2.5"))
	})

	It("should fall back to local when the cloud tier fails", func() {
		f = newFixture("sk-test")
		f.moonshot.Close()

		rec := postJSON(f.bridge.HybridChat, "/api/hybrid/chat",
			`{"messages":[{"role":"user","content":"hi"}],"forceCloud":true}`)

		body := decodeBody(rec)
		Expect(body["content"]).To(Equal("local says hi"))
		Expect(body["provider"]).To(Equal("local"))
		Expect(body["fallback"]).To(Equal("local-chat"))
		Expect(body["warning"]).To(ContainSubstring("chat.moonshot"))
	})

	It("should report both providers in the status endpoint", func() {
		f = newFixture("sk-test")

		rec := httptest.NewRecorder()
		f.bridge.HybridStatus(rec, httptest.NewRequest(http.MethodGet, "/api/hybrid/status", nil))

		body := decodeBody(rec)
		providers := body["providers"].(map[string]any)
		local := providers["local"].(map[string]any)
		cloud := providers["cloud"].(map[string]any)
		Expect(local["available"]).To(BeTrue())
		Expect(local["models"]).To(ContainElement("llama3:latest"))
		Expect(cloud["available"]).To(BeTrue())
		Expect(cloud["modes"]).To(HaveLen(4))
	})
})

var _ = Describe("GenerateImage", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture("")
	})

	AfterEach(func() {
		f.close()
	})

	It("should serve the local renderer with defaults applied", func() {
		rec := postJSON(f.bridge.GenerateImage, "/api/generate-image", `{"prompt":"a red fox"}`)

		body := decodeBody(rec)
		Expect(body["url"]).To(Equal("data:image/png;base64,cGl4ZWxz"))
		Expect(body["backend"]).To(Equal("local-media-inference"))
		Expect(body["fallback"]).To(BeFalse())
		Expect(body["width"]).To(BeEquivalentTo(512))
	})

	It("should apply style presets to the prompt", func() {
		rec := postJSON(f.bridge.GenerateImage, "/api/generate-image", `{"prompt":"acme","style":"logo"}`)

		body := decodeBody(rec)
		Expect(body["prompt"]).To(HavePrefix("professional minimalist logo"))
	})

	It("should reject a missing prompt", func() {
		rec := postJSON(f.bridge.GenerateImage, "/api/generate-image", `{}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should degrade to the hosted image URL when the local renderer is down", func() {
		f.image.Close()

		rec := postJSON(f.bridge.GenerateImage, "/api/generate-image", `{"prompt":"a red fox"}`)

		body := decodeBody(rec)
		Expect(body["backend"]).To(Equal("pollinations"))
		Expect(body["fallback"]).To(Equal("pollinations-image"))
		Expect(body["url"]).To(ContainSubstring("width=512"))
	})
})

var _ = Describe("GenerateVideo", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture("")
	})

	AfterEach(func() {
		f.close()
	})

	It("should serve the local renderer", func() {
		rec := postJSON(f.bridge.GenerateVideo, "/api/generate-video", `{"prompt":"waves"}`)

		body := decodeBody(rec)
		Expect(body["url"]).To(Equal("http://cdn/clip.mp4"))
		Expect(body["durationSeconds"]).To(BeEquivalentTo(4))
		Expect(body["fps"]).To(BeEquivalentTo(12))
	})

	It("should serve an animated placeholder when the renderer is down", func() {
		f.video.Close()

		rec := postJSON(f.bridge.GenerateVideo, "/api/generate-video", `{"prompt":"waves"}`)

		body := decodeBody(rec)
		Expect(body["backend"]).To(Equal("placeholder"))
		Expect(body["fallback"]).To(Equal("local-fallback-svg"))
		Expect(body["url"]).To(HavePrefix("data:image/svg+xml;base64,"))
	})
})

var _ = Describe("Models", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture("")
	})

	AfterEach(func() {
		f.close()
	})

	It("should list installed models with human-readable sizes", func() {
		rec := httptest.NewRecorder()
		f.bridge.ListModels(rec, httptest.NewRequest(http.MethodGet, "/api/local-ai/models", nil))

		body := decodeBody(rec)
		models := body["models"].([]any)
		Expect(models).To(HaveLen(1))
		first := models[0].(map[string]any)
		Expect(first["name"]).To(Equal("llama3:latest"))
		Expect(first["size"]).To(Equal("4.50 GB"))
	})

	It("should return an empty list when the daemon is down", func() {
		f.ollama.healthy = false

		rec := httptest.NewRecorder()
		f.bridge.ListModels(rec, httptest.NewRequest(http.MethodGet, "/api/local-ai/models", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decodeBody(rec)["models"]).To(BeEmpty())
	})

	It("should pull and delete models", func() {
		rec := postJSON(f.bridge.PullModel, "/api/local-ai/models", `{"model":"llama3:latest"}`)
		Expect(decodeBody(rec)["success"]).To(BeTrue())

		rec = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodDelete, "/api/local-ai/models", strings.NewReader(`{"model":"llama3:latest"}`))
		f.bridge.DeleteModel(rec, req)
		Expect(decodeBody(rec)["success"]).To(BeTrue())
	})

	It("should reject a pull without a model name", func() {
		rec := postJSON(f.bridge.PullModel, "/api/local-ai/models", `{}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(decodeBody(rec)["error"]).To(Equal("model is required"))
	})
})

var _ = Describe("Status", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture("")
	})

	AfterEach(func() {
		f.close()
	})

	It("should answer the liveness probe", func() {
		rec := httptest.NewRecorder()
		f.bridge.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decodeBody(rec)["status"]).To(Equal("ok"))
	})

	It("should report healthy with models and circuit state", func() {
		rec := httptest.NewRecorder()
		f.bridge.LocalAIStatus(rec, httptest.NewRequest(http.MethodGet, "/api/local-ai/status", nil))

		body := decodeBody(rec)
		Expect(body["status"]).To(Equal("healthy"))
		Expect(body["models"]).To(ContainElement("llama3:latest"))
		Expect(body).To(HaveKey("circuit"))
	})

	It("should report degraded when the daemon is down", func() {
		f.ollama.healthy = false

		rec := httptest.NewRecorder()
		f.bridge.LocalAIStatus(rec, httptest.NewRequest(http.MethodGet, "/api/local-ai/status", nil))

		body := decodeBody(rec)
		Expect(body["status"]).To(Equal("degraded"))
		services := body["services"].(map[string]any)
		ollama := services["ollama"].(map[string]any)
		Expect(ollama["connected"]).To(BeFalse())
	})
})

var _ = Describe("Webhooks", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture("")
	})

	AfterEach(func() {
		f.close()
	})

	It("should record and list events", func() {
		rec := postJSON(f.bridge.WebhookTest, "/api/webhook/test", `{"source":"ci"}`)
		body := decodeBody(rec)
		Expect(body["success"]).To(BeTrue())
		Expect(body["id"]).NotTo(BeEmpty())
		Expect(body["webhookId"]).To(Equal("test"))

		postJSON(f.bridge.WebhookDispatch, "/api/webhook/dispatch", `{"kind":"deploy"}`)

		rec = httptest.NewRecorder()
		f.bridge.WebhookEvents(rec, httptest.NewRequest(http.MethodGet, "/api/webhook/events", nil))

		events := decodeBody(rec)
		Expect(events["eventCount"]).To(BeEquivalentTo(2))
		recent := events["recentEvents"].([]any)
		last := recent[1].(map[string]any)
		Expect(last["webhookId"]).To(Equal("dispatch"))
	})

	It("should describe its routes at the root", func() {
		rec := httptest.NewRecorder()
		f.bridge.WebhookRoot(rec, httptest.NewRequest(http.MethodGet, "/api/webhook", nil))

		body := decodeBody(rec)
		Expect(body["routes"]).To(ContainElement("/api/webhook/events"))
	})
})
