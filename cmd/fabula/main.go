package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fabulaforge/fabula/internal/config"
	"github.com/fabulaforge/fabula/internal/export"
	"github.com/fabulaforge/fabula/internal/gemini"
	"github.com/fabulaforge/fabula/internal/producer"
	"github.com/fabulaforge/fabula/internal/story"
	"github.com/fabulaforge/fabula/internal/stream"
	"github.com/fabulaforge/fabula/internal/studio"
	"github.com/fabulaforge/fabula/internal/web"
)

func main() {
	cfg := config.Load()
	if cfg.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("fabula starting up...")

	client := gemini.NewClient(cfg.GeminiAPIURL, cfg.GeminiAPIKey, cfg.Models)

	checkCtx, checkCancel := context.WithTimeout(ctx, 30*time.Second)
	status, err := client.CheckAvailability(checkCtx)
	checkCancel()
	switch {
	case err != nil:
		log.Printf("Gemini check failed (continuing anyway): %v", err)
	case status == gemini.StatusBusy:
		log.Println("Gemini is rate-limited right now; generation may need a retry")
	default:
		log.Println("Gemini ready")
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatalf("output dir: %v", err)
	}
	exporter, err := export.New(export.Options{
		Width:     cfg.ExportWidth,
		Height:    cfg.ExportHeight,
		FPS:       cfg.ExportFPS,
		OutputDir: cfg.OutputDir,
	})
	if err != nil {
		log.Fatalf("exporter: %v", err)
	}

	st := studio.New(client, exporter)
	go st.Run(ctx)

	// Broadcaster: fan-out narration frames to all listeners
	broadcaster := stream.NewBroadcaster()
	go broadcaster.Run(ctx, st.Source())

	webrtcHandler := stream.NewWebRTCHandler(broadcaster)

	// HTTP routes
	mux := http.NewServeMux()

	// Web UI
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(web.IndexHTML)
	})

	// Audio streams
	mux.Handle("/stream", stream.NewHTTPHandler(broadcaster))
	mux.Handle("/offer", webrtcHandler)

	// API endpoints
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		snap := st.Status()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(struct {
			studio.Status
			HTTPListeners   int `json:"httpListeners"`
			WebRTCListeners int `json:"webrtcListeners"`
		}{
			Status:          snap,
			HTTPListeners:   broadcaster.ListenerCount(),
			WebRTCListeners: webrtcHandler.PeerCount(),
		})
	})

	mux.HandleFunc("/api/check", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, checkCancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer checkCancel()
		status, err := client.CheckAvailability(checkCtx)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(map[string]any{"status": "error", "error": err.Error()})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": string(status)})
	})

	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Topic string `json:"topic"`
			Niche string `json:"niche"`
			Voice string `json:"voice"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" {
			http.Error(w, "a topic is required", http.StatusBadRequest)
			return
		}
		if req.Niche == "" {
			req.Niche = cfg.DefaultNiche
		}
		if req.Voice == "" {
			req.Voice = cfg.DefaultVoice
		}
		if !story.IsValidNiche(req.Niche) {
			http.Error(w, "unknown niche", http.StatusBadRequest)
			return
		}
		if !story.IsValidVoice(req.Voice) {
			http.Error(w, "unknown voice", http.StatusBadRequest)
			return
		}
		if err := st.Generate(producer.Request(req)); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	control := func(name string, op func() error) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "POST required", http.StatusMethodNotAllowed)
				return
			}
			if err := op(); err != nil {
				code := http.StatusConflict
				if errors.Is(err, studio.ErrNoStory) {
					code = http.StatusNotFound
				}
				http.Error(w, err.Error(), code)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"ok": true, "action": name})
		}
	}
	mux.HandleFunc("/api/play", control("play", st.Play))
	mux.HandleFunc("/api/pause", control("pause", st.Pause))
	mux.HandleFunc("/api/replay", control("replay", st.Replay))
	mux.HandleFunc("/api/close", control("close", st.ClosePlayer))
	mux.HandleFunc("/api/export", control("export", st.Export))

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		server.Close()
	}()

	log.Printf("fabula live on %s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}
