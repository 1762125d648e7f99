package server

import (
	"log/slog"
	"net/http"
	"strings"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// OutputsDir is the directory holding whole-passage synthesis
	// artifacts, served statically under /voice.
	OutputsDir string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig(outputsDir string) Config {
	return Config{
		AllowedOrigins: []string{"*"},
		OutputsDir:     outputsDir,
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing. Paths are part of
// the client contract and must not change.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /clone", h.Clone)
	mux.HandleFunc("POST /voices", h.CreateVoice)
	mux.HandleFunc("GET /voices", h.ListVoices)
	mux.HandleFunc("POST /passages", h.CreatePassage)
	mux.HandleFunc("POST /passages/{id}/assign", h.AssignVoices)
	mux.HandleFunc("POST /passages/{id}/synthesize", h.Synthesize)
	mux.HandleFunc("GET /audio/{fileId}", h.StreamAudio)

	// Whole-passage artifacts are plain files under the outputs root,
	// addressed as /voice/<outputFolder>/final_output.wav.
	mux.Handle("GET /voice/", noDirListing(http.StripPrefix("/voice/", http.FileServer(http.Dir(cfg.OutputsDir)))))

	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}

// noDirListing hides the outputs tree structure: artifact files are
// fetchable, directory requests are not, so one client cannot enumerate
// another's output folder names.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
