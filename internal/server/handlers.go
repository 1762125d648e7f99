package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Aneek02/voice/internal/blob"
	"github.com/Aneek02/voice/internal/job"
	"github.com/Aneek02/voice/internal/registry"
)

// maxUploadBytes bounds the in-memory portion of multipart parsing.
// Larger uploads spill to temp files.
const maxUploadBytes = 32 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	jobs      *job.Service
	registry  *registry.Service
	blobs     blob.Store
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(jobs *job.Service, reg *registry.Service, blobs blob.Store, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		jobs:      jobs,
		registry:  reg,
		blobs:     blobs,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Clone handles POST /clone requests: multipart form with fields
// voiceSample (binary audio), passage (text), and voiceMap (JSON,
// optional). Synthesis runs synchronously; the response carries the
// artifact URL.
func (h *Handlers) Clone(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Missing passage or voice sample file")
		return
	}

	passage := r.FormValue("passage")
	file, header, err := r.FormFile("voiceSample")
	if err != nil || passage == "" {
		writeError(w, http.StatusBadRequest, "Missing passage or voice sample file")
		return
	}
	defer file.Close()

	out, err := h.jobs.Clone(r.Context(), job.CloneInput{
		Passage:    passage,
		VoiceMap:   r.FormValue("voiceMap"),
		SampleName: header.Filename,
		Sample:     file,
	})
	if err != nil {
		switch {
		case errors.Is(err, job.ErrMissingInput):
			writeError(w, http.StatusBadRequest, "Missing passage or voice sample file")
		case errors.Is(err, job.ErrArtifactMissing):
			h.logger.Error("clone artifact missing", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "Final audio not found")
		default:
			h.logger.Error("clone failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "Voice generation failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, CloneResponse{
		Message:  "Voice cloned successfully",
		AudioURL: out.AudioURL,
		Sample:   out.Sample,
		Warning:  out.Warning,
	})
}

// CreateVoice handles POST /voices requests: multipart form with field
// sample (binary audio) and body fields name and language.
func (h *Handlers) CreateVoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "No voice sample uploaded")
		return
	}

	file, header, err := r.FormFile("sample")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No voice sample uploaded")
		return
	}
	defer file.Close()

	blobID, err := h.blobs.Put(r.Context(), header.Filename, file)
	if err != nil {
		h.logger.Error("voice sample write failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to save voice")
		return
	}

	sample, err := h.registry.CreateVoice(r.Context(), r.FormValue("name"), r.FormValue("language"), blobID)
	if err != nil {
		h.logger.Error("voice record write failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to save voice")
		return
	}

	writeJSON(w, http.StatusCreated, VoiceResponse{Message: "Voice saved", Sample: sample})
}

// ListVoices handles GET /voices requests. Only public summaries are
// returned; the legacy passage/voiceMap payloads never leave the registry.
func (h *Handlers) ListVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := h.registry.ListVoices(r.Context())
	if err != nil {
		h.logger.Error("voice listing failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to fetch voices")
		return
	}
	writeJSON(w, http.StatusOK, voices)
}

// CreatePassage handles POST /passages requests.
func (h *Handlers) CreatePassage(w http.ResponseWriter, r *http.Request) {
	var req CreatePassageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "No passage text provided")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "No passage text provided")
		return
	}

	passage, err := h.registry.CreatePassage(r.Context(), req.Title, req.Text)
	if err != nil {
		if errors.Is(err, registry.ErrEmptyPassage) {
			writeError(w, http.StatusBadRequest, "No passage text provided")
			return
		}
		h.logger.Error("passage write failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "Failed to create passage")
		return
	}

	writeJSON(w, http.StatusCreated, PassageResponse{Message: "Passage saved", Passage: passage})
}

// AssignVoices handles POST /passages/{id}/assign requests.
func (h *Handlers) AssignVoices(w http.ResponseWriter, r *http.Request) {
	passageID := r.PathValue("id")

	var req AssignVoicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid assignments data")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid assignments data")
		return
	}

	assignments := make([]registry.Assignment, 0, len(req.Assignments))
	for _, a := range req.Assignments {
		assignments = append(assignments, registry.Assignment{
			ParagraphOrder: a.ParagraphOrder,
			VoiceID:        a.VoiceID,
		})
	}

	passage, err := h.registry.AssignVoices(r.Context(), passageID, assignments)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrPassageNotFound):
			writeError(w, http.StatusNotFound, "Passage not found")
		case errors.Is(err, registry.ErrVoiceNotFound):
			writeError(w, http.StatusNotFound, "Voice not found")
		default:
			h.logger.Error("assignment write failed",
				slog.String("passage_id", passageID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "Failed to assign voices")
		}
		return
	}

	writeJSON(w, http.StatusOK, PassageResponse{Message: "Voice assignments saved", Passage: passage})
}

// Synthesize handles POST /passages/{id}/synthesize requests. It runs
// per-paragraph synthesis synchronously and returns the passage with each
// synthesized paragraph's output blob id filled in.
func (h *Handlers) Synthesize(w http.ResponseWriter, r *http.Request) {
	passageID := r.PathValue("id")

	passage, err := h.jobs.SynthesizePassage(r.Context(), passageID)
	if err != nil {
		if errors.Is(err, registry.ErrPassageNotFound) {
			writeError(w, http.StatusNotFound, "Passage not found")
			return
		}
		h.logger.Error("passage synthesis failed",
			slog.String("passage_id", passageID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Failed to synthesize audio")
		return
	}

	writeJSON(w, http.StatusOK, PassageResponse{Message: "Synthesis completed", Passage: passage})
}

// StreamAudio handles GET /audio/{fileId} requests, streaming stored
// audio bytes from the blob store.
func (h *Handlers) StreamAudio(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")

	rc, err := h.blobs.Open(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Audio not found")
			return
		}
		h.logger.Error("audio stream failed",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Failed to stream audio")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "audio/wav")
	if _, err := io.Copy(w, rc); err != nil {
		// Headers are already out; nothing to send but the log line.
		h.logger.Warn("audio stream interrupted",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
