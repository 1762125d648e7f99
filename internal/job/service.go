package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aneek02/voice/internal/blob"
	"github.com/Aneek02/voice/internal/engine"
	"github.com/Aneek02/voice/internal/registry"
	"github.com/Aneek02/voice/internal/workspace"
)

// Static errors for the orchestration pipeline.
var (
	// ErrMissingInput is returned when the request lacks passage text or a
	// voice sample. The job never allocates a workspace in that case.
	ErrMissingInput = errors.New("missing passage or voice sample")
	// ErrWorkspace indicates workspace allocation failed. Fatal, no retry.
	ErrWorkspace = errors.New("workspace allocation failed")
	// ErrArtifactMissing indicates the expected final artifact was absent
	// at collection time. Fatal, no retry.
	ErrArtifactMissing = errors.New("final artifact missing")
)

// DefaultVoiceMapJSON is used when a clone request carries no voice map or
// one that does not parse.
const DefaultVoiceMapJSON = `{"1": {"lang": "en", "voice": "default"}}`

// Service orchestrates the synthesis pipeline. It coordinates the
// workspace manager, blob store, engine adapter, and registry to run one
// job per client request. No retries happen at this layer; a failed job
// surfaces its error and the caller may resubmit under a fresh job id.
type Service struct {
	workspaces *workspace.Manager
	reaper     *workspace.Reaper
	blobs      blob.Store
	engine     engine.Engine
	registry   *registry.Service
	logger     *slog.Logger
}

// NewService creates the orchestrator. The reaper is optional; when
// present it is run opportunistically before each workspace allocation.
func NewService(
	workspaces *workspace.Manager,
	reaper *workspace.Reaper,
	blobs blob.Store,
	eng engine.Engine,
	reg *registry.Service,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		workspaces: workspaces,
		reaper:     reaper,
		blobs:      blobs,
		engine:     eng,
		registry:   reg,
		logger:     logger,
	}
}

// CloneInput contains the parameters of a whole-passage clone request.
type CloneInput struct {
	// Passage is the text to synthesize.
	Passage string
	// VoiceMap is the raw JSON voice map from the request; may be empty.
	VoiceMap string
	// SampleName is the uploaded file's original name.
	SampleName string
	// Sample streams the uploaded voice sample bytes.
	Sample io.Reader
}

// CloneOutput contains the result of a successful clone job.
type CloneOutput struct {
	// JobID identifies the job and its output directory.
	JobID string
	// AudioURL is the externally reachable path of the produced audio.
	AudioURL string
	// Sample is the persisted voice sample record; nil if persistence
	// failed after synthesis succeeded.
	Sample *registry.VoiceSample
	// Warning is set when the artifact was produced but the durable
	// record write failed.
	Warning string
}

// Clone runs the whole-passage synthesis pipeline: persist the uploaded
// sample, allocate a workspace, invoke the engine once over the full
// passage, verify the artifact, and record the result. The workspace
// scratch directory is released exactly once on every exit path; the
// output directory survives only on success.
func (s *Service) Clone(ctx context.Context, input CloneInput) (out *CloneOutput, err error) {
	if strings.TrimSpace(input.Passage) == "" || input.Sample == nil {
		return nil, ErrMissingInput
	}

	j := New()
	logger := s.logger.With(slog.String("job_id", j.ID))
	logger.Info("clone job received", slog.Int("passage_bytes", len(input.Passage)))

	blobID, err := s.blobs.Put(ctx, input.SampleName, input.Sample)
	if err != nil {
		_ = j.Fail(err.Error())
		return nil, fmt.Errorf("store voice sample: %w", err)
	}

	voiceMap, voiceMapJSON := s.normalizeVoiceMap(input.VoiceMap, logger)

	paths, err := s.allocate(j)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := s.workspaces.Release(j.ID); rerr != nil {
			logger.Error("workspace release failed", slog.String("error", rerr.Error()))
		}
		if err != nil {
			_ = s.workspaces.DiscardOutput(j.ID)
		}
	}()

	if err = os.WriteFile(paths.PassageFile, []byte(input.Passage), 0o600); err != nil {
		_ = j.Fail(err.Error())
		return nil, fmt.Errorf("write passage file: %w", err)
	}
	if err = blob.Materialize(ctx, s.blobs, blobID, paths.VoiceFile); err != nil {
		_ = j.Fail(err.Error())
		return nil, fmt.Errorf("materialize voice sample: %w", err)
	}

	_ = j.TransitionTo(StatusSynthesizing)
	if err = s.engine.SynthesizePassage(ctx, engine.PassageRequest{
		PassageFile:  paths.PassageFile,
		VoiceFile:    paths.VoiceFile,
		OutputDir:    paths.OutputDir,
		VoiceMapJSON: voiceMapJSON,
	}); err != nil {
		_ = j.Fail(err.Error())
		return nil, err
	}

	_ = j.TransitionTo(StatusCollecting)
	final := filepath.Join(paths.OutputDir, engine.FinalOutputName)
	if info, statErr := os.Stat(final); statErr != nil || info.Size() == 0 {
		err = fmt.Errorf("%w: %s", ErrArtifactMissing, final)
		_ = j.Fail(err.Error())
		return nil, err
	}

	out = &CloneOutput{
		JobID:    j.ID,
		AudioURL: "/voice/" + j.ID + "/" + engine.FinalOutputName,
	}

	sample, perr := s.registry.RecordClone(ctx, input.Passage, voiceMap, blobID)
	if perr != nil {
		// Synthesis cost is not wasted: return the artifact location and
		// surface that the durable record was not saved.
		logger.Error("clone result not persisted", slog.String("error", perr.Error()))
		out.Warning = "synthesis succeeded but the voice record was not saved"
	} else {
		out.Sample = sample
		_ = j.TransitionTo(StatusPersisted)
	}

	_ = j.TransitionTo(StatusResponded)
	logger.Info("clone job completed", slog.String("audio_url", out.AudioURL))
	return out, nil
}

// SynthesizePassage runs per-paragraph synthesis for a stored passage.
// Paragraphs are processed strictly in document order and sequentially:
// the engine is typically GPU-bound, so concurrent invocations within one
// job would starve each other. A paragraph without an assigned voice is
// skipped, not fatal. Each paragraph's output blob id is written back to
// the registry immediately after that paragraph succeeds.
func (s *Service) SynthesizePassage(ctx context.Context, passageID string) (p *registry.PassageSample, err error) {
	resolved, err := s.registry.GetPassageWithVoices(ctx, passageID)
	if err != nil {
		return nil, err
	}

	j := New()
	logger := s.logger.With(
		slog.String("job_id", j.ID),
		slog.String("passage_id", passageID),
	)
	logger.Info("passage synthesis job received",
		slog.Int("paragraphs", len(resolved.Passage.Paragraphs)),
	)

	paths, err := s.allocate(j)
	if err != nil {
		return nil, err
	}
	// This flow persists results as blobs, not as an output directory;
	// discard the latter along with scratch on every exit path.
	defer func() {
		if rerr := s.workspaces.Release(j.ID); rerr != nil {
			logger.Error("workspace release failed", slog.String("error", rerr.Error()))
		}
		_ = s.workspaces.DiscardOutput(j.ID)
	}()

	_ = j.TransitionTo(StatusSynthesizing)

	// One materialized scratch copy per distinct voice.
	voiceFiles := make(map[string]string)
	synthesized := 0
	for _, para := range resolved.Passage.Paragraphs {
		voice := resolved.VoiceFor(para)
		if voice == nil {
			logger.Warn("skipping paragraph without assigned voice",
				slog.Int("paragraph", para.Order),
			)
			continue
		}

		voiceFile, ok := voiceFiles[voice.ID]
		if !ok {
			voiceFile = filepath.Join(paths.Dir, "voice_"+voice.ID+".wav")
			if err = blob.Materialize(ctx, s.blobs, voice.AudioFileID, voiceFile); err != nil {
				_ = j.Fail(err.Error())
				return nil, fmt.Errorf("materialize voice %s: %w", voice.ID, err)
			}
			voiceFiles[voice.ID] = voiceFile
		}

		outPath := paths.ParagraphFile(para.Order)
		if err = s.engine.SynthesizeParagraph(ctx, engine.ParagraphRequest{
			Text:    para.Text,
			Speaker: voiceFile,
			OutPath: outPath,
		}); err != nil {
			_ = j.Fail(err.Error())
			return nil, fmt.Errorf("paragraph %d: %w", para.Order, err)
		}

		var outBlobID string
		if outBlobID, err = s.persistParagraphOutput(ctx, outPath, para.Order); err != nil {
			_ = j.Fail(err.Error())
			return nil, err
		}
		if err = s.registry.SetParagraphAudio(ctx, passageID, para.Order, outBlobID); err != nil {
			_ = j.Fail(err.Error())
			return nil, fmt.Errorf("record paragraph %d output: %w", para.Order, err)
		}
		synthesized++
	}

	_ = j.TransitionTo(StatusCollecting)
	p, err = s.registry.GetPassage(ctx, passageID)
	if err != nil {
		_ = j.Fail(err.Error())
		return nil, err
	}

	_ = j.TransitionTo(StatusPersisted)
	_ = j.TransitionTo(StatusResponded)
	logger.Info("passage synthesis completed",
		slog.Int("synthesized", synthesized),
		slog.Int("skipped", len(p.Paragraphs)-synthesized),
	)
	return p, nil
}

// allocate sweeps stale outputs opportunistically, then allocates the
// job's workspace and advances its state.
func (s *Service) allocate(j *Job) (workspace.Paths, error) {
	if s.reaper != nil {
		if err := s.reaper.ReapOnce(); err != nil {
			s.logger.Warn("pre-allocation reap failed", slog.String("error", err.Error()))
		}
	}

	paths, err := s.workspaces.Allocate(j.ID)
	if err != nil {
		_ = j.Fail(err.Error())
		return workspace.Paths{}, fmt.Errorf("%w: %v", ErrWorkspace, err)
	}
	_ = j.TransitionTo(StatusWorkspaceReady)
	return paths, nil
}

// persistParagraphOutput streams one synthesized paragraph file into the
// blob store.
func (s *Service) persistParagraphOutput(ctx context.Context, path string, order int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open paragraph %d output: %w", order, err)
	}
	defer f.Close()

	blobID, err := s.blobs.Put(ctx, filepath.Base(path), f)
	if err != nil {
		return "", fmt.Errorf("store paragraph %d output: %w", order, err)
	}
	return blobID, nil
}

// normalizeVoiceMap parses the raw request voice map, falling back to the
// default map when it is absent or not valid JSON.
func (s *Service) normalizeVoiceMap(raw string, logger *slog.Logger) (registry.VoiceMap, string) {
	if raw == "" {
		raw = DefaultVoiceMapJSON
	}

	var m registry.VoiceMap
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		logger.Warn("voice map is not valid JSON, using default",
			slog.String("error", err.Error()),
		)
		raw = DefaultVoiceMapJSON
		_ = json.Unmarshal([]byte(raw), &m)
	}
	return m, raw
}
