// Package engine provides the adapter for the external voice synthesis
// engine. The engine is a black-box process with two invocation contracts:
// whole-passage synthesis driven by positional arguments, and per-paragraph
// synthesis driven by a single JSON line on stdin. Either way, success
// means exit code zero AND the expected output file present on disk.
package engine

import (
	"context"
	"errors"
)

// FinalOutputName is the artifact the engine writes into the output
// directory in whole-passage mode.
const FinalOutputName = "final_output.wav"

// Sentinel errors for synthesis failures.
var (
	// ErrEngine indicates the subprocess exited non-zero. The wrapped
	// message carries the captured (capped) stderr.
	ErrEngine = errors.New("engine failure")
	// ErrMissingOutput indicates the subprocess exited zero but the
	// expected output file is absent or empty. Exit code alone is not
	// proof of success.
	ErrMissingOutput = errors.New("missing output")
	// ErrTimeout indicates the subprocess exceeded its wall-clock bound
	// and was killed.
	ErrTimeout = errors.New("synthesis timeout")
)

// PassageRequest describes one whole-passage synthesis invocation.
type PassageRequest struct {
	// PassageFile is the path to the passage text file.
	PassageFile string
	// VoiceFile is the path to the reference voice sample.
	VoiceFile string
	// OutputDir is where the engine must write FinalOutputName.
	OutputDir string
	// VoiceMapJSON is the JSON-encoded voice map; may be empty.
	VoiceMapJSON string
}

// ParagraphRequest describes one per-paragraph synthesis invocation.
type ParagraphRequest struct {
	// Text is the paragraph text to synthesize.
	Text string `json:"text"`
	// Speaker is the path to the reference voice sample file.
	Speaker string `json:"speaker"`
	// OutPath is where the engine must write the synthesized audio.
	OutPath string `json:"out"`
}

// Engine defines the synthesis adapter interface. Keeping it narrow lets
// the subprocess implementation be swapped for an in-process library or a
// network call without touching the orchestrator.
type Engine interface {
	// SynthesizePassage runs one whole-passage synthesis.
	SynthesizePassage(ctx context.Context, req PassageRequest) error

	// SynthesizeParagraph runs one per-paragraph synthesis.
	SynthesizeParagraph(ctx context.Context, req ParagraphRequest) error
}
