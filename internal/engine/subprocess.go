package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// stderrCap bounds how much subprocess stderr is retained for error
// reporting. A runaway engine must not grow our memory with it.
const stderrCap = 4 * 1024

// Compile-time check that Subprocess implements Engine.
var _ Engine = (*Subprocess)(nil)

// Subprocess runs the synthesis engine as one external process per
// invocation. Invocations are independent OS processes; callers decide
// whether to serialize them.
type Subprocess struct {
	command         string
	passageScript   string
	paragraphScript string
	timeout         time.Duration
	logger          *slog.Logger
}

// NewSubprocess creates a subprocess engine adapter.
// command is the engine interpreter/executable (e.g. a venv python);
// passageScript and paragraphScript are the entry points for the two
// invocation modes. timeout bounds each invocation's wall-clock time.
func NewSubprocess(command, passageScript, paragraphScript string, timeout time.Duration, logger *slog.Logger) *Subprocess {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subprocess{
		command:         command,
		passageScript:   passageScript,
		paragraphScript: paragraphScript,
		timeout:         timeout,
		logger:          logger,
	}
}

// SynthesizePassage invokes the engine in whole-passage mode: four
// positional arguments, FinalOutputName expected in the output directory.
func (s *Subprocess) SynthesizePassage(ctx context.Context, req PassageRequest) error {
	args := []string{s.passageScript, req.PassageFile, req.VoiceFile, req.OutputDir, req.VoiceMapJSON}
	if err := s.run(ctx, args, nil); err != nil {
		return err
	}
	return checkOutput(filepath.Join(req.OutputDir, FinalOutputName))
}

// SynthesizeParagraph invokes the engine in per-paragraph mode: one JSON
// object on stdin, output expected at req.OutPath.
func (s *Subprocess) SynthesizeParagraph(ctx context.Context, req ParagraphRequest) error {
	line, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode paragraph request: %w", err)
	}
	line = append(line, '\n')

	if err := s.run(ctx, []string{s.paragraphScript}, line); err != nil {
		return err
	}
	return checkOutput(req.OutPath)
}

// run spawns one engine process and waits for it, translating exit status
// and deadline expiry into the synthesis error taxonomy.
func (s *Subprocess) run(ctx context.Context, args []string, stdin []byte) error {
	// The engine outlives its caller: a dropped HTTP connection cancels
	// the request context, and that must not kill a synthesis mid-write.
	// Only the adapter's own timeout stops the process.
	runCtx := context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, s.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, s.command, args...)
	cmd.Env = childEnv()
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	stderr := &cappedBuffer{limit: stderrCap}
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	s.logger.Debug("engine invocation finished",
		slog.String("command", s.command),
		slog.Duration("duration", time.Since(start)),
		slog.Bool("success", err == nil),
	)

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w after %s", ErrTimeout, s.timeout)
		}
		// Full stderr detail stays server-side in logs; the wrapped error
		// carries only the capped capture.
		s.logger.Error("engine process failed",
			slog.String("command", s.command),
			slog.String("error", err.Error()),
			slog.String("stderr", stderr.String()),
		)
		return fmt.Errorf("%w: %s", ErrEngine, stderr.String())
	}
	return nil
}

// childEnv builds the environment for the engine process without mutating
// our own. The engine needs UTF-8 stdio and the numba SVML workaround.
func childEnv() []string {
	env := os.Environ()
	env = append(env,
		"PYTHONIOENCODING=utf-8",
		"NUMBA_DISABLE_INTEL_SVML=1",
	)
	return env
}

// checkOutput verifies the engine actually produced a non-empty file.
func checkOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMissingOutput, path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", ErrMissingOutput, path)
	}
	return nil
}

// cappedBuffer retains at most limit bytes and silently drops the rest.
type cappedBuffer struct {
	limit int
	buf   bytes.Buffer
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if remaining := b.limit - b.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
