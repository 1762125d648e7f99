package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// writeScript materializes a shell script standing in for the engine.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o700))
	return path
}

func TestSubprocess_SynthesizePassage_Success(t *testing.T) {
	script := writeScript(t, `printf 'RIFFdata' > "$3/final_output.wav"`)
	eng := NewSubprocess("/bin/sh", script, script, time.Minute, testLogger())

	outDir := t.TempDir()
	err := eng.SynthesizePassage(context.Background(), PassageRequest{
		PassageFile:  "passage.txt",
		VoiceFile:    "voice.wav",
		OutputDir:    outDir,
		VoiceMapJSON: `{"1":{"lang":"en","voice":"default"}}`,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, FinalOutputName))
	require.NoError(t, err)
	assert.Equal(t, "RIFFdata", string(data))
}

func TestSubprocess_SynthesizePassage_ReceivesArgs(t *testing.T) {
	// The engine echoes its argv into the artifact so we can assert the
	// positional contract.
	script := writeScript(t, `printf '%s|%s|%s' "$1" "$2" "$4" > "$3/final_output.wav"`)
	eng := NewSubprocess("/bin/sh", script, script, time.Minute, testLogger())

	outDir := t.TempDir()
	err := eng.SynthesizePassage(context.Background(), PassageRequest{
		PassageFile:  "/scratch/passage.txt",
		VoiceFile:    "/scratch/voice.wav",
		OutputDir:    outDir,
		VoiceMapJSON: `{"1":{"lang":"en","voice":"default"}}`,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, FinalOutputName))
	require.NoError(t, err)
	assert.Equal(t, `/scratch/passage.txt|/scratch/voice.wav|{"1":{"lang":"en","voice":"default"}}`, string(data))
}

func TestSubprocess_SynthesizePassage_ZeroExitNoFile(t *testing.T) {
	script := writeScript(t, `exit 0`)
	eng := NewSubprocess("/bin/sh", script, script, time.Minute, testLogger())

	err := eng.SynthesizePassage(context.Background(), PassageRequest{OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrMissingOutput)
}

func TestSubprocess_SynthesizePassage_EmptyOutputFile(t *testing.T) {
	script := writeScript(t, `: > "$3/final_output.wav"`)
	eng := NewSubprocess("/bin/sh", script, script, time.Minute, testLogger())

	err := eng.SynthesizePassage(context.Background(), PassageRequest{OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrMissingOutput)
}

func TestSubprocess_SynthesizePassage_EngineFailure(t *testing.T) {
	script := writeScript(t, `echo "model load failed" >&2; exit 3`)
	eng := NewSubprocess("/bin/sh", script, script, time.Minute, testLogger())

	err := eng.SynthesizePassage(context.Background(), PassageRequest{OutputDir: t.TempDir()})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEngine)
	assert.Contains(t, err.Error(), "model load failed")
}

func TestSubprocess_StderrIsCapped(t *testing.T) {
	// Emit well past the cap, then fail.
	script := writeScript(t, `i=0; while [ $i -lt 1000 ]; do echo "0123456789abcdef0123456789abcdef" >&2; i=$((i+1)); done; exit 1`)
	eng := NewSubprocess("/bin/sh", script, script, time.Minute, testLogger())

	err := eng.SynthesizePassage(context.Background(), PassageRequest{OutputDir: t.TempDir()})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEngine)
	assert.Less(t, len(err.Error()), stderrCap+256)
}

func TestSubprocess_Timeout(t *testing.T) {
	script := writeScript(t, `sleep 5`)
	eng := NewSubprocess("/bin/sh", script, script, 100*time.Millisecond, testLogger())

	start := time.Now()
	err := eng.SynthesizePassage(context.Background(), PassageRequest{OutputDir: t.TempDir()})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, elapsed, 3*time.Second, "subprocess must be killed on timeout")
}

func TestSubprocess_SurvivesCallerCancellation(t *testing.T) {
	// A dropped client connection cancels the request context; the
	// running engine keeps going and the artifact still lands.
	script := writeScript(t, `printf 'RIFFdata' > "$3/final_output.wav"`)
	eng := NewSubprocess("/bin/sh", script, script, time.Minute, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outDir := t.TempDir()
	err := eng.SynthesizePassage(ctx, PassageRequest{OutputDir: outDir})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, FinalOutputName))
}

func TestSubprocess_ChildEnvIsolation(t *testing.T) {
	t.Setenv("PYTHONIOENCODING", "ascii")
	script := writeScript(t, `printf '%s' "$PYTHONIOENCODING" > "$3/final_output.wav"`)
	eng := NewSubprocess("/bin/sh", script, script, time.Minute, testLogger())

	outDir := t.TempDir()
	require.NoError(t, eng.SynthesizePassage(context.Background(), PassageRequest{OutputDir: outDir}))

	data, err := os.ReadFile(filepath.Join(outDir, FinalOutputName))
	require.NoError(t, err)
	assert.Equal(t, "utf-8", string(data), "child env must carry the engine overrides")
	// Our own environment stays untouched.
	assert.Equal(t, "ascii", os.Getenv("PYTHONIOENCODING"))
}

func TestSubprocess_SynthesizeParagraph_Success(t *testing.T) {
	// Extract the "out" path from the JSON line on stdin and write there.
	script := writeScript(t, `read -r line
p="${line##*\"out\":\"}"
p="${p%\"\}}"
printf 'RIFF' > "$p"`)
	eng := NewSubprocess("/bin/sh", script, script, time.Minute, testLogger())

	out := filepath.Join(t.TempDir(), "para_1.wav")
	err := eng.SynthesizeParagraph(context.Background(), ParagraphRequest{
		Text:    "Hello world.",
		Speaker: "/scratch/voice.wav",
		OutPath: out,
	})
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestSubprocess_SynthesizeParagraph_ZeroExitNoFile(t *testing.T) {
	script := writeScript(t, `cat > /dev/null`)
	eng := NewSubprocess("/bin/sh", script, script, time.Minute, testLogger())

	err := eng.SynthesizeParagraph(context.Background(), ParagraphRequest{
		Text:    "Hello",
		Speaker: "voice.wav",
		OutPath: filepath.Join(t.TempDir(), "never.wav"),
	})
	assert.ErrorIs(t, err, ErrMissingOutput)
}

func TestSubprocess_SynthesizeParagraph_EngineFailure(t *testing.T) {
	script := writeScript(t, `cat > /dev/null; echo "bad speaker" >&2; exit 1`)
	eng := NewSubprocess("/bin/sh", script, script, time.Minute, testLogger())

	err := eng.SynthesizeParagraph(context.Background(), ParagraphRequest{
		Text:    "Hello",
		Speaker: "voice.wav",
		OutPath: filepath.Join(t.TempDir(), "out.wav"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEngine)
	assert.Contains(t, err.Error(), "bad speaker")
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{limit: 8}

	n, err := b.Write([]byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 10, n, "Write must report full consumption")
	assert.Equal(t, "01234567", b.String())

	_, err = b.Write([]byte("more"))
	require.NoError(t, err)
	assert.Equal(t, "01234567", b.String())
}
