// Package audio turns podcast scripts into WAV files by driving an
// external TTS binary, one invocation per speaker turn.
package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"noteflow/internal/util"
)

// Turn is one speaker turn of a podcast script.
type Turn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Synthesizer renders a script to a WAV file and returns its path.
type Synthesizer interface {
	Synthesize(ctx context.Context, noteID, lang string, turns []Turn) (string, error)
}

// Disabled is used when no TTS binary is configured. Notes are still
// generated, just without audio.
type Disabled struct{}

func (Disabled) Synthesize(ctx context.Context, noteID, lang string, turns []Turn) (string, error) {
	return "", nil
}

// ExecEngine shells out to a TTS binary for each turn and joins the
// resulting WAV files.
type ExecEngine struct {
	ttsPath string
	outDir  string
	log     *zap.Logger
}

func NewExecEngine(ttsPath, outDir string, log *zap.Logger) *ExecEngine {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExecEngine{ttsPath: ttsPath, outDir: outDir, log: log}
}

func (e *ExecEngine) Synthesize(ctx context.Context, noteID, lang string, turns []Turn) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("empty script")
	}
	tmpDir, err := os.MkdirTemp("", "noteflow-tts-*")
	if err != nil {
		return "", fmt.Errorf("create tts workdir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	parts := make([]string, 0, len(turns))
	for i, turn := range turns {
		out := filepath.Join(tmpDir, fmt.Sprintf("turn_%d.wav", i))
		if err := e.renderTurn(ctx, turn.Text, lang, i%2, out); err != nil {
			return "", fmt.Errorf("render turn %d: %w", i, err)
		}
		parts = append(parts, out)
	}

	if err := util.EnsureDir(e.outDir); err != nil {
		return "", fmt.Errorf("ensure audio dir: %w", err)
	}
	outPath := util.SafeJoin(e.outDir, noteID+".wav")
	if err := joinWAVs(parts, outPath); err != nil {
		return "", fmt.Errorf("join turn audio: %w", err)
	}
	e.log.Info("podcast audio written",
		zap.String("note_id", noteID),
		zap.Int("turns", len(turns)),
		zap.String("path", outPath))
	return outPath, nil
}

func (e *ExecEngine) renderTurn(ctx context.Context, text, lang string, voiceIdx int, outputWAV string) error {
	voice, dict := voiceFor(lang, voiceIdx)
	cmd := exec.CommandContext(ctx,
		filepath.Join(e.ttsPath, "tts"),
		"-Lang="+lang,
		"-Method=Vits",
		"-voice_path="+filepath.Join(e.ttsPath, voice),
		"-HDic="+filepath.Join(e.ttsPath, dict),
		outputWAV,
	)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("tts failed: %w: %s", err, string(out))
	}
	return nil
}

// Alternating voices for Basque; Spanish ships a single voice.
func voiceFor(lang string, voiceIdx int) (voice, dict string) {
	if lang == "eu" {
		if voiceIdx == 0 {
			return "marina_eu", "eu_dicc"
		}
		return "alex_eu", "eu_dicc"
	}
	return "laura_es", "es_dicc"
}

// joinWAVs concatenates the sample data of the input files, reusing the
// format chunk of the first one. All inputs must share one format.
func joinWAVs(paths []string, outPath string) error {
	var fmtChunk []byte
	var data []byte
	for i, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		f, d, err := parseWAV(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		if i == 0 {
			fmtChunk = f
		}
		data = append(data, d...)
	}

	out := make([]byte, 0, 12+8+len(fmtChunk)+8+len(data))
	riffSize := 4 + 8 + len(fmtChunk) + 8 + len(data)
	out = append(out, []byte("RIFF")...)
	out = binary.LittleEndian.AppendUint32(out, uint32(riffSize))
	out = append(out, []byte("WAVE")...)
	out = append(out, []byte("fmt ")...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(fmtChunk)))
	out = append(out, fmtChunk...)
	out = append(out, []byte("data")...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(data)))
	out = append(out, data...)
	return os.WriteFile(outPath, out, 0o644)
}

func parseWAV(raw []byte) (fmtChunk, data []byte, err error) {
	if len(raw) < 12 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return nil, nil, fmt.Errorf("not a RIFF WAVE file")
	}
	pos := 12
	for pos+8 <= len(raw) {
		id := string(raw[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(raw[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(raw) {
			size = len(raw) - body
		}
		switch id {
		case "fmt ":
			fmtChunk = raw[body : body+size]
		case "data":
			data = raw[body : body+size]
		}
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}
	if fmtChunk == nil || data == nil {
		return nil, nil, fmt.Errorf("missing fmt or data chunk")
	}
	return fmtChunk, data, nil
}
