package notes

import (
	"encoding/json"
	"fmt"
	"strings"

	"noteflow/internal/audio"
)

// ParseScript decodes a podcast script produced by the model. Models
// do not reliably emit a clean JSON array, so three forms are
// accepted: a JSON array of turns, one JSON object per line, and plain
// prose, which becomes a single turn for speaker 1.
func ParseScript(script string) ([]audio.Turn, error) {
	script = strings.TrimSpace(script)
	if script == "" {
		return nil, fmt.Errorf("empty script")
	}
	if !strings.Contains(script, `"speaker"`) {
		return mergeTurns([]audio.Turn{{Speaker: "1", Text: script}}), nil
	}

	var turns []audio.Turn
	if err := json.Unmarshal([]byte(script), &turns); err == nil {
		return mergeTurns(turns), nil
	}

	// Line-delimited objects, possibly with trailing commas or array
	// brackets left over from a truncated response.
	for _, line := range strings.Split(script, "\n") {
		line = strings.Trim(strings.TrimSpace(line), ",")
		if line == "" || line == "[" || line == "]" {
			continue
		}
		var t audio.Turn
		if err := json.Unmarshal([]byte(line), &t); err != nil {
			continue
		}
		if t.Text != "" {
			turns = append(turns, t)
		}
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("unparseable script")
	}
	return mergeTurns(turns), nil
}

// mergeTurns joins consecutive turns of the same speaker so each entry
// is one voice change.
func mergeTurns(turns []audio.Turn) []audio.Turn {
	out := make([]audio.Turn, 0, len(turns))
	for _, t := range turns {
		if t.Speaker == "" {
			t.Speaker = "1"
		}
		if n := len(out); n > 0 && out[n-1].Speaker == t.Speaker {
			out[n-1].Text += " " + t.Text
			continue
		}
		out = append(out, t)
	}
	return out
}
