package custom

import (
	"strings"
	"testing"
)

func TestForSummaryValid(t *testing.T) {
	c, err := ForSummary("high", "academic", "medium", "low")
	if err != nil {
		t.Fatalf("for summary: %v", err)
	}
	if got := c.Value("style"); got != "academic" {
		t.Fatalf("style: got %q", got)
	}
	if got := c.Value("podcast_type"); got != "" {
		t.Fatalf("summary should not carry podcast_type, got %q", got)
	}
	block := c.PromptBlock()
	if !strings.HasPrefix(block, "Customization parameters:") {
		t.Fatalf("unexpected block prefix: %q", block)
	}
	if !strings.Contains(block, "- Formality level: high") {
		t.Fatalf("missing formality line: %q", block)
	}
	if !strings.Contains(block, "- Language complexity: low") {
		t.Fatalf("missing complexity line: %q", block)
	}
}

func TestForSummaryInvalidEnum(t *testing.T) {
	if _, err := ForSummary("extreme", "academic", "medium", "low"); err == nil {
		t.Fatalf("expected error for invalid formality")
	}
	if _, err := ForSummary("high", "casual", "medium", "low"); err == nil {
		t.Fatalf("expected error for invalid style")
	}
}

func TestForPodcastRequiresType(t *testing.T) {
	c, err := ForPodcast("low", "non-technical", "high", "medium", "narrative")
	if err != nil {
		t.Fatalf("for podcast: %v", err)
	}
	if got := c.Value("podcast_type"); got != "narrative" {
		t.Fatalf("podcast_type: got %q", got)
	}
	if _, err := ForPodcast("low", "non-technical", "high", "medium", "interview"); err == nil {
		t.Fatalf("expected error for invalid podcast type")
	}
}

func TestForOutlineSingleParam(t *testing.T) {
	c, err := ForOutline("medium")
	if err != nil {
		t.Fatalf("for outline: %v", err)
	}
	params := c.Params()
	if len(params) != 1 || params[0].Name != "detail" {
		t.Fatalf("unexpected params: %+v", params)
	}
}

func TestEmptyConfigPromptBlock(t *testing.T) {
	var c Config
	if c.PromptBlock() != "" {
		t.Fatalf("empty config should render empty block")
	}
}
