package brain

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"factoryops.app/assistant/common/logger"
)

type SanitizerMode string

const (
	// SanitizerModeLog records matches and lets the text through.
	SanitizerModeLog SanitizerMode = "log"
	// SanitizerModeBlock rejects text containing any known pattern.
	SanitizerModeBlock SanitizerMode = "block"
)

func ParseSanitizerMode(v string) (SanitizerMode, error) {
	switch SanitizerMode(strings.ToLower(strings.TrimSpace(v))) {
	case "", SanitizerModeLog:
		return SanitizerModeLog, nil
	case SanitizerModeBlock:
		return SanitizerModeBlock, nil
	}
	return "", fmt.Errorf("unknown sanitizer mode %q", v)
}

// injectionPatterns are matched case-insensitively as substrings. Matching is
// textual only; paraphrased or encoded injections pass.
var injectionPatterns = []string{
	"ignore previous instructions",
	"ignore all previous",
	"disregard previous",
	"forget previous",
	"system:",
	"assistant:",
	"[system]",
	"[inst]",
	"</s>",
	"<|im_start|>",
	"<|im_end|>",
}

var excessNewlines = regexp.MustCompile(`\n{4,}`)

type SanitizeResult struct {
	Text     string
	Matches  []string
	Rejected bool
}

type Sanitizer struct {
	mode SanitizerMode
}

func NewSanitizer(mode SanitizerMode) *Sanitizer {
	if mode == "" {
		mode = SanitizerModeLog
	}
	return &Sanitizer{mode: mode}
}

func (s *Sanitizer) Mode() SanitizerMode {
	return s.mode
}

// Sanitize trims the text, drops NUL bytes, and caps runs of blank lines at
// three newlines in every mode. Pattern matches only affect the outcome in
// block mode.
func (s *Sanitizer) Sanitize(ctx context.Context, raw string) SanitizeResult {
	text := strings.TrimSpace(raw)
	text = strings.ReplaceAll(text, "\x00", "")
	text = excessNewlines.ReplaceAllString(text, "\n\n\n")

	matches := DetectInjection(text)
	for _, p := range matches {
		slog.WarnContext(ctx, "possible prompt injection in user input",
			"pattern", p,
			"mode", string(s.mode),
			"preview", logger.Truncate(text, 100))
	}

	return SanitizeResult{
		Text:     text,
		Matches:  matches,
		Rejected: s.mode == SanitizerModeBlock && len(matches) > 0,
	}
}

// DetectInjection returns every known pattern present in text.
func DetectInjection(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, p := range injectionPatterns {
		if strings.Contains(lower, p) {
			found = append(found, p)
		}
	}
	return found
}
