package service

import (
	"strings"

	"github.com/readmate/readmate/internal/model"
)

const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Markdown markers authors use to tag optional blocks. An advanced note is
// a blockquote starting with "> Advanced:"; a worked example starts with
// "> Example:". Both run until the blockquote ends.
const (
	advancedMarker = "> Advanced:"
	exampleMarker  = "> Example:"
)

// PersonalizationService rewrites chapter markdown according to reader
// preferences. Transformations are purely structural, no model calls.
type PersonalizationService struct{}

func NewPersonalizationService() *PersonalizationService {
	return &PersonalizationService{}
}

func (s *PersonalizationService) Apply(content string, prefs model.Preferences) string {
	if prefs.Difficulty == DifficultyBeginner || prefs.Difficulty == "" {
		content = stripBlockquotes(content, advancedMarker)
	}
	if !prefs.ShowExamples {
		content = stripBlockquotes(content, exampleMarker)
	}
	return content
}

// stripBlockquotes removes every blockquote whose first line starts with
// marker, along with the quote lines that follow it.
func stripBlockquotes(content, marker string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	skipping := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if skipping {
			if strings.HasPrefix(trimmed, ">") {
				continue
			}
			skipping = false
			if trimmed == "" && len(out) > 0 && out[len(out)-1] == "" {
				continue
			}
		}
		if strings.HasPrefix(trimmed, marker) {
			skipping = true
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
