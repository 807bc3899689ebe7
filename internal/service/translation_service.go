package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/readmate/readmate/internal/ai"
	"github.com/readmate/readmate/internal/model"
	apperr "github.com/readmate/readmate/internal/pkg/errors"
	"github.com/readmate/readmate/internal/pkg/retry"
)

var languageNames = map[string]string{
	"en": "English",
	"ur": "Urdu",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"zh": "Chinese",
	"ja": "Japanese",
	"ar": "Arabic",
	"hi": "Hindi",
}

// TranslationService produces translated chapter variants through the
// generation model. Results are cached by the caller in the chapters
// table, so each (chapter, language) pair is translated at most once.
type TranslationService struct {
	gen     ai.IGenerator
	timeout time.Duration
}

func NewTranslationService(gen ai.IGenerator, timeout time.Duration) *TranslationService {
	return &TranslationService{gen: gen, timeout: timeout}
}

func (s *TranslationService) TranslateChapter(ctx context.Context, base *model.Chapter, language string) (*model.Chapter, error) {
	name, ok := languageNames[language]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s, %w", language, apperr.ErrInvalid)
	}
	content, err := s.translate(ctx, base.Content, name)
	if err != nil {
		return nil, err
	}
	translated := *base
	translated.Language = language
	translated.Content = content
	translated.Mtime = time.Now().Unix()
	if title := firstHeading(content); title != "" {
		translated.Title = title
	}
	return &translated, nil
}

func (s *TranslationService) translate(ctx context.Context, content, languageName string) (string, error) {
	prompt := buildTranslationPrompt(content, languageName)
	var out string
	err := retry.Do(ctx, retry.DefaultAttempts, func(ctx context.Context) error {
		tctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		text, err := s.gen.Generate(tctx, prompt)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return fmt.Errorf("translation timed out, %w", apperr.ErrGenerationTimeout)
			}
			return fmt.Errorf("translation failed, %w", apperr.ErrGenerationUnavailable)
		}
		out = strings.TrimSpace(text)
		return nil
	})
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("empty translation, %w", apperr.ErrGenerationUnavailable)
	}
	return out, nil
}

func buildTranslationPrompt(content, languageName string) string {
	var sb strings.Builder
	sb.WriteString("Translate the following markdown textbook chapter into ")
	sb.WriteString(languageName)
	sb.WriteString(".\n")
	sb.WriteString("Preserve all markdown structure: headings, lists, code blocks and links.\n")
	sb.WriteString("Do not translate code inside code blocks. Output only the translated markdown.\n\n")
	sb.WriteString(content)
	return sb.String()
}
