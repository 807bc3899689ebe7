package rag

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/readmate/readmate/internal/ai"
	"github.com/readmate/readmate/internal/model"
	apperr "github.com/readmate/readmate/internal/pkg/errors"
	"github.com/readmate/readmate/internal/pkg/logutil"
	"github.com/readmate/readmate/internal/vectorstore"
)

// RefusalAnswer is the fixed response for questions the textbook cannot
// answer. It is a successful outcome, not a failure.
const RefusalAnswer = "I cannot answer this question based on the textbook content."

var citationMarker = regexp.MustCompile(`\[S(\d+)\]`)

type Composer struct {
	gen     ai.IGenerator
	timeout time.Duration
}

func NewComposer(gen ai.IGenerator, timeout time.Duration) *Composer {
	return &Composer{gen: gen, timeout: timeout}
}

// Compose turns grounded evidence into a cited answer. An ungrounded
// context short-circuits to the refusal record without touching the
// generator at all.
func (c *Composer) Compose(ctx context.Context, question string, gc *GroundedContext) (*model.AnswerRecord, error) {
	now := time.Now().Unix()
	if !gc.IsGrounded {
		return &model.AnswerRecord{
			ID:         newAnswerID(),
			Question:   question,
			Answer:     RefusalAnswer,
			Grounded:   false,
			Citations:  []model.Citation{},
			Confidence: 0,
			Ctime:      now,
		}, nil
	}

	prompt := buildPrompt(question, gc)
	genCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	raw, err := c.gen.Generate(genCtx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", apperr.ErrGenerationTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", apperr.ErrGenerationUnavailable, err)
	}
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return nil, fmt.Errorf("%w: empty completion", apperr.ErrGenerationUnavailable)
	}

	citations := mapCitations(answer, gc)
	if len(citations) == 0 {
		// Evidence existed but the model cited nothing; attach the full
		// evidence set rather than returning an ungrounded-looking answer.
		logutil.GetLogger(ctx).Debug("no citation markers in answer, citing full evidence set")
		citations = allCitations(gc)
	}
	return &model.AnswerRecord{
		ID:         newAnswerID(),
		Question:   question,
		Answer:     answer,
		Grounded:   true,
		Citations:  citations,
		Confidence: clamp01(gc.TopScore),
		Ctime:      now,
	}, nil
}

// Fragment is one piece of a streamed answer. Exactly one fragment per
// stream carries the final record, always last.
type Fragment struct {
	Text  string
	Final *model.AnswerRecord
}

const streamFragmentRunes = 48

// ComposeStream yields the answer as a finite, non-restartable sequence of
// partial fragments terminated by the final AnswerRecord. Citations are
// only mapped on the fully assembled answer, never on a partial fragment.
func (c *Composer) ComposeStream(ctx context.Context, question string, gc *GroundedContext) (<-chan Fragment, error) {
	record, err := c.Compose(ctx, question, gc)
	if err != nil {
		return nil, err
	}
	out := make(chan Fragment)
	go func() {
		defer close(out)
		runes := []rune(record.Answer)
		for i := 0; i < len(runes); i += streamFragmentRunes {
			end := i + streamFragmentRunes
			if end > len(runes) {
				end = len(runes)
			}
			select {
			case out <- Fragment{Text: string(runes[i:end])}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case out <- Fragment{Final: record}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func buildPrompt(question string, gc *GroundedContext) string {
	var sb strings.Builder
	sb.WriteString(`You are a textbook study assistant.
Answer the question using ONLY the numbered source passages below.
- Cite the passages you used with their markers, e.g. [S1] or [S2].
- Do not use any knowledge outside the passages.
- If the passages do not answer the question, reply exactly: ` + RefusalAnswer + `

SOURCES:
`)
	for i, m := range gc.Chunks {
		fmt.Fprintf(&sb, "[S%d] (%s", i+1, m.Record.ChapterTitle)
		if m.Record.Section != "" {
			fmt.Fprintf(&sb, " / %s", m.Record.Section)
		}
		sb.WriteString(")\n")
		sb.WriteString(m.Record.Content)
		sb.WriteString("\n\n")
	}
	sb.WriteString("QUESTION:\n")
	sb.WriteString(question)
	return sb.String()
}

// mapCitations resolves inline [Sn] markers back to chunk ids, preserving
// first-mention order and dropping out-of-range markers.
func mapCitations(answer string, gc *GroundedContext) []model.Citation {
	seen := make(map[int]bool)
	var citations []model.Citation
	for _, match := range citationMarker.FindAllStringSubmatch(answer, -1) {
		n, err := strconv.Atoi(match[1])
		if err != nil || n < 1 || n > len(gc.Chunks) {
			continue
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		citations = append(citations, toCitation(gc.Chunks[n-1]))
	}
	return citations
}

func allCitations(gc *GroundedContext) []model.Citation {
	citations := make([]model.Citation, 0, len(gc.Chunks))
	for _, m := range gc.Chunks {
		citations = append(citations, toCitation(m))
	}
	return citations
}

func toCitation(m vectorstore.Match) model.Citation {
	return model.Citation{
		ChunkID:       m.Record.ChunkID,
		SourceDocID:   m.Record.SourceDocID,
		ChapterTitle:  m.Record.ChapterTitle,
		Section:       m.Record.Section,
		SequenceIndex: m.Record.SequenceIndex,
		Score:         m.Score,
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func newAnswerID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
