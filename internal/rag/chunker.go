package rag

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"github.com/readmate/readmate/internal/model"
	apperr "github.com/readmate/readmate/internal/pkg/errors"
)

// Chunker splits chapter text into overlapping windows of whitespace
// delimited tokens. Chunk ids are content addressed (doc id + start offset
// + text), so a span untouched by an edit keeps its id across reindexing
// and never needs re-embedding.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk size %d, overlap %d", apperr.ErrInvalid, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

type token struct {
	start int
	end   int
}

func (c *Chunker) Chunk(docID, text string) ([]model.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty source text", apperr.ErrInvalid)
	}
	tokens := tokenize(text)
	headings := headingOffsets(text)

	step := c.size - c.overlap
	var chunks []model.Chunk
	for start := 0; start < len(tokens); start += step {
		end := start + c.size
		last := false
		if end >= len(tokens) {
			end = len(tokens)
			last = true
		}
		// The last window starts with c.overlap tokens the previous chunk
		// already covers; when it brings fewer than overlap new tokens the
		// remainder is too small for a window of its own, so fold it into
		// the previous chunk.
		if last && len(chunks) > 0 && end-start-c.overlap < c.overlap {
			prev := &chunks[len(chunks)-1]
			prev.EndOffset = tokens[end-1].end
			prev.Text = text[prev.StartOffset:prev.EndOffset]
			prev.ID = chunkID(docID, prev.StartOffset, prev.Text)
			break
		}
		startOff := tokens[start].start
		endOff := tokens[end-1].end
		body := text[startOff:endOff]
		chunks = append(chunks, model.Chunk{
			ID:            chunkID(docID, startOff, body),
			SourceDocID:   docID,
			Text:          body,
			StartOffset:   startOff,
			EndOffset:     endOff,
			SequenceIndex: len(chunks),
			Section:       sectionFor(headings, startOff),
		})
		if last {
			break
		}
	}
	return chunks, nil
}

func chunkID(docID string, startOffset int, text string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", docID, startOffset, text)))
	return hex.EncodeToString(sum[:16])
}

func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, token{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{start: start, end: len(text)})
	}
	return tokens
}

type heading struct {
	offset int
	title  string
}

// headingOffsets walks the markdown AST and records where each heading
// starts, so chunks can carry the section they fall under.
func headingOffsets(text string) []heading {
	source := []byte(text)
	md := goldmark.New()
	doc := md.Parser().Parse(gtext.NewReader(source))
	var headings []heading
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		h, ok := node.(*gast.Heading)
		if !ok {
			continue
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			continue
		}
		// Lines() starts after the "#" markers; anchor at the marker so a
		// chunk beginning on the heading line picks up its own section.
		offset := lines.At(0).Start - h.Level - 1
		if offset < 0 {
			offset = 0
		}
		headings = append(headings, heading{
			offset: offset,
			title:  string(h.Text(source)),
		})
	}
	sort.Slice(headings, func(i, j int) bool { return headings[i].offset < headings[j].offset })
	return headings
}

func sectionFor(headings []heading, offset int) string {
	section := ""
	for _, h := range headings {
		if h.offset > offset {
			break
		}
		section = h.title
	}
	return section
}
