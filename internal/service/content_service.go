package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/readmate/readmate/internal/contentstore"
	"github.com/readmate/readmate/internal/model"
	apperr "github.com/readmate/readmate/internal/pkg/errors"
	"github.com/readmate/readmate/internal/pkg/logutil"
	"github.com/readmate/readmate/internal/repo"
)

const defaultLanguage = "en"

// ContentService owns the chapter corpus: it syncs markdown sources from
// the content store into the database and the vector index, and serves
// chapters with language fallback and per-session personalization.
type ContentService struct {
	store      contentstore.Store
	chapters   *repo.ChapterRepo
	indexer    *IndexService
	translator *TranslationService
	personal   *PersonalizationService
}

func NewContentService(store contentstore.Store, chapters *repo.ChapterRepo, indexer *IndexService, translator *TranslationService, personal *PersonalizationService) *ContentService {
	return &ContentService{
		store:      store,
		chapters:   chapters,
		indexer:    indexer,
		translator: translator,
		personal:   personal,
	}
}

// Sync loads every markdown source, stores the parsed chapters, and
// reindexes base-language chapters into the retrieval corpus. Chapters
// whose content is unchanged are cheap: reindexing them is a no-op thanks
// to content-addressed chunk ids.
func (s *ContentService) Sync(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	entries, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	var synced, indexed int
	for _, entry := range entries {
		raw, err := s.store.Read(ctx, entry.Key)
		if err != nil {
			logger.Warn("failed to read chapter source", zap.String("key", entry.Key), zap.Error(err))
			continue
		}
		chapter := parseChapterFile(entry.Key, string(raw))
		chapter.Mtime = entry.Mtime
		if chapter.Mtime == 0 {
			chapter.Mtime = time.Now().Unix()
		}
		if err := s.chapters.Save(ctx, chapter); err != nil {
			logger.Error("failed to save chapter", zap.String("id", chapter.ID), zap.Error(err))
			continue
		}
		synced++
		if chapter.Language != defaultLanguage || s.indexer == nil {
			continue
		}
		if _, _, err := s.indexer.Reindex(ctx, chapter.ID, chapter.Title, chapter.Content); err != nil {
			logger.Error("failed to index chapter", zap.String("id", chapter.ID), zap.Error(err))
			continue
		}
		indexed++
	}
	logger.Info("content sync finished", zap.Int("chapters", synced), zap.Int("indexed", indexed))
	return nil
}

func (s *ContentService) List(ctx context.Context, language string, limit, offset int) ([]model.Chapter, int, error) {
	if language == "" {
		language = defaultLanguage
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	total, err := s.chapters.Count(ctx, language)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 && language != defaultLanguage {
		// No translated listing yet, fall back to the source language.
		language = defaultLanguage
		if total, err = s.chapters.Count(ctx, language); err != nil {
			return nil, 0, err
		}
	}
	items, err := s.chapters.List(ctx, language, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *ContentService) Get(ctx context.Context, id, language string, prefs *model.Preferences) (*model.Chapter, error) {
	if language == "" {
		language = defaultLanguage
	}
	chapter, err := s.chapters.Get(ctx, id, language)
	if apperr.IsNotFound(err) && language != defaultLanguage {
		chapter, err = s.translateOnDemand(ctx, id, language)
	}
	if err != nil {
		return nil, err
	}
	if prefs != nil && s.personal != nil {
		chapter.Content = s.personal.Apply(chapter.Content, *prefs)
	}
	return chapter, nil
}

func (s *ContentService) translateOnDemand(ctx context.Context, id, language string) (*model.Chapter, error) {
	base, err := s.chapters.Get(ctx, id, defaultLanguage)
	if err != nil {
		return nil, err
	}
	if s.translator == nil {
		return base, nil
	}
	translated, err := s.translator.TranslateChapter(ctx, base, language)
	if err != nil {
		logutil.GetLogger(ctx).Warn("translation failed, serving source language",
			zap.String("id", id), zap.String("language", language), zap.Error(err))
		return base, nil
	}
	if err := s.chapters.Save(ctx, translated); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache translated chapter", zap.Error(err))
	}
	return translated, nil
}

func (s *ContentService) Toc(ctx context.Context, id string) ([]model.TocEntry, error) {
	chapter, err := s.chapters.Get(ctx, id, defaultLanguage)
	if err != nil {
		return nil, err
	}
	return extractToc(chapter.Content), nil
}

func (s *ContentService) Languages(ctx context.Context) ([]string, error) {
	langs, err := s.chapters.Languages(ctx)
	if err != nil {
		return nil, err
	}
	if len(langs) == 0 {
		langs = []string{defaultLanguage}
	}
	return langs, nil
}

var (
	langSuffixRegex = regexp.MustCompile(`^(.+)\.([a-z]{2})$`)
	orderRegex      = regexp.MustCompile(`(\d+)`)
	slugRegex       = regexp.MustCompile(`[^a-z0-9]+`)
)

// parseChapterFile derives chapter identity from the file name convention
// `<id>.md` for source chapters and `<id>.<lang>.md` for translations,
// with the chapter order taken from the first number in the id.
func parseChapterFile(key, content string) *model.Chapter {
	name := strings.TrimSuffix(key, ".md")
	language := defaultLanguage
	if m := langSuffixRegex.FindStringSubmatch(name); m != nil {
		name = m[1]
		language = m[2]
	}
	order := 0
	if m := orderRegex.FindStringSubmatch(name); m != nil {
		order, _ = strconv.Atoi(m[1])
	}
	title := firstHeading(content)
	if title == "" {
		title = titleFromID(name)
	}
	return &model.Chapter{
		ID:       name,
		Title:    title,
		Order:    order,
		Language: language,
		Content:  content,
	}
}

func titleFromID(id string) string {
	words := strings.Split(id, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func firstHeading(content string) string {
	source := []byte(content)
	doc := goldmark.New().Parser().Parse(gtext.NewReader(source))
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if h, ok := node.(*gast.Heading); ok {
			return string(h.Text(source))
		}
	}
	return ""
}

func extractToc(content string) []model.TocEntry {
	source := []byte(content)
	doc := goldmark.New().Parser().Parse(gtext.NewReader(source))
	entries := make([]model.TocEntry, 0)
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		h, ok := node.(*gast.Heading)
		if !ok {
			continue
		}
		title := string(h.Text(source))
		entries = append(entries, model.TocEntry{
			SectionID: slugify(title),
			Title:     title,
			Level:     h.Level,
		})
	}
	return entries
}

func slugify(title string) string {
	slug := slugRegex.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}
