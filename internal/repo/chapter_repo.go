package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/readmate/readmate/internal/model"
	"github.com/readmate/readmate/internal/pkg/dbutil"
	appErr "github.com/readmate/readmate/internal/pkg/errors"
)

type ChapterRepo struct {
	db *sql.DB
}

func NewChapterRepo(db *sql.DB) *ChapterRepo {
	return &ChapterRepo{db: db}
}

var chapterFields = []string{"id", "title", "ord", "language", "content", "mtime"}

func (r *ChapterRepo) Save(ctx context.Context, ch *model.Chapter) error {
	const query = `
		INSERT INTO chapters (id, title, ord, language, content, mtime)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id, language) DO UPDATE SET
			title = EXCLUDED.title,
			ord = EXCLUDED.ord,
			content = EXCLUDED.content,
			mtime = EXCLUDED.mtime
	`
	_, err := r.db.ExecContext(ctx, query, ch.ID, ch.Title, ch.Order, ch.Language, ch.Content, ch.Mtime)
	return err
}

func (r *ChapterRepo) Get(ctx context.Context, id, language string) (*model.Chapter, error) {
	where := map[string]interface{}{"id": id, "language": language}
	sqlStr, args, err := builder.BuildSelect("chapters", where, chapterFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var ch model.Chapter
	if err := row.Scan(&ch.ID, &ch.Title, &ch.Order, &ch.Language, &ch.Content, &ch.Mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &ch, nil
}

func (r *ChapterRepo) List(ctx context.Context, language string, limit, offset int) ([]model.Chapter, error) {
	where := map[string]interface{}{
		"language": language,
		"_orderby": "ord asc",
		"_limit":   []uint{uint(offset), uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("chapters", where, []string{"id", "title", "ord", "language", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	chapters := make([]model.Chapter, 0)
	for rows.Next() {
		var ch model.Chapter
		if err := rows.Scan(&ch.ID, &ch.Title, &ch.Order, &ch.Language, &ch.Mtime); err != nil {
			return nil, err
		}
		chapters = append(chapters, ch)
	}
	return chapters, rows.Err()
}

func (r *ChapterRepo) Count(ctx context.Context, language string) (int, error) {
	sqlStr, args := dbutil.Finalize("SELECT COUNT(*) FROM chapters WHERE language=?", []interface{}{language})
	var total int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *ChapterRepo) Languages(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT language FROM chapters ORDER BY language")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	langs := make([]string, 0)
	for rows.Next() {
		var lang string
		if err := rows.Scan(&lang); err != nil {
			return nil, err
		}
		langs = append(langs, lang)
	}
	return langs, rows.Err()
}

func (r *ChapterRepo) Delete(ctx context.Context, id, language string) error {
	sqlStr, args := dbutil.Finalize("DELETE FROM chapters WHERE id=? AND language=?", []interface{}{id, language})
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
