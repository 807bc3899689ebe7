package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/didi/gendry/builder"

	"github.com/readmate/readmate/internal/model"
	"github.com/readmate/readmate/internal/pkg/dbutil"
	appErr "github.com/readmate/readmate/internal/pkg/errors"
)

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	prefs, err := json.Marshal(s.Preferences)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"id":          s.ID,
		"preferences": string(prefs),
		"state":       s.State,
		"ctime":       s.Ctime,
		"last_active": s.LastActive,
	}
	sqlStr, args, err := builder.BuildInsert("sessions", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*model.Session, error) {
	sqlStr, args := dbutil.Finalize(
		"SELECT id, preferences, state, ctime, last_active FROM sessions WHERE id=?",
		[]interface{}{id},
	)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var s model.Session
	var prefs string
	if err := row.Scan(&s.ID, &prefs, &s.State, &s.Ctime, &s.LastActive); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(prefs), &s.Preferences); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepo) UpdatePreferences(ctx context.Context, id string, prefs model.Preferences) error {
	blob, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	sqlStr, args := dbutil.Finalize(
		"UPDATE sessions SET preferences=? WHERE id=?",
		[]interface{}{string(blob), id},
	)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *SessionRepo) Touch(ctx context.Context, id string, now int64) error {
	sqlStr, args := dbutil.Finalize(
		"UPDATE sessions SET last_active=? WHERE id=?",
		[]interface{}{now, id},
	)
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// DeleteInactiveBefore removes sessions idle since before cutoff together
// with their answer history.
func (r *SessionRepo) DeleteInactiveBefore(ctx context.Context, cutoff int64) (int64, error) {
	sqlStr, args := dbutil.Finalize(
		"DELETE FROM answers WHERE session_id IN (SELECT id FROM sessions WHERE last_active < ?)",
		[]interface{}{cutoff},
	)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize("DELETE FROM sessions WHERE last_active < ?", []interface{}{cutoff})
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *SessionRepo) AppendAnswer(ctx context.Context, rec *model.AnswerRecord) error {
	citations, err := json.Marshal(rec.Citations)
	if err != nil {
		return err
	}
	data := map[string]interface{}{
		"id":         rec.ID,
		"session_id": rec.SessionID,
		"question":   rec.Question,
		"answer":     rec.Answer,
		"grounded":   rec.Grounded,
		"citations":  string(citations),
		"confidence": rec.Confidence,
		"ctime":      rec.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("answers", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *SessionRepo) ListAnswers(ctx context.Context, sessionID string) ([]model.AnswerRecord, error) {
	sqlStr, args := dbutil.Finalize(
		"SELECT id, session_id, question, answer, grounded, citations, confidence, ctime FROM answers WHERE session_id=? ORDER BY ctime ASC, id ASC",
		[]interface{}{sessionID},
	)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := make([]model.AnswerRecord, 0)
	for rows.Next() {
		var rec model.AnswerRecord
		var citations string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Question, &rec.Answer, &rec.Grounded, &citations, &rec.Confidence, &rec.Ctime); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(citations), &rec.Citations); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
