// Package store persists lectures, question catalogs, and test sessions.
// The SQLite store backs the server; Memory backs tests and acts as the
// reference implementation of the engine's store contracts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edforge/lectern/internal/engine"
	"github.com/edforge/lectern/internal/model"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed implementation of the engine's CatalogStore and
// SessionStore.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS lectures (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		source_type TEXT NOT NULL,
		raw_text TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS questions (
		id TEXT PRIMARY KEY,
		lecture_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		type TEXT NOT NULL,
		prompt TEXT NOT NULL,
		options_json TEXT NOT NULL DEFAULT '',
		answer TEXT NOT NULL DEFAULT '',
		explanation TEXT NOT NULL DEFAULT '',
		topic TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (lecture_id) REFERENCES lectures(id)
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		lecture_id TEXT NOT NULL,
		learner_id TEXT NOT NULL DEFAULT '',
		current_difficulty TEXT NOT NULL,
		correct_count INTEGER NOT NULL DEFAULT 0,
		total_answered INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		FOREIGN KEY (lecture_id) REFERENCES lectures(id)
	);

	CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		is_correct INTEGER NOT NULL,
		given_answer TEXT NOT NULL DEFAULT '',
		option_index INTEGER,
		difficulty TEXT NOT NULL DEFAULT '',
		time_spent_sec REAL NOT NULL DEFAULT 0,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS proctor_flags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0,
		details TEXT NOT NULL DEFAULT '',
		occurred_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// InsertLecture stores a lecture and its current catalog.
func (s *Store) InsertLecture(lec *model.Lecture) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO lectures (id, title, source_type, raw_text, summary) VALUES (?, ?, ?, ?, ?)`,
		lec.ID, lec.Title, lec.SourceType, lec.RawText, lec.Summary,
	)
	if err != nil {
		return err
	}
	if err := insertQuestions(tx, lec.ID, lec.Questions); err != nil {
		return err
	}
	return tx.Commit()
}

// SetQuestions replaces a lecture's catalog with a freshly generated one.
// The catalog is immutable afterwards; regeneration starts over.
func (s *Store) SetQuestions(lectureID string, questions []model.Question) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM questions WHERE lecture_id = ?`, lectureID); err != nil {
		return err
	}
	if err := insertQuestions(tx, lectureID, questions); err != nil {
		return err
	}
	return tx.Commit()
}

func insertQuestions(tx *sql.Tx, lectureID string, questions []model.Question) error {
	for i, q := range questions {
		var optionsJSON string
		if q.Type == model.TypeMCQ {
			data, err := json.Marshal(q.Options)
			if err != nil {
				return fmt.Errorf("marshal options for question %s: %w", q.ID, err)
			}
			optionsJSON = string(data)
		}
		_, err := tx.Exec(
			`INSERT INTO questions (id, lecture_id, position, type, prompt, options_json, answer, explanation, topic, difficulty)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.ID, lectureID, i, q.Type, q.Prompt, optionsJSON, q.Answer, q.Explanation, q.Topic, q.Difficulty,
		)
		if err != nil {
			return fmt.Errorf("insert question %s: %w", q.ID, err)
		}
	}
	return nil
}

// Lecture returns a lecture with its catalog in generation order.
func (s *Store) Lecture(id string) (*model.Lecture, error) {
	var lec model.Lecture
	err := s.db.QueryRow(
		`SELECT id, title, source_type, raw_text, summary FROM lectures WHERE id = ?`, id,
	).Scan(&lec.ID, &lec.Title, &lec.SourceType, &lec.RawText, &lec.Summary)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", engine.ErrLectureNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT id, type, prompt, options_json, answer, explanation, topic, difficulty
		 FROM questions WHERE lecture_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var q model.Question
		var optionsJSON string
		if err := rows.Scan(&q.ID, &q.Type, &q.Prompt, &optionsJSON, &q.Answer, &q.Explanation, &q.Topic, &q.Difficulty); err != nil {
			return nil, err
		}
		if optionsJSON != "" {
			if err := json.Unmarshal([]byte(optionsJSON), &q.Options); err != nil {
				return nil, fmt.Errorf("unmarshal options for question %s: %w", q.ID, err)
			}
		}
		lec.Questions = append(lec.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &lec, nil
}

// LectureSummary is the list view of a lecture.
type LectureSummary struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	SourceType    model.SourceType `json:"source_type"`
	Summary       string           `json:"summary,omitempty"`
	QuestionCount int              `json:"question_count"`
}

// ListLectures returns summaries of all lectures.
func (s *Store) ListLectures() ([]LectureSummary, error) {
	rows, err := s.db.Query(
		`SELECT l.id, l.title, l.source_type, l.summary, COUNT(q.id)
		 FROM lectures l LEFT JOIN questions q ON q.lecture_id = l.id
		 GROUP BY l.id ORDER BY l.rowid`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LectureSummary
	for rows.Next() {
		var ls LectureSummary
		if err := rows.Scan(&ls.ID, &ls.Title, &ls.SourceType, &ls.Summary, &ls.QuestionCount); err != nil {
			return nil, err
		}
		out = append(out, ls)
	}
	return out, rows.Err()
}

// Session returns a session with its answer log and proctor flags.
func (s *Store) Session(id string) (*model.Session, error) {
	var sess model.Session
	var completed sql.NullTime
	err := s.db.QueryRow(
		`SELECT id, lecture_id, learner_id, current_difficulty, correct_count, total_answered, started_at, completed_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.LectureID, &sess.LearnerID, &sess.CurrentDifficulty,
		&sess.CorrectCount, &sess.TotalAnswered, &sess.StartedAt, &completed)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", engine.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		t := completed.Time
		sess.CompletedAt = &t
	}

	if sess.Answers, err = s.sessionAnswers(id); err != nil {
		return nil, err
	}
	if sess.ProctorFlags, err = s.sessionFlags(id); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) sessionAnswers(sessionID string) ([]model.AnswerRecord, error) {
	rows, err := s.db.Query(
		`SELECT question_id, is_correct, given_answer, option_index, difficulty, time_spent_sec
		 FROM answers WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.AnswerRecord
	for rows.Next() {
		var a model.AnswerRecord
		var optIndex sql.NullInt64
		if err := rows.Scan(&a.QuestionID, &a.IsCorrect, &a.GivenAnswer, &optIndex, &a.Difficulty, &a.TimeSpentSec); err != nil {
			return nil, err
		}
		if optIndex.Valid {
			idx := int(optIndex.Int64)
			a.OptionIndex = &idx
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (s *Store) sessionFlags(sessionID string) ([]model.ProctorFlag, error) {
	rows, err := s.db.Query(
		`SELECT event_type, confidence, details, occurred_at
		 FROM proctor_flags WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var flags []model.ProctorFlag
	for rows.Next() {
		var f model.ProctorFlag
		if err := rows.Scan(&f.EventType, &f.Confidence, &f.Details, &f.OccurredAt); err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

// SaveSession upserts a session together with its answer log and proctor
// flags. Both logs are append-only in the model; rewriting them keeps the
// rows in step with the in-memory state without tracking deltas.
func (s *Store) SaveSession(sess *model.Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var completed any
	if sess.CompletedAt != nil {
		completed = *sess.CompletedAt
	}
	_, err = tx.Exec(
		`INSERT INTO sessions (id, lecture_id, learner_id, current_difficulty, correct_count, total_answered, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			current_difficulty = excluded.current_difficulty,
			correct_count = excluded.correct_count,
			total_answered = excluded.total_answered,
			completed_at = excluded.completed_at`,
		sess.ID, sess.LectureID, sess.LearnerID, sess.CurrentDifficulty,
		sess.CorrectCount, sess.TotalAnswered, sess.StartedAt, completed,
	)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM answers WHERE session_id = ?`, sess.ID); err != nil {
		return err
	}
	for _, a := range sess.Answers {
		var optIndex any
		if a.OptionIndex != nil {
			optIndex = *a.OptionIndex
		}
		_, err := tx.Exec(
			`INSERT INTO answers (session_id, question_id, is_correct, given_answer, option_index, difficulty, time_spent_sec)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, a.QuestionID, a.IsCorrect, a.GivenAnswer, optIndex, a.Difficulty, a.TimeSpentSec,
		)
		if err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`DELETE FROM proctor_flags WHERE session_id = ?`, sess.ID); err != nil {
		return err
	}
	for _, f := range sess.ProctorFlags {
		occurred := f.OccurredAt
		if occurred.IsZero() {
			occurred = time.Now()
		}
		_, err := tx.Exec(
			`INSERT INTO proctor_flags (session_id, event_type, confidence, details, occurred_at)
			 VALUES (?, ?, ?, ?, ?)`,
			sess.ID, f.EventType, f.Confidence, f.Details, occurred,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListSessions returns all sessions for a lecture, newest first, without
// their answer logs.
func (s *Store) ListSessions(lectureID string) ([]model.Session, error) {
	rows, err := s.db.Query(
		`SELECT id, lecture_id, learner_id, current_difficulty, correct_count, total_answered, started_at, completed_at
		 FROM sessions WHERE lecture_id = ? ORDER BY started_at DESC`, lectureID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		var completed sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.LectureID, &sess.LearnerID, &sess.CurrentDifficulty,
			&sess.CorrectCount, &sess.TotalAnswered, &sess.StartedAt, &completed); err != nil {
			return nil, err
		}
		if completed.Valid {
			t := completed.Time
			sess.CompletedAt = &t
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
