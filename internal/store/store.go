// Package store handles SQLite persistence of runs and attempts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stmobo/thstat-sub001/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// ErrAmbiguous is returned when a run id prefix matches several runs.
var ErrAmbiguous = errors.New("run id prefix is ambiguous")

// Store wraps SQLite access for run data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer keeps concurrent sessions from hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			game TEXT NOT NULL,
			shot TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			mode TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			cleared INTEGER NOT NULL,
			digest TEXT NOT NULL,
			body BLOB NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			game TEXT NOT NULL,
			shot TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			loc_index INTEGER NOT NULL,
			stage INTEGER NOT NULL,
			kind TEXT NOT NULL,
			loc_seq INTEGER NOT NULL,
			spell INTEGER NOT NULL,
			start_at TEXT NOT NULL,
			start_real_ms INTEGER NOT NULL,
			start_game_ms INTEGER NOT NULL,
			end_at TEXT NOT NULL,
			end_real_ms INTEGER NOT NULL,
			end_game_ms INTEGER NOT NULL,
			success INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS tracking_ranges (
			game TEXT PRIMARY KEY,
			low_index INTEGER NOT NULL,
			high_index INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ended_at ON runs(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_key ON attempts(game, loc_index, shot, difficulty);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun stores a finished run, its canonical body and the attempts
// recorded during it.
func (s *Store) InsertRun(ctx context.Context, run model.Run, body []byte, digest string, attempts []model.KeyedAttempt) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, game, shot, difficulty, mode, started_at, ended_at, cleared, digest, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		string(run.Game),
		string(run.Shot),
		string(run.Difficulty),
		string(run.Mode),
		formatTime(run.Start.Time.Timestamp),
		formatTime(run.End.Time.Timestamp),
		boolInt(run.Cleared),
		digest,
		body,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if len(attempts) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO attempts (run_id, seq, game, shot, difficulty, loc_index, stage, kind, loc_seq, spell,
				start_at, start_real_ms, start_game_ms, end_at, end_real_ms, end_game_ms, success)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, ka := range attempts {
			loc := ka.Key.Location
			a := ka.Attempt
			if _, err = stmt.ExecContext(ctx,
				run.ID, i, string(loc.Game), string(ka.Key.Shot), string(ka.Key.Difficulty),
				loc.Index, loc.Stage, string(loc.Kind), loc.Seq, loc.Spell,
				formatTime(a.Start.Timestamp), a.Start.RealTime.Milliseconds(), a.Start.GameTime.Milliseconds(),
				formatTime(a.End.Timestamp), a.End.RealTime.Milliseconds(), a.End.GameTime.Milliseconds(),
				boolInt(a.Success),
			); err != nil {
				return fmt.Errorf("failed to insert attempt: %w", err)
			}
		}
	}

	err = tx.Commit()
	return err
}

// ListRuns returns run summaries filtered by stats config, oldest first.
// Last is applied after filtering.
func (s *Store) ListRuns(ctx context.Context, cfg model.StatsConfig) ([]model.RunSummary, error) {
	where, args := runFilter(cfg)
	query := fmt.Sprintf(`SELECT r.id, r.game, r.shot, r.difficulty, r.mode, r.started_at, r.ended_at, r.cleared, r.digest,
			(SELECT COUNT(*) FROM attempts a WHERE a.run_id = r.id)
		FROM runs r
		WHERE %s
		ORDER BY r.ended_at ASC, r.id ASC`, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(runs) > cfg.Last {
		runs = runs[len(runs)-cfg.Last:]
	}
	return runs, nil
}

// ListAttemptsForRuns returns the attempts recorded in the given runs, in
// run then recording order.
func (s *Store) ListAttemptsForRuns(ctx context.Context, runIDs []string) ([]model.AttemptRecord, error) {
	if len(runIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(runIDs))
	args := make([]any, len(runIDs))
	for i, id := range runIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT a.run_id, r.ended_at, a.game, a.shot, a.difficulty, a.loc_index, a.stage, a.kind, a.loc_seq, a.spell,
			a.start_at, a.start_real_ms, a.start_game_ms, a.end_at, a.end_real_ms, a.end_game_ms, a.success
		FROM attempts a
		JOIN runs r ON r.id = a.run_id
		WHERE a.run_id IN (%s)
		ORDER BY r.ended_at ASC, a.run_id ASC, a.seq ASC`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []model.AttemptRecord
	for rows.Next() {
		var (
			rec                                  model.AttemptRecord
			endedAt, game, shot, diff, kind      string
			startAt, endAt                       string
			startReal, startGame, endReal, endGm int64
			success                              int
		)
		loc := &rec.Key.Location
		if err := rows.Scan(&rec.RunID, &endedAt, &game, &shot, &diff, &loc.Index, &loc.Stage, &kind, &loc.Seq, &loc.Spell,
			&startAt, &startReal, &startGame, &endAt, &endReal, &endGm, &success); err != nil {
			return nil, err
		}
		loc.Game = model.GameID(game)
		loc.Kind = model.LocationKind(kind)
		rec.Key.Shot = model.ShotType(shot)
		rec.Key.Difficulty = model.Difficulty(diff)
		if rec.EndedAt, err = parseTime(endedAt); err != nil {
			return nil, err
		}
		if rec.Attempt.Start, err = gameTime(startAt, startReal, startGame); err != nil {
			return nil, err
		}
		if rec.Attempt.End, err = gameTime(endAt, endReal, endGm); err != nil {
			return nil, err
		}
		rec.Attempt.Success = success != 0
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRun returns a run summary and its stored body. id may be a unique
// prefix of the run id.
func (s *Store) GetRun(ctx context.Context, id string) (model.RunSummary, []byte, error) {
	if id == "" {
		return model.RunSummary{}, nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.game, r.shot, r.difficulty, r.mode, r.started_at, r.ended_at, r.cleared, r.digest,
			(SELECT COUNT(*) FROM attempts a WHERE a.run_id = r.id), r.body
		FROM runs r
		WHERE r.id = ? OR substr(r.id, 1, ?) = ?
		ORDER BY r.id = ? DESC
		LIMIT 2`, id, len(id), id, id)
	if err != nil {
		return model.RunSummary{}, nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var (
		found []model.RunSummary
		body  []byte
	)
	for rows.Next() {
		var (
			run  model.RunSummary
			blob []byte
		)
		run, err = scanRun(rows, &blob)
		if err != nil {
			return model.RunSummary{}, nil, err
		}
		if len(found) == 0 {
			body = blob
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return model.RunSummary{}, nil, err
	}
	switch {
	case len(found) == 0:
		return model.RunSummary{}, nil, ErrNotFound
	case len(found) > 1 && found[0].ID != id:
		return model.RunSummary{}, nil, fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}
	return found[0], body, nil
}

// SetTrackingRange persists the tracking range of a game as catalog indices.
func (s *Store) SetTrackingRange(ctx context.Context, game model.GameID, low, high uint32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tracking_ranges (game, low_index, high_index) VALUES (?, ?, ?)
		 ON CONFLICT(game) DO UPDATE SET low_index = excluded.low_index, high_index = excluded.high_index`,
		string(game), low, high)
	return err
}

// ClearTrackingRange removes the tracking range of a game.
func (s *Store) ClearTrackingRange(ctx context.Context, game model.GameID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tracking_ranges WHERE game = ?`, string(game))
	return err
}

// IndexRange is a persisted tracking range.
type IndexRange struct {
	Low  uint32
	High uint32
}

// TrackingRanges returns all persisted tracking ranges.
func (s *Store) TrackingRanges(ctx context.Context) (map[model.GameID]IndexRange, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT game, low_index, high_index FROM tracking_ranges`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	out := map[model.GameID]IndexRange{}
	for rows.Next() {
		var (
			game string
			r    IndexRange
		)
		if err := rows.Scan(&game, &r.Low, &r.High); err != nil {
			return nil, err
		}
		out[model.GameID(game)] = r
	}
	return out, rows.Err()
}

func runFilter(cfg model.StatsConfig) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Game != "" {
		clauses = append(clauses, "r.game = ?")
		args = append(args, string(cfg.Game))
	}
	if cfg.Shot != "" {
		clauses = append(clauses, "r.shot = ?")
		args = append(args, string(cfg.Shot))
	}
	if cfg.Difficulty != "" {
		clauses = append(clauses, "r.difficulty = ?")
		args = append(args, string(cfg.Difficulty))
	}
	if cfg.Since != nil {
		clauses = append(clauses, "r.ended_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	return strings.Join(clauses, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner, extra ...any) (model.RunSummary, error) {
	var (
		run                                model.RunSummary
		game, shot, diff, mode, start, end string
		cleared                            int
	)
	dest := append([]any{&run.ID, &game, &shot, &diff, &mode, &start, &end, &cleared, &run.Digest, &run.Attempts}, extra...)
	if err := row.Scan(dest...); err != nil {
		return model.RunSummary{}, err
	}
	run.Game = model.GameID(game)
	run.Shot = model.ShotType(shot)
	run.Difficulty = model.Difficulty(diff)
	run.Mode = model.RunMode(mode)
	run.Cleared = cleared != 0
	var err error
	if run.StartedAt, err = parseTime(start); err != nil {
		return model.RunSummary{}, err
	}
	if run.EndedAt, err = parseTime(end); err != nil {
		return model.RunSummary{}, err
	}
	return run, nil
}

func gameTime(at string, realMs, gameMs int64) (model.GameTime, error) {
	ts, err := parseTime(at)
	if err != nil {
		return model.GameTime{}, err
	}
	return model.GameTime{
		Timestamp: ts,
		RealTime:  time.Duration(realMs) * time.Millisecond,
		GameTime:  time.Duration(gameMs) * time.Millisecond,
	}, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
