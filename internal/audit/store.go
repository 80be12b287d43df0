package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"warden/internal/decision"
)

// Store archives ARL rows in SQLite for querying. The JSONL trail stays the
// source of truth; the archive exists so reports and the CLI can aggregate
// without re-scanning files.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewStore creates or opens the audit archive at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_rows (
		run_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		ts INTEGER NOT NULL,
		layer TEXT NOT NULL,
		decision TEXT NOT NULL,
		reason_code TEXT NOT NULL,
		sealed INTEGER NOT NULL DEFAULT 0,
		overrideable INTEGER NOT NULL DEFAULT 0,
		final_decider TEXT NOT NULL,
		note TEXT,
		PRIMARY KEY (run_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_audit_decision ON audit_rows(decision);
	CREATE INDEX IF NOT EXISTS idx_audit_layer ON audit_rows(layer);
	CREATE INDEX IF NOT EXISTS idx_audit_sealed ON audit_rows(sealed);
	CREATE INDEX IF NOT EXISTS idx_audit_task ON audit_rows(task_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// InsertRow archives one row. Rows arrive already sequenced and redacted by
// the JSONL writer.
func (s *Store) InsertRow(row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO audit_rows (run_id, task_id, seq, ts, layer, decision,
			reason_code, sealed, overrideable, final_decider, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.RunID, row.TaskID, row.Seq, row.Timestamp, row.Layer, row.Decision,
		row.ReasonCode, row.Sealed, row.Overrideable, row.FinalDecider, row.Note)

	if err != nil {
		return fmt.Errorf("failed to archive audit row: %w", err)
	}
	return nil
}

// CountsByDecision returns the number of rows per decision value.
func (s *Store) CountsByDecision() (map[decision.Decision]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT decision, COUNT(*) FROM audit_rows GROUP BY decision`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[decision.Decision]int)
	for rows.Next() {
		var d decision.Decision
		var n int
		if err := rows.Scan(&d, &n); err != nil {
			return nil, err
		}
		counts[d] = n
	}
	return counts, rows.Err()
}

// LayerCount is one row of the per-layer decision breakdown.
type LayerCount struct {
	Layer    decision.Layer
	Decision decision.Decision
	Count    int
}

// CountsByLayer returns the decision breakdown per layer, ordered by layer
// then decision.
func (s *Store) CountsByLayer() ([]LayerCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT layer, decision, COUNT(*) FROM audit_rows
		GROUP BY layer, decision
		ORDER BY layer, decision
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []LayerCount
	for rows.Next() {
		var lc LayerCount
		if err := rows.Scan(&lc.Layer, &lc.Decision, &lc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, lc)
	}
	return counts, rows.Err()
}

// SealedRows returns archived sealed stops, newest first.
func (s *Store) SealedRows(limit int) ([]Row, error) {
	return s.queryRows(`
		SELECT run_id, task_id, seq, ts, layer, decision, reason_code,
			sealed, overrideable, final_decider, note
		FROM audit_rows
		WHERE sealed = 1
		ORDER BY ts DESC
		LIMIT ?
	`, limit)
}

// RecentRows returns the newest archived rows.
func (s *Store) RecentRows(limit int) ([]Row, error) {
	return s.queryRows(`
		SELECT run_id, task_id, seq, ts, layer, decision, reason_code,
			sealed, overrideable, final_decider, note
		FROM audit_rows
		ORDER BY ts DESC, seq DESC
		LIMIT ?
	`, limit)
}

// RowsForRun returns a run's rows in sequence order.
func (s *Store) RowsForRun(runID string) ([]Row, error) {
	return s.queryRows(`
		SELECT run_id, task_id, seq, ts, layer, decision, reason_code,
			sealed, overrideable, final_decider, note
		FROM audit_rows
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
}

func (s *Store) queryRows(query string, args ...interface{}) ([]Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var r Row
		var note sql.NullString
		if err := rows.Scan(&r.RunID, &r.TaskID, &r.Seq, &r.Timestamp, &r.Layer,
			&r.Decision, &r.ReasonCode, &r.Sealed, &r.Overrideable,
			&r.FinalDecider, &note); err != nil {
			return nil, err
		}
		r.Note = note.String
		result = append(result, r)
	}
	return result, rows.Err()
}
