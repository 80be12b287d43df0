// Package audit implements the Audit Row Log (ARL): an append-only JSONL
// trail of every gate verdict, HITL resolution, and dispatch, plus a SQLite
// archive for querying aggregates after the fact. Notes are redacted before
// they touch disk; a row that never existed cannot leak.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"warden/internal/decision"
	"warden/internal/redact"
)

// Row is the ARL record schema. One row per decision event, identical across
// the JSONL trail and the SQLite archive.
type Row struct {
	RunID        string            `json:"run_id"`
	TaskID       string            `json:"task_id"`
	Seq          int               `json:"seq"` // Monotonic within a run
	Timestamp    int64             `json:"ts"`  // Unix milliseconds
	Layer        decision.Layer    `json:"layer"`
	Decision     decision.Decision `json:"decision"`
	ReasonCode   string            `json:"reason_code"`
	Sealed       bool              `json:"sealed"`
	Overrideable bool              `json:"overrideable"`
	FinalDecider decision.Decider  `json:"final_decider"`
	Note         string            `json:"note,omitempty"`
}

// Log is an append-only JSONL writer. Rows are sequenced per run under a
// single mutex; there is no update or delete path.
type Log struct {
	mu   sync.Mutex
	file *os.File
	path string
	seq  map[string]int // Next seq per run ID
}

// Open creates or appends to the JSONL trail at path. A fresh file gets a
// comment header; readers skip comment lines.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	info, statErr := os.Stat(path)
	fresh := statErr != nil || info.Size() == 0

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	if fresh {
		header := fmt.Sprintf("# ARL started at %s\n", time.Now().Format(time.RFC3339))
		if _, err := file.WriteString(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write audit header: %w", err)
		}
	}

	return &Log{
		file: file,
		path: path,
		seq:  make(map[string]int),
	}, nil
}

// Path returns the trail's file path.
func (l *Log) Path() string { return l.path }

// Append writes one row. The sequence number is assigned here and the note is
// redacted here; callers cannot pre-assign either. The written row is
// returned.
func (l *Log) Append(row Row) (Row, error) {
	if row.RunID == "" {
		return Row{}, fmt.Errorf("audit row requires a run ID")
	}
	if !row.Layer.Valid() {
		return Row{}, fmt.Errorf("audit row has unknown layer %q", row.Layer)
	}
	if !row.Decision.Valid() {
		return Row{}, fmt.Errorf("audit row has unknown decision %q", row.Decision)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq[row.RunID]++
	row.Seq = l.seq[row.RunID]
	if row.Timestamp == 0 {
		row.Timestamp = time.Now().UnixMilli()
	}
	row.Note = redact.Emails(row.Note)

	data, err := json.Marshal(row)
	if err != nil {
		return Row{}, fmt.Errorf("failed to encode audit row: %w", err)
	}
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return Row{}, fmt.Errorf("failed to append audit row: %w", err)
	}
	return row, nil
}

// AppendVerdict writes the row for a gate verdict.
func (l *Log) AppendVerdict(runID, taskID string, v decision.Verdict, note string) (Row, error) {
	return l.Append(Row{
		RunID:        runID,
		TaskID:       taskID,
		Layer:        v.Layer,
		Decision:     v.Decision,
		ReasonCode:   v.ReasonCode,
		Sealed:       v.Sealed,
		Overrideable: v.Overrideable,
		FinalDecider: v.FinalDecider,
		Note:         note,
	})
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// ReadRows loads every row from a JSONL trail, skipping comment and blank
// lines. A malformed line is an error; the trail is append-only and should
// never contain one.
func ReadRows(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	var rows []Row
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var row Row
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("malformed audit row at line %d: %w", lineNo, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return rows, nil
}
