// Package oplog records the outcome of optimization passes as JSONL, for
// offline inspection of budget decisions.
package oplog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kompakt-dev/kompakt/internal/core"
	"github.com/kompakt-dev/kompakt/internal/optimizer"
)

// Record is one optimization pass in the log.
type Record struct {
	Timestamp time.Time        `json:"ts"`
	SessionID core.SessionID   `json:"session_id"`
	Turn      int              `json:"turn"`
	Report    optimizer.Report `json:"report"`
}

// Writer appends records under <base>/runs/<session>/optimize.jsonl.
type Writer struct {
	baseDir string
	mu      sync.Mutex
}

func NewWriter(baseDir string) *Writer {
	return &Writer{baseDir: baseDir}
}

func (w *Writer) Write(sessionID core.SessionID, turn int, report optimizer.Report) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Join(w.baseDir, "runs", string(sessionID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}

	path := filepath.Join(dir, "optimize.jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open optimization log: %w", err)
	}
	defer file.Close()

	record := Record{
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
		Turn:      turn,
		Report:    report,
	}

	return json.NewEncoder(file).Encode(record)
}

// Read returns every record for a session, oldest first.
func (w *Writer) Read(sessionID core.SessionID) ([]Record, error) {
	path := filepath.Join(w.baseDir, "runs", string(sessionID), "optimize.jsonl")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read optimization log: %w", err)
	}

	var records []Record
	decoder := json.NewDecoder(bytes.NewReader(data))
	for decoder.More() {
		var record Record
		if err := decoder.Decode(&record); err != nil {
			break
		}
		records = append(records, record)
	}

	return records, nil
}
