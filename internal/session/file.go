// Package session persists conversation histories as JSONL files, one
// message per line, in the layout <data>/sessions/<id>.jsonl.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/kompakt-dev/kompakt/internal/core"
)

// File is one session's JSONL conversation file.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: path}
}

// Append writes one message to the end of the session file, assigning a
// message ID if the message has none.
func (sf *File) Append(msg core.Message) error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	if msg.ID == "" {
		msg.ID = core.NewMessageID()
	}

	file, err := os.OpenFile(sf.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open session file: %w", err)
	}
	defer file.Close()

	return json.NewEncoder(file).Encode(msg)
}

// LoadAll reads every message in order. Malformed lines are skipped with
// a warning rather than failing the load.
func (sf *File) LoadAll() ([]core.Message, error) {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	file, err := os.Open(sf.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer file.Close()

	var messages []core.Message
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg core.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			slog.Warn("skipping malformed session line", "path", sf.path, "error", err)
			continue
		}

		messages = append(messages, msg)
	}

	return core.EnsureIDs(messages), scanner.Err()
}

// LoadTail reads the newest messages whose counted tokens fit the budget,
// returned in original order. At least one message is returned when the
// file is non-empty, even if it alone exceeds the budget.
func (sf *File) LoadTail(tokenBudget int, count func(string) int) ([]core.Message, error) {
	all, err := sf.LoadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}

	tokensUsed := 0
	start := len(all)

	for i := len(all) - 1; i >= 0; i-- {
		cost := all[i].Tokens
		if cost == 0 && count != nil {
			cost = count(all[i].CombinedText())
		}

		if tokensUsed+cost > tokenBudget && start < len(all) {
			break
		}

		start = i
		tokensUsed += cost
	}

	return all[start:], nil
}

// Service creates and resolves session files under a base directory.
type Service struct {
	BaseDir string
}

func (service *Service) sessionDir() string {
	return filepath.Join(service.BaseDir, "sessions")
}

// Path returns the file path for a session ID.
func (service *Service) Path(id core.SessionID) string {
	return filepath.Join(service.sessionDir(), string(id)+".jsonl")
}

// Create generates a new session ID and creates its backing file.
func (service *Service) Create() (core.SessionID, *File, error) {
	sessionID := core.NewSessionID()

	if err := os.MkdirAll(service.sessionDir(), 0o755); err != nil {
		return "", nil, fmt.Errorf("create sessions directory: %w", err)
	}

	path := service.Path(sessionID)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", nil, fmt.Errorf("create session file: %w", err)
	}
	file.Close()

	return sessionID, NewFile(path), nil
}

// Open returns the session file for an existing session, creating the
// backing file if needed.
func (service *Service) Open(sessionID core.SessionID) (*File, error) {
	if err := os.MkdirAll(service.sessionDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create sessions directory: %w", err)
	}

	path := service.Path(sessionID)
	file, err := os.OpenFile(path, os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ensure session file: %w", err)
	}
	file.Close()

	return NewFile(path), nil
}
