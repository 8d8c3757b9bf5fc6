package core

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

type SessionID string

type RunID string

type ToolCallID string

// MessageID is the stable opaque identity of a message within a
// conversation. Filtering and assembly track messages by ID, never by
// content equality, so duplicate-content messages stay distinguishable.
type MessageID string

func NewSessionID() SessionID {
	return SessionID("sess_" + timestamp() + "_" + randomSeed())
}

func NewRunID() RunID {
	return RunID("run_" + timestamp() + "_" + randomSeed())
}

func NewMessageID() MessageID {
	return MessageID("msg_" + uuid.NewString())
}

// EnsureIDs assigns a fresh MessageID to every message that does not
// already carry one. Called once at ingestion; IDs are stable afterwards.
func EnsureIDs(messages []Message) []Message {
	for i := range messages {
		if messages[i].ID == "" {
			messages[i].ID = NewMessageID()
		}
	}
	return messages
}

func timestamp() string {
	return time.Now().UTC().Format("20060102T150405.000000000")
}

func randomSeed() string {
	buffer := make([]byte, 6)
	_, _ = rand.Read(buffer)
	return hex.EncodeToString(buffer)
}
