package sessions

import (
	"errors"

	"github.com/google/uuid"

	"github.com/bmakarand2009/studiomedia/internal/media"
)

type Status string

const (
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ProgressFailed is the progress sentinel of a failed session.
const ProgressFailed = -1

var ErrSessionTerminal = errors.New("session is in a terminal state")
var ErrProgressRegression = errors.New("progress must not decrease")

// Session is the per-file upload state record. Values handed out of the
// broadcaster are copies, mutation happens only through the broadcaster.
type Session struct {
	Id              uuid.UUID  `json:"id"`
	Kind            media.Kind `json:"kind"`
	Filename        string     `json:"filename"`
	Progress        int        `json:"progress"`
	ContentHash     string     `json:"contentHash,omitempty"`
	TransportHandle string     `json:"transportHandle,omitempty"`
	Status          Status     `json:"status"`
	Reason          string     `json:"reason,omitempty"`
}

func newSession(kind media.Kind, filename string, contentHash string) *Session {
	return &Session{
		Id:          uuid.New(),
		Kind:        kind,
		Filename:    filename,
		Progress:    0,
		ContentHash: contentHash,
		Status:      StatusUploading,
	}
}

func (s *Session) terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// advanceProgress accepts transport progress while the session is
// uploading. Values are clamped to 99: a session may only read 100
// together with StatusCompleted, which complete sets atomically.
func (s *Session) advanceProgress(progress int) error {
	if s.terminal() {
		return ErrSessionTerminal
	}

	if progress > 99 {
		progress = 99
	}

	if progress < s.Progress {
		return ErrProgressRegression
	}

	s.Progress = progress
	return nil
}

func (s *Session) complete() error {
	if s.terminal() {
		return ErrSessionTerminal
	}

	s.Progress = 100
	s.Status = StatusCompleted
	return nil
}

func (s *Session) fail(reason string) error {
	if s.terminal() {
		return ErrSessionTerminal
	}

	s.Progress = ProgressFailed
	s.Status = StatusFailed
	s.Reason = reason
	return nil
}
