package journal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bmakarand2009/studiomedia/internal/media"
	"github.com/bmakarand2009/studiomedia/internal/sessions"
)

// Entry is the durable record of one finished upload session. The journal
// is what lets an operator tell a transfer failure (re-upload) from a
// registration failure (bytes exist remotely, re-register only).
type Entry struct {
	Id         uuid.UUID       `json:"id"`
	SessionId  uuid.UUID       `json:"sessionId"`
	Kind       media.Kind      `json:"kind"`
	Filename   string          `json:"filename"`
	Status     sessions.Status `json:"status"`
	AssetId    string          `json:"assetId,omitempty"`
	BytesAcked bool            `json:"bytesAcked"`
	Reason     string          `json:"reason,omitempty"`
	RecordedAt time.Time       `json:"recordedAt"`
}

type Store interface {
	Migrate() error
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context) ([]Entry, error)
}
