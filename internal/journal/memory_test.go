package journal

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/bmakarand2009/studiomedia/internal/media"
	"github.com/bmakarand2009/studiomedia/internal/sessions"
)

type MemoryStoreTestSuite struct {
	suite.Suite
	store Store
}

func TestMemoryStoreTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(MemoryStoreTestSuite))
}

func (s *MemoryStoreTestSuite) SetupTest() {
	store, err := NewMemoryStore()
	s.Require().NoError(err)
	s.store = store
}

func (s *MemoryStoreTestSuite) TestAppendAndList() {
	// arrange
	entry := Entry{
		Id:         uuid.New(),
		SessionId:  uuid.New(),
		Kind:       media.KindVideo,
		Filename:   "clip.mp4",
		Status:     sessions.StatusCompleted,
		AssetId:    "asset-1",
		BytesAcked: true,
		RecordedAt: time.Now(),
	}

	// act
	err := s.store.Append(context.Background(), entry)

	// assert
	s.NoError(err)
	entries, err := s.store.List(context.Background())
	s.NoError(err)
	s.Len(entries, 1)
	s.Equal(entry.Id, entries[0].Id)
	s.Equal(entry.AssetId, entries[0].AssetId)
}

func (s *MemoryStoreTestSuite) TestPartialFailureIsDistinguishable() {
	// arrange
	transferFailed := Entry{
		Id:         uuid.New(),
		SessionId:  uuid.New(),
		Kind:       media.KindFile,
		Filename:   "a.pdf",
		Status:     sessions.StatusFailed,
		BytesAcked: false,
		Reason:     "retries exhausted",
		RecordedAt: time.Now(),
	}
	registrationFailed := Entry{
		Id:         uuid.New(),
		SessionId:  uuid.New(),
		Kind:       media.KindFile,
		Filename:   "b.pdf",
		Status:     sessions.StatusFailed,
		BytesAcked: true,
		Reason:     "finalize returned 500",
		RecordedAt: time.Now(),
	}

	// act
	s.NoError(s.store.Append(context.Background(), transferFailed))
	s.NoError(s.store.Append(context.Background(), registrationFailed))

	// assert
	entries, err := s.store.List(context.Background())
	s.NoError(err)
	s.Len(entries, 2)

	byFile := map[string]Entry{}
	for _, entry := range entries {
		byFile[entry.Filename] = entry
	}
	s.False(byFile["a.pdf"].BytesAcked)
	s.True(byFile["b.pdf"].BytesAcked)
}
