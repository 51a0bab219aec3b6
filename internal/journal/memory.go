package journal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
)

type memoryStore struct {
	memDb *memdb.MemDB
}

func NewMemoryStore() (Store, error) {
	memDb, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}

	return &memoryStore{
		memDb: memDb,
	}, nil
}

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		"journal": {
			Name: "journal",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:   "id",
					Unique: true,
					Indexer: &uuidValueIndexer{
						getter: func(entry *Entry) uuid.UUID { return entry.Id },
					},
				},
				"session": {
					Name:   "session",
					Unique: false,
					Indexer: &uuidValueIndexer{
						getter: func(entry *Entry) uuid.UUID { return entry.SessionId },
					},
				},
			},
		},
	},
}

type uuidValueIndexer struct {
	getter func(entry *Entry) uuid.UUID
}

func (u *uuidValueIndexer) FromObject(obj interface{}) (bool, []byte, error) {
	entry, ok := obj.(*Entry)
	if !ok {
		return false, nil, fmt.Errorf("object is not a journal entry")
	}

	val := u.getter(entry)
	if val == uuid.Nil {
		return false, nil, nil
	}

	buf, err := val.MarshalBinary()
	return true, buf, err
}

func (u *uuidValueIndexer) FromArgs(args ...interface{}) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("uuidValueIndexer takes exactly one argument")
	}

	id, ok := args[0].(uuid.UUID)
	if !ok {
		return nil, fmt.Errorf("argument is not uuid.UUID")
	}

	return id.MarshalBinary()
}

func (m *memoryStore) Migrate() error {
	return nil
}

func (m *memoryStore) Append(ctx context.Context, entry Entry) error {
	txn := m.memDb.Txn(true)
	err := txn.Insert("journal", &entry)
	if err != nil {
		txn.Abort()
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}

	txn.Commit()
	return nil
}

func (m *memoryStore) List(ctx context.Context) ([]Entry, error) {
	txn := m.memDb.Txn(false)
	defer txn.Abort()

	iterator, err := txn.Get("journal", "id")
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}

	var entries []Entry
	for raw := iterator.Next(); raw != nil; raw = iterator.Next() {
		entries = append(entries, *raw.(*Entry))
	}

	return entries, nil
}
