package queries

import (
	"context"
	"fmt"

	"github.com/The127/ioc"

	"github.com/bmakarand2009/studiomedia/internal/journal"
	"github.com/bmakarand2009/studiomedia/internal/middlewares"
)

type ListJournal struct{}

type ListJournalResponse struct {
	Items []journal.Entry
}

func HandleListJournal(ctx context.Context, _ ListJournal) (*ListJournalResponse, error) {
	scope := middlewares.GetScope(ctx)

	journalStore := ioc.GetDependency[journal.Store](scope)
	entries, err := journalStore.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}

	return &ListJournalResponse{
		Items: entries,
	}, nil
}
