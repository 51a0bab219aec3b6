package setup

import (
	"fmt"

	"github.com/The127/ioc"

	"github.com/bmakarand2009/studiomedia/internal/config"
	"github.com/bmakarand2009/studiomedia/internal/journal"
	"github.com/bmakarand2009/studiomedia/internal/journal/postgres"
)

// Journal constructs the journal store eagerly and returns it so the
// caller can run migrations before the server starts serving.
func Journal(dc *ioc.DependencyCollection, journalConfig config.JournalConfig) journal.Store {
	var store journal.Store
	var err error

	switch journalConfig.Mode {
	case config.JournalModeInMemory:
		store, err = journal.NewMemoryStore()

	case config.JournalModePostgres:
		store, err = postgres.NewStore(journalConfig)

	default:
		panic(fmt.Errorf("unsupported journal mode: %s", journalConfig.Mode))
	}

	if err != nil {
		panic(fmt.Errorf("failed to create journal store: %w", err))
	}

	ioc.RegisterSingleton(dc, func(_ *ioc.DependencyProvider) journal.Store {
		return store
	})

	return store
}
