package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/bmakarand2009/studiomedia/internal/config"
	"github.com/bmakarand2009/studiomedia/internal/journal"
	"github.com/bmakarand2009/studiomedia/internal/logging"
	"github.com/bmakarand2009/studiomedia/internal/utils"
)

//go:embed migrations/*
var migrations embed.FS

type store struct {
	db *sql.DB
}

func NewStore(journalConfig config.JournalConfig) (journal.Store, error) {
	pc := journalConfig.Postgres

	logging.Logger.Infof("Connecting to journal database %s via %s:%d",
		pc.Database,
		pc.Host,
		pc.Port)

	connectionString := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		pc.Host,
		pc.Port,
		pc.Database,
		pc.Username,
		pc.Password,
		pc.SslMode)

	dbConnection, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %v", err)
	}

	return &store{
		db: dbConnection,
	}, nil
}

func (s *store) Migrate() error {
	source := migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrations,
		Root:       "migrations",
	}

	logging.Logger.Infof("Applying journal migrations...")

	n, err := migrate.Exec(s.db, "postgres", source, migrate.Up)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %v", err)
	}

	logging.Logger.Infof("Applied %d migrations", n)
	return nil
}

func (s *store) Append(ctx context.Context, entry journal.Entry) error {
	builder := sqlbuilder.InsertInto("upload_journal").
		Cols("id", "session_id", "kind", "filename", "status", "asset_id", "bytes_acked", "reason", "recorded_at").
		Values(entry.Id, entry.SessionId, string(entry.Kind), entry.Filename, string(entry.Status), entry.AssetId, entry.BytesAcked, entry.Reason, entry.RecordedAt)

	query, args := builder.BuildWithFlavor(sqlbuilder.PostgreSQL)
	logging.Logger.Debugf("query: %s, args: %+v", query, args)

	_, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}

	return nil
}

func (s *store) List(ctx context.Context) ([]journal.Entry, error) {
	builder := sqlbuilder.Select(
		"id",
		"session_id",
		"kind",
		"filename",
		"status",
		"asset_id",
		"bytes_acked",
		"reason",
		"recorded_at",
	).From("upload_journal")
	builder.OrderBy("recorded_at").Asc()

	query, args := builder.BuildWithFlavor(sqlbuilder.PostgreSQL)
	logging.Logger.Debugf("query: %s, args: %+v", query, args)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer utils.PanicOnError(rows.Close, "closing rows")

	var entries []journal.Entry
	for rows.Next() {
		var entry journal.Entry
		var id, sessionId string
		var assetId sql.NullString
		var reason sql.NullString

		err = rows.Scan(&id, &sessionId, &entry.Kind, &entry.Filename, &entry.Status, &assetId, &entry.BytesAcked, &reason, &entry.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		entry.Id, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parsing entry id: %w", err)
		}

		entry.SessionId, err = uuid.Parse(sessionId)
		if err != nil {
			return nil, fmt.Errorf("parsing session id: %w", err)
		}

		entry.AssetId = assetId.String
		entry.Reason = reason.String

		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return entries, nil
}
