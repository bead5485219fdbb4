package vectorstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/carolinespringscc/cricket-agent/internal/domain/document"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresBackend stores documents in a JSONB-backed table. It is the
// durable document-database tier; similarity search stays in memory.
type PostgresBackend struct {
	db *sqlx.DB
}

func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	db, err := otelsqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect document db: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresBackend{db: db}, nil
}

func runMigrations(db *sqlx.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("prepare migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("build migrator: %w", err)
	}
	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Name() string { return "postgres" }

type documentRow struct {
	ID          string `db:"id"`
	Text        string `db:"text"`
	Embedding   []byte `db:"embedding"`
	Metadata    []byte `db:"metadata"`
	ContentHash string `db:"content_hash"`
}

func toRow(doc document.Document) (documentRow, error) {
	metadata, err := sonic.Marshal(doc.Metadata)
	if err != nil {
		return documentRow{}, fmt.Errorf("encode metadata for %s: %w", doc.ID, err)
	}
	row := documentRow{
		ID:          doc.ID,
		Text:        doc.Text,
		Metadata:    metadata,
		ContentHash: doc.ContentHash(),
	}
	if doc.Embedding != nil {
		embedding, err := sonic.Marshal(doc.Embedding)
		if err != nil {
			return documentRow{}, fmt.Errorf("encode embedding for %s: %w", doc.ID, err)
		}
		row.Embedding = embedding
	}
	return row, nil
}

func fromRow(row documentRow) (document.Document, error) {
	doc := document.Document{ID: row.ID, Text: row.Text}
	if len(row.Metadata) > 0 {
		if err := sonic.Unmarshal(row.Metadata, &doc.Metadata); err != nil {
			return document.Document{}, fmt.Errorf("decode metadata for %s: %w", row.ID, err)
		}
	}
	if len(row.Embedding) > 0 {
		if err := sonic.Unmarshal(row.Embedding, &doc.Embedding); err != nil {
			return document.Document{}, fmt.Errorf("decode embedding for %s: %w", row.ID, err)
		}
	}
	return doc, nil
}

const upsertQuery = `
INSERT INTO cricket_documents (id, text, embedding, metadata, content_hash, updated_at)
VALUES (:id, :text, :embedding, :metadata, :content_hash, now())
ON CONFLICT (id) DO UPDATE SET
    text = EXCLUDED.text,
    embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata,
    content_hash = EXCLUDED.content_hash,
    updated_at = now()`

func (b *PostgresBackend) Save(ctx context.Context, docs []document.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin document tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, doc := range docs {
		if doc.ID == "" {
			continue
		}
		row, err := toRow(doc)
		if err != nil {
			return err
		}
		if _, err := tx.NamedExecContext(ctx, upsertQuery, row); err != nil {
			return fmt.Errorf("upsert document %s: %w", doc.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit document tx: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Load(ctx context.Context) ([]document.Document, error) {
	var rows []documentRow
	if err := b.db.SelectContext(ctx, &rows,
		`SELECT id, text, embedding, metadata, content_hash FROM cricket_documents`); err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	out := make([]document.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (b *PostgresBackend) Get(ctx context.Context, id string) (document.Document, error) {
	var row documentRow
	err := b.db.GetContext(ctx, &row,
		`SELECT id, text, embedding, metadata, content_hash FROM cricket_documents WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return document.Document{}, fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("get document %s: %w", id, err)
	}
	return fromRow(row)
}

func (b *PostgresBackend) Count(ctx context.Context) (int, error) {
	var count int
	if err := b.db.GetContext(ctx, &count, `SELECT count(*) FROM cricket_documents`); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

func (b *PostgresBackend) HealthCheck(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}
