package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stemsi/campus-admin-backend/internal/model"
)

// DBTX is the subset of *pgxpool.Pool used by the postgres repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const (
	selectDocumentSQL = `SELECT kind, body, created_at, updated_at FROM singleton_documents WHERE kind = $1`
	insertDocumentSQL = `INSERT INTO singleton_documents (kind, body) VALUES ($1, $2) ON CONFLICT (kind) DO NOTHING`
	lockDocumentSQL   = `SELECT body FROM singleton_documents WHERE kind = $1 FOR UPDATE`
	// updated_at is taken after the row lock and never moves backwards, so
	// it orders the writes of a kind.
	updateDocumentSQL = `UPDATE singleton_documents
		SET body = $2, updated_at = GREATEST(clock_timestamp(), updated_at + INTERVAL '1 microsecond')
		WHERE kind = $1
		RETURNING kind, body, created_at, updated_at`
)

// PostgresDocumentRepository keeps documents in the singleton_documents
// table, whose primary key on kind enforces one document per kind.
type PostgresDocumentRepository struct {
	db DBTX
}

func NewPostgresDocumentRepository(db DBTX) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{db: db}
}

func (r *PostgresDocumentRepository) GetOrCreate(ctx context.Context, kind model.DocumentKind, defaultBody []byte) (*model.StoredDocument, error) {
	doc, err := scanDocument(r.db.QueryRow(ctx, selectDocumentSQL, string(kind)))
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: select %s: %v", ErrStorage, kind, err)
	}

	if _, err := r.db.Exec(ctx, insertDocumentSQL, string(kind), defaultBody); err != nil {
		return nil, fmt.Errorf("%w: insert %s: %v", ErrStorage, kind, err)
	}

	// Re-read: a concurrent caller may have won the insert.
	doc, err = scanDocument(r.db.QueryRow(ctx, selectDocumentSQL, string(kind)))
	if err != nil {
		return nil, fmt.Errorf("%w: reselect %s: %v", ErrStorage, kind, err)
	}
	return doc, nil
}

func (r *PostgresDocumentRepository) Mutate(ctx context.Context, kind model.DocumentKind, defaultBody []byte, fn MutateFunc) (*model.StoredDocument, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrStorage, err)
	}

	doc, err := mutateInTx(ctx, tx, kind, defaultBody, fn)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit %s: %v", ErrStorage, kind, err)
	}
	return doc, nil
}

func mutateInTx(ctx context.Context, tx pgx.Tx, kind model.DocumentKind, defaultBody []byte, fn MutateFunc) (*model.StoredDocument, error) {
	if _, err := tx.Exec(ctx, insertDocumentSQL, string(kind), defaultBody); err != nil {
		return nil, fmt.Errorf("%w: insert %s: %v", ErrStorage, kind, err)
	}

	var current []byte
	if err := tx.QueryRow(ctx, lockDocumentSQL, string(kind)).Scan(&current); err != nil {
		return nil, fmt.Errorf("%w: lock %s: %v", ErrStorage, kind, err)
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}

	doc, err := scanDocument(tx.QueryRow(ctx, updateDocumentSQL, string(kind), next))
	if err != nil {
		return nil, fmt.Errorf("%w: update %s: %v", ErrStorage, kind, err)
	}
	return doc, nil
}

func (r *PostgresDocumentRepository) List(ctx context.Context, kind model.DocumentKind) ([]model.StoredDocument, error) {
	rows, err := r.db.Query(ctx, selectDocumentSQL, string(kind))
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrStorage, kind, err)
	}
	defer rows.Close()

	docs := []model.StoredDocument{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", ErrStorage, kind, err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrStorage, kind, err)
	}
	return docs, nil
}

func scanDocument(row pgx.Row) (*model.StoredDocument, error) {
	var (
		kind string
		body []byte
		doc  model.StoredDocument
	)
	if err := row.Scan(&kind, &body, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.Kind = model.DocumentKind(kind)
	doc.Body = body
	return &doc, nil
}
