package repository

import (
	"context"
	"errors"

	"github.com/stemsi/campus-admin-backend/internal/model"
)

// ErrStorage wraps every failure of the underlying store. Callers map it to
// a generic server error without exposing the cause.
var ErrStorage = errors.New("storage error")

// MutateFunc receives the current body of a document and returns the body to store.
type MutateFunc func(body []byte) ([]byte, error)

// DocumentRepository stores one document per kind.
type DocumentRepository interface {
	// GetOrCreate returns the document of kind, inserting defaultBody first
	// if none exists. Creation is atomic: concurrent callers observe the same row.
	GetOrCreate(ctx context.Context, kind model.DocumentKind, defaultBody []byte) (*model.StoredDocument, error)
	// Mutate runs fn on the current body under an exclusive lock and stores
	// its result. A missing document is created from defaultBody first.
	// An error returned by fn aborts the mutation and is returned unchanged.
	Mutate(ctx context.Context, kind model.DocumentKind, defaultBody []byte, fn MutateFunc) (*model.StoredDocument, error)
	// List returns every stored document of kind without creating one.
	List(ctx context.Context, kind model.DocumentKind) ([]model.StoredDocument, error)
}
