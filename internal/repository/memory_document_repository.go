package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/stemsi/campus-admin-backend/internal/model"
)

// MemoryDocumentRepository keeps documents in process memory. It backs the
// "memory" storage driver used for local development and tests.
type MemoryDocumentRepository struct {
	mu   sync.Mutex
	docs map[model.DocumentKind]*model.StoredDocument
	now  func() time.Time
}

func NewMemoryDocumentRepository() *MemoryDocumentRepository {
	return &MemoryDocumentRepository{
		docs: make(map[model.DocumentKind]*model.StoredDocument),
		now:  time.Now,
	}
}

func (r *MemoryDocumentRepository) GetOrCreate(ctx context.Context, kind model.DocumentKind, defaultBody []byte) (*model.StoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	return clone(r.ensure(kind, defaultBody)), nil
}

func (r *MemoryDocumentRepository) Mutate(ctx context.Context, kind model.DocumentKind, defaultBody []byte, fn MutateFunc) (*model.StoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	_, existed := r.docs[kind]
	doc := r.ensure(kind, defaultBody)

	next, err := fn(slices.Clone(doc.Body))
	if err != nil {
		// Creation is part of the aborted mutation.
		if !existed {
			delete(r.docs, kind)
		}
		return nil, err
	}

	doc.Body = slices.Clone(next)
	doc.UpdatedAt = r.nextVersion(doc.UpdatedAt)
	return clone(doc), nil
}

func (r *MemoryDocumentRepository) List(ctx context.Context, kind model.DocumentKind) ([]model.StoredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	docs := []model.StoredDocument{}
	if doc, ok := r.docs[kind]; ok {
		docs = append(docs, *clone(doc))
	}
	return docs, nil
}

// ensure must be called with mu held.
func (r *MemoryDocumentRepository) ensure(kind model.DocumentKind, defaultBody []byte) *model.StoredDocument {
	doc, ok := r.docs[kind]
	if !ok {
		now := r.now()
		doc = &model.StoredDocument{
			Kind:      kind,
			Body:      slices.Clone(defaultBody),
			CreatedAt: now,
			UpdatedAt: now,
		}
		r.docs[kind] = doc
	}
	return doc
}

// nextVersion returns the update time for a write following prev. It never
// moves backwards, so UpdatedAt orders the writes of a kind.
func (r *MemoryDocumentRepository) nextVersion(prev time.Time) time.Time {
	now := r.now()
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

func clone(doc *model.StoredDocument) *model.StoredDocument {
	c := *doc
	c.Body = slices.Clone(doc.Body)
	return &c
}
