package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/campus-admin-backend/internal/model"
	"github.com/stemsi/campus-admin-backend/internal/repository"
)

// ErrStorage is returned for any failure of the document store or of
// decoding what it holds. Handlers report it as an opaque server error.
var ErrStorage = repository.ErrStorage

// DocumentCache is an optional read-through cache in front of the repository.
// Set must not replace a cached document with an older one (by UpdatedAt).
type DocumentCache interface {
	Get(ctx context.Context, kind model.DocumentKind) (*model.StoredDocument, error)
	Set(ctx context.Context, doc *model.StoredDocument) error
	Invalidate(ctx context.Context, kind model.DocumentKind) error
}

// DocumentService implements the singleton-document pattern for one kind.
// Every kind shares this code; only the bucket type differs.
type DocumentService[B model.Bucket[B]] struct {
	kind        model.DocumentKind
	repo        repository.DocumentRepository
	cache       DocumentCache
	defaultBody []byte
	log         zerolog.Logger
}

// NewDocumentService creates the service for kind. cache may be nil.
func NewDocumentService[B model.Bucket[B]](
	kind model.DocumentKind,
	repo repository.DocumentRepository,
	cache DocumentCache,
	log zerolog.Logger,
) *DocumentService[B] {
	defaultBody, err := json.Marshal(model.EmptyBuckets[B]())
	if err != nil {
		// Bucket types are plain structs and slices; this cannot fail.
		panic(fmt.Sprintf("marshal default %s: %v", kind, err))
	}
	return &DocumentService[B]{
		kind:        kind,
		repo:        repo,
		cache:       cache,
		defaultBody: defaultBody,
		log:         log.With().Str("component", "document_service").Str("kind", string(kind)).Logger(),
	}
}

// Kind returns the document kind served.
func (s *DocumentService[B]) Kind() model.DocumentKind { return s.kind }

// Get returns the document, creating it with empty buckets if none exists.
// Callers never observe "not found".
func (s *DocumentService[B]) Get(ctx context.Context) (*model.Document[B], error) {
	if doc := s.cached(ctx); doc != nil {
		return doc, nil
	}

	stored, err := s.repo.GetOrCreate(ctx, s.kind, s.defaultBody)
	if err != nil {
		return nil, s.storageError(err, "fetch document")
	}

	doc, err := s.decode(stored)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, stored); err != nil {
			s.log.Warn().Err(err).Msg("cache set failed")
		}
	}
	return doc, nil
}

// Upsert merges patch into the document: provided buckets replace the
// stored ones, omitted buckets are kept. A missing document is created
// from the patch over empty defaults.
func (s *DocumentService[B]) Upsert(ctx context.Context, patch model.YearPatch[B]) (*model.Document[B], error) {
	return s.Modify(ctx, func(y *model.YearBuckets[B]) error {
		y.Apply(patch)
		return nil
	})
}

// Modify applies fn to the current buckets inside a single storage
// transaction. An error returned by fn aborts the write and is returned as is.
func (s *DocumentService[B]) Modify(ctx context.Context, fn func(*model.YearBuckets[B]) error) (*model.Document[B], error) {
	var fnErr error
	stored, err := s.repo.Mutate(ctx, s.kind, s.defaultBody, func(body []byte) ([]byte, error) {
		buckets, err := decodeBuckets[B](body)
		if err != nil {
			return nil, err
		}
		if err := fn(&buckets); err != nil {
			fnErr = err
			return nil, err
		}
		return json.Marshal(buckets.Normalize())
	})
	if err != nil {
		if fnErr != nil && errors.Is(err, fnErr) {
			return nil, err
		}
		return nil, s.storageError(err, "modify document")
	}

	s.writeThrough(ctx, stored)

	s.log.Info().Msg("document updated")
	return s.decode(stored)
}

// List returns the stored documents of the kind without creating one.
func (s *DocumentService[B]) List(ctx context.Context) ([]model.Document[B], error) {
	stored, err := s.repo.List(ctx, s.kind)
	if err != nil {
		return nil, s.storageError(err, "list documents")
	}

	docs := make([]model.Document[B], 0, len(stored))
	for i := range stored {
		doc, err := s.decode(&stored[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// writeThrough stores a committed document in the cache. If that fails the
// entry is dropped so readers fall back to the store.
func (s *DocumentService[B]) writeThrough(ctx context.Context, stored *model.StoredDocument) {
	if s.cache == nil {
		return
	}
	err := s.cache.Set(ctx, stored)
	if err == nil {
		return
	}
	s.log.Warn().Err(err).Msg("cache write-through failed")
	if err := s.cache.Invalidate(ctx, s.kind); err != nil {
		s.log.Warn().Err(err).Msg("cache invalidate failed")
	}
}

func (s *DocumentService[B]) cached(ctx context.Context) *model.Document[B] {
	if s.cache == nil {
		return nil
	}
	stored, err := s.cache.Get(ctx, s.kind)
	if err != nil {
		s.log.Warn().Err(err).Msg("cache get failed, reading store")
		return nil
	}
	if stored == nil {
		return nil
	}
	doc, err := s.decode(stored)
	if err != nil {
		return nil
	}
	return doc
}

func (s *DocumentService[B]) decode(stored *model.StoredDocument) (*model.Document[B], error) {
	buckets, err := decodeBuckets[B](stored.Body)
	if err != nil {
		return nil, s.storageError(err, "decode document")
	}
	return &model.Document[B]{
		Kind:        s.kind,
		YearBuckets: buckets,
		CreatedAt:   stored.CreatedAt,
		UpdatedAt:   stored.UpdatedAt,
	}, nil
}

func (s *DocumentService[B]) storageError(err error, op string) error {
	s.log.Error().Err(err).Msg(op)
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

func decodeBuckets[B model.Bucket[B]](body []byte) (model.YearBuckets[B], error) {
	var y model.YearBuckets[B]
	if len(body) > 0 {
		if err := json.Unmarshal(body, &y); err != nil {
			return y, fmt.Errorf("decode body: %w", err)
		}
	}
	return y.Normalize(), nil
}
