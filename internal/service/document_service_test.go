package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/campus-admin-backend/internal/cache"
	"github.com/stemsi/campus-admin-backend/internal/model"
	"github.com/stemsi/campus-admin-backend/internal/repository"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	docs        map[model.DocumentKind]*model.StoredDocument
	getErr      error
	setErr      error
	gets        int
	invalidated int
}

var _ DocumentCache = (*fakeCache)(nil)

func newFakeCache() *fakeCache {
	return &fakeCache{docs: map[model.DocumentKind]*model.StoredDocument{}}
}

func (f *fakeCache) Get(_ context.Context, kind model.DocumentKind) (*model.StoredDocument, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.docs[kind], nil
}

func (f *fakeCache) Set(_ context.Context, doc *model.StoredDocument) error {
	if f.setErr != nil {
		return f.setErr
	}
	if cur, ok := f.docs[doc.Kind]; ok && !cur.UpdatedAt.Before(doc.UpdatedAt) {
		return nil
	}
	c := *doc
	f.docs[doc.Kind] = &c
	return nil
}

func (f *fakeCache) Invalidate(_ context.Context, kind model.DocumentKind) error {
	f.invalidated++
	delete(f.docs, kind)
	return nil
}

type failingRepo struct{ err error }

func (r failingRepo) GetOrCreate(context.Context, model.DocumentKind, []byte) (*model.StoredDocument, error) {
	return nil, r.err
}

func (r failingRepo) Mutate(context.Context, model.DocumentKind, []byte, repository.MutateFunc) (*model.StoredDocument, error) {
	return nil, r.err
}

func (r failingRepo) List(context.Context, model.DocumentKind) ([]model.StoredDocument, error) {
	return nil, r.err
}

func TestDocumentService_GetCreatesEmptyDefaultOnce(t *testing.T) {
	repo := repository.NewMemoryDocumentRepository()
	s := NewDocumentService[model.Roster](model.KindStudents, repo, nil, zerolog.Nop())
	ctx := context.Background()

	first, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, model.KindStudents, first.Kind)
	require.Equal(t, model.EmptyBuckets[model.Roster](), first.YearBuckets)

	second, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)

	docs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestDocumentService_UpsertKeepsOmittedBuckets(t *testing.T) {
	repo := repository.NewMemoryDocumentRepository()
	s := NewDocumentService[model.Roster](model.KindStudents, repo, nil, zerolog.Nop())
	ctx := context.Background()

	second := model.Roster{{RollNo: "21", Name: "Ravi", StudentID: "S-21"}}
	third := model.Roster{{RollNo: "31", Name: "Mira", StudentID: "S-31"}}
	_, err := s.Upsert(ctx, model.YearPatch[model.Roster]{SecondYear: &second, ThirdYear: &third})
	require.NoError(t, err)

	first := model.Roster{{RollNo: "11", Name: "Asha", StudentID: "S-11"}}
	doc, err := s.Upsert(ctx, model.YearPatch[model.Roster]{FirstYear: &first})
	require.NoError(t, err)

	require.Equal(t, first, doc.FirstYear)
	require.Equal(t, second, doc.SecondYear)
	require.Equal(t, third, doc.ThirdYear)
	require.Equal(t, model.Roster{}, doc.FourthYear)

	got, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, doc.YearBuckets, got.YearBuckets)
}

func TestDocumentService_UpsertCreatesFromPatch(t *testing.T) {
	repo := repository.NewMemoryDocumentRepository()
	s := NewDocumentService[model.YearAchievements](model.KindAchievements, repo, nil, zerolog.Nop())

	fourth := model.YearAchievements{Achievements: []string{"Robotics cup"}}
	doc, err := s.Upsert(context.Background(), model.YearPatch[model.YearAchievements]{FourthYear: &fourth})
	require.NoError(t, err)
	require.Equal(t, []string{"Robotics cup"}, doc.FourthYear.Achievements)
	require.Equal(t, []string{}, doc.FourthYear.TopperRollList)
	require.Equal(t, model.YearAchievements{Achievements: []string{}, TopperRollList: []string{}}, doc.FirstYear)
}

func TestDocumentService_ModifyErrorIsReturnedUnwrapped(t *testing.T) {
	repo := repository.NewMemoryDocumentRepository()
	s := NewDocumentService[model.MaterialList](model.KindLearningMaterial, repo, nil, zerolog.Nop())
	errAbort := errors.New("abort")

	_, err := s.Modify(context.Background(), func(*model.YearBuckets[model.MaterialList]) error { return errAbort })
	require.ErrorIs(t, err, errAbort)
	require.NotErrorIs(t, err, ErrStorage)

	docs, err := s.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestDocumentService_StorageFailuresAreWrapped(t *testing.T) {
	s := NewDocumentService[model.DaySchedule](model.KindTimetable, failingRepo{err: errors.New("disk on fire")}, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := s.Get(ctx)
	require.ErrorIs(t, err, ErrStorage)

	_, err = s.Upsert(ctx, model.YearPatch[model.DaySchedule]{})
	require.ErrorIs(t, err, ErrStorage)

	_, err = s.List(ctx)
	require.ErrorIs(t, err, ErrStorage)
}

func TestDocumentService_CorruptBodyIsStorageError(t *testing.T) {
	repo := repository.NewMemoryDocumentRepository()
	_, err := repo.GetOrCreate(context.Background(), model.KindTimetable, []byte(`{"firstYear":[]}`))
	require.NoError(t, err)

	s := NewDocumentService[model.DaySchedule](model.KindTimetable, repo, nil, zerolog.Nop())
	_, err = s.Get(context.Background())
	require.ErrorIs(t, err, ErrStorage)
}

func TestDocumentService_CacheReadThroughAndWriteThrough(t *testing.T) {
	repo := repository.NewMemoryDocumentRepository()
	fc := newFakeCache()
	s := NewDocumentService[model.DaySchedule](model.KindTimetable, repo, fc, zerolog.Nop())
	ctx := context.Background()

	_, err := s.Get(ctx)
	require.NoError(t, err)
	require.Contains(t, fc.docs, model.KindTimetable)

	monday := model.DaySchedule{Monday: []model.ClassSlot{{Subject: "Maths", StartTime: "09:00", EndTime: "10:00"}}}
	updated, err := s.Upsert(ctx, model.YearPatch[model.DaySchedule]{FirstYear: &monday})
	require.NoError(t, err)
	require.Zero(t, fc.invalidated)
	require.Equal(t, updated.UpdatedAt, fc.docs[model.KindTimetable].UpdatedAt)

	// Served from cache.
	gets := fc.gets
	doc, err := s.Get(ctx)
	require.NoError(t, err)
	require.Len(t, doc.FirstYear.Monday, 1)
	require.Equal(t, gets+1, fc.gets)
}

func TestDocumentService_WriteThroughFailureInvalidates(t *testing.T) {
	repo := repository.NewMemoryDocumentRepository()
	fc := newFakeCache()
	s := NewDocumentService[model.Roster](model.KindStudents, repo, fc, zerolog.Nop())
	ctx := context.Background()

	_, err := s.Get(ctx)
	require.NoError(t, err)
	require.Contains(t, fc.docs, model.KindStudents)

	fc.setErr = errors.New("redis down")
	first := model.Roster{{RollNo: "1", Name: "Asha", StudentID: "S-1"}}
	_, err = s.Upsert(ctx, model.YearPatch[model.Roster]{FirstYear: &first})
	require.NoError(t, err)
	require.Equal(t, 1, fc.invalidated)
	require.NotContains(t, fc.docs, model.KindStudents)
}

// interleavingRepo runs between once, after GetOrCreate has read the store
// and before the reader gets the result back.
type interleavingRepo struct {
	repository.DocumentRepository
	between func()
}

func (r *interleavingRepo) GetOrCreate(ctx context.Context, kind model.DocumentKind, defaultBody []byte) (*model.StoredDocument, error) {
	doc, err := r.DocumentRepository.GetOrCreate(ctx, kind, defaultBody)
	if between := r.between; between != nil {
		r.between = nil
		between()
	}
	return doc, err
}

func TestDocumentService_SlowReaderDoesNotCacheOverWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := &interleavingRepo{DocumentRepository: repository.NewMemoryDocumentRepository()}
	s := NewDocumentService[model.DaySchedule](model.KindTimetable, repo, cache.NewDocumentCache(rdb, 5*time.Minute), zerolog.Nop())
	ctx := context.Background()

	monday := model.DaySchedule{Monday: []model.ClassSlot{{Subject: "Maths", StartTime: "09:00", EndTime: "10:00"}}}
	repo.between = func() {
		_, err := s.Upsert(ctx, model.YearPatch[model.DaySchedule]{FirstYear: &monday})
		require.NoError(t, err)
	}

	// This read started before the write and may return the old document.
	_, err := s.Get(ctx)
	require.NoError(t, err)

	doc, err := s.Get(ctx)
	require.NoError(t, err)
	require.Len(t, doc.FirstYear.Monday, 1)
	require.Equal(t, "Maths", doc.FirstYear.Monday[0].Subject)
}

func TestDocumentService_CacheFailureFallsBackToStore(t *testing.T) {
	repo := repository.NewMemoryDocumentRepository()
	fc := newFakeCache()
	fc.getErr = errors.New("redis down")
	s := NewDocumentService[model.Roster](model.KindStudents, repo, fc, zerolog.Nop())

	doc, err := s.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.KindStudents, doc.Kind)
	require.Equal(t, 1, fc.gets)
}
