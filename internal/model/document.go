package model

import (
	"errors"
	"time"
)

// DocumentKind names one of the singleton records.
type DocumentKind string

const (
	KindTimetable        DocumentKind = "timetable"
	KindStudents         DocumentKind = "students"
	KindAchievements     DocumentKind = "achievements"
	KindLearningMaterial DocumentKind = "learning_material"
)

// YearKey is one of the four year-buckets present in every document.
type YearKey string

const (
	FirstYear  YearKey = "firstYear"
	SecondYear YearKey = "secondYear"
	ThirdYear  YearKey = "thirdYear"
	FourthYear YearKey = "fourthYear"
)

// YearKeys lists the bucket keys in display order.
var YearKeys = []YearKey{FirstYear, SecondYear, ThirdYear, FourthYear}

// ErrUnknownYear is returned by ParseYearKey for anything but the four bucket keys.
var ErrUnknownYear = errors.New("unknown year key")

// ParseYearKey validates user input against the recognized bucket keys.
// Matching is exact: "FirstYear" or "first_year" are rejected.
func ParseYearKey(s string) (YearKey, error) {
	for _, k := range YearKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", ErrUnknownYear
}

// Bucket is the per-year payload of a document kind. Normalize returns the
// value with nil collections replaced by empty ones so that JSON output
// never contains null. Validate runs check over every element that carries
// validation rules.
type Bucket[B any] interface {
	Normalize() B
	Validate(check func(any) error) error
}

// YearBuckets holds the four year partitions of a document.
type YearBuckets[B Bucket[B]] struct {
	FirstYear  B `json:"firstYear"`
	SecondYear B `json:"secondYear"`
	ThirdYear  B `json:"thirdYear"`
	FourthYear B `json:"fourthYear"`
}

// EmptyBuckets returns a value with every bucket empty.
func EmptyBuckets[B Bucket[B]]() YearBuckets[B] {
	var y YearBuckets[B]
	return y.Normalize()
}

// Normalize normalizes every bucket.
func (y YearBuckets[B]) Normalize() YearBuckets[B] {
	return YearBuckets[B]{
		FirstYear:  y.FirstYear.Normalize(),
		SecondYear: y.SecondYear.Normalize(),
		ThirdYear:  y.ThirdYear.Normalize(),
		FourthYear: y.FourthYear.Normalize(),
	}
}

// Bucket returns a pointer to the bucket stored under key, or nil for an unknown key.
func (y *YearBuckets[B]) Bucket(key YearKey) *B {
	switch key {
	case FirstYear:
		return &y.FirstYear
	case SecondYear:
		return &y.SecondYear
	case ThirdYear:
		return &y.ThirdYear
	case FourthYear:
		return &y.FourthYear
	}
	return nil
}

// Apply merges a patch into y. Buckets present in the patch replace the
// stored bucket wholesale; absent buckets are left untouched.
func (y *YearBuckets[B]) Apply(p YearPatch[B]) {
	if p.FirstYear != nil {
		y.FirstYear = (*p.FirstYear).Normalize()
	}
	if p.SecondYear != nil {
		y.SecondYear = (*p.SecondYear).Normalize()
	}
	if p.ThirdYear != nil {
		y.ThirdYear = (*p.ThirdYear).Normalize()
	}
	if p.FourthYear != nil {
		y.FourthYear = (*p.FourthYear).Normalize()
	}
}

// YearPatch is the write payload for a document. It is the only shape a
// client can send, so fields outside the four buckets never reach storage.
type YearPatch[B Bucket[B]] struct {
	FirstYear  *B `json:"firstYear,omitempty"`
	SecondYear *B `json:"secondYear,omitempty"`
	ThirdYear  *B `json:"thirdYear,omitempty"`
	FourthYear *B `json:"fourthYear,omitempty"`
}

// IsEmpty reports whether the patch carries no bucket at all.
func (p YearPatch[B]) IsEmpty() bool {
	return p.FirstYear == nil && p.SecondYear == nil && p.ThirdYear == nil && p.FourthYear == nil
}

// Validate checks every bucket present in the patch.
func (p YearPatch[B]) Validate(check func(any) error) error {
	for _, b := range []*B{p.FirstYear, p.SecondYear, p.ThirdYear, p.FourthYear} {
		if b == nil {
			continue
		}
		if err := (*b).Validate(check); err != nil {
			return err
		}
	}
	return nil
}

// Document is a singleton record as returned to clients.
type Document[B Bucket[B]] struct {
	Kind DocumentKind `json:"kind"`
	YearBuckets[B]
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StoredDocument is the storage representation of a singleton document.
type StoredDocument struct {
	Kind      DocumentKind
	Body      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

func validateEach[T any](items []T, check func(any) error) error {
	for i := range items {
		if err := check(items[i]); err != nil {
			return err
		}
	}
	return nil
}
