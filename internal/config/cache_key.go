package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// DocumentKey returns the cache key holding the serialized singleton document of a kind.
func (r *CacheKeyStruct) DocumentKey(kind string) string {
	return fmt.Sprintf("document:%s", kind)
}

var CacheKey = NewCacheKeyStruct()
