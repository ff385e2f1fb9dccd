package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// RoundPopulationKey returns the cache key for a round's ranking population
func (r *CacheKeyStruct) RoundPopulationKey(roundID string) string {
	return fmt.Sprintf("round:%s:population", roundID)
}

// RoundFinalizedChannel returns the Redis PubSub channel announcing finalized rounds
func (r *CacheKeyStruct) RoundFinalizedChannel() string {
	return "rounds:finalized"
}

// RoundChangedChannel returns the Redis PubSub channel announcing rounds whose records changed
func (r *CacheKeyStruct) RoundChangedChannel() string {
	return "rounds:changed"
}

var CacheKey = NewCacheKeyStruct()
