package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// PaperItemsKey returns the cache key for the student-safe item views of a paper
func (r *CacheKeyStruct) PaperItemsKey(paperID string) string {
	return fmt.Sprintf("paper:%s:items", paperID)
}

// ExamLeaderboardKey returns the sorted set holding final scores of an exam
func (r *CacheKeyStruct) ExamLeaderboardKey(examID string) string {
	return fmt.Sprintf("exam:%s:leaderboard", examID)
}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam monitor
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

var CacheKey = NewCacheKeyStruct()
