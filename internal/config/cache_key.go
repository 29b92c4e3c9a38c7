package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuizPayloadKey returns the cache key for a quiz's student-facing payload
func (r *CacheKeyStruct) QuizPayloadKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:payload", quizID)
}

// QuizAnswerKey returns the cache key for a quiz's answer key hash
func (r *CacheKeyStruct) QuizAnswerKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:key", quizID)
}

// QuizMarksKey returns the cache key for a quiz's per-question marks hash
func (r *CacheKeyStruct) QuizMarksKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:marks", quizID)
}

// AttemptNamespace returns the key prefix scoping one exam client's durable
// attempt state. A client sid stands in for "one browser" in the attempt
// storage contract.
func (r *CacheKeyStruct) AttemptNamespace(sid string) string {
	return fmt.Sprintf("attempt:%s:", sid)
}

var CacheKey = NewCacheKeyStruct()
