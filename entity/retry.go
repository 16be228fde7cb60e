package entity

import (
	"time"

	"github.com/humanprotocol/reputation-oracle/utils"
)

type RetryPolicy struct {
	MaxRetryCount   int
	BackoffInterval time.Duration
}

// Retry holds the backoff state shared by every retryable record.
type Retry struct {
	RetriesCount  int       `db:"retries_count"`
	WaitUntil     time.Time `db:"wait_until"`
	FailureDetail *string   `db:"failure_detail"`
}

// Fail reschedules the record after a processing error. It returns true once
// the retry budget is exhausted and the record should be marked as failed.
func (r *Retry) Fail(cause error, now time.Time, policy RetryPolicy) bool {
	if r.RetriesCount < policy.MaxRetryCount {
		r.WaitUntil = now.Add(utils.BackoffDelay(r.RetriesCount, policy.BackoffInterval))
		r.RetriesCount++
		return false
	}
	detail := "Error message: " + cause.Error()
	r.FailureDetail = &detail
	return true
}

// Reset returns the record to its initial retry state.
func (r *Retry) Reset(now time.Time) {
	r.RetriesCount = 0
	r.WaitUntil = now
	r.FailureDetail = nil
}
