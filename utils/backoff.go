package utils

import "time"

// BackoffDelay returns 2^retries * base.
func BackoffDelay(retries int, base time.Duration) time.Duration {
	if retries < 0 {
		retries = 0
	}
	return base << uint(retries)
}

// DelayMs is BackoffDelay expressed in milliseconds with the base given in seconds.
func DelayMs(retries int, baseIntervalSeconds int64) int64 {
	return BackoffDelay(retries, time.Duration(baseIntervalSeconds)*time.Second).Milliseconds()
}
