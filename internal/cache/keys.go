package cache

const keyPrefix = "crevid:"

// JobKey is the cache key for a job status snapshot.
func JobKey(jobID string) string {
	return keyPrefix + "job:" + jobID
}

// RateLimitKey is the request counter key for a client address within one
// hour bucket.
func RateLimitKey(addr, hourBucket string) string {
	return keyPrefix + "ratelimit:" + addr + ":" + hourBucket
}
