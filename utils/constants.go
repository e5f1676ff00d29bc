// File: utils/constants.go
package utils

import "time"

// AuthCachePrefix is the prefix used for Redis authorization cache keys.
const AuthCachePrefix = "auth:"

// AuthCacheTTL is the time-to-live for authorization cache entries.
const AuthCacheTTL = 10 * time.Minute

// DedupePrefix is the prefix for inbound-webhook delivery dedupe keys.
const DedupePrefix = "dedupe:"

// DedupeTTL bounds how long a processed delivery id is remembered. Platforms
// redeliver within minutes; a day is far past any retry horizon.
const DedupeTTL = 24 * time.Hour
