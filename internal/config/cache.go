package config

import (
    "strings"
    "time"
)

// CacheConfig defines settings for the response cache middleware that sits
// in front of the analytics endpoints.  When Enabled is false or no Redis
// client is configured, caching is disabled.  Methods lists the HTTP
// methods to cache, TTL the lifetime of entries and KeyStrategy which parts
// of the request contribute to the key.  Prefix and MaxBodyBytes control
// namespacing and the largest response that will be stored.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.  Sales figures only move when a
// request completes, so the default TTL is short enough that dashboards
// never lag more than a minute.
func LoadCacheConfig() CacheConfig {
    ttl := envDur("CACHE_TTL", 60*time.Second)
    if ttl <= 0 {
        ttl = 60 * time.Second
    }
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      parseMethods(envList("CACHE_METHODS", "GET")),
        TTL:          ttl,
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "cafe:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}

func parseMethods(list []string) map[string]bool {
    m := make(map[string]bool, len(list))
    for _, p := range list {
        m[strings.ToUpper(p)] = true
    }
    return m
}
