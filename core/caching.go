package core

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaimin86/credit-rating-deploy/internal/contract"
	"github.com/kaimin86/credit-rating-deploy/schema"
)

// currentCacheVersion defines the version of the snapshot schema
const currentCacheVersion = 1

// CachedRatingList serves the rating list from the snapshot store when a fresh entry
// exists for the same year, static tables and ledger revision.
// Without a store, or when the transport cannot report a revision, it computes directly.
func (e *Engine) CachedRatingList(ctx context.Context, year int, store contract.CacheStore, ttl time.Duration) ([]schema.RatingListEntry, error) {
	revisioner, ok := e.transport.(contract.Revisioner)
	if store == nil || !ok || ttl == 0 {
		return e.RatingList(ctx, year)
	}
	if year == 0 {
		latest, ok := e.LatestYear()
		if !ok {
			return nil, schema.ErrNoData
		}
		year = latest
	}

	revision, err := revisioner.Revision(ctx)
	if err != nil {
		e.logger.Warn("ledger revision unavailable, skipping snapshot cache", "error", err)
		return e.RatingList(ctx, year)
	}
	key := ratingListKey(year, e.static.Fingerprint(), revision)

	// Check for cache hit
	if entries := checkCacheHit(store, key, ttl); entries != nil {
		e.logger.Debug("rating list served from snapshot cache", "year", year)
		return entries, nil
	}

	// Cache miss: compute and store
	return e.computeAndStore(ctx, year, store, key)
}

// checkCacheHit attempts to retrieve and validate a cached rating list
func checkCacheHit(store contract.CacheStore, key string, ttl time.Duration) []schema.RatingListEntry {
	data, version, ts, err := store.Get(key)
	if err != nil {
		return nil // Cache miss
	}

	// Validate version and staleness
	if version != currentCacheVersion || time.Since(time.Unix(ts, 0)) > ttl {
		return nil
	}
	var entries []schema.RatingListEntry
	if err := json.Unmarshal(data, &entries); err != nil || entries == nil {
		return nil
	}
	return entries
}

// computeAndStore computes the list and stores it unless some overrides were unavailable
func (e *Engine) computeAndStore(ctx context.Context, year int, store contract.CacheStore, key string) ([]schema.RatingListEntry, error) {
	entries, err := e.RatingList(ctx, year)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.Overrides == schema.OverridesUnavailable {
			return entries, nil
		}
	}

	if data, err := json.Marshal(entries); err == nil {
		if err := store.Set(key, data, currentCacheVersion, time.Now().Unix()); err != nil {
			e.logger.Warn("failed to store rating list snapshot", "error", err)
		}
	}
	return entries, nil
}

// ratingListKey creates a unique key for one year under one static and ledger state
func ratingListKey(year int, fingerprint, revision string) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("rating_list|%d|%s|%s", year, fingerprint, revision)))
	return fmt.Sprintf("%x", h)
}
