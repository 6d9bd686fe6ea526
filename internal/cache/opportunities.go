// Package cache caches per-classification-code API responses so repeated
// runs inside the TTL window skip the upstream call entirely. Backend
// failures degrade to cache misses; a broken cache must never break a fetch.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/oakline/sam-radar/internal/models"
)

const (
	keyPrefix = "sam_opportunities"

	// TTL applies to every entry. 15 minutes keeps repeated admin-UI
	// refreshes cheap without serving stale notice data for long.
	TTL = 900 * time.Second
)

// keyParams is the canonical serialization used for cache keys. Limit and
// bypassCache are deliberately absent: they change presentation, not the
// upstream data shape, and must not fragment the cache.
type keyParams struct {
	PostedFrom  string   `json:"posted_from"`
	PostedTo    string   `json:"posted_to"`
	NoticeCodes []string `json:"notice_codes"`
	State       string   `json:"state"`
	Keywords    string   `json:"keywords"`
}

// Opportunities is the TTL-bounded response cache keyed by classification
// code plus normalized query parameters.
type Opportunities struct {
	backend Backend
	logger  *slog.Logger
	ttl     time.Duration
}

func NewOpportunities(backend Backend, logger *slog.Logger) *Opportunities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Opportunities{backend: backend, logger: logger, ttl: TTL}
}

// SetTTL overrides the default entry lifetime; non-positive values are
// ignored.
func (c *Opportunities) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		c.ttl = ttl
	}
}

// Key builds the composite cache key for one classification code under the
// given query spec.
func Key(code string, spec models.QuerySpec) string {
	params := keyParams{
		PostedFrom:  spec.PostedFrom,
		PostedTo:    spec.PostedTo,
		NoticeCodes: spec.NoticeTypeCodes,
		State:       spec.State,
		Keywords:    spec.Keywords,
	}
	payload, _ := json.Marshal(params)
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("%s:%s:%s", keyPrefix, code, hex.EncodeToString(sum[:16]))
}

// Get returns the cached FetchResult for (code, spec) with Cached forced to
// true, or nil on a miss. Backend errors are logged and treated as misses.
func (c *Opportunities) Get(code string, spec models.QuerySpec) *models.FetchResult {
	key := Key(code, spec)
	raw, ok, err := c.backend.Get(key)
	if err != nil {
		c.logger.Warn("cache read failed, treating as miss", "code", code, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var result models.FetchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.Warn("cache entry corrupt, treating as miss", "code", code, "error", err)
		return nil
	}
	result.Cached = true
	return &result
}

// Put stores a FetchResult whole. Callers only store successes; failures are
// retried on the next run instead of waiting out the TTL.
func (c *Opportunities) Put(code string, spec models.QuerySpec, result models.FetchResult) bool {
	payload, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("cache encode failed", "code", code, "error", err)
		return false
	}
	if err := c.backend.Set(Key(code, spec), payload, c.ttl); err != nil {
		c.logger.Warn("cache write failed", "code", code, "error", err)
		return false
	}
	return true
}

// Has reports whether a live entry exists; backend errors read as false.
func (c *Opportunities) Has(code string, spec models.QuerySpec) bool {
	ok, err := c.backend.Has(Key(code, spec))
	if err != nil {
		c.logger.Warn("cache check failed", "code", code, "error", err)
		return false
	}
	return ok
}

// Forget drops the entry for one code.
func (c *Opportunities) Forget(code string, spec models.QuerySpec) bool {
	ok, err := c.backend.Delete(Key(code, spec))
	if err != nil {
		c.logger.Warn("cache delete failed", "code", code, "error", err)
		return false
	}
	return ok
}

// ForgetMultiple drops entries for several codes and returns the best-effort
// count of deletions that reported success.
func (c *Opportunities) ForgetMultiple(codes []string, spec models.QuerySpec) int {
	count := 0
	for _, code := range codes {
		if c.Forget(code, spec) {
			count++
		}
	}
	return count
}
