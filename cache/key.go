// Package cache implements the two-tier, content-addressed response
// cache of spec.md §4.4: an in-memory LRU tier capped by entry count,
// with an optional disk or Redis-backed second tier, both keyed by
// SHA-256 over the full parameter bundle.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// KeyParams is the full bundle spec.md §4.4 hashes into a cache key:
// provider, model, prompt, temperature, top_p, max_tokens, stop, and an
// optional seed. The tokenizer identity is not part of the key;
// provider.Mediator passes the provider name and model id unchanged.
type KeyParams struct {
	Provider    string
	Model       string
	Prompt      string
	Temperature float64
	TopP        float64
	MaxTokens   int
	Stop        []string
	Seed        *int64
}

// Key computes the SHA-256 hex digest of the parameter bundle.
func Key(p KeyParams) string {
	stop := append([]string(nil), p.Stop...)
	sort.Strings(stop)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\x00%s\x00%s\x00%.6f\x00%.6f\x00%d\x00%s",
		p.Provider, p.Model, p.Prompt, p.Temperature, p.TopP, p.MaxTokens, strings.Join(stop, ","))
	if p.Seed != nil {
		fmt.Fprintf(&b, "\x00%d", *p.Seed)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
