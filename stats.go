package scopecache

import "time"

// Stats is a point-in-time report. Derived on demand, never persisted.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Size    int     `json:"size"`
	Backend Kind    `json:"backend"`

	Evictions int64         `json:"evictions,omitempty"`
	MaxSize   int           `json:"max_size,omitempty"`
	TTL       time.Duration `json:"ttl,omitempty"`

	// Error marks a backend whose stats collection failed during an
	// aggregate report.
	Error string `json:"error,omitempty"`
}

// HitRate returns hits/(hits+misses), or 0 before any operation.
func HitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
