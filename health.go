package datapool

import "fmt"

// Snapshot is a point-in-time view of pool and cache counters, derived
// on demand. All pool fields are zero when no pool has been created.
type Snapshot struct {
	PoolActive     int  `json:"poolActive"`
	PoolIdle       int  `json:"poolIdle"`
	PoolTotal      int  `json:"poolTotal"`
	WaitQueueDepth int  `json:"waitQueueDepth"`
	WarmedUp       bool `json:"warmedUp"`
	CacheSize      int  `json:"cacheSize"`
	CacheCapacity  int  `json:"cacheCapacity"`
}

// Health reads the live counters.
func (m *Manager) Health() Snapshot {
	m.mu.Lock()
	pool := m.pool
	m.mu.Unlock()

	snap := Snapshot{
		CacheSize:     m.cache.Size(),
		CacheCapacity: m.cache.Capacity(),
	}
	if pool == nil {
		return snap
	}
	stats := pool.Stats()
	snap.PoolActive = stats.Active
	snap.PoolIdle = stats.Idle
	snap.PoolTotal = stats.Total
	snap.WaitQueueDepth = stats.WaitQueueDepth
	snap.WarmedUp = stats.WarmedUp
	return snap
}

// Score derives a 0-100 efficiency score from the current snapshot:
// queued requests cost 2 points each up to 40, utilization above 90%
// costs 20 (above 80% costs 10), a cold pool costs 10, and a non-empty
// cache earns 5 back. Purely observational.
func (m *Manager) Score() int {
	return scoreSnapshot(m.Health())
}

func scoreSnapshot(snap Snapshot) int {
	score := 100

	queuePenalty := 2 * snap.WaitQueueDepth
	if queuePenalty > 40 {
		queuePenalty = 40
	}
	score -= queuePenalty

	if snap.PoolTotal > 0 {
		utilization := float64(snap.PoolActive) / float64(snap.PoolTotal)
		switch {
		case utilization > 0.90:
			score -= 20
		case utilization > 0.80:
			score -= 10
		}
	}

	if !snap.WarmedUp {
		score -= 10
	}
	if snap.CacheSize > 0 {
		score += 5
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// Recommendations emits human-readable operational hints keyed off the
// same thresholds as Score. It has no corrective side effects.
func (m *Manager) Recommendations() []string {
	snap := m.Health()
	var recs []string
	if snap.WaitQueueDepth > 5 {
		recs = append(recs, fmt.Sprintf("wait queue depth is %d; consider raising the connection limit", snap.WaitQueueDepth))
	}
	if snap.PoolTotal > 0 {
		utilization := float64(snap.PoolActive) / float64(snap.PoolTotal)
		if utilization > 0.90 {
			recs = append(recs, fmt.Sprintf("pool utilization is %.0f%%; connections are nearly exhausted", utilization*100))
		} else if utilization > 0.80 {
			recs = append(recs, fmt.Sprintf("pool utilization is %.0f%%; approaching capacity", utilization*100))
		}
	}
	if !snap.WarmedUp {
		recs = append(recs, "pool has not completed warm-up; expect cold-start latency")
	}
	if snap.CacheCapacity > 0 && snap.CacheSize >= snap.CacheCapacity {
		recs = append(recs, fmt.Sprintf("query cache is full (%d/%d); consider raising its capacity", snap.CacheSize, snap.CacheCapacity))
	}
	return recs
}
