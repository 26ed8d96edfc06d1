package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the auth surface.
type Metrics struct {
	mu              sync.Mutex
	requestCount    map[string]int64
	errorCount      map[string]int64
	unauthorized    map[string]int64
	tokenRefreshes  map[string]int64
	persistFailures int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		errorCount:     make(map[string]int64),
		unauthorized:   make(map[string]int64),
		tokenRefreshes: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordUnauthorized counts gate rejections per path.
func (m *Metrics) RecordUnauthorized(path string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unauthorized[path]++
}

// RecordTokenRefresh counts silent refreshes per role.
func (m *Metrics) RecordTokenRefresh(role string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenRefreshes[role]++
}

// RecordPersistFailure counts failed write-behind token persistence attempts.
func (m *Metrics) RecordPersistFailure() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistFailures++
}

// TokenRefreshCount returns the refresh counter for a role.
func (m *Metrics) TokenRefreshCount(role string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenRefreshes[role]
}

// UnauthorizedCount returns the rejection counter for a path.
func (m *Metrics) UnauthorizedCount(path string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unauthorized[path]
}
