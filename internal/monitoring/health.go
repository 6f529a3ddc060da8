package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker reports whether the most recent fit succeeded
type HealthChecker struct {
	mu         sync.RWMutex
	lastFit    time.Time
	lastSymbol string
	fits       int
	errors     []string
}

type HealthStatus struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	LastFit    time.Time `json:"last_fit"`
	LastSymbol string    `json:"last_symbol,omitempty"`
	Fits       int       `json:"fits"`
	Uptime     string    `json:"uptime"`
	Errors     []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		errors: make([]string, 0),
	}
}

// RecordSuccess marks a successful fit and clears earlier errors
func (h *HealthChecker) RecordSuccess(symbol string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastFit = time.Now()
	h.lastSymbol = symbol
	h.fits++
	h.errors = h.errors[:0]
}

// RecordFailure keeps err until the next successful fit
func (h *HealthChecker) RecordFailure(err error) {
	if err == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.errors = append(h.errors, err.Error())
}

// Status returns the current health snapshot and its HTTP status code
func (h *HealthChecker) Status() (HealthStatus, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status, code := "healthy", http.StatusOK
	switch {
	case len(h.errors) > 0:
		status, code = "unhealthy", http.StatusInternalServerError
	case h.fits == 0:
		status, code = "starting", http.StatusServiceUnavailable
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		LastFit:    h.lastFit,
		LastSymbol: h.lastSymbol,
		Fits:       h.fits,
		Uptime:     time.Since(startTime).String(),
		Errors:     append([]string(nil), h.errors...),
	}, code
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health, code := h.Status()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}
