package aggregates

import (
	"strings"
	"sync"
	"time"

	"github.com/yungbote/dae-backend/internal/platform/logger"
)

// Hooks captures aggregate-level observability events.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

// OperationStats is a per-operation tally kept by LogHooks.
type OperationStats struct {
	Total     int64 `json:"total"`
	Failures  int64 `json:"failures"`
	Conflicts int64 `json:"conflicts"`
	Retries   int64 `json:"retries"`
	LastMS    int64 `json:"last_ms"`
}

// LogHooks logs every aggregate write and keeps in-process counters that the
// health endpoint exposes.
type LogHooks struct {
	log *logger.Logger

	mu    sync.Mutex
	stats map[string]*OperationStats
}

func NewLogHooks(log *logger.Logger) *LogHooks {
	return &LogHooks{
		log:   log.With("component", "AggregateHooks"),
		stats: make(map[string]*OperationStats),
	}
}

func (h *LogHooks) entry(name string) *OperationStats {
	name = strings.TrimSpace(name)
	s, ok := h.stats[name]
	if !ok {
		s = &OperationStats{}
		h.stats[name] = s
	}
	return s
}

func (h *LogHooks) ObserveOperation(name, status string, dur time.Duration) {
	h.mu.Lock()
	s := h.entry(name)
	s.Total++
	if status != "success" {
		s.Failures++
	}
	s.LastMS = dur.Milliseconds()
	h.mu.Unlock()

	if status == "success" {
		h.log.Debug("aggregate write", "op", name, "status", status, "duration_ms", dur.Milliseconds())
		return
	}
	h.log.Warn("aggregate write failed", "op", name, "status", status, "duration_ms", dur.Milliseconds())
}

func (h *LogHooks) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entry(name).Conflicts++
}

func (h *LogHooks) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entry(name).Retries++
}

func (h *LogHooks) Snapshot() map[string]OperationStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]OperationStats, len(h.stats))
	for k, v := range h.stats {
		out[k] = *v
	}
	return out
}

type multiHooks []Hooks

// MultiHooks fans every event out to each non-nil hook.
func MultiHooks(hooks ...Hooks) Hooks {
	out := make(multiHooks, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

func (m multiHooks) ObserveOperation(name, status string, dur time.Duration) {
	for _, h := range m {
		h.ObserveOperation(name, status, dur)
	}
}

func (m multiHooks) IncConflict(name string) {
	for _, h := range m {
		h.IncConflict(name)
	}
}

func (m multiHooks) IncRetry(name string) {
	for _, h := range m {
		h.IncRetry(name)
	}
}
