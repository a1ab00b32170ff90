package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// ComponentHealth is the result of a single component check.
type ComponentHealth struct {
	Name      string            `json:"name"`
	Status    Status            `json:"status"`
	Message   string            `json:"message,omitempty"`
	LastCheck time.Time         `json:"last_check"`
	Duration  time.Duration     `json:"duration_ms"`
	Details   map[string]string `json:"details,omitempty"`
}

// SystemHealth aggregates all component results.
type SystemHealth struct {
	Status     Status                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
	Summary    Summary                    `json:"summary"`
}

type Summary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Unhealthy int `json:"unhealthy"`
	Degraded  int `json:"degraded"`
}

// CheckFunc checks the health of one component.
type CheckFunc func(ctx context.Context) ComponentHealth

// Checker runs registered component checks concurrently and caches the
// most recent results.
type Checker struct {
	components map[string]CheckFunc
	results    map[string]ComponentHealth
	mutex      sync.RWMutex
	timeout    time.Duration
}

func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		components: make(map[string]CheckFunc),
		results:    make(map[string]ComponentHealth),
		timeout:    timeout,
	}
}

func (hc *Checker) RegisterComponent(name string, checkFunc CheckFunc) {
	hc.mutex.Lock()
	defer hc.mutex.Unlock()
	hc.components[name] = checkFunc
}

// Check runs all registered checks concurrently, bounded by the
// configured timeout.
func (hc *Checker) Check(ctx context.Context) SystemHealth {
	hc.mutex.RLock()
	components := make(map[string]CheckFunc, len(hc.components))
	for name, checkFunc := range hc.components {
		components[name] = checkFunc
	}
	hc.mutex.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()

	resultChan := make(chan ComponentHealth, len(components))
	var wg sync.WaitGroup

	for name, checkFunc := range components {
		wg.Add(1)
		go func(n string, cf CheckFunc) {
			defer wg.Done()

			done := make(chan ComponentHealth, 1)
			go func() {
				done <- cf(checkCtx)
			}()

			select {
			case result := <-done:
				resultChan <- result
			case <-checkCtx.Done():
				resultChan <- ComponentHealth{
					Name:      n,
					Status:    StatusUnhealthy,
					Message:   "health check timeout",
					LastCheck: time.Now(),
					Duration:  hc.timeout,
				}
			}
		}(name, checkFunc)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make(map[string]ComponentHealth)
	for result := range resultChan {
		results[result.Name] = result
	}

	hc.mutex.Lock()
	hc.results = results
	hc.mutex.Unlock()

	return hc.systemHealth(results)
}

// LastResults returns the cached results without re-running the checks.
func (hc *Checker) LastResults() SystemHealth {
	hc.mutex.RLock()
	defer hc.mutex.RUnlock()
	return hc.systemHealth(hc.results)
}

func (hc *Checker) systemHealth(results map[string]ComponentHealth) SystemHealth {
	summary := Summary{Total: len(results)}
	for _, result := range results {
		switch result.Status {
		case StatusHealthy:
			summary.Healthy++
		case StatusUnhealthy:
			summary.Unhealthy++
		case StatusDegraded:
			summary.Degraded++
		}
	}

	overall := StatusHealthy
	if summary.Degraded > 0 {
		overall = StatusDegraded
	}
	if summary.Unhealthy > 0 {
		overall = StatusUnhealthy
	}

	return SystemHealth{
		Status:     overall,
		Timestamp:  time.Now(),
		Components: results,
		Summary:    summary,
	}
}

// StartPeriodicChecks refreshes the cached results on a fixed interval
// until the context is cancelled.
func (hc *Checker) StartPeriodicChecks(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				hc.Check(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// DatabaseCheck reports the primary store as unhealthy when the pool
// cannot be pinged.
func DatabaseCheck(pinger interface{ Ping(context.Context) error }) CheckFunc {
	return func(ctx context.Context) ComponentHealth {
		start := time.Now()
		health := ComponentHealth{
			Name:      "database",
			LastCheck: start,
			Details:   make(map[string]string),
		}

		if err := pinger.Ping(ctx); err != nil {
			health.Status = StatusUnhealthy
			health.Message = fmt.Sprintf("database ping failed: %v", err)
		} else {
			health.Status = StatusHealthy
			health.Message = "database connection healthy"
		}

		health.Duration = time.Since(start)
		health.Details["response_time"] = health.Duration.String()
		return health
	}
}

// ReferenceDataCheck reports the reference-data integration as degraded
// while its circuit breaker is open. The service keeps serving stored
// quantifications without it, so it never marks the system unhealthy.
func ReferenceDataCheck(breaker interface{ BreakerState() gobreaker.State }) CheckFunc {
	return func(ctx context.Context) ComponentHealth {
		start := time.Now()
		health := ComponentHealth{
			Name:      "reference-data",
			LastCheck: start,
			Details:   make(map[string]string),
		}

		state := breaker.BreakerState()
		health.Details["breaker_state"] = state.String()

		switch state {
		case gobreaker.StateOpen:
			health.Status = StatusDegraded
			health.Message = "reference-data circuit breaker open"
		case gobreaker.StateHalfOpen:
			health.Status = StatusDegraded
			health.Message = "reference-data circuit breaker recovering"
		default:
			health.Status = StatusHealthy
			health.Message = "reference-data integration healthy"
		}

		health.Duration = time.Since(start)
		return health
	}
}
