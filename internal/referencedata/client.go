package referencedata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/openlmis/buq/pkg/utils"
)

// Client is the consumed interface; services depend on it so tests can swap
// in fakes without a running reference-data instance.
type Client interface {
	GetFacility(ctx context.Context, id uuid.UUID) (*Facility, error)
	GetProgram(ctx context.Context, id uuid.UUID) (*Program, error)
	GetProcessingPeriod(ctx context.Context, id uuid.UUID) (*ProcessingPeriod, error)
	GetApprovedProducts(ctx context.Context, facilityID, programID uuid.UUID) ([]*ApprovedProduct, error)
}

type Config struct {
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	InitialDelay     time.Duration `mapstructure:"initial_delay"`
	MaxDelay         time.Duration `mapstructure:"max_delay"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	BreakerInterval  time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout   time.Duration `mapstructure:"breaker_timeout"`
}

func (c *Config) withDefaults() Config {
	cfg := *c
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 2 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	return cfg
}

// HTTPClient wraps the reference-data REST API in a circuit breaker plus
// bounded exponential-backoff retries.
type HTTPClient struct {
	config  Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewHTTPClient(config Config) *HTTPClient {
	cfg := config.withDefaults()
	settings := gobreaker.Settings{
		Name:     "reference-data",
		Interval: cfg.BreakerInterval,
		Timeout:  cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// A missing resource is a definite answer, not an outage.
			return err == nil || utils.IsNotFound(err)
		},
	}
	return &HTTPClient{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// BreakerState exposes the circuit breaker state for health reporting.
func (c *HTTPClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}

func (c *HTTPClient) GetFacility(ctx context.Context, id uuid.UUID) (*Facility, error) {
	var facility Facility
	if err := c.getJSON(ctx, fmt.Sprintf("/api/facilities/%s", id), "facility", id, &facility); err != nil {
		return nil, err
	}
	return &facility, nil
}

func (c *HTTPClient) GetProgram(ctx context.Context, id uuid.UUID) (*Program, error) {
	var program Program
	if err := c.getJSON(ctx, fmt.Sprintf("/api/programs/%s", id), "program", id, &program); err != nil {
		return nil, err
	}
	return &program, nil
}

func (c *HTTPClient) GetProcessingPeriod(ctx context.Context, id uuid.UUID) (*ProcessingPeriod, error) {
	var period ProcessingPeriod
	if err := c.getJSON(ctx, fmt.Sprintf("/api/processingPeriods/%s", id), "processing period", id, &period); err != nil {
		return nil, err
	}
	return &period, nil
}

func (c *HTTPClient) GetApprovedProducts(ctx context.Context, facilityID, programID uuid.UUID) ([]*ApprovedProduct, error) {
	path := fmt.Sprintf("/api/facilities/%s/approvedProducts?programId=%s", facilityID, programID)
	var products []*ApprovedProduct
	if err := c.getJSON(ctx, path, "approved products", facilityID, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path, resource string, id uuid.UUID, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.getWithRetry(ctx, path, resource, id, out)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return utils.NewAppError(utils.CodeServiceUnavailable,
			"reference-data service unavailable", utils.ErrServiceUnavailable)
	}
	return err
}

func (c *HTTPClient) getWithRetry(ctx context.Context, path, resource string, id uuid.UUID, out interface{}) error {
	var lastErr error
	delay := c.config.InitialDelay

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.config.MaxDelay {
				delay = c.config.MaxDelay
			}
		}

		err := c.getOnce(ctx, path, resource, id, out)
		if err == nil || !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return utils.NewAppError(utils.CodeServiceUnavailable,
		fmt.Sprintf("reference-data request for %s failed after retries", resource), lastErr)
}

func (c *HTTPClient) getOnce(ctx context.Context, path, resource string, id uuid.UUID, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build reference-data request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &transientError{err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return utils.NewNotFoundError(resource, id)
	case resp.StatusCode >= 500:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &transientError{err: fmt.Errorf("reference-data returned %d: %s", resp.StatusCode, body)}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("reference-data returned unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode reference-data response: %w", err)
	}
	return nil
}

type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

func isRetryable(err error) bool {
	_, ok := err.(*transientError)
	return ok
}
