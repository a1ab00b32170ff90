package observability

import (
	"context"

	"github.com/rs/zerolog"
)

type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// Manager bundles the logging, metrics and tracing wiring handed to the
// services and the HTTP layer.
type Manager struct {
	logger  zerolog.Logger
	metrics *MetricsManager
	tracing *TracingManager
}

func NewManager(config Config) (*Manager, error) {
	logger, err := NewLogger(config.Logging)
	if err != nil {
		return nil, err
	}

	tracing, err := NewTracingManager(config.Tracing)
	if err != nil {
		return nil, err
	}

	return &Manager{
		logger:  logger,
		metrics: NewMetricsManager(config.Metrics),
		tracing: tracing,
	}, nil
}

func (m *Manager) Logger() zerolog.Logger {
	return m.logger
}

func (m *Manager) Metrics() *MetricsManager {
	return m.metrics
}

func (m *Manager) Tracing() *TracingManager {
	return m.tracing
}

func (m *Manager) Shutdown(ctx context.Context) error {
	return m.tracing.Shutdown(ctx)
}
