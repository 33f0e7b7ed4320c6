package session

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/florianilch/proxy-console/internal/session"

// instruments are the session counters. With no meter provider installed they
// record into the global no-op provider.
type instruments struct {
	renewals     metric.Int64Counter
	retries      metric.Int64Counter
	terminations metric.Int64Counter
}

func newInstruments(mp metric.MeterProvider) (*instruments, error) {
	meter := mp.Meter(meterName)

	renewals, err := meter.Int64Counter("session.renewals",
		metric.WithDescription("Access token renewal calls issued to the backend."))
	if err != nil {
		return nil, fmt.Errorf("creating renewals counter: %w", err)
	}
	retries, err := meter.Int64Counter("session.retries",
		metric.WithDescription("Requests resubmitted after a successful renewal."))
	if err != nil {
		return nil, fmt.Errorf("creating retries counter: %w", err)
	}
	terminations, err := meter.Int64Counter("session.terminations",
		metric.WithDescription("Sessions terminated after a failed or impossible renewal."))
	if err != nil {
		return nil, fmt.Errorf("creating terminations counter: %w", err)
	}

	return &instruments{
		renewals:     renewals,
		retries:      retries,
		terminations: terminations,
	}, nil
}
