// Package notify publishes co-purchase snapshots to external sinks.
package notify

import (
	"context"
	"errors"
	"fmt"

	"solana-copurchase/internal/domain"
	"solana-copurchase/internal/observability"
)

// Notifier publishes one snapshot.
type Notifier interface {
	Name() string
	Publish(ctx context.Context, snapshotID string, candidates []domain.TokenCandidate) error
	Close() error
}

// Multi fans a snapshot out to every notifier and joins their errors.
type Multi struct {
	sinks []Notifier
}

// NewMulti builds a fan-out over sinks; nil entries are skipped.
func NewMulti(sinks ...Notifier) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Name implements Notifier.
func (m *Multi) Name() string { return "multi" }

// Len returns the number of sinks.
func (m *Multi) Len() int { return len(m.sinks) }

// Publish sends to every sink, even after a failure.
func (m *Multi) Publish(ctx context.Context, snapshotID string, candidates []domain.TokenCandidate) error {
	var errs []error
	for _, s := range m.sinks {
		err := s.Publish(ctx, snapshotID, candidates)
		observability.RecordNotification(s.Name(), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
