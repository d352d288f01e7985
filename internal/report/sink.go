// Package report writes the finished batch summary to its destinations.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/invoice-analyzer/internal/core/summary"
	"github.com/joseph-ayodele/invoice-analyzer/internal/entity"
)

// Input is everything a sink may render.
type Input struct {
	RunID    string
	Output   summary.Output
	Invoices []entity.Invoice
}

// Sink persists one report and returns where it went (a path or a URL).
type Sink interface {
	Write(ctx context.Context, in Input) (string, error)
}

// Multi fans one report out to several sinks.
type Multi struct {
	sinks  []Sink
	logger *slog.Logger
}

func NewMulti(logger *slog.Logger, sinks ...Sink) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{sinks: sinks, logger: logger}
}

// Write runs every sink even if one fails, and returns the first location written.
func (m *Multi) Write(ctx context.Context, in Input) (string, error) {
	var (
		first string
		errs  []error
	)
	for i, s := range m.sinks {
		loc, err := s.Write(ctx, in)
		if err != nil {
			m.logger.Error("report.sink.failed", "sink", fmt.Sprintf("%T", s), "index", i, "error", err)
			errs = append(errs, err)
			continue
		}
		m.logger.Info("report.sink.ok", "sink", fmt.Sprintf("%T", s), "location", loc)
		if first == "" {
			first = loc
		}
	}
	return first, errors.Join(errs...)
}

// Len reports how many sinks are composed.
func (m *Multi) Len() int { return len(m.sinks) }
