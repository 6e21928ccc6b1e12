// Package metricssink is the controller's pluggable recipient for incoming
// AgentUpdate batches (spec.md §4.11's "metrics sink"). Only a console
// writer and a no-op default ship here; a real deployment wires its own
// Sink (a time-series database, a message bus) behind the same interface.
package metricssink

import (
	"github.com/sirupsen/logrus"

	"github.com/hailstorm-dev/hailstorm/internal/hailstormpb"
)

// Sink receives every AgentUpdate batch the controller core processes, in
// arrival order. Implementations must not block the caller for long; slow
// sinks should buffer internally.
type Sink interface {
	Record(updates []*hailstormpb.AgentUpdate)
	Close() error
}

// noopSink discards every batch, mirroring teacher internal/task/store.go's
// noopStore default used when persistence is disabled.
type noopSink struct{}

func (noopSink) Record(_ []*hailstormpb.AgentUpdate) {}
func (noopSink) Close() error                        { return nil }

// NoopSink discards every batch. controllercore.New falls back to it when
// given a nil Sink, and metrics_sink.type "noop" selects it; a controller
// with no metrics_sink configured uses ConsoleSink.
var NoopSink Sink = noopSink{}

// ConsoleSink logs a one-line summary of each batch, grounded on teacher
// internal/sink/console/sink.go's Send-prints-to-stdout shape, re-expressed
// through the project's structured logger instead of fmt.Println.
type ConsoleSink struct{}

// NewConsoleSink returns a Sink that logs every received batch.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{}
}

func (s *ConsoleSink) Record(updates []*hailstormpb.AgentUpdate) {
	for _, u := range updates {
		logrus.WithFields(logrus.Fields{
			"agent_id":      u.AgentId,
			"update_id":     u.UpdateId,
			"state":         u.State.String(),
			"simulation_id": u.SimulationId,
			"models":        len(u.Stats),
		}).Info("agent update")
	}
}

func (s *ConsoleSink) Close() error { return nil }

var (
	_ Sink = noopSink{}
	_ Sink = (*ConsoleSink)(nil)
)
