package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordOptimization(OptimizationEvent) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordRejection(RejectionEvent) error {
	r.count++
	return nil
}

type optimizationOnly struct{ count int }

func (o *optimizationOnly) RecordOptimization(OptimizationEvent) error {
	o.count++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	s3 := &optimizationOnly{}
	m := NewMultiSink(s1, s2, s3)
	if err := m.RecordOptimization(OptimizationEvent{}); err != nil {
		t.Fatalf("record optimization: %v", err)
	}
	if err := m.RecordRejection(RejectionEvent{Kind: RejectTimeout}); err != nil {
		t.Fatalf("record rejection: %v", err)
	}
	if err := m.RecordTelemetry(TelemetryEvent{}); err != nil {
		t.Fatalf("record telemetry: %v", err)
	}
	if s1.count != 2 || s2.count != 2 || s3.count != 1 {
		t.Fatalf("events not forwarded: %d %d %d", s1.count, s2.count, s3.count)
	}
}

func TestMultiSinkKeepsForwardingAfterError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	err := NewMultiSink(s1, s2).RecordOptimization(OptimizationEvent{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if s2.count != 1 {
		t.Fatal("second sink skipped")
	}
}

type closingSink struct {
	optimizationOnly
	closed bool
	err    error
}

func (c *closingSink) Close() error {
	c.closed = true
	return c.err
}

func TestMultiSinkClose(t *testing.T) {
	a := &closingSink{err: errors.New("boom")}
	b := &closingSink{}
	m := NewMultiSink(a, &optimizationOnly{}, b)
	if err := m.Close(); err == nil || err.Error() != "boom" {
		t.Fatalf("expected first close error, got %v", err)
	}
	if !a.closed || !b.closed {
		t.Fatalf("sinks not closed: %v %v", a.closed, b.closed)
	}
}
