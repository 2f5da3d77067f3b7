package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordRelay(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.RelaysTotal.WithLabelValues("video", "ok"))

	DefaultMetrics.RecordRelay("video", "ok", 1.5)

	after := testutil.ToFloat64(DefaultMetrics.RelaysTotal.WithLabelValues("video", "ok"))
	if after-before != 1 {
		t.Errorf("expected relay counter to grow by 1, got %v", after-before)
	}
}

func TestMetrics_RecordRelay_EmptyKind(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.RelaysTotal.WithLabelValues("unknown", "failed"))

	DefaultMetrics.RecordRelay("", "failed", 0.1)

	after := testutil.ToFloat64(DefaultMetrics.RelaysTotal.WithLabelValues("unknown", "failed"))
	if after-before != 1 {
		t.Errorf("expected unknown kind label, delta %v", after-before)
	}
}

func TestMetrics_RecordBatch(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.BatchItemsTotal.WithLabelValues("downloaded"))

	DefaultMetrics.RecordBatch(4, 0, 1, false)
	// negative values must not move counters backwards
	DefaultMetrics.RecordBatch(-3, -1, -1, true)

	after := testutil.ToFloat64(DefaultMetrics.BatchItemsTotal.WithLabelValues("downloaded"))
	if after-before != 4 {
		t.Errorf("expected downloaded delta 4, got %v", after-before)
	}
}

func TestMetrics_RecordEvent(t *testing.T) {
	okBefore := testutil.ToFloat64(DefaultMetrics.EventsProduced)
	errBefore := testutil.ToFloat64(DefaultMetrics.EventErrors)

	DefaultMetrics.RecordEvent(nil)
	DefaultMetrics.RecordEvent(errors.New("broker down"))

	if testutil.ToFloat64(DefaultMetrics.EventsProduced)-okBefore != 1 {
		t.Error("produced counter not incremented")
	}
	if testutil.ToFloat64(DefaultMetrics.EventErrors)-errBefore != 1 {
		t.Error("error counter not incremented")
	}
}

func TestMetrics_Gauges(t *testing.T) {
	DefaultMetrics.UpdatePool(3)
	DefaultMetrics.UpdateRunning(2)

	if got := testutil.ToFloat64(DefaultMetrics.PoolConnections); got != 3 {
		t.Errorf("pool gauge = %v", got)
	}
	if got := testutil.ToFloat64(DefaultMetrics.TasksRunning); got != 2 {
		t.Errorf("running gauge = %v", got)
	}
}
