package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/windtrace/windtrace/internal/stats"
)

// Prometheus Metrics Definition
var (
	linesRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "windtrace_lines_read_total",
		Help: "Total number of non-empty lines read from the telemetry source.",
	})
	recordsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "windtrace_records_ingested_total",
		Help: "Total number of records parsed, persisted and buffered.",
	})
	unparsedLines = promauto.NewCounter(prometheus.CounterOpts{
		Name: "windtrace_unparsed_lines_total",
		Help: "Total number of lines that yielded no extractable fields.",
	})
	forwardDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "windtrace_forward_drops_total",
		Help: "Total number of records dropped because the forwarder queue was full.",
	})
	schemaColumns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "windtrace_schema_columns",
		Help: "Current number of columns in the discovered schema, including timestamp.",
	})
	checkpointsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "windtrace_checkpoints_written_total",
		Help: "Total number of statistics checkpoints flushed to the statistics log.",
	})
	parameterMin = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "windtrace_parameter_min",
		Help: "Session minimum observed for a parameter.",
	}, []string{"parameter"})
	parameterMax = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "windtrace_parameter_max",
		Help: "Session maximum observed for a parameter.",
	}, []string{"parameter"})
	parameterMean = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "windtrace_parameter_mean",
		Help: "Rolling window mean for a parameter.",
	}, []string{"parameter"})
	parameterStdDev = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "windtrace_parameter_stddev",
		Help: "Rolling window population standard deviation for a parameter.",
	}, []string{"parameter"})
	parameterCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "windtrace_parameter_count",
		Help: "All-time observation count for a parameter.",
	}, []string{"parameter"})
)

// publishSnapshot mirrors a statistics snapshot into the parameter gauges.
func publishSnapshot(snap map[string]stats.Parameter) {
	for name, p := range snap {
		parameterMin.WithLabelValues(name).Set(p.Min)
		parameterMax.WithLabelValues(name).Set(p.Max)
		parameterMean.WithLabelValues(name).Set(p.Mean)
		parameterStdDev.WithLabelValues(name).Set(p.StdDev)
		parameterCount.WithLabelValues(name).Set(float64(p.Count))
	}
}
