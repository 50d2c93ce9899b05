package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StimuliGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpstim_stimuli_generated_total",
		Help: "The total number of stimulus records generated",
	}, []string{"operation"})

	SpecialValues = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpstim_special_values_total",
		Help: "Drawn operand patterns by floating-point class",
	}, []string{"class"})

	GenerationDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "fpstim_generation_duration_seconds",
		Help: "Duration of full generation passes",
	})

	BytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpstim_bytes_written_total",
		Help: "Uncompressed stimuli payload bytes written",
	})

	Comparisons = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpstim_checker_comparisons_total",
		Help: "Expected-vs-actual comparisons performed by the checker",
	})

	Mismatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpstim_checker_mismatches_total",
		Help: "Comparisons that failed after NaN equivalence",
	})
)

func RecordStimulus(operation string) {
	StimuliGenerated.WithLabelValues(operation).Inc()
}

func RecordSpecialValue(class string) {
	SpecialValues.WithLabelValues(class).Inc()
}

func RecordGeneration(duration time.Duration, bytes int64) {
	GenerationDuration.Observe(duration.Seconds())
	BytesWritten.Add(float64(bytes))
}

func RecordComparison(match bool) {
	Comparisons.Inc()
	if !match {
		Mismatches.Inc()
	}
}
