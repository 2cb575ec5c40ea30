package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var llmCallsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "calls_total",
		Help:      "Completion requests by provider and outcome.",
	},
	[]string{"provider", "outcome"},
)

// ObserveLLMCall counts one completion request.
func ObserveLLMCall(provider string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	llmCallsTotal.WithLabelValues(provider, outcome).Inc()
}

var pdfRendersTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pdf",
		Name:      "renders_total",
		Help:      "PDF documents rendered by kind and outcome.",
	},
	[]string{"kind", "outcome"},
)

// ObservePDFRender counts one rendered document.
func ObservePDFRender(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	pdfRendersTotal.WithLabelValues(kind, outcome).Inc()
}
