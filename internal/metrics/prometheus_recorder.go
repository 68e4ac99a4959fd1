package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "azdo_mcp"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	requests        *prom.CounterVec
	requestDuration *prom.HistogramVec
	toolCalls       *prom.CounterVec
	toolDuration    *prom.HistogramVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Azure DevOps REST requests by method and status code (0 when no response arrived)",
		}, []string{"method", "status"}),
		requestDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of Azure DevOps REST requests",
			Buckets:   prom.DefBuckets,
		}, []string{"method"}),
		toolCalls: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "MCP tool calls by tool and outcome",
		}, []string{"tool", "outcome"}),
		toolDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Duration of MCP tool calls",
			Buckets:   prom.DefBuckets,
		}, []string{"tool"}),
	}
	reg.MustRegister(pr.requests, pr.requestDuration, pr.toolCalls, pr.toolDuration)
	return pr
}

func (p *PrometheusRecorder) ObserveRequest(method string, status int, d time.Duration) {
	if p == nil {
		return
	}
	p.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	p.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveToolCall(tool string, outcome Outcome, d time.Duration) {
	if p == nil {
		return
	}
	p.toolCalls.WithLabelValues(tool, string(outcome)).Inc()
	p.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}
