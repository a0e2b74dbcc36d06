package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Execution metrics
	ExecutionsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durablex_executions_submitted_total",
			Help: "Total number of executions submitted",
		},
		[]string{"kind", "function_name", "queue"},
	)

	ExecutionsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durablex_executions_completed_total",
			Help: "Total number of executions that reached a terminal status",
		},
		[]string{"kind", "function_name", "status"},
	)

	ExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "durablex_execution_duration_seconds",
			Help:    "Execution run duration in seconds, from claim to terminal status",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"kind", "function_name"},
	)

	ExecutionRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durablex_execution_retries_total",
			Help: "Total number of execution retry attempts",
		},
		[]string{"kind", "function_name"},
	)

	WorkflowSuspensions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durablex_workflow_suspensions_total",
			Help: "Total number of times a workflow suspended (call_task or wait_signal)",
		},
		[]string{"function_name", "reason"},
	)

	WorkflowResumptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durablex_workflow_resumptions_total",
			Help: "Total number of times a suspended workflow was made pending again",
		},
		[]string{"function_name"},
	)

	// Queue metrics
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "durablex_queue_depth",
			Help: "Current number of pending executions in queue",
		},
		[]string{"queue"},
	)

	QueueLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "durablex_queue_latency_seconds",
			Help:    "Time an execution spent pending before being claimed",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"queue"},
	)

	// Worker metrics
	ActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "durablex_active_workers",
			Help: "Current number of workers with a live heartbeat",
		},
	)

	WorkerBusyTime = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durablex_worker_busy_seconds_total",
			Help: "Total time workers spent executing claimed executions",
		},
		[]string{"worker_id"},
	)

	WorkerActiveExecutions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "durablex_worker_active_executions",
			Help: "Current number of executions a worker is running concurrently",
		},
		[]string{"worker_id"},
	)

	// Recovery metrics
	RecoveredExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durablex_recovered_executions_total",
			Help: "Total number of executions reclaimed from a dead worker's heartbeat timeout",
		},
		[]string{"queue"},
	)

	// Store metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "durablex_store_operation_duration_seconds",
			Help:    "Store operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~200ms
		},
		[]string{"operation"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durablex_store_errors_total",
			Help: "Total number of Store operation errors",
		},
		[]string{"operation"},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "durablex_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durablex_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// WebSocket metrics
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "durablex_websocket_connections",
			Help: "Current number of WebSocket connections",
		},
	)

	WebSocketMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "durablex_websocket_messages_total",
			Help: "Total number of WebSocket messages sent",
		},
		[]string{"type"},
	)
)

// RecordExecutionSubmission records a newly inserted execution.
func RecordExecutionSubmission(kind, functionName, queue string) {
	ExecutionsSubmitted.WithLabelValues(kind, functionName, queue).Inc()
}

// RecordExecutionCompletion records an execution reaching a terminal
// status and its run duration.
func RecordExecutionCompletion(kind, functionName, status string, duration float64) {
	ExecutionsCompleted.WithLabelValues(kind, functionName, status).Inc()
	ExecutionDuration.WithLabelValues(kind, functionName).Observe(duration)
}

// RecordExecutionRetry records a retry attempt scheduled by Fail.
func RecordExecutionRetry(kind, functionName string) {
	ExecutionRetries.WithLabelValues(kind, functionName).Inc()
}

// RecordWorkflowSuspension records a workflow suspending on call_task or
// wait_signal.
func RecordWorkflowSuspension(functionName, reason string) {
	WorkflowSuspensions.WithLabelValues(functionName, reason).Inc()
}

// RecordWorkflowResumption records a suspended workflow becoming pending
// again.
func RecordWorkflowResumption(functionName string) {
	WorkflowResumptions.WithLabelValues(functionName).Inc()
}

// UpdateQueueDepth updates the queue depth gauge for one queue.
func UpdateQueueDepth(queue string, depth float64) {
	QueueDepth.WithLabelValues(queue).Set(depth)
}

// RecordQueueLatency records the time an execution spent pending.
func RecordQueueLatency(queue string, latency float64) {
	QueueLatency.WithLabelValues(queue).Observe(latency)
}

// SetActiveWorkers sets the active workers gauge.
func SetActiveWorkers(count float64) {
	ActiveWorkers.Set(count)
}

// RecordWorkerBusyTime records time a worker spent executing.
func RecordWorkerBusyTime(workerID string, duration float64) {
	WorkerBusyTime.WithLabelValues(workerID).Add(duration)
}

// SetWorkerActiveExecutions sets a worker's in-flight execution count.
func SetWorkerActiveExecutions(workerID string, count float64) {
	WorkerActiveExecutions.WithLabelValues(workerID).Set(count)
}

// RecordRecovery records one execution reclaimed by RecoverDead.
func RecordRecovery(queue string) {
	RecoveredExecutions.WithLabelValues(queue).Inc()
}

// RecordStoreOperation records a Store method's duration.
func RecordStoreOperation(operation string, duration float64) {
	StoreOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordStoreError records a Store method returning an unexpected error.
func RecordStoreError(operation string) {
	StoreErrors.WithLabelValues(operation).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration)
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// SetWebSocketConnections sets the WebSocket connections gauge.
func SetWebSocketConnections(count float64) {
	WebSocketConnections.Set(count)
}

// RecordWebSocketMessage records a WebSocket message.
func RecordWebSocketMessage(msgType string) {
	WebSocketMessages.WithLabelValues(msgType).Inc()
}
