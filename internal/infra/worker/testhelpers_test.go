package worker

// Metrics are registered once per test binary.
var testMetrics = newWorkerMetrics("worker_test")
