// Package telemetry — логи, метрики и трассировка сервисов flowrequests.
//
// Включает:
//   - logging.go — structured logging через slog (LOG_LEVEL, LOG_FORMAT)
//   - metrics.go — Prometheus метрики узлов, runs и HTTP API
//   - tracing.go — OpenTelemetry TracerProvider (OTEL_TRACES=stdout|stderr)
//
// Metrics реализует engine.Observer и runner.RunObserver, поэтому
// один экземпляр подключается и к движку, и к runner.
package telemetry
