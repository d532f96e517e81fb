// Package otel exports Manager metrics through an OpenTelemetry meter. The
// exporter is pull-based: it registers one callback that snapshots the
// Manager's counters on each collection, so the hot path never touches OTel
// instruments.
package otel
