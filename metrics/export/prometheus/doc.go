// Package prometheus renders Manager metrics in the Prometheus text
// exposition format without depending on the Prometheus client library. It
// shares metric definitions with the OTel exporter through internaldefs.
package prometheus
