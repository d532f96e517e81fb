// Package internaldefs holds the shared metric definitions consumed by the
// exporters under metrics/export. It exists so the OTel and Prometheus
// surfaces export the same names, help text, and bucket layout without either
// importing the other.
package internaldefs
