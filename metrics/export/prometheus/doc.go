// Package prometheus renders store metrics in Prometheus text exposition
// format.
//
// [NewExporter] takes one or more stores and exposes an [http.Handler].
// Counter names are prefixed authstore_ and end in _total; the single
// histogram is authstore_sign_in_latency_seconds. Every series carries a
// namespace label.
//
// Nothing is registered in a global registry; callers mount the Handler.
package prometheus
