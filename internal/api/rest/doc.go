// Package rest exposes the emergency core over HTTP.
//
// Two audiences share the surface: sensor adapters push readings to the
// /ingest endpoints at their own cadence, and collaborators (UI, watchdogs,
// CLI clients) drive the aggregator through /state, /trigger, /cancel, the
// alert-log mutations, and /settings. The transport stays a thin shell: it
// validates and decodes, then delegates to the service layer.
package rest
