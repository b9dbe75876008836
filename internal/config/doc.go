// Package config defines connection settings used by binaries and provides
// helpers to load, validate and save them in YAML format.
//
// The Config type holds the server HTTP address and file locations; the
// Settings type holds the runtime-mutable knobs (zones, contacts, toggles)
// that collaborators may change through the API without a restart.
package config
