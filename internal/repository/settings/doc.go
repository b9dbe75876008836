// Package settings implements persistence for the runtime Settings.
//
// The FileRepository stores and loads the settings as JSON on disk and
// exposes a Repository interface that the server service depends on. Alert
// history is deliberately not persisted; only user configuration survives
// restarts.
package settings
