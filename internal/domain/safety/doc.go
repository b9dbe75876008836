// Package safety defines the domain model of the emergency core: trigger
// reasons, the emergency state, alert log entries, advisories, contacts and
// the outgoing message payload. Types here are plain values with Clone
// helpers so services can hand out snapshots without leaking internals.
package safety
