// Package core implements the emergency trigger aggregator: the single
// owner of the IDLE/ACTIVE emergency state, the ordered alert log, and the
// runtime settings.
//
// All mutations flow through one mailbox goroutine, so triggers are
// processed strictly in arrival order and each one is atomic with respect
// to the state read-then-write. Detectors never touch state directly; they
// only submit trigger requests.
package core
