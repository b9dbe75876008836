// Package client defines the shared command logic for sentinel-sos/allclear.
//
// The command connects to the sentinel server and pushes the desired
// emergency state, retrying until the server confirms it.
package client
