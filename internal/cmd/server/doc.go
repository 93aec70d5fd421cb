// Package serverrun wires the block store and HTTP server for the
// blaze-shuffle worker process.
package serverrun
