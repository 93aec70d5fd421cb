// Package pebblestore wraps Pebble with the small surface the block store
// needs: keyed point reads/writes, atomic batches, and ordered iteration.
package pebblestore
