// Package blockstore persists shuffle partition blocks on a storage worker.
//
// Each upstream mapper contributes one block per (file, partition) pair.
// Blocks are keyed so a single ordered scan yields a partition's bytes in
// map-index order, which is exactly what the stream endpoint serves. The
// store also keeps per-shuffle metadata (mapper count, accepted attempts).
package blockstore
