// Package id provides 128-bit, lexicographically sortable handles.
//
// The shuffle worker issues one Token per successfully opened location in a
// batched open-stream call; clients echo the token back when opening the
// per-partition byte stream. Tokens are opaque to clients.
//
// # Format
//
// A Token is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence].
// Byte-wise comparison preserves issue order, and tokens issued within the
// same millisecond remain strictly increasing by sequence.
package id
