// Package transport is the client side of the worker wire protocol: a single
// batched open-stream request/response per worker, then one raw byte stream
// per opened partition.
//
// Connections are pooled per worker address and created on first use. The
// HTTP implementation disables transparent response decompression; partition
// bytes are never compressed by the writer, so streams must arrive raw.
package transport
