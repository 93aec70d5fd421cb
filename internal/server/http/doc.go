// Package httpserver is the storage worker's HTTP API.
//
// Endpoints:
//   - POST /v1/shuffle/open    batched open; one status+token per entry, in
//     submission order
//   - GET  /v1/shuffle/stream  raw partition bytes for an issued token
//   - POST /v1/shuffle/blocks  block ingest (one mapper's bytes for one
//     partition of a file)
//   - POST /v1/shuffle/meta    shuffle metadata registration
//   - GET  /v1/healthz, GET /metrics
package httpserver
