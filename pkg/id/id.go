package id

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Token is a 128-bit, lexicographically sortable handle encoded as 16 bytes
// big-endian: [8 bytes ms_timestamp][8 bytes sequence].
type Token [16]byte

// Zero is the empty token.
var Zero Token

// Bytes returns the raw 16-byte representation.
func (t Token) Bytes() []byte { b := make([]byte, 16); copy(b, t[:]); return b }

// String returns the hex encoding.
func (t Token) String() string { return hex.EncodeToString(t[:]) }

// IsZero reports whether the token is unset.
func (t Token) IsZero() bool { return t == Zero }

// Parse decodes a 32-char hex string into a Token.
func Parse(s string) (Token, error) {
	var t Token
	b, err := hex.DecodeString(s)
	if err != nil {
		return Zero, fmt.Errorf("parse token: %w", err)
	}
	if len(b) != 16 {
		return Zero, fmt.Errorf("parse token: want 16 bytes, got %d", len(b))
	}
	copy(t[:], b)
	return t, nil
}

// Generator produces monotonically increasing tokens per process.
type Generator struct {
	mu       sync.Mutex
	lastMs   int64
	sequence uint64
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// NowMs returns current time in milliseconds since Unix epoch. Overridable in tests.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Next returns a new Token. If the clock regresses it pins to the last seen
// millisecond and increments the sequence, so tokens never go backwards.
func (g *Generator) Next() Token {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}
	if ms == g.lastMs {
		g.sequence++
	} else {
		g.sequence = 0
	}
	g.lastMs = ms

	var t Token
	binary.BigEndian.PutUint64(t[0:8], uint64(ms))
	binary.BigEndian.PutUint64(t[8:16], g.sequence)
	return t
}
