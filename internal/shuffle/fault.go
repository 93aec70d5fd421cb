package shuffle

import "sync/atomic"

// capture is one recorded pipeline failure.
type capture struct {
	kind      Kind
	partition int
	err       error
}

// faultState holds at most one captured error per pipeline instance. It
// transitions monotonically from empty to set; the first writer wins and the
// value is read-only from then on.
type faultState struct {
	p atomic.Pointer[capture]
}

// set records a capture. Returns false if a capture was already present.
func (f *faultState) set(kind Kind, partition int, err error) bool {
	return f.p.CompareAndSwap(nil, &capture{kind: kind, partition: partition, err: err})
}

// get returns the capture, or nil while the pipeline is clean.
func (f *faultState) get() *capture { return f.p.Load() }
