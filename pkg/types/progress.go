package types

// Progress is a percentage in [0,100] of bytes transferred by the operation
// in flight.
type Progress float64

const (
	ProgressStart    Progress = 0
	ProgressComplete Progress = 100

	// progressSnap absorbs float drift when summing per-chunk deltas.
	progressSnap = 1e-6
)

// Add returns p advanced by delta, clamped to [0,100]. Deltas are additive
// within one operation; negative deltas are ignored so samples never
// decrease.
func (p Progress) Add(delta float64) Progress {
	if delta <= 0 {
		return p
	}
	next := float64(p) + delta
	if next >= float64(ProgressComplete)-progressSnap {
		return ProgressComplete
	}
	return Progress(next)
}

// Done reports whether the transfer reached 100%.
func (p Progress) Done() bool {
	return p >= ProgressComplete
}
