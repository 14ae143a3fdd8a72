package event

// HasConflict reports whether the half-open intervals [a.Start, a.End) and
// [b.Start, b.End) overlap. Events that only touch do not conflict.
func HasConflict(a, b Event) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// Conflicts returns the events in pool that conflict with e.
func Conflicts(e Event, pool []Event) []Event {
	var out []Event
	for _, other := range pool {
		if HasConflict(e, other) {
			out = append(out, other)
		}
	}
	return out
}
