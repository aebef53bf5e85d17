package detector

// trail holds the most recent filtered values addressed by absolute sample index.
type trail struct {
	keep   int
	base   int
	values []float64
}

func newTrail(lag int) trail {
	return trail{keep: lag + 1, values: make([]float64, 0, 2*(lag+1))}
}

func (t *trail) push(v float64) {
	t.values = append(t.values, v)
	if len(t.values) >= 2*t.keep {
		drop := len(t.values) - t.keep
		n := copy(t.values, t.values[drop:])
		t.values = t.values[:n]
		t.base += drop
	}
}

func (t *trail) last() float64 {
	return t.values[len(t.values)-1]
}

// window returns values for indices [from, to). Both bounds must be retained.
func (t *trail) window(from, to int) []float64 {
	return t.values[from-t.base : to-t.base]
}
