package modifier

// Totals returns the summed flat and percent magnitudes for kind.
func (s Set) Totals(kind Kind) (flat, percent int) {
	for _, m := range s {
		if m.Kind != kind {
			continue
		}
		switch m.Mode {
		case ModeFlat:
			flat += m.Magnitude
		case ModePercent:
			percent += m.Magnitude
		}
	}
	return flat, percent
}

// Effective returns base adjusted by every modifier of kind.
// Same-kind modifiers stack additively: base + sum(flat) + base*sum(percent)/100.
//
// Postcondition: Returns >= 0.
func (s Set) Effective(kind Kind, base int) int {
	flat, percent := s.Totals(kind)
	v := base + flat + base*percent/100
	if v < 0 {
		return 0
	}
	return v
}
