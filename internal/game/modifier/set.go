package modifier

// Set is the ordered list of modifiers active on one unit. Buffs and debuffs
// share the list; their sign tells them apart.
// It is not safe for concurrent use; the caller must serialise access.
type Set []Modifier

// Apply adds m to the set.
// A unique modifier whose ID is already present refreshes that instance's
// Remaining and Magnitude instead of adding a second copy.
//
// Precondition: m.Remaining >= 1.
// Postcondition: Count(m.ID) == 1 when m.Unique; otherwise Count(m.ID) grows by one.
func (s *Set) Apply(m Modifier) {
	if m.Unique {
		for i := range *s {
			if (*s)[i].ID == m.ID {
				(*s)[i].Remaining = m.Remaining
				(*s)[i].Magnitude = m.Magnitude
				return
			}
		}
	}
	*s = append(*s, m)
}

// Tick decrements every modifier's Remaining by one and removes those that
// reach zero, preserving the order of survivors.
//
// Postcondition: every returned modifier has Remaining == 0 and is no longer in the set.
func (s *Set) Tick() []Modifier {
	var expired []Modifier
	kept := (*s)[:0]
	for _, m := range *s {
		m.Remaining--
		if m.Remaining <= 0 {
			expired = append(expired, m)
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) == 0 {
		*s = nil
	} else {
		*s = kept
	}
	return expired
}

// Count returns the number of instances with the given id.
func (s Set) Count(id string) int {
	n := 0
	for _, m := range s {
		if m.ID == id {
			n++
		}
	}
	return n
}

// Buffs returns the modifiers with positive magnitude, in application order.
func (s Set) Buffs() []Modifier {
	var out []Modifier
	for _, m := range s {
		if m.IsBuff() {
			out = append(out, m)
		}
	}
	return out
}

// Debuffs returns the modifiers with negative magnitude, in application order.
func (s Set) Debuffs() []Modifier {
	var out []Modifier
	for _, m := range s {
		if !m.IsBuff() {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	copy(out, s)
	return out
}
