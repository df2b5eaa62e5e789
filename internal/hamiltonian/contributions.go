package hamiltonian

// Term names one additive energy contribution.
type Term string

const (
	TermZeeman     Term = "Zeeman"
	TermAnisotropy Term = "Anisotropy"
	TermExchange   Term = "Exchange"
	TermDMI        Term = "DMI"
)

// RefreshContributions recomputes which terms are active (nonempty) and
// stores them, in evaluation order, on the variant.
func RefreshContributions(v Variant) {
	c := v.Base()
	active := make([]Term, 0, 4)
	if c.Field.Len() > 0 {
		active = append(active, TermZeeman)
	}
	if c.Anisotropy.Len() > 0 {
		active = append(active, TermAnisotropy)
	}

	switch h := v.(type) {
	case *Shells:
		if len(h.Exchange) > 0 {
			active = append(active, TermExchange)
		}
		if len(h.DMI) > 0 {
			active = append(active, TermDMI)
		}
	case *Pairs:
		if len(h.ExchangeBonds) > 0 {
			active = append(active, TermExchange)
		}
		if len(h.DMIBonds) > 0 {
			active = append(active, TermDMI)
		}
	}
	c.Active = active
}

func (c *Common) IsActive(t Term) bool {
	for _, a := range c.Active {
		if a == t {
			return true
		}
	}
	return false
}
