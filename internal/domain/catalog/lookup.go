package catalog

import "github.com/bryanwahyu/homeready/internal/domain/audit"

// GrantsFor returns the grant programs that apply to h, including the
// hazard-independent ones, in catalog order.
func GrantsFor(c Catalog, h audit.Hazard) []GrantProgram {
	var out []GrantProgram
	for _, g := range c.Grants() {
		if appliesTo(g.Hazards, h) {
			out = append(out, g)
		}
	}
	return out
}

// InsuranceProgramsFor returns the insurance discounts that apply to h,
// including the hazard-independent ones, in catalog order.
func InsuranceProgramsFor(c Catalog, h audit.Hazard) []InsuranceProgram {
	var out []InsuranceProgram
	for _, p := range c.InsurancePrograms() {
		if appliesTo(p.Hazards, h) {
			out = append(out, p)
		}
	}
	return out
}

func appliesTo(hs []audit.Hazard, h audit.Hazard) bool {
	for _, x := range hs {
		if x == h || x == audit.HazardGeneral {
			return true
		}
	}
	return false
}
