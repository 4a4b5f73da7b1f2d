package assessment

import (
	"strconv"

	"github.com/bryanwahyu/homeready/internal/domain/audit"
)

// Outcome is how one answer fared against its rule.
type Outcome string

const (
	OutcomeBad     Outcome = "bad"
	OutcomePartial Outcome = "partial"
	OutcomeNeutral Outcome = "neutral"
	OutcomeGood    Outcome = "good"
)

// NeedsWork reports whether the outcome should produce a concern and a recommendation.
func (o Outcome) NeedsWork() bool { return o == OutcomeBad || o == OutcomePartial }

// RuleKind selects how a rule reads its answer.
type RuleKind int

const (
	// KindChoice compares a single enumerated value.
	KindChoice RuleKind = iota
	// KindAtLeast parses a whole number and compares it with GoodAt/PartialAt.
	KindAtLeast
	// KindCount counts multi-select items and compares with GoodAt/PartialAt.
	KindCount
)

// Rule is one row of the scoring table. Anything not matched by Good,
// Partial or Neutral (including a missing or "unsure" answer) is Bad.
type Rule struct {
	Field string
	Kind  RuleKind

	Good    []string
	Partial []string
	Neutral []string

	GoodAt    int
	PartialAt int

	Weight        int
	PartialWeight int
	Credit        int

	Concern  string
	Caution  string // partial outcome; falls back to Concern
	Strength string

	Recommendation string
}

// Evaluate classifies the rule's answer in answers.
func (r Rule) Evaluate(answers audit.Answers) Outcome {
	switch r.Kind {
	case KindAtLeast:
		n, err := strconv.Atoi(answers.Value(r.Field))
		if err != nil {
			return OutcomeBad
		}
		return r.threshold(n)
	case KindCount:
		a, ok := answers.Get(r.Field)
		if !ok || !a.IsMulti() {
			return OutcomeBad
		}
		return r.threshold(len(a.Values))
	}

	v := answers.Value(r.Field)
	if v == "" {
		return OutcomeBad
	}
	switch {
	case contains(r.Good, v):
		return OutcomeGood
	case contains(r.Partial, v):
		return OutcomePartial
	case contains(r.Neutral, v):
		return OutcomeNeutral
	}
	return OutcomeBad
}

func (r Rule) threshold(n int) Outcome {
	switch {
	case n >= r.GoodAt:
		return OutcomeGood
	case r.PartialAt > 0 && n >= r.PartialAt:
		return OutcomePartial
	}
	return OutcomeBad
}

// points is the score delta for an outcome.
func (r Rule) points(o Outcome) int {
	switch o {
	case OutcomeBad:
		return r.Weight
	case OutcomePartial:
		return r.PartialWeight
	case OutcomeGood:
		return -r.Credit
	}
	return 0
}

func (r Rule) note(o Outcome) string {
	switch o {
	case OutcomeBad:
		return r.Concern
	case OutcomePartial:
		if r.Caution != "" {
			return r.Caution
		}
		return r.Concern
	case OutcomeGood:
		return r.Strength
	}
	return ""
}

func contains(vs []string, v string) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}

// DefaultHazardRules is the production table keyed by primary hazard.
var DefaultHazardRules = map[audit.Hazard][]Rule{
	audit.HazardEarthquake: {
		{
			Field: "waterHeaterSecurity", Good: []string{"secured"},
			Weight: 12, Credit: 5,
			Concern:        "Water heater is not strapped and can topple, breaking the gas line.",
			Strength:       "Water heater is strapped to the wall studs.",
			Recommendation: "eq-water-heater-strap",
		},
		{
			Field: "foundationBolting", Good: []string{"bolted"},
			Weight: 15, Credit: 6,
			Concern:        "House is not confirmed to be bolted to its foundation.",
			Strength:       "House is bolted to the foundation.",
			Recommendation: "eq-foundation-bolt",
		},
		{
			Field: "crippleWallBracing", Good: []string{"braced"}, Neutral: []string{"no_cripple_wall"},
			Weight: 10, Credit: 4,
			Concern:        "Crawlspace cripple walls are not braced.",
			Strength:       "Cripple walls are braced with structural sheathing.",
			Recommendation: "eq-cripple-wall-brace",
		},
		{
			Field: "furnitureAnchoring", Good: []string{"anchored"}, Partial: []string{"partial"},
			Weight: 8, PartialWeight: 4, Credit: 3,
			Concern:        "Tall furniture and TVs are not anchored.",
			Caution:        "Only some tall furniture is anchored.",
			Strength:       "Tall furniture and TVs are anchored.",
			Recommendation: "eq-furniture-anchor",
		},
		{
			Field: "gasShutoff", Good: []string{"automatic"}, Partial: []string{"manual_wrench"},
			Weight: 8, PartialWeight: 4, Credit: 3,
			Concern:        "There is no plan to shut off the gas after a quake.",
			Caution:        "Gas shutoff depends on someone reaching the meter with a wrench.",
			Strength:       "An automatic seismic gas shutoff valve is installed.",
			Recommendation: "eq-gas-shutoff-valve",
		},
		{
			Field: "chimneyBracing", Good: []string{"reinforced"}, Neutral: []string{"no_chimney"},
			Weight: 7, Credit: 3,
			Concern:        "Masonry chimney is unreinforced and may collapse.",
			Strength:       "Masonry chimney is reinforced.",
			Recommendation: "eq-chimney-brace",
		},
	},
	audit.HazardWildfire: {
		{
			Field: "defensibleSpace", Good: []string{"100ft"}, Partial: []string{"30ft"},
			Weight: 16, PartialWeight: 8, Credit: 6,
			Concern:        "Little or no defensible space around the house.",
			Caution:        "Defensible space reaches about 30 feet, short of the 100 feet recommended.",
			Strength:       "100 feet of defensible space is maintained.",
			Recommendation: "wf-defensible-space",
		},
		{
			Field: "roofMaterial", Good: []string{"class_a"}, Partial: []string{"class_b_c"},
			Weight: 14, PartialWeight: 7, Credit: 5,
			Concern:        "Roof covering is combustible wood shake or of unknown rating.",
			Caution:        "Roof covering is only Class B or C fire rated.",
			Strength:       "Roof has a Class A fire-rated covering.",
			Recommendation: "wf-class-a-roof",
		},
		{
			Field: "ventScreening", Good: []string{"ember_resistant"}, Partial: []string{"standard"},
			Weight: 12, PartialWeight: 6, Credit: 4,
			Concern:        "Vents are open to wind-blown embers.",
			Caution:        "Vents use standard 1/4 inch screen that embers pass through.",
			Strength:       "Vents are ember resistant.",
			Recommendation: "wf-ember-vents",
		},
		{
			Field: "gutterGuards", Good: []string{"yes"},
			Weight: 8, Credit: 3,
			Concern:        "Gutters collect dry debris that embers can ignite.",
			Strength:       "Gutters have non-combustible guards.",
			Recommendation: "wf-gutter-guards",
		},
		{
			Field: "deckMaterial", Good: []string{"noncombustible"}, Neutral: []string{"no_deck"},
			Weight: 10, Credit: 4,
			Concern:        "Attached wood deck can carry fire to the house.",
			Strength:       "Attached deck is ignition resistant.",
			Recommendation: "wf-deck-hardening",
		},
	},
	audit.HazardFlood: {
		{
			Field: "equipmentElevation", Good: []string{"yes"}, Partial: []string{"partial"},
			Weight: 14, PartialWeight: 7, Credit: 5,
			Concern:        "Furnace, water heater and electrical panel sit below flood level.",
			Caution:        "Only some service equipment is elevated.",
			Strength:       "Service equipment is above the base flood elevation.",
			Recommendation: "fl-elevate-equipment",
		},
		{
			Field: "floodVents", Good: []string{"yes"}, Neutral: []string{"slab_foundation"},
			Weight: 12, Credit: 4,
			Concern:        "Enclosed foundation has no flood vents to relieve water pressure.",
			Strength:       "Foundation has flood vents.",
			Recommendation: "fl-flood-vents",
		},
		{
			Field: "backflowValve", Good: []string{"yes"},
			Weight: 10, Credit: 3,
			Concern:        "No sewer backflow valve is installed.",
			Strength:       "A sewer backflow valve is installed.",
			Recommendation: "fl-backflow-valve",
		},
		{
			Field: "sumpPump", Good: []string{"with_backup"}, Partial: []string{"without_backup"},
			Weight: 10, PartialWeight: 5, Credit: 3,
			Concern:        "There is no sump pump to clear seepage.",
			Caution:        "Sump pump has no backup and stops when the power does.",
			Strength:       "Sump pump has a battery backup.",
			Recommendation: "fl-sump-backup",
		},
		{
			Field: "floodInsurance", Good: []string{"yes"},
			Weight: 14, Credit: 5,
			Concern:        "House is not covered by flood insurance.",
			Strength:       "Flood insurance is in force.",
			Recommendation: "fl-flood-insurance",
		},
	},
	audit.HazardWind: {
		{
			Field: "roofToWallConnection", Good: []string{"straps"},
			Weight: 15, Credit: 6,
			Concern:        "Roof is held to the walls by toe-nails only.",
			Strength:       "Roof is tied to the walls with hurricane straps.",
			Recommendation: "wd-roof-straps",
		},
		{
			Field: "windowProtection", Good: []string{"impact_rated", "shutters"},
			Weight: 14, Credit: 5,
			Concern:        "Windows and glass doors have no debris protection.",
			Strength:       "Openings are protected against wind-borne debris.",
			Recommendation: "wd-window-protection",
		},
		{
			Field: "garageDoor", Good: []string{"wind_rated"}, Partial: []string{"braced"}, Neutral: []string{"no_garage"},
			Weight: 11, PartialWeight: 5, Credit: 4,
			Concern:        "Garage door is not rated for high wind.",
			Caution:        "Garage door relies on a retrofit bracing kit.",
			Strength:       "Garage door is wind rated.",
			Recommendation: "wd-garage-door",
		},
		{
			Field: "roofAge", Good: []string{"under_10"}, Partial: []string{"10_to_20"},
			Weight: 10, PartialWeight: 5, Credit: 4,
			Concern:        "Roof covering is over 20 years old or of unknown age.",
			Caution:        "Roof covering is 10 to 20 years old.",
			Strength:       "Roof covering is under 10 years old.",
			Recommendation: "wd-roof-replacement",
		},
		{
			Field: "secondaryWaterBarrier", Good: []string{"yes"},
			Weight: 10, Credit: 4,
			Concern:        "Roof deck is not sealed against water intrusion.",
			Strength:       "Roof deck has a secondary water barrier.",
			Recommendation: "wd-sealed-roof-deck",
		},
	},
}

// DefaultGeneralRules apply to every hazard after the hazard table.
var DefaultGeneralRules = []Rule{
	{
		Field: "waterStorageDays", Kind: KindAtLeast, GoodAt: 14, PartialAt: 3,
		Weight: 5, PartialWeight: 3, Credit: 2,
		Concern:        "Less than three days of drinking water is stored.",
		Caution:        "Stored water falls short of the two weeks recommended.",
		Strength:       "Two weeks of drinking water is stored.",
		Recommendation: "gen-water-storage",
	},
	{
		Field: "backupPower", Good: []string{"generator", "battery"},
		Weight: 4, Credit: 2,
		Concern:        "No backup power source is available.",
		Strength:       "Backup power is available.",
		Recommendation: "gen-backup-power",
	},
	{
		Field: "yearBuilt", Kind: KindAtLeast, GoodAt: 2000, PartialAt: 1980,
		Weight: 6, PartialWeight: 3, Credit: 3,
		Concern:        "House predates modern building codes or its age is unknown.",
		Caution:        "House was built before current hazard-resistant codes.",
		Strength:       "House was built to modern codes.",
		Recommendation: "gen-retrofit-inspection",
	},
	{
		Field: "emergencyKit", Kind: KindCount, GoodAt: 6, PartialAt: 3,
		Weight: 3, PartialWeight: 2, Credit: 2,
		Concern:        "Household emergency kit is missing or nearly empty.",
		Caution:        "Household emergency kit is incomplete.",
		Strength:       "Household emergency kit is well stocked.",
		Recommendation: "gen-emergency-kit",
	},
}
