// Package questionnaire holds the static question definitions for every
// hazard and validates submitted answers against them.
package questionnaire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bryanwahyu/homeready/internal/domain/audit"
)

// Kind is the input control a question is answered with.
type Kind string

const (
	KindChoice Kind = "choice"
	KindMulti  Kind = "multi"
	KindNumber Kind = "number"
	KindText   Kind = "text"
)

// Choice is one selectable option.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Question is one questionnaire step.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Help    string   `json:"help,omitempty"`
	Kind    Kind     `json:"kind"`
	Choices []Choice `json:"choices,omitempty"`
	Min     int      `json:"min,omitempty"`
	Max     int      `json:"max,omitempty"`
}

func (q Question) hasChoice(v string) bool {
	for _, c := range q.Choices {
		if c.Value == v {
			return true
		}
	}
	return false
}

var unsure = Choice{Value: "unsure", Label: "Not sure"}

var yesNo = []Choice{{"yes", "Yes"}, {"no", "No"}, unsure}

var hazardQuestions = map[audit.Hazard][]Question{
	audit.HazardEarthquake: {
		{
			ID:      "waterHeaterSecurity",
			Prompt:  "Is your water heater strapped to the wall studs?",
			Kind:    KindChoice,
			Choices: []Choice{{"secured", "Yes, double-strapped"}, {"unsecured", "No"}, unsure},
		},
		{
			ID:      "foundationBolting",
			Prompt:  "Is the house bolted to its foundation?",
			Help:    "Look for anchor bolts with plate washers along the sill plate in the crawlspace.",
			Kind:    KindChoice,
			Choices: []Choice{{"bolted", "Yes"}, {"not_bolted", "No"}, unsure},
		},
		{
			ID:      "crippleWallBracing",
			Prompt:  "Are the crawlspace cripple walls braced with plywood?",
			Kind:    KindChoice,
			Choices: []Choice{{"braced", "Yes"}, {"not_braced", "No"}, {"no_cripple_wall", "There are no cripple walls"}, unsure},
		},
		{
			ID:      "furnitureAnchoring",
			Prompt:  "Are tall furniture, bookcases and TVs anchored?",
			Kind:    KindChoice,
			Choices: []Choice{{"anchored", "All of them"}, {"partial", "Some of them"}, {"not_anchored", "None"}, unsure},
		},
		{
			ID:      "gasShutoff",
			Prompt:  "How would the gas be shut off after a quake?",
			Kind:    KindChoice,
			Choices: []Choice{{"automatic", "Automatic seismic shutoff valve"}, {"manual_wrench", "Manual, wrench kept at the meter"}, {"none", "No plan"}, unsure},
		},
		{
			ID:      "chimneyBracing",
			Prompt:  "Is a masonry chimney reinforced or braced?",
			Kind:    KindChoice,
			Choices: []Choice{{"no_chimney", "No masonry chimney"}, {"reinforced", "Yes"}, {"unreinforced", "No"}, unsure},
		},
	},
	audit.HazardWildfire: {
		{
			ID:      "defensibleSpace",
			Prompt:  "How much defensible space surrounds the house?",
			Kind:    KindChoice,
			Choices: []Choice{{"100ft", "100 feet or more"}, {"30ft", "About 30 feet"}, {"none", "Little or none"}, unsure},
		},
		{
			ID:      "roofMaterial",
			Prompt:  "What is the roof covering's fire rating?",
			Kind:    KindChoice,
			Choices: []Choice{{"class_a", "Class A (tile, metal, rated composition)"}, {"class_b_c", "Class B or C"}, {"wood_shake", "Untreated wood shake"}, unsure},
		},
		{
			ID:      "ventScreening",
			Prompt:  "What covers attic and foundation vents?",
			Kind:    KindChoice,
			Choices: []Choice{{"ember_resistant", "Ember-resistant vents or 1/8\" mesh"}, {"standard", "Standard 1/4\" screen"}, {"none", "Nothing"}, unsure},
		},
		{
			ID:      "gutterGuards",
			Prompt:  "Do the gutters have non-combustible guards?",
			Kind:    KindChoice,
			Choices: yesNo,
		},
		{
			ID:      "deckMaterial",
			Prompt:  "What is the attached deck built from?",
			Kind:    KindChoice,
			Choices: []Choice{{"noncombustible", "Non-combustible or ignition-resistant"}, {"wood", "Wood"}, {"no_deck", "No attached deck"}, unsure},
		},
	},
	audit.HazardFlood: {
		{
			ID:      "equipmentElevation",
			Prompt:  "Are the furnace, water heater and electrical panel above the base flood elevation?",
			Kind:    KindChoice,
			Choices: []Choice{{"yes", "Yes"}, {"partial", "Some of them"}, {"no", "No"}, unsure},
		},
		{
			ID:      "floodVents",
			Prompt:  "Does the enclosed area below the living floor have flood vents?",
			Kind:    KindChoice,
			Choices: []Choice{{"yes", "Yes"}, {"no", "No"}, {"slab_foundation", "Slab on grade, no enclosure"}, unsure},
		},
		{
			ID:      "backflowValve",
			Prompt:  "Is a sewer backflow valve installed?",
			Kind:    KindChoice,
			Choices: yesNo,
		},
		{
			ID:      "sumpPump",
			Prompt:  "Is there a sump pump?",
			Kind:    KindChoice,
			Choices: []Choice{{"with_backup", "Yes, with battery backup"}, {"without_backup", "Yes, no backup"}, {"none", "No"}, unsure},
		},
		{
			ID:      "floodInsurance",
			Prompt:  "Do you carry flood insurance?",
			Kind:    KindChoice,
			Choices: yesNo,
		},
	},
	audit.HazardWind: {
		{
			ID:      "roofToWallConnection",
			Prompt:  "How is the roof attached to the walls?",
			Kind:    KindChoice,
			Choices: []Choice{{"straps", "Hurricane straps or clips"}, {"toenails", "Toe-nails only"}, unsure},
		},
		{
			ID:      "windowProtection",
			Prompt:  "How are windows and glass doors protected?",
			Kind:    KindChoice,
			Choices: []Choice{{"impact_rated", "Impact-rated glass"}, {"shutters", "Rated shutters or panels"}, {"none", "No protection"}, unsure},
		},
		{
			ID:      "garageDoor",
			Prompt:  "Is the garage door rated for high wind?",
			Kind:    KindChoice,
			Choices: []Choice{{"wind_rated", "Wind-rated"}, {"braced", "Retrofit bracing kit"}, {"standard", "Standard door"}, {"no_garage", "No garage"}, unsure},
		},
		{
			ID:      "roofAge",
			Prompt:  "How old is the roof covering?",
			Kind:    KindChoice,
			Choices: []Choice{{"under_10", "Under 10 years"}, {"10_to_20", "10 to 20 years"}, {"over_20", "Over 20 years"}, unsure},
		},
		{
			ID:      "secondaryWaterBarrier",
			Prompt:  "Is there a sealed roof deck or secondary water barrier?",
			Kind:    KindChoice,
			Choices: yesNo,
		},
	},
}

var generalQuestions = []Question{
	{
		ID:     "yearBuilt",
		Prompt: "What year was the house built?",
		Kind:   KindNumber,
		Min:    1700,
		Max:    2100,
	},
	{
		ID:     "waterStorageDays",
		Prompt: "How many days of drinking water do you have stored for everyone in the household?",
		Help:   "Plan for one gallon per person per day.",
		Kind:   KindNumber,
		Min:    0,
		Max:    365,
	},
	{
		ID:      "backupPower",
		Prompt:  "What backup power is available?",
		Kind:    KindChoice,
		Choices: []Choice{{"generator", "Generator"}, {"battery", "Battery or solar storage"}, {"none", "None"}, unsure},
	},
	{
		ID:     "emergencyKit",
		Prompt: "Which of these are in your emergency kit?",
		Kind:   KindMulti,
		Choices: []Choice{
			{"water", "Water"},
			{"food", "Non-perishable food"},
			{"first_aid", "First aid kit"},
			{"flashlight", "Flashlight and batteries"},
			{"radio", "Battery or crank radio"},
			{"medications", "Medications"},
			{"documents", "Copies of important documents"},
		},
	},
	{
		ID:     "notes",
		Prompt: "Anything else about the house we should know?",
		Kind:   KindText,
		Max:    2000,
	},
}

// For returns the ordered questions for h: the hazard specific ones first,
// then the hazard-independent ones. Unknown hazards get only the general set.
func For(h audit.Hazard) []Question {
	hq := hazardQuestions[h]
	out := make([]Question, 0, len(hq)+len(generalQuestions))
	out = append(out, hq...)
	return append(out, generalQuestions...)
}

// General returns the hazard-independent questions.
func General() []Question {
	return append([]Question(nil), generalQuestions...)
}

// Lookup finds question id within the questions asked for h.
func Lookup(h audit.Hazard, id string) (Question, bool) {
	for _, q := range For(h) {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Validate checks every answer against the schema for h and returns a
// *audit.ValidationError naming each offending field, or nil.
func Validate(h audit.Hazard, answers audit.Answers) error {
	verr := &audit.ValidationError{}
	for _, field := range answers.Fields() {
		a := answers[field]
		if a.IsZero() {
			continue
		}
		q, ok := Lookup(h, field)
		if !ok {
			verr.Add(field, fmt.Sprintf("not a %s question", h))
			continue
		}
		if reason := validateAnswer(q, a); reason != "" {
			verr.Add(field, reason)
		}
	}
	return verr.OrNil()
}

func validateAnswer(q Question, a audit.Answer) string {
	switch q.Kind {
	case KindChoice:
		if a.IsMulti() {
			return "expects a single choice"
		}
		if !q.hasChoice(strings.ToLower(strings.TrimSpace(a.Value))) {
			return fmt.Sprintf("%q is not one of the offered choices", a.Value)
		}
	case KindMulti:
		if !a.IsMulti() {
			return "expects a list of choices"
		}
		seen := make(map[string]bool, len(a.Values))
		for _, v := range a.Values {
			if !q.hasChoice(v) {
				return fmt.Sprintf("%q is not one of the offered choices", v)
			}
			if seen[v] {
				return fmt.Sprintf("%q selected twice", v)
			}
			seen[v] = true
		}
	case KindNumber:
		if a.IsMulti() {
			return "expects a number"
		}
		n, err := strconv.Atoi(strings.TrimSpace(a.Value))
		if err != nil {
			return "expects a whole number"
		}
		if n < q.Min || n > q.Max {
			return fmt.Sprintf("must be between %d and %d", q.Min, q.Max)
		}
	case KindText:
		if a.IsMulti() {
			return "expects text"
		}
		if q.Max > 0 && len(a.Value) > q.Max {
			return fmt.Sprintf("must be at most %d characters", q.Max)
		}
	}
	return ""
}
