package questionnaire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/homeready/internal/domain/audit"
)

func TestForOrdersHazardQuestionsFirst(t *testing.T) {
	for _, h := range audit.Hazards {
		qs := For(h)
		require.NotEmpty(t, qs)
		assert.Equal(t, hazardQuestions[h][0].ID, qs[0].ID)
		assert.Equal(t, "notes", qs[len(qs)-1].ID)

		ids := map[string]bool{}
		for _, q := range qs {
			assert.False(t, ids[q.ID], "duplicate question %s for %s", q.ID, h)
			ids[q.ID] = true
		}
	}
}

func TestForUnknownHazardReturnsGeneralOnly(t *testing.T) {
	assert.Equal(t, General(), For(audit.Hazard("volcano")))
}

func TestValidateAcceptsWellFormedAnswers(t *testing.T) {
	answers := audit.Answers{
		"waterHeaterSecurity": audit.Text("secured"),
		"gasShutoff":          audit.Text("Manual_Wrench"),
		"yearBuilt":           audit.Text("1962"),
		"waterStorageDays":    audit.Text("14"),
		"emergencyKit":        audit.Selection("water", "radio"),
		"notes":               audit.Text("two story"),
	}
	assert.NoError(t, Validate(audit.HazardEarthquake, answers))
}

func TestValidateNamesEveryOffendingField(t *testing.T) {
	answers := audit.Answers{
		"waterHeaterSecurity": audit.Text("glued"),
		"defensibleSpace":     audit.Text("100ft"),
		"yearBuilt":           audit.Text("nineteen sixty"),
		"waterStorageDays":    audit.Text("900"),
		"emergencyKit":        audit.Selection("water", "water"),
		"backupPower":         audit.Selection("generator"),
	}
	err := Validate(audit.HazardEarthquake, answers)
	require.Error(t, err)

	var verr *audit.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{
		"backupPower",
		"defensibleSpace",
		"emergencyKit",
		"waterHeaterSecurity",
		"waterStorageDays",
		"yearBuilt",
	}, verr.FieldNames())
}

func TestValidateIgnoresClearedFields(t *testing.T) {
	answers := audit.Answers{"floodVents": audit.Text("")}
	assert.NoError(t, Validate(audit.HazardFlood, answers))
}
