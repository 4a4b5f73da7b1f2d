package audit

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHazard(t *testing.T) {
	tests := []struct {
		in   string
		want Hazard
	}{
		{"earthquake", HazardEarthquake},
		{"  Seismic ", HazardEarthquake},
		{"WILDFIRE", HazardWildfire},
		{"flooding", HazardFlood},
		{"hurricane", HazardWind},
		{"tornado", HazardWind},
		{"cyclone", HazardWind},
		{"wind", HazardWind},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHazard(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}

	for _, bad := range []string{"", "volcano", "earthquake!!", "general"} {
		_, err := ParseHazard(bad)
		assert.ErrorIs(t, err, ErrUnrecognizedHazard, bad)
	}
}

func TestAnswerUnmarshal(t *testing.T) {
	var as Answers
	raw := `{"waterHeaterSecurity":"secured","emergencyKit":["water","radio"],"waterStorageDays":7,"gone":null}`
	require.NoError(t, json.Unmarshal([]byte(raw), &as))

	assert.Equal(t, "secured", as.Value("waterHeaterSecurity"))
	kit, ok := as.Get("emergencyKit")
	require.True(t, ok)
	assert.True(t, kit.IsMulti())
	assert.Equal(t, []string{"water", "radio"}, kit.Values)
	assert.Equal(t, "7", as.Value("waterStorageDays"))
	_, ok = as.Get("gone")
	assert.False(t, ok)

	out, err := json.Marshal(Answers{"a": Text("x"), "b": Selection("y", "z")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"x","b":["y","z"]}`, string(out))
}

func TestAnswerUnmarshalRejectsObjects(t *testing.T) {
	var as Answers
	err := json.Unmarshal([]byte(`{"x":{"nested":true}}`), &as)
	assert.Error(t, err)
}

func TestAnswersMerge(t *testing.T) {
	base := Answers{"a": Text("1"), "b": Text("2")}
	merged := base.Merge(Answers{"b": Text(""), "c": Selection("x")})

	assert.Equal(t, []string{"a", "c"}, merged.Fields())
	assert.Equal(t, []string{"a", "b"}, base.Fields(), "merge must not mutate the receiver")
}

func TestValidationError(t *testing.T) {
	var verr ValidationError
	assert.NoError(t, verr.OrNil())

	verr.Add("zipCode", "must be 5 digits")
	verr.AddErr("primaryHazard", ErrUnrecognizedHazard)
	err := verr.OrNil()
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrUnrecognizedHazard)
	var got *ValidationError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, []string{"primaryHazard", "zipCode"}, got.FieldNames())
	assert.Contains(t, err.Error(), "zipCode: must be 5 digits")
}
