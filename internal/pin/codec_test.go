package pin

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Command
		wantErr bool
	}{
		{
			name:    "event",
			payload: `{"mDirection":"OUT","mName":"GPIO_34","mProperty":"PIN_STATE","mValue":"LOW","mAction":"EVENT"}`,
			want: Command{
				Name: "GPIO_34", Direction: DirectionOut, Property: PropertyPinState,
				Value: "LOW", Action: ActionEvent, RawAction: "EVENT",
			},
		},
		{
			name:    "register with fields in another order",
			payload: `{"mAction":"REGISTER","mValue":"","mName":"GPIO_10","mDirection":"IN","mProperty":"PIN_STATE"}`,
			want: Command{
				Name: "GPIO_10", Direction: DirectionIn, Property: PropertyPinState,
				Action: ActionRegister, RawAction: "REGISTER",
			},
		},
		{
			name:    "unknown action is not an error",
			payload: `{"mName":"GPIO_34","mAction":"BLINK"}`,
			want:    Command{Name: "GPIO_34", Action: ActionUnknown, RawAction: "BLINK"},
		},
		{
			name:    "missing action",
			payload: `{"mName":"GPIO_34","mDirection":"OUT"}`,
			want:    Command{Name: "GPIO_34", Direction: DirectionOut, Action: ActionUnknown},
		},
		{
			name:    "unrecognised direction and property preserved",
			payload: `{"mName":"GPIO_34","mDirection":"sideways","mProperty":"PWM","mValue":"42","mAction":"EVENT"}`,
			want: Command{
				Name: "GPIO_34", Direction: "sideways", Property: "PWM",
				Value: "42", Action: ActionEvent, RawAction: "EVENT",
			},
		},
		{
			name:    "lowercase action is unknown",
			payload: `{"mName":"GPIO_34","mAction":"event"}`,
			want:    Command{Name: "GPIO_34", Action: ActionUnknown, RawAction: "event"},
		},
		{name: "missing name", payload: `{"mDirection":"OUT","mAction":"EVENT"}`, wantErr: true},
		{name: "empty name", payload: `{"mName":"","mAction":"EVENT"}`, wantErr: true},
		{name: "malformed json", payload: `{"mName":`, wantErr: true},
		{name: "not an object", payload: `["GPIO_34"]`, wantErr: true},
		{name: "wrong field type", payload: `{"mName":34}`, wantErr: true},
		{name: "empty payload", payload: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.payload))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDecode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_WireFieldNames(t *testing.T) {
	data, err := Encode(Command{
		Name: "GPIO_10", Direction: DirectionIn, Property: PropertyPinState,
		Value: LevelHigh, Action: ActionEvent,
	})
	require.NoError(t, err)

	var fields map[string]string
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, map[string]string{
		"mDirection": "IN",
		"mName":      "GPIO_10",
		"mProperty":  "PIN_STATE",
		"mValue":     "HIGH",
		"mAction":    "EVENT",
	}, fields)
}

func TestEncode_DecodeAgrees(t *testing.T) {
	in := Command{
		Name: "GPIO_34", Direction: DirectionOut, Property: PropertyPinState,
		Value: LevelLow, Action: ActionRegister,
	}
	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Action, out.Action)
	assert.Equal(t, in.Value, out.Value)
}

func TestEncode_UnknownActionKeepsRawText(t *testing.T) {
	data, err := Encode(Command{Name: "GPIO_1", RawAction: "BLINK"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mAction":"BLINK"`)
}

func TestParseLevel(t *testing.T) {
	for _, v := range []string{"HIGH", "high", " High ", "1", "true", "TRUE"} {
		high, err := ParseLevel(v)
		require.NoError(t, err, v)
		assert.True(t, high, v)
	}
	for _, v := range []string{"LOW", "low", "0", "false"} {
		high, err := ParseLevel(v)
		require.NoError(t, err, v)
		assert.False(t, high, v)
	}
	for _, v := range []string{"", "2", "on", "HIGHISH"} {
		_, err := ParseLevel(v)
		assert.ErrorIs(t, err, ErrInvalidLevel, v)
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "HIGH", LevelString(true))
	assert.Equal(t, "LOW", LevelString(false))
}

func TestCommand_String(t *testing.T) {
	cmd := Command{Name: "GPIO_34", Direction: DirectionOut, Property: PropertyPinState, Value: "LOW", Action: ActionEvent}
	assert.Equal(t, "EVENT OUT GPIO_34.PIN_STATE=LOW", cmd.String())

	cmd.Action, cmd.RawAction = ActionUnknown, "BLINK"
	assert.Equal(t, "?BLINK OUT GPIO_34.PIN_STATE=LOW", cmd.String())
}
