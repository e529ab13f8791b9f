package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want ID
	}{
		{"leading zero", "05", "5"},
		{"padded", " 5 ", "5"},
		{"int", 5, "5"},
		{"int64", int64(12), "12"},
		{"whole float", 5.0, "5"},
		{"json number", json.Number("7"), "7"},
		{"non numeric", "abc-1", "abc-1"},
		{"fraction", "1.50", "1.5"},
		{"id", ID("007"), "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewID(tt.in))
		})
	}
}

func TestID_UnmarshalJSON(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"0012","b":12,"c":null}`), &v))
	assert.Equal(t, ID("12"), v.A)
	assert.Equal(t, ID("12"), v.B)
	assert.Equal(t, ID(""), v.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &v))
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Number
	}{
		{`null`, Number{}},
		{`""`, Number{}},
		{`"  "`, Number{}},
		{`42`, NewNumber(42)},
		{`"21.5"`, NewNumber(21.5)},
		{`-3`, NewNumber(-3)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var n Number
			require.NoError(t, json.Unmarshal([]byte(tt.in), &n))
			assert.Equal(t, tt.want, n)
		})
	}

	var n Number
	assert.Error(t, json.Unmarshal([]byte(`"warm"`), &n))
}

func TestNumber_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		A Number `json:"a"`
		B Number `json:"b"`
	}{A: NewNumber(80), B: Number{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":80,"b":null}`, string(out))
}

func TestFlag(t *testing.T) {
	for in, want := range map[string]Flag{`1`: true, `"1"`: true, `true`: true, `0`: false, `"0"`: false, `false`: false, `null`: false} {
		var f Flag
		require.NoError(t, json.Unmarshal([]byte(in), &f), in)
		assert.Equal(t, want, f, in)
	}

	var f Flag
	assert.Error(t, json.Unmarshal([]byte(`2`), &f))

	out, err := json.Marshal([]Flag{true, false})
	require.NoError(t, err)
	assert.Equal(t, `[1,0]`, string(out))
}

func TestDevice_DecodesRemoteShape(t *testing.T) {
	raw := `{"device":[{"id":"05","clientDeviceId":"3","name":"Lamp","state":"16","statevalue":"128",
		"methods":19,"type":"device","devicetype":"0000001","online":"1","client":"42"}]}`

	var list DeviceList
	require.NoError(t, json.Unmarshal([]byte(raw), &list))
	require.Len(t, list.Device, 1)

	d := list.Device[0]
	assert.Equal(t, ID("5"), d.Key())
	assert.Equal(t, CommandDim, d.State)
	assert.Equal(t, NewNumber(128), d.StateValue)
	assert.Equal(t, "0000001", d.DeviceType)
	assert.True(t, bool(d.Online))
}

func TestSensor_DecodesRemoteShape(t *testing.T) {
	raw := `{"sensor":[{"id":99,"name":"Attic","lastUpdated":1700000000,"ignored":0,
		"data":[{"name":"temp","value":"4.5","scale":"0"},{"name":"humidity","value":"","scale":"0"}]}]}`

	var list SensorList
	require.NoError(t, json.Unmarshal([]byte(raw), &list))
	require.Len(t, list.Sensor, 1)

	s := list.Sensor[0]
	assert.Equal(t, ID("99"), s.Key())
	assert.Equal(t, NewNumber(4.5), s.Data[0].Value)
	assert.False(t, s.Data[1].Value.Valid)
}
