package codec

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func complexValue() map[string]any {
	om := NewOrderedMap()
	om.Set("world", "hello")
	om.Set("hello", "world")
	return map[string]any{
		"buf":  []byte("son of a buffer"),
		"m":    om,
		"s":    NewSet("world", "hello"),
		"date": t0.Add(1500 * time.Millisecond),
		"n":    1.5,
		"nest": map[string]any{"list": []any{"a", true, nil}},
	}
}

func assertComplex(t *testing.T, got any) {
	t.Helper()
	rec, ok := got.(map[string]any)
	require.True(t, ok, "ctx is %T", got)

	assert.Equal(t, []byte("son of a buffer"), rec["buf"])

	om, ok := rec["m"].(*OrderedMap)
	require.True(t, ok, "m is %T", rec["m"])
	var keys []string
	for p := om.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"world", "hello"}, keys)
	v, _ := om.Get("hello")
	assert.Equal(t, "world", v)

	s, ok := rec["s"].(*Set)
	require.True(t, ok, "s is %T", rec["s"])
	assert.Equal(t, []any{"world", "hello"}, s.Values())

	d, ok := rec["date"].(time.Time)
	require.True(t, ok)
	assert.True(t, d.Equal(t0.Add(1500*time.Millisecond)))

	assert.Equal(t, 1.5, rec["n"])
	assert.Equal(t, map[string]any{"list": []any{"a", true, nil}}, rec["nest"])
}

func TestEncodeDecodeArmored(t *testing.T) {
	env := NewEnvelope(complexValue(), t0, time.Minute, Armored())
	raw, err := Encode(env)
	require.NoError(t, err)

	var stored map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	ctx, ok := stored["ctx"].(map[string]any)
	require.True(t, ok)
	save, ok := ctx["save"].(string)
	require.True(t, ok, "armored ctx must be {save: ...}")
	inner, err := base64.StdEncoding.DecodeString(save)
	require.NoError(t, err)
	assert.True(t, json.Valid(inner))
	assert.Contains(t, string(inner), `"$type":"buffer"`)
	assert.Equal(t, map[string]any{"use": true, "store": "base64", "parse": "utf-8"}, stored["encoder"])

	got, err := Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, got.Lifetime)
	assert.True(t, got.Lifetime.Equal(t0.Add(time.Minute)))
	assert.True(t, got.CreatedAt.Equal(t0))
	assertComplex(t, got.Ctx)
}

func TestEncodeDecodePlain(t *testing.T) {
	env := NewEnvelope(complexValue(), t0, 0, Plain())
	raw, err := Encode(env)
	require.NoError(t, err)
	assert.NotContains(t, raw, `"save"`)
	assert.Contains(t, raw, `"lifetime":null`)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Nil(t, got.Lifetime)
	assertComplex(t, got.Ctx)
}

func TestEncodeDecodeStoreAndCharsets(t *testing.T) {
	cases := []Encoding{
		{Use: true, Store: "hex", Parse: "utf-8"},
		{Use: true, Store: "base64url", Parse: "utf-8"},
		{Use: true, Store: "base64", Parse: "latin1"},
		{Use: true, Store: "base64", Parse: "utf-16le"},
		{Use: true, Store: "utf-8", Parse: "utf-8"},
	}
	for _, enc := range cases {
		t.Run(enc.Store+"/"+enc.Parse, func(t *testing.T) {
			v := map[string]any{"greeting": "héllo", "k": []any{1.0, 2.0}}
			raw, err := Encode(NewEnvelope(v, t0, 0, enc))
			require.NoError(t, err)
			got, err := Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, v, got.Ctx)
		})
	}
}

func TestUnsupportedEncoding(t *testing.T) {
	_, err := Encode(NewEnvelope("x", t0, 0, Encoding{Use: true, Store: "rot13"}))
	require.ErrorIs(t, err, ErrUnsupportedEncoding)

	_, err = Encode(NewEnvelope("x", t0, 0, Encoding{Use: true, Parse: "ebcdic"}))
	require.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestDecodeNullishAndCorrupt(t *testing.T) {
	env, err := Decode("")
	require.NoError(t, err)
	assert.Nil(t, env)

	env, err = Decode("null")
	require.NoError(t, err)
	assert.Nil(t, env)

	_, err = Decode("{not json")
	require.ErrorIs(t, err, ErrCorrupt)

	_, err = Decode(`{"ctx":{"save":"%%%"},"encoder":{"use":true,"store":"base64","parse":"utf-8"}}`)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestUnregisteredTypesFallBackToJSON(t *testing.T) {
	type point struct {
		X int `json:"x"`
	}
	raw, err := Encode(NewEnvelope(map[string]any{"p": point{X: 3}, "i": 7}, t0, 0, Armored()))
	require.NoError(t, err)
	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"p": map[string]any{"x": 3.0}, "i": 7.0}, got.Ctx)
}

func TestUnknownTagStaysRecord(t *testing.T) {
	raw := `{"ctx":{"$type":"mystery","$value":1},"createdAt":"2024-03-01T12:00:00Z","lifetime":null,"encoder":{"use":false,"store":"utf-8","parse":"utf-8"}}`
	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"$type": "mystery", "$value": 1.0}, got.Ctx)
}

func TestRegistryRejectsDuplicateTags(t *testing.T) {
	_, err := NewRegistry(BufferType, BufferType)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "duplicate"))

	reserved := BufferType
	reserved.Tag = "record"
	_, err = NewRegistry(reserved)
	assert.ErrorContains(t, err, "reserved")
}

func TestTagShapedRecordsRoundTrip(t *testing.T) {
	values := []any{
		map[string]any{"$type": "buffer", "$value": "aGk="},
		map[string]any{"$type": "date", "$value": "not a date"},
		map[string]any{"$type": "record", "$value": map[string]any{"x": 1.0}},
		map[string]any{"outer": map[string]any{"$type": "set", "$value": []any{"a"}}},
		[]any{map[string]any{"$type": "map", "$value": 3.0}},
	}
	for _, enc := range []Encoding{Plain(), Armored()} {
		for _, v := range values {
			raw, err := Encode(NewEnvelope(v, t0, 0, enc))
			require.NoError(t, err)
			got, err := Decode(raw)
			require.NoError(t, err, raw)
			assert.Equal(t, v, got.Ctx)

			cp, err := Default.Clone(v)
			require.NoError(t, err)
			assert.Equal(t, v, cp)
		}
	}
}

func TestTagShapedRecordKeepsRegisteredMembers(t *testing.T) {
	v := map[string]any{"$type": "buffer", "$value": []byte("raw")}
	raw, err := Encode(NewEnvelope(v, t0, 0, Armored()))
	require.NoError(t, err)
	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, v, got.Ctx)
}

func TestRegistryClone(t *testing.T) {
	src := map[string]any{"a": map[string]any{"b": []byte("x")}}
	cp, err := Default.Clone(src)
	require.NoError(t, err)
	src["a"].(map[string]any)["b"].([]byte)[0] = 'y'
	assert.Equal(t, []byte("x"), cp.(map[string]any)["a"].(map[string]any)["b"])
}

func TestExpiry(t *testing.T) {
	assert.True(t, IsExpired(nil, t0))
	forever := NewEnvelope("v", t0, 0, Plain())
	assert.False(t, IsExpired(forever, t0.Add(100*365*24*time.Hour)))

	e := NewEnvelope("v", t0, 50*time.Millisecond, Plain())
	assert.False(t, IsExpired(e, t0))
	assert.False(t, IsExpired(e, t0.Add(50*time.Millisecond)))
	assert.True(t, IsExpired(e, t0.Add(51*time.Millisecond)))
}

func TestSetSemantics(t *testing.T) {
	s := NewSet("a", "b")
	assert.False(t, s.Add("a"))
	assert.True(t, s.Add(1.0))
	assert.True(t, s.Has("b"))
	assert.False(t, s.Has([]any{"x"}))
	assert.True(t, s.Delete("a"))
	assert.Equal(t, []any{"b", 1.0}, s.Values())
	assert.Equal(t, 2, s.Len())
}
