package provider

import (
	"math"
	"strings"

	"github.com/spf13/cast"
	"github.com/vzahanych/weather-report/internal/weather"
)

// Payload fields are read tolerantly: a missing key and a JSON null are both
// "absent", numbers may arrive as JSON numbers or numeric strings, and any
// other shape is a MalformedResponse.

func object(m map[string]any, key string) (map[string]any, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false, weather.Errorf(weather.KindMalformedResponse, "field %q is %T, want object", key, v)
	}
	return obj, true, nil
}

// firstObject returns m[key][0] for list-shaped fields. An empty list is absent.
func firstObject(m map[string]any, key string) (map[string]any, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, false, weather.Errorf(weather.KindMalformedResponse, "field %q is %T, want list", key, v)
	}
	if len(list) == 0 || list[0] == nil {
		return nil, false, nil
	}
	obj, ok := list[0].(map[string]any)
	if !ok {
		return nil, false, weather.Errorf(weather.KindMalformedResponse, "field %q[0] is %T, want object", key, list[0])
	}
	return obj, true, nil
}

func number(m map[string]any, key string) (float64, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false, nil
	}

	switch t := v.(type) {
	case bool, map[string]any, []any:
		return 0, false, weather.Errorf(weather.KindMalformedResponse, "field %q is %T, want number", key, v)
	case string:
		v = strings.TrimSpace(t)
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false, weather.NewError(weather.KindMalformedResponse, "field \""+key+"\" is not numeric", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false, weather.Errorf(weather.KindMalformedResponse, "field %q is not a finite number", key)
	}
	return f, true, nil
}

func numberOr(m map[string]any, key string, def float64) (float64, error) {
	f, ok, err := number(m, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	return f, nil
}

// text returns a non-empty string field. Numbers are rendered; empty strings are absent.
func text(m map[string]any, key string) (string, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false, nil
	}

	switch v.(type) {
	case map[string]any, []any:
		return "", false, weather.Errorf(weather.KindMalformedResponse, "field %q is %T, want string", key, v)
	}

	s, err := cast.ToStringE(v)
	if err != nil {
		return "", false, weather.NewError(weather.KindMalformedResponse, "field \""+key+"\" is not text", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false, nil
	}
	return s, true, nil
}

func required(m map[string]any, key string) (float64, error) {
	f, ok, err := number(m, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, weather.Errorf(weather.KindMissingRequiredField, "required field %q is absent", key)
	}
	return f, nil
}

type optional struct {
	key string
	def float64
	dst *float64
}

// readOptionals fills several numeric fields at once, stopping at the first malformed one.
func readOptionals(m map[string]any, fields ...optional) error {
	for _, f := range fields {
		v, err := numberOr(m, f.key, f.def)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}
