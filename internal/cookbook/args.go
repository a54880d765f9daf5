package cookbook

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// Input values arrive as JSON numbers (float64), Go values from tests, or strings
// from `--set k=v`; cast normalizes all three.

func intArg(in Input, key string, def int) (int, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return def, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("input %q: %w", key, err)
	}
	return n, nil
}

func floatArg(in Input, key string, def float64) (float64, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return def, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("input %q: %w", key, err)
	}
	return f, nil
}

func boolArg(in Input, key string, def bool) (bool, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return def, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, fmt.Errorf("input %q: %w", key, err)
	}
	return b, nil
}

func stringArg(in Input, key, def string) (string, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return def, nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf("input %q: %w", key, err)
	}
	return s, nil
}

// durationArg accepts duration strings ("150ms") or numbers of milliseconds.
func durationArg(in Input, key string, def time.Duration) (time.Duration, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return def, nil
	}
	if s, isString := v.(string); isString {
		d, err := cast.ToDurationE(s)
		if err != nil {
			return 0, fmt.Errorf("input %q: %w", key, err)
		}
		return d, nil
	}
	ms, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("input %q: %w", key, err)
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}

func intsArg(in Input, key string, def []int) ([]int, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return def, nil
	}
	ns, err := cast.ToIntSliceE(v)
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", key, err)
	}
	return ns, nil
}

func stringsArg(in Input, key string, def []string) ([]string, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return def, nil
	}
	ss, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", key, err)
	}
	return ss, nil
}

func numberMapArg(in Input, key string, def map[string]float64) (map[string]float64, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return def, nil
	}
	raw, err := cast.ToStringMapE(v)
	if err != nil {
		return nil, fmt.Errorf("input %q: %w", key, err)
	}
	out := make(map[string]float64, len(raw))
	for k, x := range raw {
		f, err := cast.ToFloat64E(x)
		if err != nil {
			return nil, fmt.Errorf("input %q[%s]: %w", key, k, err)
		}
		out[k] = f
	}
	return out, nil
}
