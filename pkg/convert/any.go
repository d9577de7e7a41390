// Copyright (c) 2026 Kinomir contributors. All rights reserved.

package convert

import "strconv"

// ToFloat64OK coerces a dynamically-typed JSON value to a float64.
//
// Unlike [ToFloat64], it reports whether the coercion actually succeeded so
// callers can distinguish "absent" from "present but zero" — the normalizer
// needs this to decide whether an external rating was ever supplied.
func ToFloat64OK(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ToIntOK coerces a dynamically-typed JSON value to an int.
func ToIntOK(v any) (int, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	case string:
		i, err := strconv.Atoi(t)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// ToStringOK coerces a dynamically-typed JSON scalar to a non-empty string.
// Lists, maps, and false/zero-ish "empty" values report false, matching the
// normalizer's truthiness rules for external ids and alt-title sources.
func ToStringOK(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		if t == "" {
			return "", false
		}
		return t, true
	case float64:
		if t == 0 {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		if t == 0 {
			return "", false
		}
		return strconv.Itoa(t), true
	case bool:
		// A bare boolean `true` has no sensible string representation as an
		// id/title; `false` is always dropped as falsy.
		if !t {
			return "", false
		}
		return "", false
	default:
		return "", false
	}
}

// Truthy reports whether v is a "present" JSON value per the normalizer's
// rules: nil, false, "", 0, and empty slices/maps are all falsy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
