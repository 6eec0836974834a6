package module

import (
	"sort"
	"strconv"
)

// Values is the run-scoped bag of derived values passed between steps.
// Missing keys read as the caller's default.
type Values struct {
	data map[string]string
}

// NewValues returns an empty bag.
func NewValues() *Values {
	return &Values{data: map[string]string{}}
}

// Set stores a string value.
func (v *Values) Set(key, value string) {
	v.data[key] = value
}

// SetFloat stores a number.
func (v *Values) SetFloat(key string, value float64) {
	v.data[key] = strconv.FormatFloat(value, 'f', -1, 64)
}

// String returns a value or def.
func (v *Values) String(key, def string) string {
	if value, ok := v.data[key]; ok {
		return value
	}
	return def
}

// Float returns a numeric value or def.
func (v *Values) Float(key string, def float64) float64 {
	value, ok := v.data[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return f
}

// Snapshot copies the bag for run reports.
func (v *Values) Snapshot() map[string]string {
	out := make(map[string]string, len(v.data))
	for k, val := range v.data {
		out[k] = val
	}
	return out
}

// Keys lists stored keys in sorted order.
func (v *Values) Keys() []string {
	keys := make([]string, 0, len(v.data))
	for k := range v.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
