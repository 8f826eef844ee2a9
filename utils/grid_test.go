package utils

import (
	"testing"
)

func TestGridKey(t *testing.T) {
	testCases := []struct {
		name     string
		lat, lon float64
		expected string
	}{
		{
			name: "Plain coordinates",
			lat:  42.6977, lon: 23.3219,
			expected: "42.6977:23.3219",
		},
		{
			name: "Rounds beyond 4 decimals",
			lat:  42.69774999, lon: 23.32191234,
			expected: "42.6977:23.3219",
		},
		{
			name: "Rounds half up",
			lat:  42.69775, lon: 23.32195,
			expected: "42.6978:23.3220",
		},
		{
			name: "Pads short fractions",
			lat:  42.5, lon: 23,
			expected: "42.5000:23.0000",
		},
		{
			name: "Negative coordinates",
			lat:  -33.86882, lon: -151.20929,
			expected: "-33.8688:-151.2093",
		},
		{
			name: "Zero",
			lat:  0, lon: 0,
			expected: "0.0000:0.0000",
		},
	}

	for _, tc := range testCases {
		if got := GridKey(tc.lat, tc.lon); got != tc.expected {
			t.Errorf("%s: GridKey(%v, %v) = %q, expected %q", tc.name, tc.lat, tc.lon, got, tc.expected)
		}
	}
}

func TestGridKeyStableAcrossPrecision(t *testing.T) {
	// Inputs of different float precision landing in the same bucket must
	// produce the same merge identity.
	base := GridKey(42.6977, 23.3219)
	variants := [][2]float64{
		{42.69770, 23.32190},
		{42.69771, 23.32189},
		{42.697699, 23.321901},
	}
	for _, v := range variants {
		if got := GridKey(v[0], v[1]); got != base {
			t.Errorf("GridKey(%v, %v) = %q, expected %q", v[0], v[1], got, base)
		}
	}
}
