package util

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		p    int
		want float64
	}{
		{"single", []float64{3}, 95, 3},
		{"exact rank", []float64{4, 1, 3, 2}, 50, 2},
		{"interpolated", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 95, 9.5},
		{"low percentile clamps", []float64{5, 6}, 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.in, tt.p)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Percentile(%v, %d) = %v, want %v", tt.in, tt.p, got, tt.want)
			}
		})
	}

	if !math.IsNaN(Percentile(nil, 50)) {
		t.Error("expected NaN for empty input")
	}
}

func TestPercentileDoesNotReorderInput(t *testing.T) {
	in := []float64{3, 1, 2}
	Percentile(in, 50)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("input reordered: %v", in)
	}
}

func TestIsInteger(t *testing.T) {
	tests := map[string]bool{
		"12":         true,
		"-7":         true,
		"007":        true,
		"":           false,
		"-":          false,
		"1.5":        false,
		"1990-01-01": false,
		"Product A":  false,
	}
	for in, want := range tests {
		if got := IsInteger(in); got != want {
			t.Errorf("IsInteger(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestText(t *testing.T) {
	if Text(int64(12)) != "12" || Text("x") != "x" || Text(nil) != "" || Text(2.5) != "2.5" {
		t.Error("unexpected Text conversion")
	}
}
