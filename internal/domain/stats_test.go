package domain

import "testing"

func TestCompletionRate(t *testing.T) {
	cases := []struct {
		name      string
		completed int64
		total     int64
		want      float64
	}{
		{"empty population", 0, 0, 0},
		{"thirty percent", 3, 10, 0.3},
		{"all completed", 5, 5, 1},
		{"none completed", 0, 7, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CompletionRate(tc.completed, tc.total); got != tc.want {
				t.Fatalf("CompletionRate(%d, %d) = %v, want %v", tc.completed, tc.total, got, tc.want)
			}
		})
	}
}
