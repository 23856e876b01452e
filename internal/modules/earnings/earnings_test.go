// README: Commission math tests.
package earnings

import "testing"

func TestCommissionAmount(t *testing.T) {
	cases := []struct {
		total int64
		rate  float64
		want  int64
	}{
		{1000, 0.15, 150},
		{0, 0.15, 0},
		{1, 0.15, 0},   // 0.15 rounds down
		{10, 0.15, 2},  // 1.5 rounds half away from zero
		{333, 0.15, 50}, // 49.95 rounds up
		{1000, 0.0, 0},
		{1000, 1.0, 1000},
		{99999, 0.15, 15000},
	}
	for _, tc := range cases {
		got := CommissionAmount(tc.total, tc.rate)
		if got != tc.want {
			t.Errorf("CommissionAmount(%d, %v) = %d, want %d", tc.total, tc.rate, got, tc.want)
		}
	}
}
