package idshift

import "testing"

func TestShift(t *testing.T) {
	tests := []struct {
		name    string
		index   int
		deleted []int
		want    int
	}{
		{"no deletions", 5, nil, 5},
		{"deletions below", 5, []int{2, 4}, 3},
		{"deletion at index", 5, []int{5}, 5},
		{"deletions above", 3, []int{7, 9}, 3},
		{"mixed", 10, []int{0, 3, 10, 12}, 8},
		{"order independent", 5, []int{4, 2}, 3},
		{"zero index", 0, []int{1, 2, 3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Shift(tt.index, tt.deleted); got != tt.want {
				t.Errorf("Shift(%d, %v) = %d, want %d", tt.index, tt.deleted, got, tt.want)
			}
		})
	}
}
