// Package idshift recomputes array indices after elements have been
// deleted from a dense array.
package idshift

// Shift returns the new position of index after every index in deleted
// has been removed from the array: one decrement per deleted index
// strictly less than index. The order of deleted does not matter.
func Shift(index int, deleted []int) int {
	shifted := index
	for _, d := range deleted {
		if d < index {
			shifted--
		}
	}
	return shifted
}
