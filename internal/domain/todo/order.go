package todo

import "sort"

// Renumber assigns order 1..N following slice position.
func Renumber(tasks []Task) {
	for i := range tasks {
		tasks[i].Order = i + 1
	}
}

// SortByOrder stably sorts tasks by their current order value.
func SortByOrder(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Order < tasks[j].Order })
}

// Compact sorts by the existing order and then renumbers densely, so that
// gaps left by deletions close up without changing relative position.
func Compact(tasks []Task) {
	SortByOrder(tasks)
	Renumber(tasks)
}

// IsDense reports whether the order values form exactly {1..N}.
func IsDense(tasks []Task) bool {
	seen := make([]bool, len(tasks)+1)
	for i := range tasks {
		o := tasks[i].Order
		if o < 1 || o > len(tasks) || seen[o] {
			return false
		}
		seen[o] = true
	}
	return true
}

// NextOrder returns the order a newly appended task should receive.
func NextOrder(tasks []Task) int {
	highest := 0
	for i := range tasks {
		if tasks[i].Order > highest {
			highest = tasks[i].Order
		}
	}
	return highest + 1
}

// RemainingMinutes sums the estimates of tasks not yet completed.
func RemainingMinutes(tasks []Task) int {
	total := 0
	for i := range tasks {
		if !tasks[i].Checked {
			total += tasks[i].EstimatedMinutes
		}
	}
	return total
}
