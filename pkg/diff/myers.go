// Package diff computes shortest edit scripts between two sequences using
// Myers' O(ND) algorithm.
package diff

// Op is an edit script command.
type Op int

const (
	Keep Op = iota
	Delete
	Insert
)

func (o Op) String() string {
	switch o {
	case Keep:
		return "KEEP"
	case Delete:
		return "DELETE"
	case Insert:
		return "INSERT"
	default:
		return "UNKNOWN"
	}
}

// Instruction is one step of an edit script.
//
// For Keep and Delete, Index points into the old sequence; for Insert it
// points into the new one. Seq is the position of the element in the new
// sequence, or -1 for Delete.
type Instruction struct {
	Index int
	Op    Op
	Seq   int
}

// EditScript returns a shortest edit script turning a into b, with
// instructions in the order they are to be applied.
func EditScript[T any](a, b []T, equal func(x, y T) bool) []Instruction {
	n, m := len(a), len(b)
	if n+m == 0 {
		return nil
	}

	trace := shortestPath(a, b, equal)
	steps := backtrack(trace, n, m)

	script := make([]Instruction, 0, len(steps))
	for i := len(steps) - 1; i >= 0; i-- {
		script = append(script, steps[i])
	}
	return script
}

// Counts returns the number of keep, delete and insert instructions.
func Counts(script []Instruction) (keep, del, ins int) {
	for _, in := range script {
		switch in.Op {
		case Keep:
			keep++
		case Delete:
			del++
		case Insert:
			ins++
		}
	}
	return
}

// shortestPath records the furthest-reaching x per diagonal for every
// edit distance d until the end point is reached.
func shortestPath[T any](a, b []T, equal func(x, y T) bool) [][]int {
	n, m := len(a), len(b)
	max := n + m
	offset := max
	v := make([]int, 2*max+2)
	var trace [][]int

	for d := 0; d <= max; d++ {
		snapshot := make([]int, len(v))
		copy(snapshot, v)
		trace = append(trace, snapshot)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
				x = v[offset+k+1]
			} else {
				x = v[offset+k-1] + 1
			}
			y := x - k
			for x < n && y < m && equal(a[x], b[y]) {
				x++
				y++
			}
			v[offset+k] = x
			if x >= n && y >= m {
				return trace
			}
		}
	}
	return trace
}

// backtrack walks the trace from the end point back to the origin and
// returns the steps in reverse order.
func backtrack(trace [][]int, n, m int) []Instruction {
	offset := n + m
	x, y := n, m
	var steps []Instruction

	for d := len(trace) - 1; d >= 0; d-- {
		v := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && v[offset+k-1] < v[offset+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := v[offset+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			steps = append(steps, Instruction{Index: x - 1, Op: Keep, Seq: y - 1})
			x--
			y--
		}
		if d > 0 {
			if x == prevX {
				steps = append(steps, Instruction{Index: y - 1, Op: Insert, Seq: y - 1})
			} else {
				steps = append(steps, Instruction{Index: x - 1, Op: Delete, Seq: -1})
			}
		}
		x, y = prevX, prevY
	}
	return steps
}
