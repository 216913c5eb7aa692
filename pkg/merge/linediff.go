package merge

import (
	"bytes"
	"strings"
)

const binarySniffLen = 8192

// IsBinary reports whether data looks like binary content: a NUL byte in
// the first 8 KiB.
func IsBinary(data []byte) bool {
	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	return bytes.IndexByte(sniff, 0) >= 0
}

// LineChanges counts the lines added and deleted between two text
// revisions, derived from the Myers minimal edit distance over whole lines.
func LineChanges(before, after []byte) (added, deleted int) {
	a := splitLines(before)
	b := splitLines(after)
	d := editDistance(a, b)
	lcs := (len(a) + len(b) - d) / 2
	return len(b) - lcs, len(a) - lcs
}

func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	lines := strings.Split(string(data), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// editDistance runs the forward pass of the Myers diff algorithm over
// whole lines, returning the size of the minimum edit script. Only the
// distance is needed for counting, so no trace is kept.
func editDistance(a, b []string) int {
	n := len(a)
	m := len(b)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}

	max := n + m
	v := make([]int, 2*max+1)

	for d := 0; d <= max; d++ {
		for k := -d; k <= d; k += 2 {
			idx := k + max
			var x int
			if k == -d || (k != d && v[idx-1] < v[idx+1]) {
				x = v[idx+1] // move down (insert)
			} else {
				x = v[idx-1] + 1 // move right (delete)
			}
			y := x - k

			// Follow the diagonal through equal lines.
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}

			v[idx] = x

			if x >= n && y >= m {
				return d
			}
		}
	}
	return max
}
