package utils

import (
	"fmt"
	"sort"

	"golang.org/x/exp/slices"
)

// Comparator orders a and b given the caller's arg. It returns a negative number when a sorts
// before b, a positive number when it sorts after, and zero otherwise.
type Comparator func(a, b []byte, arg any) int

// SortR sorts count elements of size bytes each, stored back to back at the start of base, using
// cmp with arg. cmp receives views of the element bytes that are only valid during the call.
//
// cmp and arg are bound to this call only, so SortR may be called concurrently and from inside a
// comparator. It panics if base is shorter than count*size.
func SortR(base []byte, count, size int, cmp Comparator, arg any) {
	if count <= 1 || size <= 0 {
		return
	}
	// Checked by division since count*size may overflow.
	if count > len(base)/size {
		panic(fmt.Sprintf("utils.SortR: %d elements of %d bytes exceed a %d byte buffer", count, size, len(base)))
	}
	elems := strided{
		base: base[:count*size],
		size: size,
		less: func(a, b []byte) bool { return cmp(a, b, arg) < 0 },
		tmp:  make([]byte, size),
	}
	sort.Sort(elems)
}

// SortFunc sorts s with cmp, handing arg to every comparison.
func SortFunc[E, C any](s []E, cmp func(a, b E, arg C) int, arg C) {
	slices.SortFunc(s, func(a, b E) int {
		return cmp(a, b, arg)
	})
}

// strided is a sort.Interface over fixed-size elements in a byte buffer.
type strided struct {
	base []byte
	size int
	less func(a, b []byte) bool
	tmp  []byte
}

func (s strided) elem(i int) []byte {
	return s.base[i*s.size : (i+1)*s.size]
}

func (s strided) Len() int {
	return len(s.base) / s.size
}

func (s strided) Less(i, j int) bool {
	return s.less(s.elem(i), s.elem(j))
}

func (s strided) Swap(i, j int) {
	copy(s.tmp, s.elem(i))
	copy(s.elem(i), s.elem(j))
	copy(s.elem(j), s.tmp)
}
