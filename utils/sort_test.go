package utils

import (
	"encoding/binary"
	"strconv"
	"sync"
	"testing"

	"go.viam.com/test"
)

type order struct {
	descending bool
}

func compareUint32(a, b []byte, arg any) int {
	x, y := binary.LittleEndian.Uint32(a), binary.LittleEndian.Uint32(b)
	res := 0
	switch {
	case x < y:
		res = -1
	case x > y:
		res = 1
	}
	if arg.(*order).descending {
		return -res
	}
	return res
}

func packUint32(values ...uint32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], v)
	}
	return buf
}

func unpackUint32(buf []byte) []uint32 {
	values := make([]uint32, len(buf)/4)
	for i := range values {
		values[i] = binary.LittleEndian.Uint32(buf[4*i:])
	}
	return values
}

func TestSortR(t *testing.T) {
	t.Run("ascending and descending context", func(t *testing.T) {
		buf := packUint32(5, 3, 1, 4, 2)
		SortR(buf, 5, 4, compareUint32, &order{})
		test.That(t, unpackUint32(buf), test.ShouldResemble, []uint32{1, 2, 3, 4, 5})

		buf = packUint32(5, 3, 1, 4, 2)
		SortR(buf, 5, 4, compareUint32, &order{descending: true})
		test.That(t, unpackUint32(buf), test.ShouldResemble, []uint32{5, 4, 3, 2, 1})

		// The descending context from the previous call must not carry over.
		buf = packUint32(9, 7, 8)
		SortR(buf, 3, 4, compareUint32, &order{})
		test.That(t, unpackUint32(buf), test.ShouldResemble, []uint32{7, 8, 9})
	})

	t.Run("only the first count elements are sorted", func(t *testing.T) {
		buf := packUint32(3, 2, 1, 0)
		SortR(buf, 3, 4, compareUint32, &order{})
		test.That(t, unpackUint32(buf), test.ShouldResemble, []uint32{1, 2, 3, 0})
	})

	t.Run("degenerate sizes are no-ops", func(t *testing.T) {
		buf := packUint32(2, 1)
		SortR(buf, 1, 4, compareUint32, &order{})
		SortR(buf, 2, 0, compareUint32, &order{})
		SortR(nil, 0, 4, compareUint32, &order{})
		test.That(t, unpackUint32(buf), test.ShouldResemble, []uint32{2, 1})
	})

	t.Run("short buffer panics", func(t *testing.T) {
		test.That(t, func() { SortR(make([]byte, 7), 2, 4, compareUint32, &order{}) }, test.ShouldPanic)
	})

	t.Run("element count overflowing the buffer size panics", func(t *testing.T) {
		test.That(t, func() { SortR(make([]byte, 8), 1<<(strconv.IntSize-2), 4, compareUint32, &order{}) }, test.ShouldPanic)
	})

	t.Run("nested sort inside a comparator", func(t *testing.T) {
		inner := 0
		outer := func(a, b []byte, arg any) int {
			scratch := packUint32(3, 1, 2)
			SortR(scratch, 3, 4, compareUint32, &order{descending: true})
			if unpackUint32(scratch)[0] == 3 {
				inner++
			}
			return compareUint32(a, b, arg)
		}
		buf := packUint32(4, 2, 3, 1)
		SortR(buf, 4, 4, outer, &order{})
		test.That(t, unpackUint32(buf), test.ShouldResemble, []uint32{1, 2, 3, 4})
		test.That(t, inner, test.ShouldBeGreaterThan, 0)
	})

	t.Run("concurrent sorts keep their own context", func(t *testing.T) {
		var wg sync.WaitGroup
		results := make([][]uint32, 16)
		for i := range results {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				buf := packUint32(5, 3, 1, 4, 2)
				SortR(buf, 5, 4, compareUint32, &order{descending: i%2 == 1})
				results[i] = unpackUint32(buf)
			}()
		}
		wg.Wait()
		for i, res := range results {
			if i%2 == 1 {
				test.That(t, res, test.ShouldResemble, []uint32{5, 4, 3, 2, 1})
			} else {
				test.That(t, res, test.ShouldResemble, []uint32{1, 2, 3, 4, 5})
			}
		}
	})
}

func TestSortFunc(t *testing.T) {
	cmp := func(a, b int, o order) int {
		if o.descending {
			return b - a
		}
		return a - b
	}
	values := []int{5, 3, 1, 4, 2}
	SortFunc(values, cmp, order{})
	test.That(t, values, test.ShouldResemble, []int{1, 2, 3, 4, 5})
	SortFunc(values, cmp, order{descending: true})
	test.That(t, values, test.ShouldResemble, []int{5, 4, 3, 2, 1})
}
