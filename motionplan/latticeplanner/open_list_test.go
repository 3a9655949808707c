package latticeplanner_test

import (
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/latticeplanner/motionplan/latticeplanner"
	"go.viam.com/latticeplanner/motionplan/xytheta"
)

func TestOpenListOrder(t *testing.T) {
	ol := latticeplanner.NewOpenList()
	test.That(t, ol.Empty(), test.ShouldBeTrue)
	test.That(t, ol.TopF(), test.ShouldEqual, math.Inf(1))
	_, ok := ol.Top()
	test.That(t, ok, test.ShouldBeFalse)
	_, _, ok = ol.Pop()
	test.That(t, ok, test.ShouldBeFalse)

	fs := []float64{5, 1, 3, 1, 4, 1}
	for i, f := range fs {
		ol.Insert(xytheta.StateID(i), f)
	}
	test.That(t, ol.Len(), test.ShouldEqual, len(fs))
	test.That(t, ol.TopF(), test.ShouldEqual, 1.)
	top, ok := ol.Top()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, top, test.ShouldEqual, xytheta.StateID(1))

	// ties come out in insertion order
	var got []xytheta.StateID
	for !ol.Empty() {
		id, _, ok := ol.Pop()
		test.That(t, ok, test.ShouldBeTrue)
		got = append(got, id)
	}
	test.That(t, got, test.ShouldResemble, []xytheta.StateID{1, 3, 5, 2, 4, 0})
}

func TestOpenListRemove(t *testing.T) {
	ol := latticeplanner.NewOpenList()
	test.That(t, latticeplanner.NullHandle.IsNull(), test.ShouldBeTrue)
	test.That(t, ol.Contains(latticeplanner.NullHandle), test.ShouldBeFalse)
	test.That(t, ol.Remove(latticeplanner.NullHandle), test.ShouldBeError, latticeplanner.ErrStaleHandle)

	a := ol.Insert(10, 2)
	b := ol.Insert(11, 1)
	c := ol.Insert(12, 3)
	test.That(t, a.IsNull(), test.ShouldBeFalse)
	test.That(t, a, test.ShouldNotResemble, b)

	// decrease key
	test.That(t, ol.Remove(c), test.ShouldBeNil)
	test.That(t, ol.Contains(c), test.ShouldBeFalse)
	test.That(t, ol.Remove(c), test.ShouldBeError, latticeplanner.ErrStaleHandle)
	c2 := ol.Insert(12, 0.5)
	test.That(t, ol.Contains(c2), test.ShouldBeTrue)

	// the freed slot is reused, but the old handle stays stale
	test.That(t, ol.Contains(c), test.ShouldBeFalse)
	test.That(t, ol.Remove(c), test.ShouldBeError, latticeplanner.ErrStaleHandle)

	id, f, ok := ol.Pop()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, id, test.ShouldEqual, xytheta.StateID(12))
	test.That(t, f, test.ShouldEqual, 0.5)
	test.That(t, ol.Contains(c2), test.ShouldBeFalse)

	test.That(t, ol.Remove(a), test.ShouldBeNil)
	id, _, ok = ol.Pop()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, id, test.ShouldEqual, xytheta.StateID(11))
	test.That(t, ol.Contains(b), test.ShouldBeFalse)
	test.That(t, ol.Empty(), test.ShouldBeTrue)
}

func TestOpenListClear(t *testing.T) {
	ol := latticeplanner.NewOpenList()
	handles := []latticeplanner.Handle{ol.Insert(1, 1), ol.Insert(2, 2), ol.Insert(3, 3)}
	test.That(t, ol.Remove(handles[1]), test.ShouldBeNil)
	ol.Clear()
	test.That(t, ol.Empty(), test.ShouldBeTrue)
	for _, h := range handles {
		test.That(t, ol.Contains(h), test.ShouldBeFalse)
		test.That(t, ol.Remove(h), test.ShouldBeError, latticeplanner.ErrStaleHandle)
	}

	h := ol.Insert(4, 7)
	test.That(t, ol.Contains(h), test.ShouldBeTrue)
	for _, old := range handles {
		test.That(t, old, test.ShouldNotResemble, h)
	}
	id, f, ok := ol.Pop()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, id, test.ShouldEqual, xytheta.StateID(4))
	test.That(t, f, test.ShouldEqual, 7.)
}

func TestOpenListHeapProperty(t *testing.T) {
	ol := latticeplanner.NewOpenList()
	var handles []latticeplanner.Handle
	for i := 0; i < 200; i++ {
		f := float64((i * 37) % 101)
		handles = append(handles, ol.Insert(xytheta.StateID(i), f))
	}
	for i := 0; i < 200; i += 3 {
		test.That(t, ol.Remove(handles[i]), test.ShouldBeNil)
	}
	last := math.Inf(-1)
	n := 0
	for !ol.Empty() {
		id, f, _ := ol.Pop()
		test.That(t, int(id)%3, test.ShouldNotEqual, 0)
		test.That(t, f, test.ShouldBeGreaterThanOrEqualTo, last)
		last = f
		n++
	}
	test.That(t, n, test.ShouldEqual, 200-67)
}

func TestStateTable(t *testing.T) {
	table := latticeplanner.NewStateTable()
	test.That(t, table.Find(3), test.ShouldBeNil)

	entry := table.Emplace(3, latticeplanner.StateEntry{G: 1.5, Backpointer: 2, ClosedIter: -1})
	test.That(t, table.Len(), test.ShouldEqual, 1)
	test.That(t, entry.IsClosed(1), test.ShouldBeFalse)
	entry.ClosedIter = 1
	test.That(t, table.Find(3).IsClosed(1), test.ShouldBeTrue)
	test.That(t, table.Find(3).IsClosed(2), test.ShouldBeFalse)
	test.That(t, table.Find(3).OpenHandle.IsNull(), test.ShouldBeTrue)

	// emplacing again replaces the entry rather than adding one
	table.Emplace(3, latticeplanner.StateEntry{G: 0.5, ClosedIter: -1})
	test.That(t, table.Len(), test.ShouldEqual, 1)
	test.That(t, table.Find(3).G, test.ShouldEqual, 0.5)
	test.That(t, table.Find(3).IsClosed(1), test.ShouldBeFalse)

	table.Clear()
	test.That(t, table.Len(), test.ShouldEqual, 0)
	test.That(t, table.Find(3), test.ShouldBeNil)
}
