package xytheta_test

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/latticeplanner/motionplan/xytheta"
)

func TestPlanAppend(t *testing.T) {
	t.Run("empty plan takes the appended start", func(t *testing.T) {
		total := &xytheta.Plan{}
		other := &xytheta.Plan{Start: xytheta.NewGraphState(30, 30, 4)}
		other.Push(0, 0)
		other.Push(2, 1.5)

		total.Append(other)
		test.That(t, total.Start, test.ShouldResemble, xytheta.NewGraphState(30, 30, 4))
		test.That(t, total.Size(), test.ShouldEqual, 2)
		test.That(t, total.Action(1), test.ShouldEqual, xytheta.ActionID(2))
		test.That(t, total.Penalty(1), test.ShouldEqual, 1.5)
	})

	t.Run("cleared plan takes the appended start", func(t *testing.T) {
		total := &xytheta.Plan{Start: xytheta.NewGraphState(1, 2, 3)}
		total.Push(0, 0)
		total.Clear()
		test.That(t, total.Empty(), test.ShouldBeTrue)

		other := &xytheta.Plan{Start: xytheta.NewGraphState(-5, 7, 0)}
		other.Push(8, 0)
		total.Append(other)
		test.That(t, total.Start, test.ShouldResemble, xytheta.NewGraphState(-5, 7, 0))
		test.That(t, total.Size(), test.ShouldEqual, 1)
	})

	t.Run("non-empty plan keeps its start", func(t *testing.T) {
		total := &xytheta.Plan{Start: xytheta.NewGraphState(1, 2, 3)}
		total.Push(0, 0)

		other := &xytheta.Plan{Start: xytheta.NewGraphState(9, 9, 9)}
		other.Push(1, 0)
		total.Append(other)
		test.That(t, total.Start, test.ShouldResemble, xytheta.NewGraphState(1, 2, 3))
		test.That(t, total.Size(), test.ShouldEqual, 2)
		test.That(t, total.Action(0), test.ShouldEqual, xytheta.ActionID(0))
		test.That(t, total.Action(1), test.ShouldEqual, xytheta.ActionID(1))
	})

	t.Run("copy is independent", func(t *testing.T) {
		p := &xytheta.Plan{Start: xytheta.NewGraphState(1, 0, 0)}
		p.Push(0, 0)
		cp := p.Copy()
		cp.Push(1, 0)
		test.That(t, p.Size(), test.ShouldEqual, 1)
		test.That(t, cp.Size(), test.ShouldEqual, 2)
	})
}
