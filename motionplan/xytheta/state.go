// Package xytheta contains the discretized (x, y, theta) lattice used by the planner: the state
// model, the motion primitive library, and the obstacle environment.
package xytheta

import (
	"fmt"
	"math"
)

// StateID packs a GraphState into 32 bits.
type StateID uint32

// GraphXY is a discrete x or y coordinate, measured in lattice cells.
type GraphXY int16

// GraphTheta is a discrete heading index.
type GraphTheta uint8

// ActionID indexes an ActionType.
type ActionID uint8

// GoalID names one of the planner's goals.
type GoalID uint8

const (
	xyBits    = 14
	thetaBits = 4

	xyMask     = 1<<xyBits - 1
	thetaMask  = 1<<thetaBits - 1
	yShift     = xyBits
	thetaShift = 2 * xyBits

	// MaxGraphXY and MinGraphXY bound the coordinates a StateID can represent.
	MaxGraphXY = 1<<(xyBits-1) - 1
	MinGraphXY = -(1 << (xyBits - 1))

	// MaxNumAngles is the most headings a StateID can represent.
	MaxNumAngles = 1 << thetaBits
)

// compile-time check that the fields fill the id exactly
var _ = [1]struct{}{}[2*xyBits+thetaBits-32]

// GraphState is a cell of the lattice.
type GraphState struct {
	X     GraphXY    `json:"x"`
	Y     GraphXY    `json:"y"`
	Theta GraphTheta `json:"theta"`
}

// NewGraphState returns the graph state (x, y, theta).
func NewGraphState(x, y GraphXY, theta GraphTheta) GraphState {
	return GraphState{X: x, Y: y, Theta: theta}
}

// InRange reports whether the state can be encoded without wrapping.
func (s GraphState) InRange() bool {
	return s.X >= MinGraphXY && s.X <= MaxGraphXY &&
		s.Y >= MinGraphXY && s.Y <= MaxGraphXY &&
		s.Theta < MaxNumAngles
}

// ID encodes the state. Coordinates outside [MinGraphXY, MaxGraphXY] wrap.
func (s GraphState) ID() StateID {
	return StateID(uint32(uint16(s.X))&xyMask |
		(uint32(uint16(s.Y))&xyMask)<<yShift |
		(uint32(s.Theta)&thetaMask)<<thetaShift)
}

// SameXY reports whether both states occupy the same cell, regardless of heading.
func (s GraphState) SameXY(other GraphState) bool {
	return s.X == other.X && s.Y == other.Y
}

func (s GraphState) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.X, s.Y, s.Theta)
}

// signExtend interprets the low xyBits of v as a two's complement number.
func signExtend(v uint32) GraphXY {
	const shift = 16 - xyBits
	return GraphXY(int16(uint16(v&xyMask)<<shift) >> shift)
}

// GraphState decodes the id.
func (id StateID) GraphState() GraphState {
	v := uint32(id)
	return GraphState{
		X:     signExtend(v),
		Y:     signExtend(v >> yShift),
		Theta: GraphTheta((v >> thetaShift) & thetaMask),
	}
}

func (id StateID) String() string {
	return id.GraphState().String()
}

// State is a continuous pose in millimeters and radians.
type State struct {
	XMM   float64 `json:"x_mm"`
	YMM   float64 `json:"y_mm"`
	Theta float64 `json:"theta"`
}

// NewState returns the pose (x, y, theta).
func NewState(x, y, theta float64) State {
	return State{XMM: x, YMM: y, Theta: theta}
}

// DistXY returns the planar distance between two poses.
func (s State) DistXY(other State) float64 {
	return math.Hypot(s.XMM-other.XMM, s.YMM-other.YMM)
}

func (s State) String() string {
	return fmt.Sprintf("(%fmm, %fmm, %frad)", s.XMM, s.YMM, s.Theta)
}
