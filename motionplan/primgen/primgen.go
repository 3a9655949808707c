// Package primgen generates the motion primitive asset for a 16 heading lattice.
package primgen

import (
	"math"

	"github.com/pkg/errors"

	"go.viam.com/latticeplanner/motionplan/xytheta"
	"go.viam.com/latticeplanner/utils"
)

// Action indices of the generated asset.
const (
	ActionForward xytheta.ActionID = iota
	ActionBackup
	ActionSoftLeft
	ActionSoftRight
	ActionHardLeft
	ActionHardRight
	ActionTurnLeft
	ActionTurnRight
	ActionLongForward
)

const (
	numAngles         = 16
	anglesPerQuadrant = 4

	defaultResolutionMM   = 10.
	defaultSoftTurnRadius = 80.
	defaultHardTurnRadius = 40.
	defaultArcSearchRange = 12

	parallelDetTolerance = 1e-9
	minRadiusFraction    = 0.5
	straightExcessWeight = 0.5
)

// Actions lists the generated action types in index order.
var Actions = []xytheta.ActionType{
	{Index: ActionForward, Name: "forward", ExtraCostFactor: 1.1},
	{Index: ActionBackup, Name: "backup", ExtraCostFactor: 1.5, Reverse: true},
	{Index: ActionSoftLeft, Name: "soft left", ExtraCostFactor: 1.05},
	{Index: ActionSoftRight, Name: "soft right", ExtraCostFactor: 1.05},
	{Index: ActionHardLeft, Name: "hard left", ExtraCostFactor: 1.1},
	{Index: ActionHardRight, Name: "hard right", ExtraCostFactor: 1.1},
	{Index: ActionTurnLeft, Name: "turn in place left", ExtraCostFactor: 1.2},
	{Index: ActionTurnRight, Name: "turn in place right", ExtraCostFactor: 1.2},
	{Index: ActionLongForward, Name: "long forward", ExtraCostFactor: 1.0},
}

// directions are the lattice steps of the first quadrant's headings.
var directions = [anglesPerQuadrant][2]int{{1, 0}, {2, 1}, {1, 1}, {1, 2}}

// GenParams controls the generated primitives.
type GenParams struct {
	ResolutionMM     float64             `json:"resolution_mm" yaml:"resolution_mm"`
	Robot            xytheta.RobotParams `json:"robot_params" yaml:"robot_params"`
	SoftTurnRadiusMM float64             `json:"soft_turn_radius_mm" yaml:"soft_turn_radius_mm"`
	HardTurnRadiusMM float64             `json:"hard_turn_radius_mm" yaml:"hard_turn_radius_mm"`
	// LongForwardSteps is how many lattice steps a long forward takes, per heading within a quadrant.
	LongForwardSteps [anglesPerQuadrant]int `json:"long_forward_steps" yaml:"long_forward_steps"`
	// ArcSearchRange bounds the end cell offsets tried for arcs.
	ArcSearchRange int `json:"arc_search_range" yaml:"arc_search_range"`
}

// DefaultGenParams returns the parameters of the default lattice.
func DefaultGenParams() GenParams {
	return GenParams{
		ResolutionMM:     defaultResolutionMM,
		Robot:            xytheta.DefaultRobotParams(),
		SoftTurnRadiusMM: defaultSoftTurnRadius,
		HardTurnRadiusMM: defaultHardTurnRadius,
		LongForwardSteps: [anglesPerQuadrant]int{5, 2, 3, 2},
		ArcSearchRange:   defaultArcSearchRange,
	}
}

// AngleDefinitions returns the continuous heading of each discrete one. Headings point along
// lattice steps so that straight primitives end exactly on a cell.
func AngleDefinitions() []float64 {
	base := [anglesPerQuadrant]float64{0, math.Atan2(1, 2), math.Pi / 4, math.Atan2(2, 1)}
	out := make([]float64, numAngles)
	for i := range out {
		out[i] = utils.WrapRadians(base[i%anglesPerQuadrant] + float64(i/anglesPerQuadrant)*math.Pi/2)
	}
	return out
}

// rotateQuarters rotates a cell offset counter-clockwise by q quarter turns.
func rotateQuarters(x, y, q int) (int, int) {
	for i := 0; i < q%4; i++ {
		x, y = -y, x
	}
	return x, y
}

// arcFit is a line, arc, line decomposition of a move between two headings.
type arcFit struct {
	radius float64
	lead   float64
	trail  float64
	sweep  float64
	start  float64
}

// fitArc finds the decomposition ending at cell offset (dx, dy). The lines lie along the start and
// end headings and the arc is tangent to both.
func fitArc(startAngle, endAngle float64, dx, dy int, resolution float64) (arcFit, bool) {
	sy, sx := math.Sincos(startAngle)
	ey, ex := math.Sincos(endAngle)
	endX, endY := float64(dx)*resolution, float64(dy)*resolution

	det := sx*ey - sy*ex
	if math.Abs(det) < parallelDetTolerance {
		return arcFit{}, false
	}
	// distances along the start and end headings to where the two lines meet
	t1 := (endX*ey - endY*ex) / det
	t2 := (sx*endY - sy*endX) / det
	if t1 <= 0 || t2 <= 0 {
		return arcFit{}, false
	}

	sweep := utils.WrapRadians(endAngle - startAngle)
	tangent := math.Min(t1, t2)
	return arcFit{
		radius: tangent / math.Tan(math.Abs(sweep)/2),
		lead:   t1 - tangent,
		trail:  t2 - tangent,
		sweep:  sweep,
		start:  startAngle,
	}, true
}

func (f arcFit) def() *xytheta.ArcDef {
	s, c := math.Sincos(f.start)
	ax, ay := f.lead*c, f.lead*s
	if f.sweep > 0 {
		return &xytheta.ArcDef{
			CenterXMM: ax - f.radius*s,
			CenterYMM: ay + f.radius*c,
			RadiusMM:  f.radius,
			StartRad:  utils.WrapRadians(f.start - math.Pi/2),
			SweepRad:  f.sweep,
		}
	}
	return &xytheta.ArcDef{
		CenterXMM: ax + f.radius*s,
		CenterYMM: ay - f.radius*c,
		RadiusMM:  f.radius,
		StartRad:  utils.WrapRadians(f.start + math.Pi/2),
		SweepRad:  f.sweep,
	}
}

// bestArcOffset searches end cells for the decomposition whose radius is closest to targetRadius,
// also penalizing the straight parts. Ties keep the first offset found.
func bestArcOffset(angles []float64, start, delta int, targetRadius float64, params GenParams) (int, int, error) {
	end := (start + delta + numAngles) % numAngles
	bestKey := math.Inf(1)
	bestX, bestY := 0, 0
	for dx := -params.ArcSearchRange; dx <= params.ArcSearchRange; dx++ {
		for dy := -params.ArcSearchRange; dy <= params.ArcSearchRange; dy++ {
			fit, ok := fitArc(angles[start], angles[end], dx, dy, params.ResolutionMM)
			if !ok || fit.radius < minRadiusFraction*targetRadius {
				continue
			}
			key := math.Abs(fit.radius-targetRadius) + straightExcessWeight*(fit.lead+fit.trail)
			if key < bestKey {
				bestKey = key
				bestX, bestY = dx, dy
			}
		}
	}
	if math.IsInf(bestKey, 1) {
		return 0, 0, errors.Errorf("no arc from angle %d turning %d angles with radius near %fmm", start, delta, targetRadius)
	}
	return bestX, bestY, nil
}

// Generate builds the create schema asset.
func Generate(params GenParams) (*xytheta.CreateAsset, error) {
	if err := params.Robot.Validate(); err != nil {
		return nil, err
	}
	if params.ResolutionMM <= 0 || params.SoftTurnRadiusMM <= 0 || params.HardTurnRadiusMM <= 0 || params.ArcSearchRange <= 0 {
		return nil, errors.New("resolution, turn radii and arc search range must be positive")
	}

	angles := AngleDefinitions()
	arcs := []struct {
		action xytheta.ActionID
		delta  int
		radius float64
	}{
		{ActionSoftLeft, 1, params.SoftTurnRadiusMM},
		{ActionSoftRight, -1, params.SoftTurnRadiusMM},
		{ActionHardLeft, 2, params.HardTurnRadiusMM},
		{ActionHardRight, -2, params.HardTurnRadiusMM},
	}

	// arc end offsets for the first quadrant, rotated into the others
	type offset struct{ x, y int }
	arcOffsets := map[xytheta.ActionID][anglesPerQuadrant]offset{}
	for _, arc := range arcs {
		var offsets [anglesPerQuadrant]offset
		for j := 0; j < anglesPerQuadrant; j++ {
			x, y, err := bestArcOffset(angles, j, arc.delta, arc.radius, params)
			if err != nil {
				return nil, err
			}
			offsets[j] = offset{x, y}
		}
		arcOffsets[arc.action] = offsets
	}

	robot := params.Robot
	asset := &xytheta.CreateAsset{
		AssetHeader: xytheta.AssetHeader{
			ResolutionMM:     params.ResolutionMM,
			NumAngles:        numAngles,
			Actions:          append([]xytheta.ActionType(nil), Actions...),
			AngleDefinitions: angles,
			RobotParams:      &robot,
		},
		Angles: make([]xytheta.CreateAngle, numAngles),
	}

	for st := 0; st < numAngles; st++ {
		q, j := st/anglesPerQuadrant, st%anglesPerQuadrant
		prims := make([]xytheta.CreatePrimitive, 0, len(Actions))
		straight := func(action xytheta.ActionID, steps int) xytheta.CreatePrimitive {
			x, y := rotateQuarters(directions[j][0]*steps, directions[j][1]*steps, q)
			length := math.Hypot(float64(x), float64(y)) * params.ResolutionMM
			if steps < 0 {
				length = -length
			}
			return xytheta.CreatePrimitive{
				ActionIndex:      action,
				StartTheta:       xytheta.GraphTheta(st),
				EndPose:          xytheta.NewGraphState(xytheta.GraphXY(x), xytheta.GraphXY(y), xytheta.GraphTheta(st)),
				StraightLengthMM: &length,
			}
		}
		turn := func(action xytheta.ActionID, delta int) xytheta.CreatePrimitive {
			end := (st + delta + numAngles) % numAngles
			dir := float64(delta)
			return xytheta.CreatePrimitive{
				ActionIndex:          action,
				StartTheta:           xytheta.GraphTheta(st),
				EndPose:              xytheta.NewGraphState(0, 0, xytheta.GraphTheta(end)),
				TurnInPlaceDirection: &dir,
			}
		}

		prims = append(prims, straight(ActionForward, 1), straight(ActionBackup, -1))
		for _, arc := range arcs {
			off := arcOffsets[arc.action][j]
			x, y := rotateQuarters(off.x, off.y, q)
			end := (st + arc.delta + numAngles) % numAngles
			fit, ok := fitArc(angles[st], angles[end], x, y, params.ResolutionMM)
			if !ok {
				return nil, errors.Errorf("arc for action %d does not fit at angle %d", arc.action, st)
			}
			prims = append(prims, xytheta.CreatePrimitive{
				ActionIndex: arc.action,
				StartTheta:  xytheta.GraphTheta(st),
				EndPose:     xytheta.NewGraphState(xytheta.GraphXY(x), xytheta.GraphXY(y), xytheta.GraphTheta(end)),
				Arc:         fit.def(),
			})
		}
		prims = append(prims,
			turn(ActionTurnLeft, 1),
			turn(ActionTurnRight, -1),
			straight(ActionLongForward, params.LongForwardSteps[j]),
		)
		asset.Angles[st].Prims = prims
	}
	return asset, nil
}

// GenerateActionSpace builds and loads the asset.
func GenerateActionSpace(params GenParams) (*xytheta.ActionSpace, error) {
	asset, err := Generate(params)
	if err != nil {
		return nil, err
	}
	return xytheta.NewActionSpaceFromCreate(asset)
}

// DefaultActionSpace loads the default lattice.
func DefaultActionSpace() (*xytheta.ActionSpace, error) {
	return GenerateActionSpace(DefaultGenParams())
}
