package xytheta

import (
	"encoding/json"
	"math"
	"os"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/latticeplanner/motionplan/path"
	"go.viam.com/latticeplanner/utils"
)

const (
	positionSampleMM  = 1.
	angleSampleRad    = math.Pi / 32
	sampleCeilEpsilon = 1e-9
	minSegmentLength  = 1e-6

	primTurnAngleTolerance = math.Pi / 90
)

// AssetHeader holds the fields shared by both primitive asset schemas.
type AssetHeader struct {
	ResolutionMM     float64      `json:"resolution_mm"`
	NumAngles        int          `json:"num_angles"`
	Actions          []ActionType `json:"actions"`
	AngleDefinitions []float64    `json:"angle_definitions"`
	RobotParams      *RobotParams `json:"robot_params,omitempty"`
}

// ArcDef is the arc of a primitive in the create schema.
type ArcDef struct {
	CenterXMM float64 `json:"centerPt_x_mm"`
	CenterYMM float64 `json:"centerPt_y_mm"`
	RadiusMM  float64 `json:"radius_mm"`
	StartRad  float64 `json:"startRad"`
	SweepRad  float64 `json:"sweepRad"`
}

// CreatePrimitive describes a primitive by its geometry. Exactly one of StraightLengthMM, Arc and
// TurnInPlaceDirection must be set.
type CreatePrimitive struct {
	ActionIndex ActionID   `json:"action_index"`
	StartTheta  GraphTheta `json:"start_theta"`
	EndPose     GraphState `json:"end_pose"`
	// IntermediatePoses overrides the samples derived from the segments.
	IntermediatePoses    []State  `json:"intermediate_poses,omitempty"`
	StraightLengthMM     *float64 `json:"straight_length_mm,omitempty"`
	Arc                  *ArcDef  `json:"arc,omitempty"`
	TurnInPlaceDirection *float64 `json:"turn_in_place_direction,omitempty"`
}

// CreateAngle lists the primitives starting at one heading.
type CreateAngle struct {
	Prims []CreatePrimitive `json:"prims"`
}

// CreateAsset is a primitive asset in the create schema.
type CreateAsset struct {
	AssetHeader
	Angles []CreateAngle `json:"angles"`
}

// DumpPrimitive is a fully computed primitive.
type DumpPrimitive struct {
	ActionIndex       ActionID               `json:"action_index"`
	StartTheta        GraphTheta             `json:"start_theta"`
	Cost              float64                `json:"cost"`
	EndStateOffset    GraphState             `json:"end_state_offset"`
	IntermediatePoses []IntermediatePosition `json:"intermediate_poses"`
	Segments          []path.Segment         `json:"segments,omitempty"`
}

// DumpAngle lists the dumped primitives starting at one heading.
type DumpAngle struct {
	Prims []DumpPrimitive `json:"prims"`
}

// DumpAsset is a primitive asset in the dump schema.
type DumpAsset struct {
	AssetHeader
	Angles []DumpAngle `json:"angles"`
}

// ParseMotionPrims reads a primitive asset in either schema.
func ParseMotionPrims(data []byte, dumpFormat bool) (*ActionSpace, error) {
	if dumpFormat {
		var asset DumpAsset
		if err := json.Unmarshal(data, &asset); err != nil {
			return nil, errors.Wrap(err, "parsing dumped motion primitives")
		}
		return NewActionSpaceFromDump(&asset)
	}
	var asset CreateAsset
	if err := json.Unmarshal(data, &asset); err != nil {
		return nil, errors.Wrap(err, "parsing motion primitives")
	}
	return NewActionSpaceFromCreate(&asset)
}

// ReadMotionPrims reads a primitive asset file.
func ReadMotionPrims(filename string, dumpFormat bool) (*ActionSpace, error) {
	//nolint:gosec
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	as, err := ParseMotionPrims(data, dumpFormat)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", filename)
	}
	return as, nil
}

func newActionSpaceFromHeader(header *AssetHeader, numAngleEntries int) (*ActionSpace, error) {
	var errs error
	if header.ResolutionMM <= 0 {
		errs = multierr.Append(errs, errors.Errorf("resolution_mm must be positive, got %f", header.ResolutionMM))
	}
	if header.NumAngles <= 0 || header.NumAngles > MaxNumAngles {
		errs = multierr.Append(errs, errors.Errorf("num_angles must be in [1, %d], got %d", MaxNumAngles, header.NumAngles))
	}
	if len(header.Actions) == 0 {
		errs = multierr.Append(errs, errors.New("empty or missing actions section"))
	}
	for i, action := range header.Actions {
		if int(action.Index) != i {
			errs = multierr.Append(errs, errors.Errorf("action %q has index %d but is listed at %d", action.Name, action.Index, i))
		}
		if action.ExtraCostFactor <= 0 {
			errs = multierr.Append(errs, errors.Errorf("action %q has non-positive extra_cost_factor", action.Name))
		}
	}
	if len(header.AngleDefinitions) != header.NumAngles {
		errs = multierr.Append(errs, errors.Errorf("num_angles is %d, but read %d angle definitions",
			header.NumAngles, len(header.AngleDefinitions)))
	}
	if numAngleEntries != header.NumAngles {
		errs = multierr.Append(errs, errors.Errorf("num_angles is %d, but read %d angles", header.NumAngles, numAngleEntries))
	}
	robot := DefaultRobotParams()
	if header.RobotParams != nil {
		robot = *header.RobotParams
	}
	errs = multierr.Append(errs, robot.Validate())
	if errs != nil {
		return nil, errs
	}

	as := &ActionSpace{
		resolutionMM:    header.ResolutionMM,
		numAngles:       header.NumAngles,
		radiansPerAngle: 2 * math.Pi / float64(header.NumAngles),
		actionTypes:     append([]ActionType(nil), header.Actions...),
		angles:          append([]float64(nil), header.AngleDefinitions...),
		robot:           robot,
		prims:           make([][]MotionPrimitive, header.NumAngles),
	}
	return as, nil
}

// NewActionSpaceFromCreate computes every primitive of a create schema asset.
func NewActionSpaceFromCreate(asset *CreateAsset) (*ActionSpace, error) {
	as, err := newActionSpaceFromHeader(&asset.AssetHeader, len(asset.Angles))
	if err != nil {
		return nil, err
	}

	var errs error
	for angle, angleDef := range asset.Angles {
		for i, def := range angleDef.Prims {
			if int(def.ActionIndex) != i {
				errs = multierr.Append(errs, errors.Errorf("angle %d prim %d has action_index %d", angle, i, def.ActionIndex))
				continue
			}
			prim, err := as.createPrimitive(def, GraphTheta(angle))
			if err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "angle %d action %d", angle, def.ActionIndex))
				continue
			}
			as.prims[angle] = append(as.prims[angle], prim)
		}
	}
	if errs != nil {
		return nil, errs
	}
	as.populateReversePrims()
	return as, nil
}

// NewActionSpaceFromDump loads precomputed primitives.
func NewActionSpaceFromDump(asset *DumpAsset) (*ActionSpace, error) {
	as, err := newActionSpaceFromHeader(&asset.AssetHeader, len(asset.Angles))
	if err != nil {
		return nil, err
	}

	var errs error
	for angle, angleDef := range asset.Angles {
		for i, def := range angleDef.Prims {
			prim, err := as.importPrimitive(def, GraphTheta(angle), i)
			if err != nil {
				errs = multierr.Append(errs, errors.Wrapf(err, "angle %d prim %d", angle, i))
				continue
			}
			as.prims[angle] = append(as.prims[angle], prim)
		}
	}
	if errs != nil {
		return nil, errs
	}
	as.populateReversePrims()
	return as, nil
}

func (as *ActionSpace) importPrimitive(def DumpPrimitive, angle GraphTheta, listIdx int) (MotionPrimitive, error) {
	switch {
	case int(def.ActionIndex) != listIdx || int(def.ActionIndex) >= len(as.actionTypes):
		return MotionPrimitive{}, errors.Errorf("invalid action_index %d", def.ActionIndex)
	case def.StartTheta != angle:
		return MotionPrimitive{}, errors.Errorf("start_theta %d listed under angle %d", def.StartTheta, angle)
	case def.Cost < MinPrimitiveCost:
		return MotionPrimitive{}, errors.Errorf("cost %f is below the minimum %f", def.Cost, MinPrimitiveCost)
	case int(def.EndStateOffset.Theta) >= as.numAngles:
		return MotionPrimitive{}, errors.Errorf("end theta %d out of range", def.EndStateOffset.Theta)
	case len(def.IntermediatePoses) == 0:
		return MotionPrimitive{}, errors.New("no intermediate poses")
	}
	for _, pt := range def.IntermediatePoses {
		if int(pt.NearestTheta) >= as.numAngles {
			return MotionPrimitive{}, errors.Errorf("intermediate theta %d out of range", pt.NearestTheta)
		}
	}

	prim := MotionPrimitive{
		ID:                    def.ActionIndex,
		StartTheta:            def.StartTheta,
		Cost:                  def.Cost,
		EndStateOffset:        def.EndStateOffset,
		IntermediatePositions: append([]IntermediatePosition(nil), def.IntermediatePoses...),
		Segments:              append([]path.Segment(nil), def.Segments...),
	}
	prim.computeBounds()
	return prim, nil
}

func (as *ActionSpace) createPrimitive(def CreatePrimitive, startTheta GraphTheta) (MotionPrimitive, error) {
	if int(def.ActionIndex) >= len(as.actionTypes) {
		return MotionPrimitive{}, errors.Errorf("unknown action_index %d", def.ActionIndex)
	}
	if def.StartTheta != startTheta {
		return MotionPrimitive{}, errors.Errorf("start_theta %d listed under angle %d", def.StartTheta, startTheta)
	}
	if int(def.EndPose.Theta) >= as.numAngles {
		return MotionPrimitive{}, errors.Errorf("end theta %d out of range", def.EndPose.Theta)
	}
	numDefs := 0
	for _, defined := range []bool{def.StraightLengthMM != nil, def.Arc != nil, def.TurnInPlaceDirection != nil} {
		if defined {
			numDefs++
		}
	}
	if numDefs != 1 {
		return MotionPrimitive{}, errors.Errorf("need exactly one of straight, arc or turn in place, got %d", numDefs)
	}

	action := as.actionTypes[def.ActionIndex]
	startAngle := as.angles[startTheta]
	endAngle := as.angles[def.EndPose.Theta]
	endPt := r2.Point{X: float64(def.EndPose.X) * as.resolutionMM, Y: float64(def.EndPose.Y) * as.resolutionMM}

	speed := as.robot.MaxVelocityMMPS
	if action.Reverse {
		speed = -as.robot.MaxReverseVelocityMMPS
	}
	accel := as.robot.LinearAccelMMPS2

	var segments []path.Segment
	switch {
	case def.StraightLengthMM != nil:
		length := *def.StraightLengthMM
		if math.Abs(length) < minSegmentLength {
			return MotionPrimitive{}, errors.New("straight primitive has zero length")
		}
		s, c := math.Sincos(startAngle)
		straightEnd := r2.Point{X: c * length, Y: s * length}
		if straightEnd.Sub(endPt).Norm() > as.resolutionMM/2 {
			return MotionPrimitive{}, errors.Errorf("straight of %fmm ends at %v, not near end_pose %v", length, straightEnd, def.EndPose)
		}
		segments = append(segments, path.NewLine(0, 0, endPt.X, endPt.Y, speed, accel, accel))

	case def.Arc != nil:
		arc := path.NewArc(def.Arc.CenterXMM, def.Arc.CenterYMM, def.Arc.RadiusMM, def.Arc.StartRad, def.Arc.SweepRad,
			speed, accel, accel)
		if utils.NearZero(def.Arc.SweepRad) || def.Arc.RadiusMM <= 0 {
			return MotionPrimitive{}, errors.New("arc primitive has no sweep or radius")
		}
		if arcStart := arc.StartPoint(); arcStart.Norm() > minSegmentLength {
			segments = append(segments, path.NewLine(0, 0, arcStart.X, arcStart.Y, speed, accel, accel))
		}
		segments = append(segments, arc)
		if arcEnd, _ := arc.EndPose(); arcEnd.Sub(endPt).Norm() > minSegmentLength {
			segments = append(segments, path.NewLine(arcEnd.X, arcEnd.Y, endPt.X, endPt.Y, speed, accel, accel))
		}

	default:
		if def.EndPose.X != 0 || def.EndPose.Y != 0 {
			return MotionPrimitive{}, errors.New("turn in place must not move")
		}
		dir := *def.TurnInPlaceDirection
		sweep := utils.AngleDiff(endAngle, startAngle)
		if dir == 0 || utils.NearZero(sweep) || (dir > 0) != (sweep > 0) {
			return MotionPrimitive{}, errors.Errorf("turn in place direction %f does not match the turn from %f to %f",
				dir, startAngle, endAngle)
		}
		rotSpeed := math.Copysign(as.robot.PointTurnSpeedRadPS, dir)
		segments = append(segments, path.NewPointTurn(0, 0, startAngle, endAngle, rotSpeed,
			as.robot.PointTurnAccelRadPS2, as.robot.PointTurnAccelRadPS2, primTurnAngleTolerance, false))
	}

	lastEnd, lastAngle := segments[len(segments)-1].EndPose()
	if lastEnd.Sub(endPt).Norm() > as.resolutionMM/2 {
		return MotionPrimitive{}, errors.Errorf("geometry ends at %v, not near end_pose %v", lastEnd, def.EndPose)
	}
	if math.Abs(utils.AngleDiff(lastAngle, endAngle)) > as.radiansPerAngle/2 {
		return MotionPrimitive{}, errors.Errorf("geometry ends at heading %f, not near end theta %d", lastAngle, def.EndPose.Theta)
	}

	prim := MotionPrimitive{
		ID:             def.ActionIndex,
		StartTheta:     startTheta,
		EndStateOffset: def.EndPose,
		Segments:       segments,
	}
	var seconds float64
	for _, seg := range segments {
		seconds += segmentTime(seg, as.robot)
	}
	prim.Cost = seconds * action.ExtraCostFactor
	if prim.Cost < MinPrimitiveCost {
		return MotionPrimitive{}, errors.Errorf("cost %f is below the minimum %f", prim.Cost, MinPrimitiveCost)
	}

	if len(def.IntermediatePoses) > 0 {
		samples, err := as.samplesFromPoses(State{Theta: startAngle}, def.IntermediatePoses)
		if err != nil {
			return MotionPrimitive{}, err
		}
		prim.IntermediatePositions = samples
	} else {
		prim.IntermediatePositions = as.sampleSegments(segments)
	}
	prim.computeBounds()
	return prim, nil
}

// sampleSegments walks the segments at most positionSampleMM and angleSampleRad apart, excluding
// the start and including the end.
func (as *ActionSpace) sampleSegments(segments []path.Segment) []IntermediatePosition {
	var out []IntermediatePosition
	add := func(x, y, theta, inverseDist float64) {
		theta = utils.WrapRadians(theta)
		out = append(out, IntermediatePosition{
			Position:     State{XMM: x, YMM: y, Theta: theta},
			NearestTheta: as.ThetaIndex(theta),
			InverseDist:  inverseDist,
		})
	}

	for _, seg := range segments {
		length := seg.Length()
		switch seg.Type {
		case path.SegmentLine:
			n := numSamples(length / positionSampleMM)
			line := seg.Line
			for i := 1; i <= n; i++ {
				f := float64(i) / float64(n)
				add(line.StartX+f*(line.EndX-line.StartX), line.StartY+f*(line.EndY-line.StartY), line.EndAngle, float64(n)/length)
			}
		case path.SegmentArc:
			arc := seg.Arc
			n := max(numSamples(length/positionSampleMM), numSamples(math.Abs(arc.SweepRad)/angleSampleRad))
			headingOffset := -math.Pi / 2
			if arc.SweepRad > 0 {
				headingOffset = math.Pi / 2
			}
			if seg.Speed.TargetSpeed < 0 {
				headingOffset += math.Pi
			}
			for i := 1; i <= n; i++ {
				a := arc.StartRad + arc.SweepRad*float64(i)/float64(n)
				s, c := math.Sincos(a)
				add(arc.CenterX+arc.Radius*c, arc.CenterY+arc.Radius*s, a+headingOffset, float64(n)/length)
			}
		case path.SegmentPointTurn:
			sweep := turnSweep(seg.Turn)
			n := numSamples(math.Abs(sweep) / angleSampleRad)
			inverseDist := float64(n) / (math.Abs(sweep) * as.robot.HalfWheelBaseMM)
			for i := 1; i <= n; i++ {
				add(seg.Turn.X, seg.Turn.Y, seg.Turn.StartAngle+sweep*float64(i)/float64(n), inverseDist)
			}
		}
	}
	return out
}

func numSamples(steps float64) int {
	return max(1, int(math.Ceil(steps-sampleCeilEpsilon)))
}

// samplesFromPoses converts explicit poses to samples, weighting each by the distance or rotation
// from the previous pose.
func (as *ActionSpace) samplesFromPoses(prev State, poses []State) ([]IntermediatePosition, error) {
	out := make([]IntermediatePosition, 0, len(poses))
	for i, pose := range poses {
		var inverseDist float64
		if d := pose.DistXY(prev); d > minSegmentLength {
			inverseDist = 1 / d
		} else if dTheta := math.Abs(utils.AngleDiff(pose.Theta, prev.Theta)); dTheta > minSegmentLength {
			inverseDist = 1 / (dTheta * as.robot.HalfWheelBaseMM)
		} else {
			return nil, errors.Errorf("intermediate pose %d does not move", i)
		}
		out = append(out, IntermediatePosition{
			Position:     pose,
			NearestTheta: as.ThetaIndex(pose.Theta),
			InverseDist:  inverseDist,
		})
		prev = pose
	}
	return out, nil
}

// Dump returns the asset in the dump schema.
func (as *ActionSpace) Dump() *DumpAsset {
	robot := as.robot
	asset := &DumpAsset{
		AssetHeader: AssetHeader{
			ResolutionMM:     as.resolutionMM,
			NumAngles:        as.numAngles,
			Actions:          append([]ActionType(nil), as.actionTypes...),
			AngleDefinitions: append([]float64(nil), as.angles...),
			RobotParams:      &robot,
		},
		Angles: make([]DumpAngle, as.numAngles),
	}
	for angle, prims := range as.prims {
		for _, prim := range prims {
			asset.Angles[angle].Prims = append(asset.Angles[angle].Prims, DumpPrimitive{
				ActionIndex:       prim.ID,
				StartTheta:        prim.StartTheta,
				Cost:              prim.Cost,
				EndStateOffset:    prim.EndStateOffset,
				IntermediatePoses: prim.IntermediatePositions,
				Segments:          prim.Segments,
			})
		}
	}
	return asset
}
