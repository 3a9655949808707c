package xytheta

import (
	"encoding/json"

	"github.com/pkg/errors"

	"go.viam.com/latticeplanner/spatialmath"
)

type obstacleJSON struct {
	Cost float64                   `json:"cost"`
	Poly spatialmath.ConvexPolygon `json:"poly"`
}

type obstacleAngleJSON struct {
	Obstacles []obstacleJSON `json:"obstacles"`
}

type obstaclesJSON struct {
	Angles []obstacleAngleJSON `json:"angles"`
}

type environmentJSON struct {
	Obstacles    *obstaclesJSON `json:"obstacles"`
	ResolutionMM float64        `json:"resolution_mm"`
	RobotParams  *RobotParams   `json:"robotParams,omitempty"`
}

// MarshalJSON writes the obstacles of every heading.
func (env *Environment) MarshalJSON() ([]byte, error) {
	robot := env.space.RobotParams()
	out := environmentJSON{
		Obstacles:    &obstaclesJSON{Angles: make([]obstacleAngleJSON, len(env.obstacles))},
		ResolutionMM: env.space.ResolutionMM(),
		RobotParams:  &robot,
	}
	for theta, obstacles := range env.obstacles {
		angle := &out.Obstacles.Angles[theta]
		angle.Obstacles = make([]obstacleJSON, 0, len(obstacles))
		for _, obs := range obstacles {
			angle.Obstacles = append(angle.Obstacles, obstacleJSON{Cost: obs.Cost, Poly: obs.Poly.Polygon()})
		}
	}
	return json.Marshal(out)
}

// Import replaces the obstacles with those in a dump written by MarshalJSON. The dump must have been
// written for the same lattice.
func (env *Environment) Import(data []byte) error {
	var in environmentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.Wrap(err, "parsing environment")
	}
	if in.ResolutionMM != 0 && in.ResolutionMM != env.space.ResolutionMM() {
		return errors.Errorf("environment has resolution %fmm but the primitives use %fmm",
			in.ResolutionMM, env.space.ResolutionMM())
	}
	if in.Obstacles == nil {
		env.ClearObstacles()
		return nil
	}
	if len(in.Obstacles.Angles) != env.space.NumAngles() {
		return errors.Errorf("environment has %d angles but the primitives use %d",
			len(in.Obstacles.Angles), env.space.NumAngles())
	}

	env.ClearObstacles()
	for theta, angle := range in.Obstacles.Angles {
		for _, obs := range angle.Obstacles {
			env.addObstacle(GraphTheta(theta), spatialmath.NewFastPolygon(obs.Poly), obs.Cost)
		}
	}
	return nil
}
