package xytheta

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// GoalPose is one of the poses the planner may finish at.
type GoalPose struct {
	ID    GoalID `json:"goalID"`
	State State  `json:"state"`
}

// PlannerContext is everything the planner reads when it runs. The caller owns it and must not
// change it while a search is running.
type PlannerContext struct {
	Env   *Environment
	Start State
	Goals []GoalPose

	AllowFreeTurnInPlaceAtGoal bool
	ForceReplanFromScratch     bool
}

// NewPlannerContext returns a context with no goals planning in `env`.
func NewPlannerContext(env *Environment) *PlannerContext {
	return &PlannerContext{Env: env}
}

// SetGoal adds the goal, or moves it if a goal with the same id exists.
func (pc *PlannerContext) SetGoal(id GoalID, s State) {
	for i := range pc.Goals {
		if pc.Goals[i].ID == id {
			pc.Goals[i].State = s
			return
		}
	}
	pc.Goals = append(pc.Goals, GoalPose{ID: id, State: s})
}

// Goal returns the pose of the goal with the given id.
func (pc *PlannerContext) Goal(id GoalID) (State, bool) {
	goal, ok := lo.Find(pc.Goals, func(g GoalPose) bool { return g.ID == id })
	return goal.State, ok
}

type plannerContextJSON struct {
	Env            json.RawMessage `json:"env"`
	Goals          []GoalPose      `json:"goals"`
	Start          State           `json:"start"`
	FreeTurnAtGoal int             `json:"free_turn_at_goal"`
	ForceReplan    int             `json:"force_replan"`
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// MarshalJSON writes the environment's obstacles, the start, the goals and the flags.
func (pc *PlannerContext) MarshalJSON() ([]byte, error) {
	env, err := json.Marshal(pc.Env)
	if err != nil {
		return nil, err
	}
	return json.Marshal(plannerContextJSON{
		Env:            env,
		Goals:          pc.Goals,
		Start:          pc.Start,
		FreeTurnAtGoal: boolToInt(pc.AllowFreeTurnInPlaceAtGoal),
		ForceReplan:    boolToInt(pc.ForceReplanFromScratch),
	})
}

// Import replaces the context with a dump written by MarshalJSON. The context's environment must
// already be set, since the dump does not carry motion primitives.
func (pc *PlannerContext) Import(data []byte) error {
	if pc.Env == nil {
		return errors.New("cannot import a planner context without an environment")
	}
	var in plannerContextJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.Wrap(err, "parsing planner context")
	}
	if len(in.Env) > 0 {
		if err := pc.Env.Import(in.Env); err != nil {
			return err
		}
	}
	pc.Goals = in.Goals
	pc.Start = in.Start
	pc.AllowFreeTurnInPlaceAtGoal = in.FreeTurnAtGoal != 0
	pc.ForceReplanFromScratch = in.ForceReplan != 0
	return nil
}

// ReadPlannerContext loads a context dump from a file, planning with `space`.
func ReadPlannerContext(filename string, space *ActionSpace) (*PlannerContext, error) {
	//nolint:gosec
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	pc := NewPlannerContext(NewEnvironment(space))
	if err := pc.Import(data); err != nil {
		return nil, errors.Wrapf(err, "reading %q", filename)
	}
	return pc, nil
}
