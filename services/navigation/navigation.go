// Package navigation runs the lattice planner on behalf of a robot: it turns raw obstacles into
// configuration space, plans on a background worker, keeps the still-safe part of the previous
// plan while replanning, and turns the result into a drivable path.
package navigation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/latticeplanner/logging"
	"go.viam.com/latticeplanner/motionplan/latticeplanner"
	"go.viam.com/latticeplanner/motionplan/xytheta"
	"go.viam.com/latticeplanner/spatialmath"
	"go.viam.com/latticeplanner/utils"
)

// PlannerStatus is where the service is in its most recent planning request.
type PlannerStatus int32

// The set of planner statuses.
const (
	StatusReady = PlannerStatus(iota)
	StatusRunning
	StatusCompleteWithPlan
	StatusCompleteNoPlan
	StatusError
)

func (s PlannerStatus) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusCompleteWithPlan:
		return "complete with plan"
	case StatusCompleteNoPlan:
		return "complete without plan"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ComputePathStatus is the immediate answer to a request to plan.
type ComputePathStatus int

// The set of compute path statuses.
const (
	ComputeError = ComputePathStatus(iota)
	ComputeRunning
	ComputeNoPlanNeeded
)

func (s ComputePathStatus) String() string {
	switch s {
	case ComputeError:
		return "error"
	case ComputeRunning:
		return "running"
	case ComputeNoPlanNeeded:
		return "no plan needed"
	default:
		return "unknown"
	}
}

var (
	// ErrPlannerFailed means the search didn't find a plan.
	ErrPlannerFailed = errors.New("planner failed")

	// ErrInvalidAppendant means a new plan didn't start where the kept part of the old one ended.
	ErrInvalidAppendant = errors.New("new plan does not start at the end of the old plan")

	// ErrTooFarFromPlan means the robot drifted too far from its plan to keep following it.
	ErrTooFarFromPlan = errors.New("robot is too far from the plan")

	// ErrAlreadyRunning means a search was requested while one is still queued or running.
	ErrAlreadyRunning = errors.New("planner is already running")

	// ErrNotComplete means no finished plan is available.
	ErrNotComplete = errors.New("planning is not complete")

	// ErrNoGoals means none of the requested goals can be planned to.
	ErrNoGoals = errors.New("no valid goals")
)

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock used for timestamps and artificial delays.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// Service plans for one robot. Planning requests run on a single background worker unless the
// service is synchronous.
type Service struct {
	cfg    Config
	logger logging.Logger
	clock  clock.Clock

	// mu guards everything the worker reads while planning, and is held for the whole search.
	mu         sync.Mutex
	pc         *xytheta.PlannerContext
	planner    *latticeplanner.Planner
	totalPlan  *xytheta.Plan
	goals      map[xytheta.GoalID]xytheta.State
	selected   xytheta.GoalID
	searchNum  int
	searchTime time.Duration

	obstacles      []spatialmath.ConvexPolygon
	obstacleV      int
	importedV      int
	importedReplan bool

	status      atomic.Int32
	lastErr     atomic.Error
	pending     atomic.Bool
	synchronous atomic.Bool

	// searchMu guards the handles of the current request, which are used without holding mu.
	searchMu     sync.Mutex
	cancelSearch context.CancelFunc
	searchCtx    context.Context
	done         chan struct{}

	requests chan struct{}
	workers  utils.StoppableWorkers
}

// New returns a service planning over `space` and starts its worker.
func New(cfg Config, space *xytheta.ActionSpace, logger logging.Logger, opts ...Option) (*Service, error) {
	if err := cfg.Validate("navigation"); err != nil {
		return nil, err
	}
	plannerOpts, err := latticeplanner.NewPlannerOptionsFromExtra(cfg.Planner)
	if err != nil {
		return nil, err
	}
	if _, ok := cfg.Planner["reuse_distance_mm"]; !ok {
		plannerOpts.ReuseDistanceMM = cfg.ReuseDistanceMM
	}

	pc := xytheta.NewPlannerContext(xytheta.NewEnvironment(space))
	// GetCompletePath ends every path with its own turn to the goal heading.
	pc.AllowFreeTurnInPlaceAtGoal = true
	s := &Service{
		cfg:       cfg,
		logger:    logger,
		clock:     clock.New(),
		pc:        pc,
		totalPlan: &xytheta.Plan{},
		goals:     map[xytheta.GoalID]xytheta.State{},
		requests:  make(chan struct{}, 1),
		done:      closedChan(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.planner = latticeplanner.New(pc, plannerOpts, logger.Sublogger("planner"))
	s.planner.SetClock(s.clock)
	s.synchronous.Store(cfg.Synchronous)
	s.status.Store(int32(StatusReady))
	s.workers = utils.NewStoppableWorkers(s.worker)
	return s, nil
}

func closedChan() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

// Close stops any search and the worker. A request the worker never picked up ends in StatusError.
func (s *Service) Close() {
	s.StopPlanning()
	s.workers.Stop()
	select {
	case <-s.requests:
	default:
	}
	s.searchMu.Lock()
	abandoned := s.pending.Load()
	s.searchMu.Unlock()
	if abandoned {
		s.setError(errors.Wrap(ErrPlannerFailed, "service closed"))
		s.finishRequest()
	}
}

// SetSynchronous switches between planning on the caller's goroutine and on the worker.
func (s *Service) SetSynchronous(synchronous bool) {
	s.synchronous.Store(synchronous)
	s.logger.Infow("planner run mode", "synchronous", synchronous)
}

// Status returns the status of the most recent request.
func (s *Service) Status() PlannerStatus {
	return PlannerStatus(s.status.Load())
}

// LastError returns why the most recent request ended in StatusError.
func (s *Service) LastError() error {
	return s.lastErr.Load()
}

func (s *Service) setError(err error) {
	s.lastErr.Store(err)
	s.status.Store(int32(StatusError))
}

// SetObstacles replaces the raw obstacles. They are padded and expanded into configuration space
// the next time a plan is requested.
func (s *Service) SetObstacles(obstacles []spatialmath.ConvexPolygon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obstacles = append([]spatialmath.ConvexPolygon(nil), obstacles...)
	s.obstacleV++
}

// ComputePath starts planning from `start` to the cheapest of `goals`, discarding any previous plan.
func (s *Service) ComputePath(start xytheta.State, goals map[xytheta.GoalID]xytheta.State) (ComputePathStatus, error) {
	if s.pending.Load() {
		s.logger.Warnw("tried to compute a new path, but the planner is already running")
		return ComputeError, ErrAlreadyRunning
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.goals = make(map[xytheta.GoalID]xytheta.State, len(goals))
	for id, goal := range goals {
		s.goals[id] = goal
	}
	s.importObstaclesIfNeeded(false)
	s.totalPlan.Clear()

	candidates := s.goalIDs()
	if s.cfg.SingleGoal {
		id, ok := s.closestFreeGoal(start, candidates)
		if !ok {
			s.logger.Infow("could not find a valid goal", "goals", len(goals))
			return ComputeError, ErrNoGoals
		}
		candidates = []xytheta.GoalID{id}
	}

	s.pc.Goals = s.pc.Goals[:0]
	for _, id := range candidates {
		s.pc.SetGoal(id, s.goals[id])
		if !s.planner.GoalIsValid(id) {
			s.pc.Goals = s.pc.Goals[:len(s.pc.Goals)-1]
		}
	}
	if len(s.pc.Goals) == 0 {
		return ComputeError, ErrNoGoals
	}
	return s.startPlanning(start, true)
}

// ComputeNewPathIfNeeded checks the current plan from the robot's pose `start` and starts a new
// search if the plan became unsafe. While a search is running it reports that no plan is needed.
func (s *Service) ComputeNewPathIfNeeded(start xytheta.State, forceReplanFromScratch bool) (ComputePathStatus, error) {
	if s.pending.Load() || !s.mu.TryLock() {
		return ComputeNoPlanNeeded, nil
	}
	defer s.mu.Unlock()
	return s.startPlanning(start, forceReplanFromScratch)
}

func (s *Service) goalIDs() []xytheta.GoalID {
	ids := make([]xytheta.GoalID, 0, len(s.goals))
	for id := range s.goals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// closestFreeGoal picks the goal closest to `start` that isn't in an obstacle, or failing that the
// closest one that isn't in a fatal obstacle.
func (s *Service) closestFreeGoal(start xytheta.State, ids []xytheta.GoalID) (xytheta.GoalID, bool) {
	space := s.pc.Env.ActionSpace()
	for _, maxPenalty := range []float64{0.01, xytheta.MaxObstacleCost} {
		found := false
		var best xytheta.GoalID
		var bestDist float64
		for _, id := range ids {
			goal := s.goals[id]
			dist := goal.DistXY(start)
			if found && dist >= bestDist {
				continue
			}
			if s.pc.Env.GetCollisionPenalty(space.StateToGraph(goal)) < maxPenalty {
				best, bestDist, found = id, dist, true
			}
		}
		if found {
			return best, true
		}
	}
	return 0, false
}

// startPlanning must be called with mu held.
func (s *Service) startPlanning(current xytheta.State, forceReplanFromScratch bool) (ComputePathStatus, error) {
	env := s.pc.Env
	s.pc.ForceReplanFromScratch = forceReplanFromScratch

	planIdx := 0
	if !forceReplanFromScratch {
		s.importObstaclesIfNeeded(true)
		var offset float64
		planIdx, offset = env.FindClosestPlanSegmentToPose(s.totalPlan, current)
		if offset >= s.cfg.PlanErrorForReplanMM {
			s.logger.Infow("robot is away from the plan, replanning from scratch",
				"offset_mm", offset, "plan_idx", planIdx)
			s.totalPlan.Clear()
		}
	} else {
		s.totalPlan.Clear()
	}

	lastSafe, validOldPlan, safe := env.PlanIsSafe(s.totalPlan, s.cfg.ReuseDistanceMM, planIdx)
	if !forceReplanFromScratch && safe {
		return ComputeNoPlanNeeded, nil
	}

	if !forceReplanFromScratch {
		s.logger.Infow("old plan unsafe, replanning",
			"plan_idx", planIdx, "kept_actions", validOldPlan.Size())
	}
	s.totalPlan = validOldPlan
	if validOldPlan.Empty() {
		lastSafe = current
	}
	s.pc.Start = lastSafe

	if !s.planner.StartIsValid() {
		s.logger.Infow("could not set start", "start", lastSafe)
		return ComputeError, latticeplanner.ErrInvalidStart
	}
	if !s.planner.GoalsAreValid() {
		s.logger.Infow("goals may have moved into collision")
		return ComputeError, ErrNoGoals
	}

	s.importObstaclesIfNeeded(false)
	env.PrepareForPlanning()
	s.searchNum++
	s.logger.Infow("replanning", "search_num", s.searchNum, "start", lastSafe, "goals", s.pc.Goals)
	s.dumpContext()

	ctx := s.newRequest()
	if s.synchronous.Load() {
		s.doPlanning(ctx)
		return ComputeRunning, nil
	}
	s.status.Store(int32(StatusRunning))
	s.requests <- struct{}{}
	return ComputeRunning, nil
}

// newRequest marks a search as pending and returns the context it runs with.
func (s *Service) newRequest() context.Context {
	s.searchMu.Lock()
	defer s.searchMu.Unlock()
	s.searchCtx, s.cancelSearch = context.WithCancel(s.workers.Context())
	s.done = make(chan struct{})
	s.pending.Store(true)
	return s.searchCtx
}

func (s *Service) finishRequest() {
	s.searchMu.Lock()
	defer s.searchMu.Unlock()
	if s.cancelSearch != nil {
		s.cancelSearch()
		s.cancelSearch = nil
	}
	s.pending.Store(false)
	close(s.done)
}

// StopPlanning cancels the running search. The request then ends in StatusError.
func (s *Service) StopPlanning() {
	s.searchMu.Lock()
	defer s.searchMu.Unlock()
	if s.cancelSearch != nil {
		s.cancelSearch()
	}
}

// WaitForPlanning blocks until the current request, if any, is finished.
func (s *Service) WaitForPlanning(ctx context.Context) (PlannerStatus, error) {
	s.searchMu.Lock()
	done := s.done
	s.searchMu.Unlock()
	select {
	case <-ctx.Done():
		return s.Status(), ctx.Err()
	case <-done:
		return s.Status(), nil
	}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.requests:
		}
		s.searchMu.Lock()
		searchCtx := s.searchCtx
		s.searchMu.Unlock()

		s.mu.Lock()
		s.doPlanning(searchCtx)
		s.mu.Unlock()
	}
}

// doPlanning runs the planner and appends its plan to the kept part of the old one. It must be
// called with mu held.
func (s *Service) doPlanning(ctx context.Context) {
	defer s.finishRequest()
	s.status.Store(int32(StatusRunning))

	if s.cfg.ArtificialDelayMS > 0 {
		select {
		case <-ctx.Done():
		case <-s.clock.After(time.Duration(s.cfg.ArtificialDelayMS) * time.Millisecond):
		}
	}

	started := s.clock.Now()
	err := s.planner.Replan(ctx, 0)
	s.searchTime = s.clock.Since(started)
	stats := s.planner.Stats()
	if err != nil {
		s.logger.Infow("lattice planner failure",
			"error", err,
			"time", s.searchTime,
			"expansions", stats.Expansions,
			"considerations", stats.Considerations)
		s.setError(errors.Wrap(ErrPlannerFailed, err.Error()))
		return
	}
	s.logger.Infow("lattice planner success",
		"time", s.searchTime,
		"expansions", stats.Expansions,
		"considerations", stats.Considerations)

	plan := s.planner.Plan()
	if plan.Empty() {
		s.status.Store(int32(StatusCompleteNoPlan))
		return
	}

	space := s.pc.Env.ActionSpace()
	if !s.totalPlan.Empty() {
		if end := space.GetPlanFinalState(s.totalPlan); end != plan.Start {
			s.logger.Errorw("trying to append a plan with a mismatching state",
				"end_state", end,
				"next_plan_start", plan.Start,
				"total_plan", space.PlanString(s.totalPlan),
				"new_plan", space.PlanString(plan))
			s.setError(ErrInvalidAppendant)
			return
		}
	}

	s.selected = s.planner.ChosenGoalID()
	s.logger.Debugw("old plan", "plan", space.PlanString(s.totalPlan))
	s.totalPlan.Append(plan)
	s.logger.Debugw("new plan", "plan", space.PlanString(plan))
	s.status.Store(int32(StatusCompleteWithPlan))
}
