package gripper

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/sentry-robotics/armperiph/control"
	"github.com/sentry-robotics/armperiph/servo"
)

// Config configures a Controller.
type Config struct {
	// Frequency is the control loop rate in Hz. Zero selects
	// DefaultFrequency.
	Frequency float64
	// Clock, when set, replaces the wall clock. Tests drive a mock here.
	Clock clock.Clock
}

// slot bundles everything the controller owns for one gripper. The slope
// planner and PID instance belong to this slot alone and are never shared.
type slot struct {
	status  Status
	mapping Mapping
	params  ControlParams
	pid     *control.PID
	slope   *control.Slope
}

// Controller orchestrates up to MaxGrippers independent gripper slots over
// a shared servo transport. All slot state sits behind one bounded-wait
// lock; a fixed-rate loop started by Start drives the control pipeline.
type Controller struct {
	logger    golog.Logger
	transport servo.Transport
	clock     clock.Clock
	period    time.Duration

	// sem is the controller lock: a one-slot semaphore so acquisition
	// can carry a bounded wait.
	sem   chan struct{}
	slots [MaxGrippers]*slot

	cancelCtx               context.Context
	cancel                  context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
	running                 bool
}

// NewController builds a controller with every slot on factory defaults.
// The loop does not run until Start.
func NewController(logger golog.Logger, transport servo.Transport, cfg Config) (*Controller, error) {
	freq := cfg.Frequency
	if freq == 0 {
		freq = DefaultFrequency
	}
	if freq < 0 || freq > maxFrequency {
		return nil, errors.Errorf("control frequency %.1f outside (0, %.0f]", freq, maxFrequency)
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		logger:    logger,
		transport: transport,
		clock:     clk,
		period:    time.Duration(float64(time.Second) / freq),
		sem:       make(chan struct{}, 1),
		cancelCtx: cancelCtx,
		cancel:    cancel,
	}
	for id := range c.slots {
		c.slots[id] = newSlot(id, c.period.Seconds())
	}
	logger.Infof("gripper controller ready: %d slots, %.0fHz control rate", MaxGrippers, freq)
	return c, nil
}

func newSlot(id int, dt float64) *slot {
	params := DefaultControlParams()
	s := &slot{
		mapping: DefaultMapping(),
		params:  params,
		pid:     newSlotPID(params, dt),
		slope:   control.NewSlope(params.SlopeIncreaseRate, params.SlopeDecreaseRate, params.SlopeRealFirst),
	}
	s.status.ServoID = id
	s.status.State = StateIdle
	s.status.Mode = ModeOpenLoop
	return s
}

func newSlotPID(params ControlParams, dt float64) *control.PID {
	return control.NewPID(control.PIDConfig{
		Kp:          params.PIDKp,
		Ki:          params.PIDKi,
		Kd:          params.PIDKd,
		DT:          dt,
		DeadZone:    params.PIDDeadZone,
		OutputLimit: params.PIDOutputLimit,
	})
}

// applyParams pushes new tuning into a slot's controller instances without
// disturbing their running state.
func (s *slot) applyParams(params ControlParams) {
	s.params = params
	s.pid.SetGains(params.PIDKp, params.PIDKi, params.PIDKd)
	s.pid.SetOutputLimit(params.PIDOutputLimit)
	s.pid.SetDeadZone(params.PIDDeadZone)
	s.slope.SetIncreaseRate(params.SlopeIncreaseRate)
	s.slope.SetDecreaseRate(params.SlopeDecreaseRate)
	s.slope.SetRealFirst(params.SlopeRealFirst)
}

// acquire takes the controller lock, giving up after wait or when ctx ends.
func (c *Controller) acquire(ctx context.Context, wait time.Duration) error {
	timer := c.clock.Timer(wait)
	defer timer.Stop()
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) release() { <-c.sem }

func (c *Controller) slotByID(id int) (*slot, error) {
	if id < 0 || id >= MaxGrippers {
		return nil, errors.Wrapf(ErrInvalidArgument, "servo id %d outside [0, %d)", id, MaxGrippers)
	}
	return c.slots[id], nil
}

// Start launches the periodic control loop.
func (c *Controller) Start() error {
	if c.running {
		return errors.New("gripper controller already started")
	}
	ticker := c.clock.Ticker(c.period)
	c.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		defer ticker.Stop()
		var cycles uint64
		heartbeat := uint64(10 * float64(time.Second) / float64(c.period))
		for {
			select {
			case <-c.cancelCtx.Done():
				return
			case <-ticker.C:
				c.tick(c.cancelCtx)
				cycles++
				if heartbeat > 0 && cycles%heartbeat == 0 {
					c.logger.Debugf("control loop healthy (cycle %d)", cycles)
				}
			}
		}
	}, c.activeBackgroundWorkers.Done)
	c.running = true
	c.logger.Infof("gripper control loop started (period %v)", c.period)
	return nil
}

// Close stops the control loop and freezes every slot at its current
// position. Safe to call more than once.
func (c *Controller) Close(ctx context.Context) error {
	var err error
	if c.running {
		err = c.StopAll(ctx)
		c.cancel()
		c.activeBackgroundWorkers.Wait()
		c.running = false
		c.logger.Info("gripper control loop stopped")
	}
	return err
}

// ConfigureMapping validates and installs a slot's percent↔angle mapping.
func (c *Controller) ConfigureMapping(ctx context.Context, id int, mapping Mapping) error {
	s, err := c.slotByID(id)
	if err != nil {
		return err
	}
	if err := mapping.Validate(); err != nil {
		return err
	}
	if err := c.acquire(ctx, apiLockWait); err != nil {
		return err
	}
	defer c.release()

	mapping.IsCalibrated = true
	s.mapping = mapping
	c.logger.Infof("gripper %d mapping: closed %.1f° open %.1f° min step %.1f° max speed %.1f%%/s reverse=%t",
		id, mapping.ClosedAngle, mapping.OpenAngle, mapping.MinStep, mapping.MaxSpeed, mapping.ReverseDirection)
	return nil
}

// SetControlParams installs tuning for a slot and pushes the gains into its
// PID and slope instances.
func (c *Controller) SetControlParams(ctx context.Context, id int, params ControlParams) error {
	s, err := c.slotByID(id)
	if err != nil {
		return err
	}
	if err := c.acquire(ctx, apiLockWait); err != nil {
		return err
	}
	defer c.release()

	s.applyParams(params)
	c.logger.Infof("gripper %d tuning: kp=%.3f ki=%.3f kd=%.3f slope +%.2f/-%.2f",
		id, params.PIDKp, params.PIDKi, params.PIDKd, params.SlopeIncreaseRate, params.SlopeDecreaseRate)
	return nil
}

// SetMode switches a slot's control mode. A mode change discards the PID
// and planner transients so nothing stale carries across algorithms; it is
// also the recovery path out of StateError.
func (c *Controller) SetMode(ctx context.Context, id int, mode Mode) error {
	s, err := c.slotByID(id)
	if err != nil {
		return err
	}
	switch mode {
	case ModeOpenLoop, ModeClosedLoop, ModeForceControl:
	default:
		return errors.Wrapf(ErrInvalidArgument, "unknown mode %d", mode)
	}
	if err := c.acquire(ctx, apiLockWait); err != nil {
		return err
	}
	defer c.release()

	st := &s.status
	oldMode := st.Mode
	st.Mode = mode
	if mode != oldMode || st.State == StateError {
		s.pid.Reset()
		s.slope.Reset()
		// A reset planner has no trajectory to continue, so any active
		// movement ends here.
		if st.IsMoving {
			st.IsMoving = false
			st.State = StateHolding
			st.TargetPercent = st.CurrentPercent
		}
		if st.State == StateError {
			st.State = StateIdle
			st.IsMoving = false
			st.MovementProgress = 0
		}
		c.logger.Infof("gripper %d mode %s -> %s", id, oldMode, mode)
	}
	return nil
}

// SetTargetSmooth starts a smoothed movement to percent over duration. A
// zero duration derives one from the mapping's max speed. Requesting a
// movement in force-control mode fails with ErrUnimplementedMode.
func (c *Controller) SetTargetSmooth(ctx context.Context, id int, percent float64, duration time.Duration) error {
	s, err := c.slotByID(id)
	if err != nil {
		return err
	}
	if percent < 0 || percent > 100 {
		return errors.Wrapf(ErrInvalidArgument, "target percent %.1f outside [0, 100]", percent)
	}
	if err := c.acquire(ctx, apiLockWait); err != nil {
		return err
	}
	defer c.release()

	st := &s.status
	if st.Mode == ModeForceControl {
		return errors.Wrap(ErrUnimplementedMode, "force control")
	}

	now := c.clock.Now()
	if duration <= 0 {
		travel := math.Abs(percent - st.CurrentPercent)
		duration = time.Duration(travel / s.mapping.MaxSpeed * float64(time.Second))
	}

	// A new target is also the recovery path out of StateError: the
	// freshness window restarts from the movement start.
	if st.LastFeedback.IsZero() || st.State == StateError {
		st.LastFeedback = now
	}

	// A move from rest ramps from the measured position; a retarget
	// mid-move keeps the planner's continuity.
	if !st.IsMoving {
		s.slope.Anchor(st.CurrentPercent)
	}

	st.TargetPercent = percent
	st.MovementStart = now
	st.MovementDuration = duration
	st.MovementProgress = 0
	st.IsMoving = true
	st.State = StateMoving
	st.TotalMovements++
	s.slope.SetTarget(percent)

	c.logger.Infof("gripper %d smooth move: %.1f%% -> %.1f%% over %v", id, st.CurrentPercent, percent, duration)
	return nil
}

// Stop halts a slot's movement, freezing it at its current measured
// position. The hold is commanded to the transport immediately rather than
// waiting for the next tick.
func (c *Controller) Stop(ctx context.Context, id int) error {
	if _, err := c.slotByID(id); err != nil {
		return err
	}
	if err := c.acquire(ctx, apiLockWait); err != nil {
		return err
	}
	defer c.release()
	return c.stopLocked(ctx, id)
}

// StopAll halts every non-idle slot, collecting per-slot failures.
func (c *Controller) StopAll(ctx context.Context) error {
	if err := c.acquire(ctx, apiLockWait); err != nil {
		return err
	}
	defer c.release()
	var result error
	for id, s := range c.slots {
		if s.status.State != StateIdle {
			result = multierr.Append(result, c.stopLocked(ctx, id))
		}
	}
	return result
}

func (c *Controller) stopLocked(ctx context.Context, id int) error {
	s := c.slots[id]
	st := &s.status
	wasMoving := st.IsMoving
	st.IsMoving = false
	st.State = StateHolding
	st.TargetPercent = st.CurrentPercent
	s.slope.SetTarget(st.CurrentPercent)
	c.logger.Infof("gripper %d stopped at %.1f%%", id, st.CurrentPercent)
	if !wasMoving {
		return nil
	}
	holdAngle := clamp(st.CurrentAngle, servo.MinAngle, servo.MaxAngle)
	if err := c.transport.Move(ctx, id, holdAngle, c.period+10*time.Millisecond); err != nil {
		return errors.Wrapf(err, "hold gripper %d", id)
	}
	return nil
}

// Status returns a snapshot of one slot.
func (c *Controller) Status(ctx context.Context, id int) (Status, error) {
	s, err := c.slotByID(id)
	if err != nil {
		return Status{}, err
	}
	if err := c.acquire(ctx, queryLockWait); err != nil {
		return Status{}, err
	}
	defer c.release()
	return s.status, nil
}

// Mapping returns a slot's active percent-to-angle mapping.
func (c *Controller) Mapping(ctx context.Context, id int) (Mapping, error) {
	s, err := c.slotByID(id)
	if err != nil {
		return Mapping{}, err
	}
	if err := c.acquire(ctx, queryLockWait); err != nil {
		return Mapping{}, err
	}
	defer c.release()
	return s.mapping, nil
}

// CurrentPercent returns a slot's latest measured percent of travel.
func (c *Controller) CurrentPercent(ctx context.Context, id int) (float64, error) {
	s, err := c.slotByID(id)
	if err != nil {
		return 0, err
	}
	if err := c.acquire(ctx, queryLockWait); err != nil {
		return 0, err
	}
	defer c.release()
	return s.status.CurrentPercent, nil
}

// CalibrateReference anchors the slot's mapping at the current measured
// angle: the shaft position right now becomes the closed or open reference.
// The resulting mapping must still span at least the minimum step.
func (c *Controller) CalibrateReference(ctx context.Context, id int, ref Reference) error {
	s, err := c.slotByID(id)
	if err != nil {
		return err
	}
	switch ref {
	case ReferenceClosed, ReferenceOpen:
	default:
		return errors.Wrapf(ErrInvalidArgument, "unknown calibration reference %d", ref)
	}
	if err := c.acquire(ctx, apiLockWait); err != nil {
		return err
	}
	defer c.release()

	st := &s.status
	prevState := st.State
	st.State = StateCalibrating

	angle, err := c.transport.Position(ctx, id)
	if err != nil {
		st.State = prevState
		return errors.Wrapf(err, "calibrate gripper %d", id)
	}

	candidate := s.mapping
	switch ref {
	case ReferenceClosed:
		candidate.ClosedAngle = angle
	case ReferenceOpen:
		candidate.OpenAngle = angle
	}
	if err := candidate.Validate(); err != nil {
		st.State = prevState
		return err
	}
	candidate.IsCalibrated = true
	s.mapping = candidate
	st.State = prevState
	st.CurrentPercent = s.mapping.AngleToPercent(st.CurrentAngle)
	c.logger.Infof("gripper %d calibrated %s reference at %.1f°", id, ref, angle)
	return nil
}

// tick runs one control cycle over all slots. A slot whose lock cannot be
// taken within the tick bound is skipped this cycle so the loop keeps its
// schedule.
func (c *Controller) tick(ctx context.Context) {
	for id := range c.slots {
		if err := c.acquire(ctx, tickLockWait); err != nil {
			if errors.Is(err, ErrLockTimeout) {
				c.logger.Debugf("gripper %d skipped this cycle: lock busy", id)
			}
			continue
		}
		if c.slots[id].status.State != StateIdle {
			c.updateSlotLocked(ctx, id)
		}
		c.release()
	}
}

// updateSlotLocked advances one slot by one control period: refresh
// feedback, advance the planned trajectory, command the transport and
// detect completion. Caller holds the controller lock.
func (c *Controller) updateSlotLocked(ctx context.Context, id int) {
	s := c.slots[id]
	st := &s.status
	now := c.clock.Now()
	defer func() { st.LastUpdate = now }()

	// The position read is the one transport call made under the lock;
	// the bus is shared hardware so this is the accepted contention
	// point.
	angle, err := c.transport.Position(ctx, id)
	if err == nil {
		st.HardwareAngle = angle
		st.CurrentAngle = angle
		st.CurrentPercent = s.mapping.AngleToPercent(angle)
		st.FeedbackValid = true
		st.LastFeedback = now
	} else {
		c.logger.Debugf("gripper %d position read failed: %v", id, err)
		if s.params.FeedbackTimeout > 0 && !st.LastFeedback.IsZero() &&
			now.Sub(st.LastFeedback) > s.params.FeedbackTimeout {
			c.logger.Warnf("gripper %d feedback timeout after %v", id, s.params.FeedbackTimeout)
			st.FeedbackValid = false
			st.State = StateError
			st.IsMoving = false
		}
	}

	if st.State == StateError {
		return
	}

	c.updateProgressLocked(st, now)

	if !st.IsMoving {
		return
	}

	targetAngle := st.CurrentAngle
	actuate := true
	switch st.Mode {
	case ModeOpenLoop:
		s.slope.SetReal(st.CurrentPercent)
		s.slope.Update()
		targetAngle = s.mapping.PercentToAngle(s.slope.Output())
	case ModeClosedLoop:
		s.slope.SetReal(st.CurrentPercent)
		s.slope.Update()
		plannedPercent := s.slope.Output()
		plannedAngle := s.mapping.PercentToAngle(plannedPercent)
		correction := s.pid.Update(plannedAngle, st.CurrentAngle)
		targetAngle = st.CurrentAngle + correction

		st.PositionError = math.Abs(plannedPercent - st.CurrentPercent)
		if st.PositionError > st.MaxPositionError {
			st.MaxPositionError = st.PositionError
		}
	case ModeForceControl:
		// Reserved: no algorithm, no actuation. SetTargetSmooth rejects
		// this mode, so only a mode switch mid-move lands here.
		actuate = false
	}

	if actuate {
		c.commandMove(ctx, id, targetAngle)
	}

	if c.movementCompleteLocked(s) {
		st.IsMoving = false
		st.State = StateHolding
		st.MovementProgress = 100
		c.logger.Infof("gripper %d movement complete at %.1f%%", id, st.CurrentPercent)
	}
}

func (c *Controller) updateProgressLocked(st *Status, now time.Time) {
	if !st.IsMoving || st.MovementDuration == 0 {
		return
	}
	elapsed := now.Sub(st.MovementStart)
	if elapsed >= st.MovementDuration {
		st.MovementProgress = 100
	} else {
		st.MovementProgress = float64(elapsed) / float64(st.MovementDuration) * 100
	}
}

// commandMove streams one short-horizon move: the window is one control
// period plus slack, so consecutive ticks blend into continuous motion. A
// failed write costs only this cycle.
func (c *Controller) commandMove(ctx context.Context, id int, angle float64) {
	angle = clamp(angle, servo.MinAngle, servo.MaxAngle)
	window := c.period + 10*time.Millisecond
	if err := c.transport.Move(ctx, id, angle, window); err != nil {
		c.logger.Debugf("gripper %d move command failed: %v", id, err)
	}
}

// movementCompleteLocked reports whether the active movement is done: the
// measured position reached the target, the planned duration elapsed, or
// the planner converged onto the target.
func (c *Controller) movementCompleteLocked(s *slot) bool {
	st := &s.status
	positionReached := math.Abs(st.TargetPercent-st.CurrentPercent) < ControlPrecision
	timeReached := st.MovementProgress >= 100
	slopeDone := math.Abs(s.slope.Output()-st.TargetPercent) < percentEpsilon
	return positionReached || timeReached || slopeDone
}
