package control

import "math"

// epsilon is the float comparison tolerance shared by the control blocks.
const epsilon = 1e-6

// PIDState classifies what the controller did on its last update.
type PIDState uint8

// The possible controller states. The state is a pure function of the last
// error magnitude, the dead zone and whether the output sat at its limit.
const (
	PIDStateStop PIDState = iota
	PIDStateNormal
	PIDStateSaturated
	PIDStateDeadZone
)

// String implements fmt.Stringer.
func (s PIDState) String() string {
	switch s {
	case PIDStateStop:
		return "STOP"
	case PIDStateNormal:
		return "NORMAL"
	case PIDStateSaturated:
		return "SATURATED"
	case PIDStateDeadZone:
		return "DEAD_ZONE"
	default:
		return "UNKNOWN"
	}
}

// PIDConfig collects every tunable of a PID instance. Zero values disable
// the optional features: a zero OutputLimit or IntegralLimit means no clamp,
// zero variable-integral thresholds mean full-speed integration, a zero
// IntegralSeparationThreshold disables separation.
type PIDConfig struct {
	Kp float64
	Ki float64
	Kd float64
	// Kf scales the feedforward term, which tracks setpoint changes
	// directly instead of waiting for error to build.
	Kf float64

	// DT is the fixed update period in seconds. Callers are responsible
	// for calling Update at this rate.
	DT float64

	DeadZone      float64
	OutputLimit   float64
	IntegralLimit float64

	// VariableIntegralA and VariableIntegralB shape error-dependent
	// integration: full below A, linearly ramped to zero between A and B,
	// suppressed above B. Requires A <= B; swapped if given reversed.
	VariableIntegralA float64
	VariableIntegralB float64

	// IntegralSeparationThreshold suppresses integral accumulation
	// entirely while |error| is at or above it, preventing windup during
	// large transients.
	IntegralSeparationThreshold float64

	// DerivativeFirst differentiates the feedback signal instead of the
	// error, avoiding the derivative kick on setpoint steps.
	DerivativeFirst bool
}

const defaultPIDPeriod = 0.001

// PID is a discrete PID controller with variable-speed integration,
// integral separation, derivative-first mode, feedforward and output /
// integral clamping. One instance serves one actuator.
type PID struct {
	kp float64
	ki float64
	kd float64
	kf float64

	dt            float64
	deadZone      float64
	outputLimit   float64
	integralLimit float64

	varSpeedA         float64
	varSpeedB         float64
	separateThreshold float64

	derivativeFirst     bool
	enableIntegralLimit bool
	enableOutputLimit   bool

	target        float64
	feedback      float64
	output        float64
	err           float64
	integralError float64

	preFeedback float64
	preTarget   float64
	preError    float64
	preOutput   float64

	state PIDState

	pOut float64
	iOut float64
	dOut float64
	fOut float64

	maxError    float64
	updateCount uint32
}

// NewPID returns a controller configured from cfg.
func NewPID(cfg PIDConfig) *PID {
	p := &PID{}
	p.Configure(cfg)
	return p
}

// Configure applies cfg and resets the running state.
func (p *PID) Configure(cfg PIDConfig) {
	p.kp = cfg.Kp
	p.ki = cfg.Ki
	p.kd = cfg.Kd
	p.kf = cfg.Kf
	if cfg.DT > epsilon {
		p.dt = cfg.DT
	} else {
		p.dt = defaultPIDPeriod
	}
	p.SetDeadZone(cfg.DeadZone)
	p.SetOutputLimit(cfg.OutputLimit)
	p.SetIntegralLimit(cfg.IntegralLimit)
	p.SetVariableIntegral(cfg.VariableIntegralA, cfg.VariableIntegralB)
	p.SetIntegralSeparation(cfg.IntegralSeparationThreshold)
	p.derivativeFirst = cfg.DerivativeFirst
	p.Reset()
}

// SetGains updates the proportional, integral and derivative gains.
func (p *PID) SetGains(kp, ki, kd float64) {
	p.kp = kp
	p.ki = ki
	p.kd = kd
}

// SetFeedforward updates the feedforward gain.
func (p *PID) SetFeedforward(kf float64) { p.kf = kf }

// SetPeriod updates the fixed update period in seconds. Values at or below
// the float tolerance keep the previous period.
func (p *PID) SetPeriod(dt float64) {
	if dt > epsilon {
		p.dt = dt
	}
}

// SetDeadZone sets the tolerance band around the setpoint inside which
// error is treated as zero.
func (p *PID) SetDeadZone(deadZone float64) { p.deadZone = math.Abs(deadZone) }

// SetOutputLimit clamps the output to ±limit. Zero disables the clamp.
func (p *PID) SetOutputLimit(limit float64) {
	p.outputLimit = math.Abs(limit)
	p.enableOutputLimit = p.outputLimit > epsilon
}

// SetIntegralLimit bounds the integral term's contribution to ±limit.
// Zero disables the clamp.
func (p *PID) SetIntegralLimit(limit float64) {
	p.integralLimit = math.Abs(limit)
	p.enableIntegralLimit = p.integralLimit > epsilon
}

// SetVariableIntegral sets the variable-speed integration thresholds,
// swapping them if b < a.
func (p *PID) SetVariableIntegral(a, b float64) {
	a, b = math.Abs(a), math.Abs(b)
	if b < a {
		a, b = b, a
	}
	p.varSpeedA = a
	p.varSpeedB = b
}

// SetIntegralSeparation sets the error magnitude at which integral
// accumulation is suppressed. Zero disables separation.
func (p *PID) SetIntegralSeparation(threshold float64) {
	p.separateThreshold = math.Abs(threshold)
}

// SetDerivativeFirst toggles differentiating feedback instead of error.
func (p *PID) SetDerivativeFirst(enable bool) { p.derivativeFirst = enable }

// Update runs one discrete control step and returns the new output.
func (p *PID) Update(target, feedback float64) float64 {
	p.pOut = 0
	p.iOut = 0
	p.dOut = 0
	p.fOut = 0

	p.target = target
	p.feedback = feedback

	err := target - feedback
	absError := math.Abs(err)

	if p.deadZone >= epsilon {
		if absError <= p.deadZone {
			// Inside the dead zone the setpoint collapses onto the
			// feedback so no error accumulates within tolerance.
			p.target = p.feedback
			err = 0
			absError = 0
		} else if err > 0 {
			// Shift the error by the dead zone magnitude so the handoff
			// at the boundary is continuous.
			err -= p.deadZone
		} else {
			err += p.deadZone
		}
	}
	absError = math.Abs(err)
	p.err = err

	if absError > p.maxError {
		p.maxError = absError
	}

	p.pOut = p.kp * err

	var integralRatio float64
	switch {
	case p.varSpeedA < epsilon && p.varSpeedB < epsilon:
		integralRatio = 1
	case absError <= p.varSpeedA:
		integralRatio = 1
	case absError < p.varSpeedB:
		integralRatio = (p.varSpeedB - absError) / (p.varSpeedB - p.varSpeedA)
	default:
		integralRatio = 0
	}

	// Clamp the accumulated integral before adding this step's
	// contribution so a single step can still act from the bound.
	if p.enableIntegralLimit && p.ki > epsilon {
		maxIntegral := p.integralLimit / p.ki
		p.integralError = clamp(p.integralError, -maxIntegral, maxIntegral)
	}

	if p.separateThreshold > epsilon && absError >= p.separateThreshold {
		p.integralError = 0
		p.iOut = 0
	} else {
		p.integralError += integralRatio * p.dt * err
		p.iOut = p.ki * p.integralError
	}

	if p.derivativeFirst {
		p.dOut = -p.kd * (feedback - p.preFeedback) / p.dt
	} else {
		p.dOut = p.kd * (err - p.preError) / p.dt
	}

	p.fOut = p.kf * (target - p.preTarget)

	p.output = p.pOut + p.iOut + p.dOut + p.fOut
	if p.enableOutputLimit {
		p.output = clamp(p.output, -p.outputLimit, p.outputLimit)
	}

	p.preFeedback = feedback
	p.preTarget = target
	p.preError = err
	p.preOutput = p.output

	p.updateState()
	p.updateCount++

	return p.output
}

// Reset zeroes the running state and diagnostics while preserving gains and
// feature configuration.
func (p *PID) Reset() {
	p.target = 0
	p.feedback = 0
	p.output = 0
	p.err = 0
	p.integralError = 0

	p.preFeedback = 0
	p.preTarget = 0
	p.preError = 0
	p.preOutput = 0

	p.pOut = 0
	p.iOut = 0
	p.dOut = 0
	p.fOut = 0
	p.maxError = 0
	p.updateCount = 0

	p.state = PIDStateStop
}

// ClearIntegral zeroes the accumulated integral without touching the rest
// of the running state.
func (p *PID) ClearIntegral() {
	p.integralError = 0
	p.iOut = 0
}

// Output returns the output computed by the last Update.
func (p *PID) Output() float64 { return p.output }

// Error returns the (dead-zone adjusted) error of the last Update.
func (p *PID) Error() float64 { return p.err }

// IntegralError returns the accumulated integral error.
func (p *PID) IntegralError() float64 { return p.integralError }

// State returns the classification of the last Update.
func (p *PID) State() PIDState { return p.state }

// Components returns the individual P, I, D and feedforward contributions
// of the last Update.
func (p *PID) Components() (pOut, iOut, dOut, fOut float64) {
	return p.pOut, p.iOut, p.dOut, p.fOut
}

// MaxError returns the high-water mark of error magnitude since the last
// Reset.
func (p *PID) MaxError() float64 { return p.maxError }

// UpdateCount returns the number of Update calls since the last Reset.
func (p *PID) UpdateCount() uint32 { return p.updateCount }

func (p *PID) updateState() {
	absError := math.Abs(p.err)
	switch {
	case absError < epsilon:
		p.state = PIDStateStop
	case absError <= p.deadZone:
		p.state = PIDStateDeadZone
	case p.enableOutputLimit && math.Abs(p.output) >= p.outputLimit-epsilon:
		p.state = PIDStateSaturated
	default:
		p.state = PIDStateNormal
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
