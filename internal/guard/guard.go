// Package guard is the terminal analog of the web client's anti-devtools
// overlay: a best-effort deterrent against attaching a debugger to the
// client for non-privileged roles. It is explicitly heuristic, detectable
// and bypassable, and must never be treated as a security boundary or used
// for authorization decisions.
package guard

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"forumkit/internal/logging"
	"forumkit/internal/model"
)

// State is the guard's two-state machine.
type State int

const (
	// StateProtected is the normal state: no heuristic has tripped.
	StateProtected State = iota
	// StateOverlay blocks the whole UI behind the guard overlay.
	StateOverlay
)

func (s State) String() string {
	if s == StateOverlay {
		return "overlay-shown"
	}
	return "protected"
}

// Trigger names reported to the backend.
const (
	TriggerTraceAttach      = "trace_attach"
	TriggerTimingTrap       = "timing_trap"
	TriggerDebugHotkey      = "debug_hotkey"
	TriggerEnvProbe         = "env_probe"
	TriggerOverlayDismissed = "overlay_dismissed"
)

// Config tunes the guard.
type Config struct {
	Enabled      bool
	PollInterval time.Duration
	// TrapThreshold is the extra delay between poll ticks above which an
	// external stop-the-world pause (a debugger) is assumed.
	TrapThreshold time.Duration
}

// Guard owns the state machine. The role source is consulted on every
// trigger path: a privileged role never sees the overlay, and becoming
// privileged is the only way back from StateOverlay.
type Guard struct {
	cfg    Config
	role   func() model.Role
	report func(ctx context.Context, trigger string) // best effort, may be nil
	log    *logging.Logger

	mu       sync.Mutex
	state    State
	onChange func(State)
}

// New creates a guard. onChange is invoked (outside the lock) whenever the
// state flips; the UI uses it to raise or drop the blocking overlay.
func New(cfg Config, role func() model.Role, report func(context.Context, string), onChange func(State)) *Guard {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.TrapThreshold <= 0 {
		cfg.TrapThreshold = 400 * time.Millisecond
	}
	return &Guard{
		cfg:      cfg,
		role:     role,
		report:   report,
		log:      logging.Get(logging.CategoryGuard),
		state:    StateProtected,
		onChange: onChange,
	}
}

// Active reports whether the guard runs at all. Disabled by config, and on
// darwin unconditionally: the timing heuristics false-positive under App
// Nap style throttling there.
func (g *Guard) Active() bool {
	return g.cfg.Enabled && runtime.GOOS != "darwin"
}

// State returns the current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// AllowDebugKeys reports whether debug keybindings should be honored.
// The UI asks before acting on them; non-privileged roles get them
// swallowed and counted as a trigger by the caller.
func (g *Guard) AllowDebugKeys() bool {
	return !g.Active() || g.role().Privileged()
}

// Trip records a heuristic trigger. Re-entrant: tripping while the overlay
// is already shown stays in StateOverlay but still reports the trigger.
// Privileged roles are exempt on every path.
func (g *Guard) Trip(ctx context.Context, trigger string) {
	if !g.Active() {
		return
	}
	if g.role().Privileged() {
		// A privileged session also clears a leftover overlay.
		g.transition(StateProtected)
		return
	}

	g.log.Warn("guard tripped: %s", trigger)
	g.transition(StateOverlay)
	if g.report != nil {
		g.report(ctx, trigger)
	}
}

// OverlayDismissed is the self-heal path: if something external tears the
// overlay down while the state machine still says StateOverlay, the guard
// re-raises it and reports the dismissal.
func (g *Guard) OverlayDismissed(ctx context.Context) {
	g.mu.Lock()
	showing := g.state == StateOverlay
	g.mu.Unlock()
	if !showing {
		return
	}
	g.Trip(ctx, TriggerOverlayDismissed)
}

// Reevaluate re-checks the role. The only transition out of StateOverlay.
func (g *Guard) Reevaluate() {
	if g.State() == StateOverlay && g.role().Privileged() {
		g.transition(StateProtected)
	}
}

func (g *Guard) transition(to State) {
	g.mu.Lock()
	changed := g.state != to
	g.state = to
	g.mu.Unlock()

	if changed {
		g.log.Info("state -> %s", to)
		if g.onChange != nil {
			g.onChange(to)
		}
	}
}

// Run polls the heuristics until ctx is cancelled. No-op when the guard is
// inactive.
func (g *Guard) Run(ctx context.Context) {
	if !g.Active() {
		return
	}

	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	if envTampered() {
		g.Trip(ctx, TriggerEnvProbe)
	}

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			// Timing trap: a stopped process resumes with a large tick gap.
			if gap := now.Sub(last) - g.cfg.PollInterval; gap > g.cfg.TrapThreshold {
				g.Trip(ctx, TriggerTimingTrap)
			}
			last = now

			if tracerAttached() {
				g.Trip(ctx, TriggerTraceAttach)
			}
			g.Reevaluate()
		}
	}
}

// envTampered probes the environment once at startup for injection markers.
func envTampered() bool {
	return os.Getenv("LD_PRELOAD") != ""
}

// tracerAttached reports whether something is ptrace-attached to us.
// Linux-only; elsewhere the probe stays silent.
func tracerAttached() bool {
	data, err := os.ReadFile("/proc/self/status")
	if err != nil {
		return false
	}
	return parseTracerPID(string(data)) != 0
}

func parseTracerPID(status string) int {
	for _, line := range strings.Split(status, "\n") {
		if !strings.HasPrefix(line, "TracerPid:") {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "TracerPid:")))
		if err != nil {
			return 0
		}
		return pid
	}
	return 0
}
