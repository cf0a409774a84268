package scripting

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"

	"github.com/MJE43/galactic-survival/internal/games"
)

// LogEntry is one line written by the script through log() or console.log().
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// VM wraps a goja runtime with sandbox restrictions and the autopilot globals.
type VM struct {
	runtime *goja.Runtime
	mu      sync.Mutex

	logs    []LogEntry
	logsMu  sync.Mutex
	maxLogs int

	// stopRequested is set when the script calls stop().
	stopRequested atomic.Bool

	initTimeout time.Duration
	callTimeout time.Duration
}

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 1 * time.Second
)

// NewVM creates a sandboxed runtime. callTimeout <= 0 uses the default.
func NewVM(callTimeout time.Duration) *VM {
	if callTimeout <= 0 {
		callTimeout = scriptCallTimeout
	}
	vm := &VM{
		runtime:     goja.New(),
		maxLogs:     500,
		initTimeout: scriptInitTimeout,
		callTimeout: callTimeout,
	}
	vm.injectGlobalFunctions()
	injectConstants(vm.runtime)
	return vm
}

func (vm *VM) injectGlobalFunctions() {
	vm.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		vm.appendLog(strings.Join(parts, " "))
		return goja.Undefined()
	})

	console := vm.runtime.NewObject()
	console.Set("log", vm.runtime.Get("log"))
	vm.runtime.Set("console", console)

	vm.runtime.Set("stop", func(call goja.FunctionCall) goja.Value {
		vm.stopRequested.Store(true)
		return goja.Undefined()
	})

	vm.runtime.Set("require", goja.Undefined())
	vm.runtime.Set("fetch", goja.Undefined())
	vm.runtime.Set("XMLHttpRequest", goja.Undefined())
	vm.runtime.Set("eval", goja.Undefined())
	vm.runtime.Set("Function", goja.Undefined())
}

// injectConstants exposes the action names, e.g. `return MINE`.
func injectConstants(rt *goja.Runtime) {
	for _, spec := range games.ListActions() {
		rt.Set(strings.ToUpper(string(spec.ID)), string(spec.ID))
	}
}

func (vm *VM) appendLog(msg string) {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	if len(vm.logs) >= vm.maxLogs {
		vm.logs = vm.logs[1:]
	}
	vm.logs = append(vm.logs, LogEntry{Time: time.Now(), Message: msg})
}

// Execute runs the script source once so it can define decide().
func (vm *VM) Execute(source string) error {
	return vm.runWithTimeout(vm.initTimeout, func() error {
		_, err := vm.runtime.RunString(source)
		if err != nil {
			return fmt.Errorf("script execution error: %w", err)
		}
		return nil
	})
}

// HasDecide reports whether the script defined a decide() function.
func (vm *VM) HasDecide() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	_, ok := goja.AssertFunction(vm.runtime.Get("decide"))
	return ok
}

// CallDecide calls decide() and returns the action it chose. An undefined
// or null result is returned as "".
func (vm *VM) CallDecide() (string, error) {
	var out string
	err := vm.runWithTimeout(vm.callTimeout, func() error {
		fn := vm.runtime.Get("decide")
		if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
			return fmt.Errorf("decide() function is not defined")
		}
		callable, ok := goja.AssertFunction(fn)
		if !ok {
			return fmt.Errorf("decide is not a function")
		}

		result, err := callable(goja.Undefined())
		if err != nil {
			return fmt.Errorf("decide() error: %w", err)
		}
		if result != nil && !goja.IsUndefined(result) && !goja.IsNull(result) {
			out = result.String()
		}
		return nil
	})
	return out, err
}

// SetState pushes the ship's gauges into the script's globals.
func (vm *VM) SetState(st games.PlayerState, events []games.Event) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.runtime.Set("credits", st.Credits)
	vm.runtime.Set("oxygen", st.Oxygen)
	vm.runtime.Set("fuel", st.Fuel)
	vm.runtime.Set("health", st.Health)
	vm.runtime.Set("distance", st.DistanceTraveled)
	vm.runtime.Set("days", st.DaysSurvived)
	vm.runtime.Set("planet", st.CurrentPlanet)

	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = string(e.Kind)
	}
	vm.runtime.Set("events", kinds)
}

// IsStopRequested returns true if stop() was called from the script.
func (vm *VM) IsStopRequested() bool {
	return vm.stopRequested.Load()
}

// Logs returns a copy of the log buffer.
func (vm *VM) Logs() []LogEntry {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	out := make([]LogEntry, len(vm.logs))
	copy(out, vm.logs)
	return out
}

func (vm *VM) runWithTimeout(timeout time.Duration, fn func() error) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.runtime.ClearInterrupt()

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		vm.runtime.Interrupt("script execution timeout")
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("script timed out: %w", err)
			}
			return fmt.Errorf("script timed out")
		case <-time.After(200 * time.Millisecond):
			return fmt.Errorf("script timed out")
		}
	}
}
