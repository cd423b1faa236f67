package scripting

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/MJE43/nback-trainer/internal/nback"
)

// ErrTimeout is returned when a script runs past its deadline
var ErrTimeout = errors.New("scripting: script timed out")

// LogEntry represents a single log message from the script.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// VM wraps a goja runtime with sandbox restrictions and global function injection.
type VM struct {
	runtime *goja.Runtime
	mu      sync.Mutex

	logs    []LogEntry
	logsMu  sync.Mutex
	maxLogs int

	initTimeout time.Duration
	callTimeout time.Duration
}

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 1 * time.Second
)

// NewVM creates a sandboxed goja runtime with global functions injected.
func NewVM() *VM {
	vm := &VM{
		runtime:     goja.New(),
		maxLogs:     500,
		initTimeout: scriptInitTimeout,
		callTimeout: scriptCallTimeout,
	}
	vm.injectGlobalFunctions()
	injectConstants(vm.runtime)
	return vm
}

// injectGlobalFunctions registers log and console.log and blocks host access.
func (vm *VM) injectGlobalFunctions() {
	vm.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")

		vm.logsMu.Lock()
		if len(vm.logs) >= vm.maxLogs {
			vm.logs = vm.logs[1:]
		}
		vm.logs = append(vm.logs, LogEntry{Time: time.Now(), Message: msg})
		vm.logsMu.Unlock()

		return goja.Undefined()
	})

	console := vm.runtime.NewObject()
	console.Set("log", vm.runtime.Get("log"))
	vm.runtime.Set("console", console)

	vm.runtime.Set("require", goja.Undefined())
	vm.runtime.Set("fetch", goja.Undefined())
	vm.runtime.Set("XMLHttpRequest", goja.Undefined())
	vm.runtime.Set("eval", goja.Undefined())
	vm.runtime.Set("Function", goja.Undefined())
}

// injectConstants exposes the built-in staircase so scripts can build on it.
func injectConstants(rt *goja.Runtime) {
	rt.Set("RAISE_THRESHOLD", jsFloat(nback.DefaultRaiseThreshold))
	rt.Set("LOWER_THRESHOLD", jsFloat(nback.DefaultLowerThreshold))
	rt.Set("MIN_N", nback.MinBackDistance)
}

// Execute runs user script source code once, registering its functions.
func (vm *VM) Execute(source string) error {
	return vm.runWithTimeout(vm.initTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		_, err := vm.runtime.RunString(source)
		if err != nil {
			return fmt.Errorf("scripting: execution error: %w", err)
		}
		return nil
	})
}

// HasFunc returns true if the script defined a global function called name.
func (vm *VM) HasFunc(name string) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	_, ok := vm.function(name)
	return ok
}

func (vm *VM) function(name string) (goja.Callable, bool) {
	fn := vm.runtime.Get(name)
	if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
		return nil, false
	}
	return goja.AssertFunction(fn)
}

// Call sets globals, then calls the named function with args under the call timeout.
func (vm *VM) Call(name string, globals map[string]interface{}, args ...interface{}) (goja.Value, error) {
	var out goja.Value
	err := vm.runWithTimeout(vm.callTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()

		for k, v := range globals {
			if err := vm.runtime.Set(k, v); err != nil {
				return fmt.Errorf("scripting: set %s: %w", k, err)
			}
		}

		callable, ok := vm.function(name)
		if !ok {
			return fmt.Errorf("scripting: %s() function is not defined", name)
		}

		values := make([]goja.Value, len(args))
		for i, a := range args {
			values[i] = vm.runtime.ToValue(a)
		}

		result, err := callable(goja.Undefined(), values...)
		if err != nil {
			return fmt.Errorf("scripting: %s() error: %w", name, err)
		}
		out = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetLogs returns a copy of the current log buffer.
func (vm *VM) GetLogs() []LogEntry {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	out := make([]LogEntry, len(vm.logs))
	copy(out, vm.logs)
	return out
}

// ClearLogs clears the log buffer.
func (vm *VM) ClearLogs() {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	vm.logs = vm.logs[:0]
}

func (vm *VM) runWithTimeout(timeout time.Duration, fn func() error) error {
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
		case <-done:
		case <-time.After(200 * time.Millisecond):
			return ErrTimeout
		}
		vm.runtime.ClearInterrupt()
		return ErrTimeout
	}
}
