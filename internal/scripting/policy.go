package scripting

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/dop251/goja"

	"github.com/MJE43/nback-trainer/internal/nback"
)

// ErrInvalidResult is returned when nextn() does not yield a valid back-distance
var ErrInvalidResult = errors.New("scripting: nextn() must return an integer >= 1")

const policyFunc = "nextn"

// Policy is a difficulty policy written in JavaScript. The script must
// define nextn(n, f1) returning the back-distance of the next session.
// The session counters are also visible as globals: n, f1, correct,
// wrong, tp, fp, fn and tn.
type Policy struct {
	vm     *VM
	source string
}

// NewPolicy executes source and checks that it defines nextn.
func NewPolicy(source string) (*Policy, error) {
	vm := NewVM()
	if err := vm.Execute(source); err != nil {
		return nil, err
	}
	if !vm.HasFunc(policyFunc) {
		return nil, fmt.Errorf("scripting: %s() function is not defined", policyFunc)
	}
	return &Policy{vm: vm, source: source}, nil
}

// LoadPolicy reads a policy script from path
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scripting: read policy: %w", err)
	}
	return NewPolicy(string(data))
}

// Next implements nback.Policy.
func (p *Policy) Next(n int, s nback.Score) (int, error) {
	f1 := jsFloat(s.F1())
	globals := map[string]interface{}{
		"n":       n,
		"f1":      f1,
		"correct": s.Correct(),
		"wrong":   s.Wrong(),
		"tp":      s.TruePositives(),
		"fp":      s.FalsePositives(),
		"fn":      s.FalseNegatives(),
		"tn":      s.TrueNegatives(),
	}

	v, err := p.vm.Call(policyFunc, globals, n, f1)
	if err != nil {
		return 0, err
	}
	return toBackDistance(v)
}

// Logs returns the script's log buffer
func (p *Policy) Logs() []LogEntry {
	return p.vm.GetLogs()
}

// Source returns the script text
func (p *Policy) Source() string {
	return p.source
}

func toBackDistance(v goja.Value) (int, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0, fmt.Errorf("%w (got undefined)", ErrInvalidResult)
	}

	f := v.ToFloat()
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < nback.MinBackDistance || f > math.MaxInt32 {
		return 0, fmt.Errorf("%w (got %s)", ErrInvalidResult, v.String())
	}
	return int(f), nil
}

// jsFloat widens f so that 0.8 reads as 0.8 in the script, not 0.800000011920929.
func jsFloat(f float32) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	return v
}
