package config

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/sctg-development/photoacoustic-core/internal/thermal/i2c"
)

// testVoltages are the sample inputs a conversion formula must evaluate
// successfully at before a thermal regulator config is accepted (spec §6).
var testVoltages = [3]float64{1.0, 2.5, 4.0}

// CompileThermistorFormula parses a user-supplied arithmetic expression of
// the single variable "voltage" (e.g. "273.15 + (voltage - 1.25) * 80") and
// returns it as an i2c.ThermistorFormula. It is the config-document
// counterpart of the Go ThermistorFormula type consumed directly by tests
// and by callers that build regulators in code.
func CompileThermistorFormula(source string) (i2c.ThermistorFormula, error) {
	program, err := expr.Compile(source, expr.Env(map[string]float64{"voltage": 0}))
	if err != nil {
		return nil, fmt.Errorf("compiling conversion formula %q: %w", source, err)
	}
	return func(voltageV float64) float64 {
		out, err := expr.Run(program, map[string]float64{"voltage": voltageV})
		if err != nil {
			return 0
		}
		return toFloat64(out)
	}, nil
}

// validateFormula compiles source and evaluates it at the three mandated
// test voltages, failing if compilation or any evaluation errors.
func validateFormula(source string) error {
	program, err := expr.Compile(source, expr.Env(map[string]float64{"voltage": 0}))
	if err != nil {
		return fmt.Errorf("compiling formula %q: %w", source, err)
	}
	for _, v := range testVoltages {
		if err := evalAt(program, v); err != nil {
			return fmt.Errorf("evaluating formula %q at voltage=%v: %w", source, v, err)
		}
	}
	return nil
}

func evalAt(program *vm.Program, voltage float64) error {
	_, err := expr.Run(program, map[string]float64{"voltage": voltage})
	return err
}

func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
