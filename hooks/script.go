package hooks

import (
	"context"
	"fmt"
	"os/exec"
)

// ScriptHook returns a Hook that runs path as an external command (spec.md §6's script/exec
// transport), grounded on execute.py's script.turn_on service call — here realized as os/exec
// rather than a Home Assistant service call. An empty path yields a nil Hook, leaving that
// trigger unconfigured.
func ScriptHook(path string, args ...string) Hook {
	if path == "" {
		return nil
	}
	return func(ctx context.Context) error {
		cmd := exec.CommandContext(ctx, path, args...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("run hook script %s: %w (output: %s)", path, err, out)
		}
		return nil
	}
}

// ScriptSet builds a Set of four script-backed hooks from the given paths; an empty path leaves
// that hook nil.
func ScriptSet(chargeStart, chargeStop, dischargeStart, dischargeStop string) Set {
	return Set{
		ChargeStart:    ScriptHook(chargeStart),
		ChargeStop:     ScriptHook(chargeStop),
		DischargeStart: ScriptHook(dischargeStart),
		DischargeStop:  ScriptHook(dischargeStop),
	}
}
