package restart

import (
	"fmt"

	"jobmedic/internal/failure"
	"jobmedic/internal/resources"
	"jobmedic/internal/workflow"
)

// ScaledOption returns the option key a restart scales for ft and the
// scaling function, or a nil function when ft leaves resources untouched.
func ScaledOption(ft failure.Type) (string, func(string, float64) (string, error)) {
	switch ft {
	case failure.Timeout:
		return resources.OptionWalltime, resources.ScaleWalltime
	case failure.OutOfMemory:
		return resources.OptionMemory, resources.ScaleMemory
	case failure.Unknown, failure.Submission, failure.FileSystem:
		return "", nil
	default:
		panic(fmt.Sprintf("restart: unhandled failure type %d", int(ft)))
	}
}

// AdjustTargets scales the resource options of failed targets in place:
// walltime for Timeout, memory for OutOfMemory. Other failure types are left
// untouched.
//
// All adjustments are computed before any target is modified, so a
// *resources.ParseError leaves every target unchanged.
func AdjustTargets(targets map[string]*workflow.Target, failures map[string]failure.Type, multiplier float64) error {
	type change struct {
		target *workflow.Target
		key    string
		value  string
	}
	var changes []change

	for _, name := range sortedFailures(failures) {
		t, ok := targets[name]
		if !ok {
			return fmt.Errorf("failed target %q is not part of the workflow", name)
		}

		key, scale := ScaledOption(failures[name])
		if scale == nil {
			continue
		}

		current, ok := t.Options[key]
		if !ok {
			return fmt.Errorf("target %q: %w", name, &resources.ParseError{Kind: key, Value: ""})
		}
		scaled, err := scale(current, multiplier)
		if err != nil {
			return fmt.Errorf("target %q: %w", name, err)
		}
		changes = append(changes, change{target: t, key: key, value: scaled})
	}

	for _, c := range changes {
		c.target.Options[c.key] = c.value
	}
	return nil
}
