// Package resources rewrites Slurm walltime and memory requests.
package resources

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// Option keys of a target's resource requests.
const (
	OptionWalltime = "walltime"
	OptionMemory   = "memory"
)

const day = 24 * time.Hour

var errWalltimeRange = errors.New("walltime out of range")

var (
	walltimeRegex = regexp.MustCompile(`^(?:(\d+)-)?(\d+):(\d+):(\d+)$`)
	memoryRegex   = regexp.MustCompile(`^(\d+)([a-zA-Z]+)$`)
)

// ParseError reports a resource string that does not match its grammar.
type ParseError struct {
	Kind  string // "walltime" or "memory"
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s format %q: %v", e.Kind, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s format %q", e.Kind, e.Value)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseWalltime parses "[D-]HH:MM:SS". Fields are not range checked, so
// "00:90:00" is ninety minutes.
func ParseWalltime(s string) (time.Duration, error) {
	m := walltimeRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, &ParseError{Kind: OptionWalltime, Value: s}
	}

	var parts [4]int64
	for i, raw := range m[1:] {
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, &ParseError{Kind: OptionWalltime, Value: s, Err: err}
		}
		parts[i] = v
	}

	var d time.Duration
	for i, unit := range [4]time.Duration{day, time.Hour, time.Minute, time.Second} {
		if parts[i] > int64(math.MaxInt64-d)/int64(unit) {
			return 0, &ParseError{Kind: OptionWalltime, Value: s, Err: errWalltimeRange}
		}
		d += time.Duration(parts[i]) * unit
	}
	return d, nil
}

// FormatWalltime renders d as "D-HH:MM:SS" when it spans at least a day and
// as "HH:MM:SS" otherwise. Sub-second precision is truncated.
func FormatWalltime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	rem := total % 86400
	hours, rem := rem/3600, rem%3600
	minutes, seconds := rem/60, rem%60

	if days > 0 {
		return fmt.Sprintf("%d-%02d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// ScaleWalltime multiplies a walltime string by multiplier.
func ScaleWalltime(value string, multiplier float64) (string, error) {
	d, err := ParseWalltime(value)
	if err != nil {
		return "", err
	}
	if err := checkMultiplier(multiplier); err != nil {
		return "", err
	}
	scaled := float64(d) * multiplier
	if scaled >= math.MaxInt64 {
		return "", &ParseError{Kind: OptionWalltime, Value: value, Err: errWalltimeRange}
	}
	return FormatWalltime(time.Duration(scaled)), nil
}

// ScaleMemory multiplies the integer part of a memory string such as "4G"
// by multiplier, rounding half to even, and keeps the unit suffix unchanged.
func ScaleMemory(value string, multiplier float64) (string, error) {
	m := memoryRegex.FindStringSubmatch(value)
	if m == nil {
		return "", &ParseError{Kind: OptionMemory, Value: value}
	}
	size, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return "", &ParseError{Kind: OptionMemory, Value: value, Err: err}
	}
	if err := checkMultiplier(multiplier); err != nil {
		return "", err
	}
	scaled := math.RoundToEven(float64(size) * multiplier)
	return strconv.FormatFloat(scaled, 'f', 0, 64) + m[2], nil
}

func checkMultiplier(multiplier float64) error {
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier < 0 {
		return fmt.Errorf("invalid multiplier %v", multiplier)
	}
	return nil
}
