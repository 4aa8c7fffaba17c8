package resources

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestParseWalltime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"01:00:00", time.Hour},
		{"1:2:3", time.Hour + 2*time.Minute + 3*time.Second},
		{"2-00:00:01", 48*time.Hour + time.Second},
		{"0-12:30:00", 12*time.Hour + 30*time.Minute},
		{"00:90:00", 90 * time.Minute},
		{"100:00:00", 100 * time.Hour},
	}
	for _, tt := range tests {
		got, err := ParseWalltime(tt.in)
		if err != nil {
			t.Fatalf("ParseWalltime(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseWalltime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseWalltime_Invalid(t *testing.T) {
	for _, in := range []string{"", "1h", "01:00", "a-01:00:00", "01:00:00 ", "-01:00:00", "1-2-03:00:00"} {
		_, err := ParseWalltime(in)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("ParseWalltime(%q): want *ParseError, got %v", in, err)
		}
		if pe.Kind != OptionWalltime {
			t.Fatalf("unexpected kind %q", pe.Kind)
		}
	}
}

func TestFormatWalltime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{time.Hour, "01:00:00"},
		{23*time.Hour + 59*time.Minute + 59*time.Second, "23:59:59"},
		{24 * time.Hour, "1-00:00:00"},
		{50*time.Hour + 5*time.Second, "2-02:00:05"},
		{time.Second + 999*time.Millisecond, "00:00:01"},
	}
	for _, tt := range tests {
		if got := FormatWalltime(tt.in); got != tt.want {
			t.Fatalf("FormatWalltime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWalltime_RoundTripAfterNormalizing(t *testing.T) {
	tests := map[string]string{
		"01:00:00":   "01:00:00",
		"1:0:0":      "01:00:00",
		"3-04:05:06": "3-04:05:06",
		"0-04:05:06": "04:05:06",
		"12:00:00":   "12:00:00",
		"10-00:00:0": "10-00:00:00",
	}
	for in, want := range tests {
		d, err := ParseWalltime(in)
		if err != nil {
			t.Fatalf("ParseWalltime(%q) error: %v", in, err)
		}
		if got := FormatWalltime(d); got != want {
			t.Fatalf("format(parse(%q)) = %q, want %q", in, got, want)
		}
	}
}

func TestScaleWalltime(t *testing.T) {
	tests := []struct {
		in   string
		m    float64
		want string
	}{
		{"01:00:00", 2.0, "02:00:00"},
		{"12:00:00", 2.0, "1-00:00:00"},
		{"1-12:00:00", 2.0, "3-00:00:00"},
		{"00:00:03", 1.5, "00:00:04"},
		{"00:10:00", 0.5, "00:05:00"},
		{"01:00:00", 1.0, "01:00:00"},
	}
	for _, tt := range tests {
		got, err := ScaleWalltime(tt.in, tt.m)
		if err != nil {
			t.Fatalf("ScaleWalltime(%q, %v) error: %v", tt.in, tt.m, err)
		}
		if got != tt.want {
			t.Fatalf("ScaleWalltime(%q, %v) = %q, want %q", tt.in, tt.m, got, tt.want)
		}
	}
}

func TestScaleWalltime_InvalidInput(t *testing.T) {
	_, err := ScaleWalltime("two hours", 2)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want *ParseError, got %v", err)
	}
}

func TestParseWalltime_OutOfRange(t *testing.T) {
	if _, err := ParseWalltime("106751-00:00:00"); err != nil {
		t.Fatalf("largest whole day count should parse: %v", err)
	}
	for _, in := range []string{"106752-00:00:00", "200000-00:00:00", "9999999999999:00:00", "106751-23:59:99999"} {
		d, err := ParseWalltime(in)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("ParseWalltime(%q) = %v, want *ParseError, got %v", in, d, err)
		}
		if !errors.Is(err, errWalltimeRange) {
			t.Fatalf("ParseWalltime(%q): want range error, got %v", in, err)
		}
	}
}

func TestScaleWalltime_OutOfRange(t *testing.T) {
	got, err := ScaleWalltime("53000-00:00:00", 2)
	if err != nil || got != "106000-00:00:00" {
		t.Fatalf("ScaleWalltime within range = %q, %v", got, err)
	}
	for _, tt := range []struct {
		in string
		m  float64
	}{
		{"60000-00:00:00", 2},
		{"01:00:00", 1e12},
	} {
		got, err := ScaleWalltime(tt.in, tt.m)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("ScaleWalltime(%q, %v) = %q, want *ParseError, got %v", tt.in, tt.m, got, err)
		}
	}
}

func TestScaleMemory(t *testing.T) {
	tests := []struct {
		in   string
		m    float64
		want string
	}{
		{"4G", 1.5, "6G"},
		{"4G", 2.0, "8G"},
		{"1000MB", 1.25, "1250MB"},
		{"3g", 0.5, "2g"}, // 1.5 rounds half to even
		{"5G", 0.5, "2G"}, // 2.5 rounds half to even
		{"7M", 1.0, "7M"},
		{"16GiB", 1.1, "18GiB"},
	}
	for _, tt := range tests {
		got, err := ScaleMemory(tt.in, tt.m)
		if err != nil {
			t.Fatalf("ScaleMemory(%q, %v) error: %v", tt.in, tt.m, err)
		}
		if got != tt.want {
			t.Fatalf("ScaleMemory(%q, %v) = %q, want %q", tt.in, tt.m, got, tt.want)
		}
	}
}

func TestScaleMemory_Invalid(t *testing.T) {
	for _, in := range []string{"", "G", "4", "4.5G", "4 G", "-4G", "4G!"} {
		_, err := ScaleMemory(in, 2)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("ScaleMemory(%q): want *ParseError, got %v", in, err)
		}
		if pe.Kind != OptionMemory {
			t.Fatalf("unexpected kind %q", pe.Kind)
		}
	}
}

func TestScaleMemory_Monotonic(t *testing.T) {
	multipliers := []float64{0, 0.25, 0.5, 1, 1.3, 1.5, 2, 3.75, 10}
	for _, v := range []string{"1G", "3M", "4096K", "17GB"} {
		prev := int64(-1)
		for _, m := range multipliers {
			got, err := ScaleMemory(v, m)
			if err != nil {
				t.Fatalf("ScaleMemory(%q, %v) error: %v", v, m, err)
			}
			unit := strings.TrimLeft(got, "0123456789")
			if !strings.HasSuffix(v, unit) || unit == "" {
				t.Fatalf("unit changed: %q -> %q", v, got)
			}
			n, err := strconv.ParseInt(strings.TrimSuffix(got, unit), 10, 64)
			if err != nil {
				t.Fatalf("unexpected output %q", got)
			}
			if n < prev {
				t.Fatalf("ScaleMemory(%q, %v) = %d decreased from %d", v, m, n, prev)
			}
			prev = n
		}
	}
}

func TestScale_RejectsInvalidMultiplier(t *testing.T) {
	if _, err := ScaleMemory("4G", -1); err == nil {
		t.Fatalf("expected error for negative multiplier")
	}
	if _, err := ScaleWalltime("01:00:00", -1); err == nil {
		t.Fatalf("expected error for negative multiplier")
	}
}
