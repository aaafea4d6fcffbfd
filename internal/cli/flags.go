package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/doridoridoriand/netsav-go/internal/config"
)

// OptionalInt records an int flag and whether it was set.
type OptionalInt struct {
	value int
	set   bool
}

func (o *OptionalInt) Set(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	o.value = v
	o.set = true
	return nil
}

func (o *OptionalInt) String() string {
	if !o.set {
		return ""
	}
	return strconv.Itoa(o.value)
}

func (o *OptionalInt) Value() (int, bool) {
	return o.value, o.set
}

// OptionalString records a string flag and whether it was set.
type OptionalString struct {
	value string
	set   bool
}

func (o *OptionalString) Set(s string) error {
	o.value = s
	o.set = true
	return nil
}

func (o *OptionalString) String() string {
	if !o.set {
		return ""
	}
	return o.value
}

func (o *OptionalString) Value() (string, bool) {
	return o.value, o.set
}

// OptionalBool records a bool flag and whether it was set.
type OptionalBool struct {
	value bool
	set   bool
}

func (o *OptionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	o.value = v
	o.set = true
	return nil
}

func (o *OptionalBool) String() string {
	if !o.set {
		return ""
	}
	if o.value {
		return "true"
	}
	return "false"
}

func (o *OptionalBool) IsBoolFlag() bool {
	return true
}

func (o *OptionalBool) Value() (bool, bool) {
	return o.value, o.set
}

// OptionalMetricsMode records a validated metrics mode flag.
type OptionalMetricsMode struct {
	value config.MetricsMode
	set   bool
}

func (o *OptionalMetricsMode) Set(s string) error {
	v, err := config.ParseMetricsMode(s)
	if err != nil {
		return fmt.Errorf("invalid metrics mode: %q (valid values: per-target, aggregated, both)", s)
	}
	o.value = v
	o.set = true
	return nil
}

func (o *OptionalMetricsMode) String() string {
	if !o.set {
		return ""
	}
	return string(o.value)
}

func (o *OptionalMetricsMode) Value() (config.MetricsMode, bool) {
	return o.value, o.set
}

// OptionalLevel records a log level flag, upper-cased and validated.
type OptionalLevel struct {
	value string
	set   bool
}

func (o *OptionalLevel) Set(s string) error {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "ERROR", "WARN", "INFO", "DEBUG":
	default:
		return fmt.Errorf("invalid log level: %q (valid values: ERROR, WARN, INFO, DEBUG)", s)
	}
	o.value = v
	o.set = true
	return nil
}

func (o *OptionalLevel) String() string {
	if !o.set {
		return ""
	}
	return o.value
}

func (o *OptionalLevel) Value() (string, bool) {
	return o.value, o.set
}
