package trigger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Params wraps the key-value block of one trigger section.
type Params map[string]string

// ParseBool reports whether value is one of the accepted true spellings.
func ParseBool(value string) bool {
	switch strings.TrimSpace(value) {
	case "true", "TRUE", "True", "1", "yes", "on":
		return true
	}
	return false
}

// Get returns the value for key or def when unset or empty.
func (p Params) Get(key, def string) string {
	if value, ok := p[key]; ok && value != "" {
		return value
	}
	return def
}

// Bool returns the boolean value for key.
func (p Params) Bool(key string) bool {
	return ParseBool(p[key])
}

// Int returns the integer value for key or def when unset.
func (p Params) Int(key string, def int) (int, error) {
	value, ok := p[key]
	if !ok || value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %w", key, err)
	}
	return n, nil
}

// Seconds returns a duration expressed in seconds for key.
func (p Params) Seconds(key string, def time.Duration) (time.Duration, error) {
	value, ok := p[key]
	if !ok || value == "" {
		return def, nil
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %w", key, err)
	}
	if secs <= 0 {
		return 0, fmt.Errorf("parameter %s must be > 0", key)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Require fails when any of keys is missing or empty.
func (p Params) Require(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if p[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing parameters: %s", strings.Join(missing, ", "))
	}
	return nil
}

// List splits a comma separated value, dropping empty items.
func (p Params) List(key string) []string {
	var out []string
	for _, item := range strings.Split(p[key], ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Prefixed returns the keys starting with prefix, with the prefix removed.
func (p Params) Prefixed(prefix string) map[string]string {
	out := make(map[string]string)
	for key, value := range p {
		if strings.HasPrefix(key, prefix) && len(key) > len(prefix) {
			out[strings.TrimPrefix(key, prefix)] = value
		}
	}
	return out
}
