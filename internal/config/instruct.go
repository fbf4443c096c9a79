// Package config parses the live-override control file using
// github.com/maseology/mmio's key/value instruction-file reader.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/maseology/mmio"
)

// Instruct wraps mmio.NewInstruct with typed accessors. A missing required
// key is a ConfigError: fatal at startup, never during the time loop.
type Instruct struct {
	ins *mmio.Instruct
	fp  string
}

// Load reads the instruction file at fp.
func Load(fp string) (*Instruct, error) {
	ins := mmio.NewInstruct(fp)
	if ins == nil {
		return nil, fmt.Errorf("config: failed to read instruction file %q", fp)
	}
	return &Instruct{ins: ins, fp: fp}, nil
}

// String returns the first value for key, erroring if the key is absent.
func (i *Instruct) String(key string) (string, error) {
	v, ok := i.ins.Param[key]
	if !ok || len(v) == 0 {
		return "", fmt.Errorf("config: missing required parameter %q in %s", key, i.fp)
	}
	return v[0], nil
}

// StringOr returns the first value for key, or def if absent.
func (i *Instruct) StringOr(key, def string) string {
	if v, ok := i.ins.Param[key]; ok && len(v) > 0 {
		return v[0]
	}
	return def
}

// Float parses the first value for key as a float64.
func (i *Instruct) Float(key string) (float64, error) {
	s, err := i.String(key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("config: parameter %q=%q is not a number: %w", key, s, err)
	}
	return f, nil
}

// Int parses the first value for key as an int.
func (i *Instruct) Int(key string) (int, error) {
	s, err := i.String(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("config: parameter %q=%q is not an integer: %w", key, s, err)
	}
	return n, nil
}

// FloatsWithPrefix returns every key beginning with prefix, keyed by the
// remainder of the key after the prefix, parsed as a float64. A key whose
// first value doesn't parse as a number is skipped rather than erroring:
// callers use this for optional, sparsely-populated override blocks.
func (i *Instruct) FloatsWithPrefix(prefix string) map[string]float64 {
	out := make(map[string]float64)
	for k, v := range i.ins.Param {
		if !strings.HasPrefix(k, prefix) || len(v) == 0 {
			continue
		}
		f, err := strconv.ParseFloat(v[0], 64)
		if err != nil {
			continue
		}
		out[strings.TrimPrefix(k, prefix)] = f
	}
	return out
}

// Method parses the first value for key against a case-insensitive set of
// accepted keyword -> enumeration-value pairs, the model definition's
// enumerated-options scheme. An unrecognized keyword is a ConfigError.
func Method[T any](i *Instruct, key string, accepted map[string]T) (T, error) {
	var zero T
	s, err := i.String(key)
	if err != nil {
		return zero, err
	}
	if v, ok := accepted[strings.ToUpper(s)]; ok {
		return v, nil
	}
	return zero, fmt.Errorf("config: unknown method keyword %q for %q", s, key)
}

// Duration parses a key as a number of seconds into a time.Duration.
func (i *Instruct) Duration(key string) (time.Duration, error) {
	f, err := i.Float(key)
	if err != nil {
		return 0, err
	}
	return time.Duration(f * float64(time.Second)), nil
}
