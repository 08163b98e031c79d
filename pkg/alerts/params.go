package alerts

import (
	"errors"
	"io/fs"
	"os"

	yaml "gopkg.in/yaml.v2"

	"github.com/moonwalker/linewatch/pkg/parse"
)

// Params holds one alert's tunables. Config files deliver 3, 3.0 or
// "3.0" interchangeably, the typed accessors coerce instead of failing.
type Params map[string]interface{}

func (p Params) Float(key string, fallback float64) float64 {
	v, ok := p[key]
	if !ok {
		return fallback
	}
	return parse.ParseFloat(v)
}

func (p Params) Int(key string, fallback int) int {
	v, ok := p[key]
	if !ok {
		return fallback
	}
	return parse.ParseInt(v)
}

func (p Params) String(key string, fallback string) string {
	v, ok := p[key]
	if !ok {
		return fallback
	}
	return parse.ParseString(v)
}

func (p Params) Bool(key string, fallback bool) bool {
	v, ok := p[key]
	if !ok {
		return fallback
	}
	return parse.ParseBool(v)
}

// Overrides maps alert name to externally configured parameters.
type Overrides map[string]Params

// ResolveParams merges an alert's built-in defaults with its external
// overrides. Overrides win per key, keys absent from overrides keep
// their default, unknown override keys are kept so new tunables don't
// require touching the alert's defaults. Neither input is mutated.
func ResolveParams(defaults, overrides Params) Params {
	merged := make(Params, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// LoadOverrides reads the YAML overrides file mapping alert name to
// parameters. An empty path or absent file yields empty overrides, a
// file that exists but doesn't parse is an error.
func LoadOverrides(path string) (Overrides, error) {
	if len(path) == 0 {
		return Overrides{}, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Overrides{}, nil
	}
	if err != nil {
		return nil, err
	}

	overrides := Overrides{}
	err = yaml.Unmarshal(data, &overrides)
	if err != nil {
		return nil, err
	}

	return overrides, nil
}
