// $ go test -v pkg/alerts/*.go

package alerts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveParams(t *testing.T) {
	defaults := Params{"threshold": 3.0, "window": 10}

	merged := ResolveParams(defaults, Params{"threshold": 4.0})
	assert.Equal(t, 4.0, merged.Float("threshold", 0))
	assert.Equal(t, 10, merged.Int("window", 0))

	// no override entry leaves defaults unchanged
	merged = ResolveParams(defaults, nil)
	assert.Equal(t, 3.0, merged.Float("threshold", 0))
	assert.Equal(t, 10, merged.Int("window", 0))

	// unknown override keys are still applied
	merged = ResolveParams(defaults, Params{"cooldown": "30s"})
	assert.Equal(t, "30s", merged.String("cooldown", ""))
	assert.Equal(t, 3.0, merged.Float("threshold", 0))

	// inputs stay untouched
	assert.Equal(t, Params{"threshold": 3.0, "window": 10}, defaults)
}

func TestParamsAccessors(t *testing.T) {
	p := Params{"f": "4.5", "i": 7.0, "s": 42, "b": "true"}

	assert.Equal(t, 4.5, p.Float("f", 0))
	assert.Equal(t, 7, p.Int("i", 0))
	assert.Equal(t, "42", p.String("s", ""))
	assert.True(t, p.Bool("b", false))

	// missing keys fall back
	assert.Equal(t, 3.0, p.Float("missing", 3.0))
	assert.Equal(t, 5, p.Int("missing", 5))
	assert.Equal(t, "x", p.String("missing", "x"))
	assert.True(t, p.Bool("missing", true))
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.yaml")
	err := os.WriteFile(path, []byte("OU3:\n  threshold: 4.0\n  cooldown: 30\n"), 0644)
	require.NoError(t, err)

	overrides, err := LoadOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, 4.0, overrides["OU3"].Float("threshold", 0))
	assert.Equal(t, 30, overrides["OU3"].Int("cooldown", 0))
}

func TestLoadOverridesAbsent(t *testing.T) {
	overrides, err := LoadOverrides("")
	require.NoError(t, err)
	assert.Empty(t, overrides)

	overrides, err = LoadOverrides(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func TestLoadOverridesMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	err := os.WriteFile(path, []byte("OU3: [unterminated"), 0644)
	require.NoError(t, err)

	_, err = LoadOverrides(path)
	assert.Error(t, err)
}
