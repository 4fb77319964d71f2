package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/commonlog"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[log]
verbosity = 2
path = "cs160.log"

[codegen]
comments = false
output = "out.s"

[runner]
max-steps = 500
`
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(tomlContent), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Log.Verbosity)
	assert.Equal(t, "cs160.log", *c.LogPath())
	assert.False(t, c.Codegen.Comments)
	assert.Equal(t, "out.s", c.Codegen.Output)
	assert.Equal(t, 500, c.Runner.MaxSteps)
	assert.Equal(t, path, c.Path)
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	testData := []struct {
		content  string
		expected *Config
	}{
		{
			content:  "",
			expected: Default(),
		},
		{
			content: "[log]\nverbosity = 0\n",
			expected: &Config{
				Log:     Log{Verbosity: 0},
				Codegen: Codegen{Comments: true},
				Runner:  Runner{MaxSteps: DefaultMaxSteps},
			},
		},
		{
			content: "[runner]\nmax-steps = -1\n",
			expected: &Config{
				Log:     Log{Verbosity: 1},
				Codegen: Codegen{Comments: true},
				Runner:  Runner{MaxSteps: DefaultMaxSteps},
			},
		},
	}
	for _, data := range testData {
		path := filepath.Join(t.TempDir(), FileName)
		require.NoError(t, os.WriteFile(path, []byte(data.content), 0644))
		c, err := Load(path)
		require.NoError(t, err)
		data.expected.Path = path
		assert.Equal(t, data.expected, c, data.content)
	}
	assert.Nil(t, Default().LogPath())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("[runner\nmax-steps = 1"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("[runner]\nmax-steps = 42\n"), 0644))

	c, err := FindAndLoad(nested)
	require.NoError(t, err)
	assert.Equal(t, 42, c.Runner.MaxSteps)
}

func TestConfigureLog(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "cs160.log")
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("[log]\nverbosity = 1\npath = \""+filepath.ToSlash(logPath)+"\"\n"), 0644))
	c, err := Load(path)
	require.NoError(t, err)

	c.ConfigureLog()
	t.Cleanup(func() { Default().ConfigureLog() })
	log := commonlog.GetLogger("cs160.config")
	log.Info("written at once")
	log.Debug("above verbosity")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written at once")
	assert.NotContains(t, string(data), "above verbosity")
}
