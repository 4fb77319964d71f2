package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GrantClark1999/CS160/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileSource_TypeErrorHasNoAssembly(t *testing.T) {
	testData := []struct {
		content string
		code    TypeErrorCode
	}{
		{"A { }", NoMainClass},
		{"Main { main() -> none { print 1 + true; } }", ExpressionTypeMismatch},
	}
	for _, data := range testData {
		compilation, err := CompileSource(strings.NewReader(data.content), "test", true)
		assert.Nil(t, compilation, data.content)
		require.NotNil(t, err, data.content)
		typeErr, ok := err.(*TypeError)
		require.True(t, ok, data.content)
		assert.Equal(t, data.code, typeErr.Code, data.content)
	}
}

func TestCompile_LogFile(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "input.lang")
	require.NoError(t, os.WriteFile(source, []byte(emptyMain), 0644))

	c := config.Default()
	c.Log.Verbosity = 2
	c.Log.Path = filepath.Join(dir, "cs160.log")
	c.ConfigureLog()
	t.Cleanup(func() { config.Default().ConfigureLog() })

	_, err := Compile(source, true)
	require.Nil(t, err)
	_, err = CompileSource(strings.NewReader("A { }"), "broken", true)
	require.NotNil(t, err)

	data, err := os.ReadFile(c.Log.Path)
	require.Nil(t, err)
	for _, line := range []string{
		"start parser at path: " + source,
		"start type checker on 1 classes",
		"start generate codes",
		"generated",
		"start parser at path: broken",
		"type error in",
	} {
		assert.Contains(t, string(data), line)
	}
}
