package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentField(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	Set(l)
	defer Set(nil)

	Component("compute").Info("context ready")
	assert.Contains(t, buf.String(), "component=compute")
	assert.Contains(t, buf.String(), "context ready")
}

func TestInitLevelAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.log")
	require.NoError(t, Init("warn", path, false))
	defer Set(nil)

	Infof("hidden")
	Warnf("shown %d", 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown 1")
	assert.Equal(t, logrus.WarnLevel, Get().GetLevel())
}

func TestInitUnknownLevel(t *testing.T) {
	require.NoError(t, Init("chatty", "", false))
	defer Set(nil)
	assert.Equal(t, logrus.InfoLevel, Get().GetLevel())
}

func TestInitClosesPreviousFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init("info", filepath.Join(dir, "first.log"), false))
	defer Set(nil)

	mu.Lock()
	first := out
	mu.Unlock()
	require.NotNil(t, first)

	require.NoError(t, Init("info", filepath.Join(dir, "second.log"), false))
	_, err := first.WriteString("late\n")
	assert.ErrorIs(t, err, os.ErrClosed)

	require.NoError(t, Init("info", "", false))
	mu.Lock()
	assert.Nil(t, out)
	mu.Unlock()
}
