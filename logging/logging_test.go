package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger_FileAndConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	var console bytes.Buffer
	l, err := SetupLogger(Options{LogPath: path, Console: &console, Debug: true})
	require.NoError(t, err)
	assert.Equal(t, path, l.Path())

	l.Infof("Total number of input images: %d", 3)
	l.LogImageProcessed("a.jpg", true, nil)
	l.LogImageProcessed("b.jpg", false, errors.New("bad header"))
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	file := string(data)
	assert.Contains(t, file, "Total number of input images: 3")
	assert.Contains(t, file, "a.jpg")
	assert.Contains(t, file, "bad header")
	assert.Contains(t, file, "log started")

	out := console.String()
	assert.Contains(t, out, "Total number of input images: 3")
	assert.Contains(t, out, "b.jpg")
	assert.NotContains(t, out, "a.jpg", "debug lines stay in the file")
}

func TestSetupLogger_InfoLevelSkipsDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l, err := SetupLogger(Options{LogPath: path, Console: &bytes.Buffer{}})
	require.NoError(t, err)
	l.LogImageProcessed("a.jpg", true, nil)
	l.Warn("something")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "a.jpg")
	assert.Contains(t, string(data), "something")
}

func TestSetupLogger_NoFile(t *testing.T) {
	var console bytes.Buffer
	l, err := SetupLogger(Options{LogPath: "-", Console: &console})
	require.NoError(t, err)
	assert.Empty(t, l.Path())
	l.Error("boom")
	assert.Contains(t, console.String(), "boom")
	assert.NoError(t, l.Close())
}

func TestSetupLogger_BadPath(t *testing.T) {
	_, err := SetupLogger(Options{LogPath: filepath.Join(t.TempDir(), "missing", "x.log"), Console: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestDefaultLogPath(t *testing.T) {
	assert.Equal(t, time.Now().Format("2006-01-02")+".log", DefaultLogPath())
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.LogImageProcessed("a", false, errors.New("x"))
	assert.NoError(t, l.Close())
}
