package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseFlagsRequiresInput(t *testing.T) {
	_, err := parseFlags(nil, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = parseFlags([]string{"-example", "-comma", ";;"}, &bytes.Buffer{})
	assert.Error(t, err)

	opts, err := parseFlags([]string{"-subjects", "s.csv", "-hours", "h1,h2"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 2, opts.maxPerDay)
}

func TestSplitLabels(t *testing.T) {
	assert.Equal(t, []string{"mon", "tue"}, splitLabels(" mon, ,tue "))
}

func TestRunSolvesCSVInput(t *testing.T) {
	dir := t.TempDir()
	subjects := writeFile(t, dir, "subjects.csv", "subject,hours\nmath,2\n")
	prefs := writeFile(t, dir, "preferences.csv", "day,hour,subject,weight\ntue,h1,math,3\n")
	out := filepath.Join(dir, "slots.csv")

	var stdout bytes.Buffer
	err := run(context.Background(), []string{
		"-subjects", subjects,
		"-preferences", prefs,
		"-days", "mon,tue",
		"-hours", "h1,h2",
		"-out", out,
	}, &stdout, &bytes.Buffer{})
	require.NoError(t, err)

	lines := strings.Split(stdout.String(), "\n")
	assert.Equal(t, []string{"Hour", "mon", "tue"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"h1", "-", "math"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"h2", "-", "math"}, strings.Fields(lines[2]))
	assert.Contains(t, stdout.String(), "status=optimal")

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "day,hour,subject\ntue,h1,math\ntue,h2,math\n", string(written))
}

func TestRunReportsInfeasibleGrid(t *testing.T) {
	dir := t.TempDir()
	subjects := writeFile(t, dir, "subjects.csv", "subject,hours\nmath,4\n")
	constraints := writeFile(t, dir, "constraints.csv", "day,hour,subject,flag\nmon,h1,math,0\n")

	err := run(context.Background(), []string{
		"-subjects", subjects,
		"-constraints", constraints,
		"-days", "mon,tue",
		"-hours", "h1,h2",
	}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInfeasible.Code, appErrors.FromError(err).Code)
}

func TestRunRejectsUnknownSolver(t *testing.T) {
	err := run(context.Background(), []string{"-example", "-solver", "cplex"}, &bytes.Buffer{}, &bytes.Buffer{})
	require.EqualError(t, err, `unknown solver "cplex"`)
}
