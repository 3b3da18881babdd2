package csvio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSubjects(t *testing.T) {
	rows, err := New(0).ReadSubjects(strings.NewReader("subject,hours\nmath, 3\n bio ,2\n"))
	require.NoError(t, err)
	assert.Equal(t, []SubjectRecord{{Subject: "math", Hours: 3}, {Subject: "bio", Hours: 2}}, rows)
}

func TestReadSubjectsRejectsBlankName(t *testing.T) {
	_, err := New(0).ReadSubjects(strings.NewReader("subject,hours\n,3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
}

func TestReadSubjectsRejectsBadHours(t *testing.T) {
	_, err := New(0).ReadSubjects(strings.NewReader("subject,hours\nmath,many\n"))
	require.Error(t, err)
}

func TestReadPreferencesSemicolon(t *testing.T) {
	rows, err := New(';').ReadPreferences(strings.NewReader("day;hour;subject;weight\nmon;h1;math;2.5\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, PreferenceRecord{Day: "mon", Hour: "h1", Subject: "math", Weight: 2.5}, rows[0])
}

func TestReadConstraints(t *testing.T) {
	rows, err := New(0).ReadConstraints(strings.NewReader("day,hour,subject,flag\nmon,h1,math,1\ntue,h2,bio,0\n"))
	require.NoError(t, err)
	assert.Equal(t, []ConstraintRecord{
		{Day: "mon", Hour: "h1", Subject: "math", Flag: 1},
		{Day: "tue", Hour: "h2", Subject: "bio", Flag: 0},
	}, rows)
}

func TestWriteSlots(t *testing.T) {
	var buf bytes.Buffer
	err := New(0).WriteSlots(&buf, []SlotRecord{{Day: "mon", Hour: "h1", Subject: "math"}})
	require.NoError(t, err)
	assert.Equal(t, "day,hour,subject\nmon,h1,math\n", buf.String())
}

func TestOpenAndRead(t *testing.T) {
	codec := New(0)
	rows, err := OpenAndRead("", codec.ReadConstraints)
	require.NoError(t, err)
	assert.Nil(t, rows)

	path := filepath.Join(t.TempDir(), "subjects.csv")
	require.NoError(t, os.WriteFile(path, []byte("subject,hours\nart,1\n"), 0o600))
	subjects, err := OpenAndRead(path, codec.ReadSubjects)
	require.NoError(t, err)
	assert.Equal(t, []SubjectRecord{{Subject: "art", Hours: 1}}, subjects)

	_, err = OpenAndRead(filepath.Join(t.TempDir(), "missing.csv"), codec.ReadSubjects)
	assert.Error(t, err)
}
