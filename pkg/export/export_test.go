package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoreReport() Dataset {
	return Dataset{
		Headers: []string{"Student", "Subject", "Chapter", "Topic", "Score", "Difficulty", "Recorded At"},
		Rows: []map[string]string{
			{"Student": "Alice Student", "Subject": "Physics", "Chapter": "Kinematics", "Topic": "Velocity", "Score": "8.5", "Difficulty": "MEDIUM", "Recorded At": "2026-08-28T10:00:00Z"},
		},
	}
}

func TestCSVRenderStartsWithBOM(t *testing.T) {
	content, err := NewCSVExporter().Render(scoreReport())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("\xEF\xBB\xBF")))
	assert.True(t, bytes.Contains(content, []byte("Alice Student")))

	lines := strings.Split(strings.TrimSpace(string(content[3:])), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Student,Subject,Chapter,Topic,Score,Difficulty,Recorded At", strings.TrimSpace(lines[0]))
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFRenderScoreReport(t *testing.T) {
	content, err := NewPDFExporter().Render(scoreReport(), "Classroom Test Results")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))
}

func TestColumnWidthsWeighting(t *testing.T) {
	widths := columnWidths([]string{"Recorded At", "Score"}, 100)
	require.Len(t, widths, 2)
	assert.Greater(t, widths[0], widths[1])
	assert.InDelta(t, 100, widths[0]+widths[1], 0.001)
}
