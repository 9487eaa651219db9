package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRenderKeepsHeaderOrder(t *testing.T) {
	data := Dataset{
		Headers: []string{"Student Name", "Admission No", "Average Score"},
		Rows: []map[string]string{
			{"Student Name": "Ada Obi", "Admission No": "ADM001", "Average Score": "82.50"},
			{"Student Name": "Ben Eze", "Admission No": "ADM002"},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "Student Name,Admission No,Average Score\n")
	assert.Contains(t, text, "Ada Obi,ADM001,82.50\n")
	// Missing cells stay empty rather than shifting columns.
	assert.Contains(t, text, "Ben Eze,ADM002,\n")
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}
