package deep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopy(t *testing.T) {
	type task struct {
		ID         int64
		Owner      string
		Parameters map[string]string
		History    []string
	}

	original := task{
		ID:         12,
		Owner:      "pharmacy-001",
		Parameters: map[string]string{"kind": "medication-request"},
		History:    []string{"requested", "received"},
	}
	copied := Copy(original)
	require.Equal(t, original, copied)

	copied.Owner = "doctor-001"
	copied.Parameters["kind"] = "altered"
	copied.History[0] = "altered"

	assert.Equal(t, "pharmacy-001", original.Owner)
	assert.Equal(t, "medication-request", original.Parameters["kind"], "copy should not share the map")
	assert.Equal(t, "requested", original.History[0], "copy should not share the slice")
}
