package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/railopt/core/schedule"
)

func sample() schedule.Schedule {
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	return schedule.Schedule{
		"T2": {{AssignmentID: "a2", TrainID: "T2", SectionID: "S1",
			PlannedStart: t0.Add(10 * time.Minute), PlannedEnd: t0.Add(40 * time.Minute),
			Start: t0.Add(32 * time.Minute), End: t0.Add(62 * time.Minute), DelayAdded: 22}},
		"T1": {{AssignmentID: "a1", TrainID: "T1", SectionID: "S1",
			PlannedStart: t0, PlannedEnd: t0.Add(30 * time.Minute),
			Start: t0, End: t0.Add(30 * time.Minute)}},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, CSVHeader, rows[0])
	assert.Equal(t, []string{"T1", "S1", "a1", "2025-03-10T08:00:00Z", "2025-03-10T08:30:00Z",
		"2025-03-10T08:00:00Z", "2025-03-10T08:30:00Z", "0"}, rows[1])
	assert.Equal(t, "T2", rows[2][0])
	assert.Equal(t, "2025-03-10T08:32:00Z", rows[2][5])
	assert.Equal(t, "22", rows[2][7])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sample()))
	var out []schedule.Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "T1", out[0].TrainID)
	assert.Equal(t, 22.0, out[1].DelayAdded)

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}
