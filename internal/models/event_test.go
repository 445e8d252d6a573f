package models

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTableOrdering(t *testing.T) {
	table := NewEventTable()
	require.NoError(t, table.Append(300, "W_P1", EventDisrupt, 50))
	require.NoError(t, table.Append(100, "P_L1", EventDisrupt, 80))
	require.NoError(t, table.Append(300, "T_L2", EventDisrupt, 100))
	require.NoError(t, table.Append(200, "W_P1", EventIsolate, 0))

	events := table.Sorted()
	require.Len(t, events, 4)
	assert.Equal(t, "P_L1", events[0].ComponentID)
	assert.Equal(t, "W_P1", events[1].ComponentID)
	// ties at t=300 keep insertion order
	assert.Equal(t, "W_P1", events[2].ComponentID)
	assert.Equal(t, "T_L2", events[3].ComponentID)

	assert.Equal(t, []int64{100, 200, 300}, table.Timestamps())
	assert.Len(t, table.At(300), 2)
}

func TestEventTableFreeze(t *testing.T) {
	table := NewEventTable()
	require.NoError(t, table.Append(0, "W_P1", EventDisrupt, 50))
	table.Freeze()
	assert.Error(t, table.Append(10, "W_P2", EventDisrupt, 50))
	assert.Equal(t, 1, table.Len())
}

func TestEventTableRejectsNegativeTime(t *testing.T) {
	table := NewEventTable()
	assert.Error(t, table.Append(-1, "W_P1", EventDisrupt, 50))
}

func TestEventTableValidate(t *testing.T) {
	net := NewNetwork("test")
	pipe, err := NewComponent("W_P1")
	require.NoError(t, err)
	require.NoError(t, net.Add(pipe))
	junction, err := NewComponent("W_J1")
	require.NoError(t, err)
	require.NoError(t, net.Add(junction))

	table := NewEventTable()
	require.NoError(t, table.Append(0, "W_P1", EventDisrupt, 50))
	require.NoError(t, table.Validate(net))

	unknown := NewEventTable()
	require.NoError(t, unknown.Append(0, "W_P9", EventDisrupt, 50))
	assert.Error(t, unknown.Validate(net))

	badMag := NewEventTable()
	require.NoError(t, badMag.Append(0, "W_P1", EventDisrupt, 120))
	assert.Error(t, badMag.Validate(net))

	zeroMag := NewEventTable()
	require.NoError(t, zeroMag.Append(0, "W_P1", EventDisrupt, 0))
	assert.Error(t, zeroMag.Validate(net))

	// junctions are not disruption-eligible
	notEligible := NewEventTable()
	require.NoError(t, notEligible.Append(0, "W_J1", EventDisrupt, 50))
	assert.Error(t, notEligible.Validate(net))
}

func TestEventTableWriteCSV(t *testing.T) {
	table := NewEventTable()
	require.NoError(t, table.Append(600, "W_P1", EventDisrupt, 60))
	require.NoError(t, table.Append(900, "W_P1", EventRepairStart, 0))

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "time_stamp,component,event,magnitude", lines[0])
	assert.Equal(t, "600,W_P1,DISRUPT,60.0", lines[1])
}

func TestLoadDisruptions(t *testing.T) {
	input := `time_stamp,components,fail_perc,recovery_time
600,W_PMA2,60,
1200,P_L2,80,8
`
	rows, err := LoadDisruptions(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(600), rows[0].Time)
	assert.Equal(t, "W_PMA2", rows[0].ComponentID)
	assert.Zero(t, rows[0].RecoveryTime)
	assert.Equal(t, 8.0, rows[1].RecoveryTime.Hours())
}

func TestLoadDisruptionsRejectsMalformedRows(t *testing.T) {
	cases := []string{
		"time_stamp,components,fail_perc\nabc,W_P1,50",
		"time_stamp,components,fail_perc\n-5,W_P1,50",
		"time_stamp,components,fail_perc\n10,BAD_ID,50",
		"time_stamp,components,fail_perc\n10,W_P1,high",
		"wrong,header,here\n10,W_P1,50",
	}
	for _, input := range cases {
		_, err := LoadDisruptions(strings.NewReader(input))
		assert.Error(t, err, "input %q should fail", input)
	}
}
