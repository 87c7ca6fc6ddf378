package record

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTriggersCSVRoundTrip(t *testing.T) {
	triggers := []Trigger{
		{Event: 0, Time: 1000},
		{Event: 1, Time: 2000},
		{Event: 4096, Time: 3000},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTriggersCSV(&buf, triggers))

	got, err := ReadTriggersCSV(&buf)
	require.NoError(t, err)
	require.Equal(t, triggers, got)
}

func TestTriggersCSVHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTriggersCSV(&buf, nil))
	require.Equal(t, "event,time\n", buf.String())
}

func TestClusterMetadataCSVRoundTrip(t *testing.T) {
	rows := []ClusterMetadata{
		{Event: 1, Time: 100.5, Duration: 12.25, Hits: 3, SumToT: 90, Offset: 0},
		{Event: 2, Time: 200.0, Duration: 0, Hits: 1, SumToT: 30, Offset: 64},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteClusterMetadataCSV(&buf, rows))

	got, err := ReadClusterMetadataCSV(&buf)
	require.NoError(t, err)
	require.Equal(t, rows, got)
}

func TestReadTriggersCSVEmptyStream(t *testing.T) {
	got, err := ReadTriggersCSV(bytes.NewReader(nil))
	require.NoError(t, err)
	require.Nil(t, got)
}
