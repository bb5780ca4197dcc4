package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveAndWriteTextfile(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(sectionTotal.WithLabelValues("stor", ResultSuccess))
	ObserveSection("stor", "", 120*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(sectionTotal.WithLabelValues("stor", ResultSuccess)))

	ObserveDatasetFetch("STOR_data", "", 42)
	assert.GreaterOrEqual(t, testutil.ToFloat64(datasetFetchRows.WithLabelValues("STOR_data")), 42.0)

	ObserveBMRSRequest("", ResultError, time.Second)
	assert.GreaterOrEqual(t, testutil.ToFloat64(bmrsRequestTotal.WithLabelValues("unknown", ResultError)), 1.0)

	path := filepath.Join(t.TempDir(), "fmr.prom")
	require.NoError(t, WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fmr_report_section_total")

	assert.NoError(t, WriteTextfile(""))
}
