package detector

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleReport() *Report {
	return &Report{
		Runtime:     "native",
		Backend:     "Vulkan",
		AdapterType: "DiscreteGPU",
		VendorID:    "0x10de",
		Name:        "Test GPU",
		Limits: Limits{
			MaxComputeInvocationsPerWorkgroup: 256,
			MaxComputeWorkgroupSizeX:          256,
			MaxComputeWorkgroupsPerDimension:  65535,
			MaxBufferSize:                     1 << 28,
		},
		Recommended: Recommendations{WorkgroupX: 256, WorkgroupY: 1, WorkgroupZ: 1, BudgetBytes: defaultBudget},
		Features:    []string{"TimestampQuery"},
	}
}

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().Encode(&buf, "json"))

	var got Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Test GPU", got.Name)
	assert.Equal(t, uint32(256), got.Limits.MaxComputeInvocationsPerWorkgroup)
	assert.Contains(t, buf.String(), `"vendor_id_hex": "0x10de"`)
}

func TestEncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleReport().Encode(&buf, "yaml"))
	assert.Contains(t, buf.String(), "name: Test GPU")

	var got Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "0x10de", got.VendorID)
	assert.Equal(t, defaultBudget, got.Recommended.BudgetBytes)
	assert.Equal(t, []string{"TimestampQuery"}, got.Features)
}

func TestEncodeUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, sampleReport().Encode(&buf, "xml"))
}

func TestChooseWorkgroup(t *testing.T) {
	x, y, z := chooseWorkgroup(Limits{MaxComputeWorkgroupSizeX: 1024, MaxComputeInvocationsPerWorkgroup: 1024})
	assert.Equal(t, []uint32{256, 1, 1}, []uint32{x, y, z})

	x, _, _ = chooseWorkgroup(Limits{MaxComputeWorkgroupSizeX: 100, MaxComputeInvocationsPerWorkgroup: 1024})
	assert.Equal(t, uint32(64), x)

	x, _, _ = chooseWorkgroup(Limits{})
	assert.Equal(t, uint32(1), x)
}

func TestChooseTile(t *testing.T) {
	tx, ty := chooseTile(Limits{MaxComputeWorkgroupsPerDimension: 65535}, 64, 1, 1)
	assert.Equal(t, uint32(512), tx)
	assert.Equal(t, uint32(1), ty)

	tx, _ = chooseTile(Limits{MaxComputeWorkgroupsPerDimension: 100}, 64, 1, 1)
	assert.Equal(t, uint32(100), tx)
}

func TestBudgetEnv(t *testing.T) {
	t.Setenv(BudgetEnv, "")
	assert.Equal(t, defaultBudget, budgetBytes())
	assert.Nil(t, pickEnv([]string{BudgetEnv}))

	t.Setenv(BudgetEnv, "64")
	assert.Equal(t, uint64(64<<20), budgetBytes())
	assert.Equal(t, map[string]string{BudgetEnv: "64"}, pickEnv([]string{BudgetEnv}))

	t.Setenv(BudgetEnv, "nope")
	assert.Equal(t, defaultBudget, budgetBytes())
}
