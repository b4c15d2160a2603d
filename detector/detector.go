package detector

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/openfluke/webgpu/wgpu"
	"gopkg.in/yaml.v3"
)

// BudgetEnv overrides the recommended memory budget, in MiB.
const BudgetEnv = "DEVCOMPUTE_BUDGET_MB"

const defaultBudget = uint64(128 * 1024 * 1024)

/* ---------- public API ---------- */

// Report is a portable summary of the current adapter/device caps.
type Report struct {
	WhenISO     string            `json:"when_iso" yaml:"when_iso"`
	Runtime     string            `json:"runtime" yaml:"runtime"` // "native" or "wasm" (best-effort)
	Backend     string            `json:"backend" yaml:"backend"`
	AdapterType string            `json:"adapter_type" yaml:"adapter_type"`
	VendorID    string            `json:"vendor_id_hex" yaml:"vendor_id_hex"`
	DeviceID    string            `json:"device_id_hex" yaml:"device_id_hex"`
	Name        string            `json:"name" yaml:"name"`
	Driver      string            `json:"driver" yaml:"driver"`
	Recommended Recommendations   `json:"recommended" yaml:"recommended"`
	Limits      Limits            `json:"limits" yaml:"limits"`
	Features    []string          `json:"features" yaml:"features"`
	Env         map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

type Limits struct {
	MaxComputeInvocationsPerWorkgroup uint32 `json:"max_compute_invocations_per_workgroup" yaml:"max_compute_invocations_per_workgroup"`
	MaxComputeWorkgroupSizeX          uint32 `json:"max_compute_workgroup_size_x" yaml:"max_compute_workgroup_size_x"`
	MaxComputeWorkgroupSizeY          uint32 `json:"max_compute_workgroup_size_y" yaml:"max_compute_workgroup_size_y"`
	MaxComputeWorkgroupSizeZ          uint32 `json:"max_compute_workgroup_size_z" yaml:"max_compute_workgroup_size_z"`
	MaxComputeWorkgroupsPerDimension  uint32 `json:"max_compute_workgroups_per_dimension" yaml:"max_compute_workgroups_per_dimension"`
	MaxComputeWorkgroupStorageSize    uint32 `json:"max_compute_workgroup_storage_size" yaml:"max_compute_workgroup_storage_size"`
	MaxStorageBufferBindingSize       uint64 `json:"max_storage_buffer_binding_size" yaml:"max_storage_buffer_binding_size"`
	MaxBufferSize                     uint64 `json:"max_buffer_size" yaml:"max_buffer_size"`
}

type Recommendations struct {
	// Conservative 1D workgroup that should run everywhere.
	WorkgroupX uint32 `json:"workgroup_x" yaml:"workgroup_x"`
	WorkgroupY uint32 `json:"workgroup_y" yaml:"workgroup_y"`
	WorkgroupZ uint32 `json:"workgroup_z" yaml:"workgroup_z"`

	TileX uint32 `json:"tile_x" yaml:"tile_x"`
	TileY uint32 `json:"tile_y" yaml:"tile_y"`

	// Soft device memory budget in bytes.
	BudgetBytes uint64 `json:"budget_bytes" yaml:"budget_bytes"`
}

// Encode writes the report as "json" (indented) or "yaml".
func (r *Report) Encode(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("detector: unknown report format %q", format)
	}
}

// DetectJSON runs a probe and returns the JSON string.
func DetectJSON() (string, error) {
	rep, err := Detect()
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Detect probes the high performance adapter and synthesizes a report.
func Detect() (*Report, error) {
	inst := wgpu.CreateInstance(nil)
	if inst == nil {
		return nil, fmt.Errorf("wgpu.CreateInstance returned nil")
	}
	defer inst.Release()

	adapter, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	if adapter == nil {
		return nil, fmt.Errorf("no adapter")
	}
	defer adapter.Release()

	return Probe(adapter), nil
}

// Probe builds a report from an adapter the caller already holds.
func Probe(adapter *wgpu.Adapter) *Report {
	info := adapter.GetInfo()
	supported := adapter.GetLimits()

	var feats []string
	for _, f := range adapter.EnumerateFeatures() {
		feats = append(feats, featureName(f))
	}

	limits := Limits{
		MaxComputeInvocationsPerWorkgroup: supported.Limits.MaxComputeInvocationsPerWorkgroup,
		MaxComputeWorkgroupSizeX:          supported.Limits.MaxComputeWorkgroupSizeX,
		MaxComputeWorkgroupSizeY:          supported.Limits.MaxComputeWorkgroupSizeY,
		MaxComputeWorkgroupSizeZ:          supported.Limits.MaxComputeWorkgroupSizeZ,
		MaxComputeWorkgroupsPerDimension:  supported.Limits.MaxComputeWorkgroupsPerDimension,
		MaxComputeWorkgroupStorageSize:    supported.Limits.MaxComputeWorkgroupStorageSize,
		MaxStorageBufferBindingSize:       supported.Limits.MaxStorageBufferBindingSize,
		MaxBufferSize:                     supported.Limits.MaxBufferSize,
	}
	wgX, wgY, wgZ := chooseWorkgroup(limits)
	tileX, tileY := chooseTile(limits, wgX, wgY, wgZ)

	return &Report{
		WhenISO:     time.Now().UTC().Format(time.RFC3339),
		Runtime:     detectRuntime(),
		Backend:     backendName(info.BackendType),
		AdapterType: adapterTypeName(info.AdapterType),
		VendorID:    fmt.Sprintf("0x%04x", info.VendorId),
		DeviceID:    fmt.Sprintf("0x%04x", info.DeviceId),
		Name:        strings.TrimSpace(info.Name),
		Driver:      strings.TrimSpace(info.DriverDescription),
		Limits:      limits,
		Features:    feats,
		Recommended: Recommendations{
			WorkgroupX: wgX, WorkgroupY: wgY, WorkgroupZ: wgZ,
			TileX: tileX, TileY: tileY,
			BudgetBytes: budgetBytes(),
		},
		Env: pickEnv([]string{BudgetEnv}),
	}
}

/* ---------- helpers ---------- */

func budgetBytes() uint64 {
	if mbStr := os.Getenv(BudgetEnv); mbStr != "" {
		if mb, err := strconv.Atoi(mbStr); err == nil && mb > 0 {
			return uint64(mb) * 1024 * 1024
		}
	}
	return defaultBudget
}

func chooseWorkgroup(l Limits) (uint32, uint32, uint32) {
	maxX := l.MaxComputeWorkgroupSizeX
	maxTot := l.MaxComputeInvocationsPerWorkgroup

	candidates := []uint32{256, 128, 64, 32, 16, 8, 4, 1}
	for _, c := range candidates {
		if c <= maxX && c <= maxTot {
			return c, 1, 1
		}
	}
	// absolute portability fallback
	return 1, 1, 1
}

func chooseTile(l Limits, wgX, wgY, wgZ uint32) (uint32, uint32) {
	// Keep tile ~ a few workgroups worth, capped by per-dimension dispatch limits.
	tx := wgX * 8
	if tx < 1 {
		tx = 1
	}
	if tx > l.MaxComputeWorkgroupsPerDimension {
		tx = l.MaxComputeWorkgroupsPerDimension
	}

	ty := uint32(1)
	if wgY > 1 {
		ty = wgY * 8
		if ty > l.MaxComputeWorkgroupsPerDimension {
			ty = l.MaxComputeWorkgroupsPerDimension
		}
	}
	return tx, ty
}

func featureName(f wgpu.FeatureName) string     { return f.String() }
func backendName(b wgpu.BackendType) string     { return b.String() }
func adapterTypeName(t wgpu.AdapterType) string { return t.String() }

func detectRuntime() string {
	if runtime.GOOS == "js" {
		return "wasm"
	}
	return "native"
}

func pickEnv(keys []string) map[string]string {
	out := map[string]string{}
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
