package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdtsim/rdtsim/sim"
	"github.com/rdtsim/rdtsim/sim/protocol"
	"github.com/rdtsim/rdtsim/sim/trace"
)

func TestParseRunArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    runArgs
		wantErr bool
	}{
		{"valid", []string{"10", "0.1", "0.2", "1000"}, runArgs{10, 0.1, 0.2, 1000}, false},
		{"too few", []string{"10", "0.1", "0.2"}, runArgs{}, true},
		{"bad count", []string{"ten", "0.1", "0.2", "1000"}, runArgs{}, true},
		{"bad loss", []string{"10", "x", "0.2", "1000"}, runArgs{}, true},
		{"bad interval", []string{"10", "0.1", "0.2", ""}, runArgs{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRunArgs(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// withProtocol sets the --protocol global for one test.
func withProtocol(t *testing.T, name string) {
	t.Helper()
	old := protocolName
	protocolName = name
	t.Cleanup(func() { protocolName = old })
}

func TestBuildConfig_UsesPresetWhenFlagUnset(t *testing.T) {
	withProtocol(t, protocol.NameGoBackN)

	cfg, err := buildConfig(&cobra.Command{}, runArgs{20, 0.1, 0.2, 50}, builtinDefaults())

	require.NoError(t, err)
	assert.Equal(t, sim.NewProtocolConfig(protocol.NameGoBackN, protocol.DefaultWindowSize, protocol.DefaultTimeout, protocol.DefaultMaxBuffered), cfg.Protocol)
	assert.Equal(t, sim.NewChannelConfig(0.1, 0.2), cfg.Channel)
	assert.Equal(t, 20, cfg.Workload.MaxMessages)
	assert.Equal(t, 50.0, cfg.Workload.MeanInterarrival)
	assert.Equal(t, int64(42), cfg.Seed)
}

func TestBuildConfig_ChangedFlagOverridesPreset(t *testing.T) {
	withProtocol(t, protocol.NameStopAndWait)
	oldTimeout, oldSeed := timeout, seed
	t.Cleanup(func() { timeout, seed = oldTimeout, oldSeed })

	// GIVEN a command where the user passed --timeout 12 and --seed 7
	c := &cobra.Command{}
	c.Flags().Float64Var(&timeout, "timeout", 0, "")
	c.Flags().Int64Var(&seed, "seed", 0, "")
	require.NoError(t, c.Flags().Set("timeout", "12"))
	require.NoError(t, c.Flags().Set("seed", "7"))

	cfg, err := buildConfig(c, runArgs{5, 0, 0, 10}, builtinDefaults())

	require.NoError(t, err)
	assert.Equal(t, 12.0, cfg.Protocol.Timeout)
	assert.Equal(t, int64(7), cfg.Seed)
}

func TestBuildConfig_Rejects(t *testing.T) {
	withProtocol(t, "selective-repeat")
	_, err := buildConfig(&cobra.Command{}, runArgs{5, 0, 0, 10}, builtinDefaults())
	assert.True(t, errors.Is(err, protocol.ErrUnknownProtocol))

	withProtocol(t, protocol.NameStopAndWait)
	_, err = buildConfig(&cobra.Command{}, runArgs{5, 1.5, 0, 10}, builtinDefaults())
	assert.True(t, errors.Is(err, sim.ErrInvalidConfig))
}

func testRunConfig(proto string) sim.Config {
	return sim.Config{
		Seed:     3,
		Channel:  sim.NewChannelConfig(0.1, 0.1),
		Workload: sim.NewWorkloadConfig(15, 20),
		Protocol: sim.NewProtocolConfig(proto, 4, 40, 50),
		Strict:   true,
	}
}

func TestRunSimulation_TextReport(t *testing.T) {
	var out bytes.Buffer

	m, err := runSimulation(&out, testRunConfig(protocol.NameStopAndWait), "run-text", outputOptions{})

	require.NoError(t, err)
	assert.Len(t, m.DeliveredTo(sim.EntityB), 15)
	assert.Contains(t, out.String(), "=== Simulation Metrics ===")
	assert.Contains(t, out.String(), "run-text")
}

func TestRunSimulation_JSONReport(t *testing.T) {
	var out bytes.Buffer

	_, err := runSimulation(&out, testRunConfig(protocol.NameGoBackN), "run-json", outputOptions{json: true})
	require.NoError(t, err)

	var decoded struct {
		RunID      string `json:"run_id"`
		Deliveries []struct {
			Entity string `json:"entity"`
			Data   string `json:"data"`
		} `json:"deliveries"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "run-json", decoded.RunID)
	require.Len(t, decoded.Deliveries, 15)
	assert.Equal(t, "B", decoded.Deliveries[0].Entity)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaa", decoded.Deliveries[0].Data)
}

func TestRunSimulation_TraceDatabaseAndPlot(t *testing.T) {
	dir := t.TempDir()
	opts := outputOptions{
		traceLevel: trace.TraceLevelEvents,
		traceDB:    filepath.Join(dir, "trace"),
		plotPath:   filepath.Join(dir, "delay.png"),
	}

	_, err := runSimulation(&bytes.Buffer{}, testRunConfig(protocol.NameGoBackN), "run-files", opts)
	require.NoError(t, err)

	for _, name := range []string{"trace.sqlite3", "delay.png"} {
		info, statErr := os.Stat(filepath.Join(dir, name))
		require.NoError(t, statErr, name)
		assert.Positive(t, info.Size(), name)
	}
}

func TestRunSimulation_PlotSkippedWhenEverythingIsLost(t *testing.T) {
	// GIVEN a channel that drops every packet and a plot request
	dir := t.TempDir()
	cfg := testRunConfig(protocol.NameStopAndWait)
	cfg.Channel = sim.NewChannelConfig(1, 0)
	cfg.Horizon = 500
	cfg.Strict = false
	plotPath := filepath.Join(dir, "delay.png")

	// WHEN the run finishes
	m, err := runSimulation(&bytes.Buffer{}, cfg, "run-lost", outputOptions{plotPath: plotPath})

	// THEN the run still succeeds and no plot is written
	require.NoError(t, err)
	assert.Empty(t, m.Deliveries)
	_, statErr := os.Stat(plotPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRootCmd_WrongArgCountFails(t *testing.T) {
	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetOut(&stderr)
	rootCmd.SetArgs([]string{"run", "10", "0.1"})
	t.Cleanup(func() {
		rootCmd.SetErr(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, stderr.String(), "Usage:")
}
