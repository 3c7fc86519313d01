package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"mcscales/internal/config"
	"mcscales/internal/pdfset"
	"mcscales/internal/scales"
	"mcscales/internal/testing/gridfixture"
)

// setupCLI resets global state and seeds a six replica set. It returns the
// set directory and the output directory.
func setupCLI(t *testing.T) (string, string) {
	t.Helper()
	logger = zap.NewNop()

	srcDir, outDir := t.TempDir(), t.TempDir()
	cfg = config.DefaultConfig()
	cfg.OutputDir = outDir
	cfg.SearchPaths = []string{srcDir}
	splitByRenScale, groupsRenScale, groupsPrescription = "", "", ""
	t.Cleanup(func() {
		cfg, logger = nil, nil
		splitByRenScale, groupsRenScale, groupsPrescription = "", "", ""
	})

	return gridfixture.Write(t, srcDir, gridfixture.Scales("mcscales_v1")), outDir
}

func newCmd() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	return cmd, &out
}

func entries(t *testing.T, dir string) []string {
	t.Helper()
	des, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, de := range des {
		names = append(names, de.Name())
	}
	return names
}

func TestPartitionByFac(t *testing.T) {
	src, out := setupCLI(t)
	cmd, _ := newCmd()

	require.NoError(t, runPartition(cmd, []string{src}))
	assert.ElementsMatch(t, []string{"mcscales_v1_kF_0p5", "mcscales_v1_kF_1", "mcscales_v1_kF_2"}, entries(t, out))

	set, err := pdfset.Validate(filepath.Join(out, "mcscales_v1_kF_0p5"))
	require.NoError(t, err)
	n, err := set.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	info, err := set.Info()
	require.NoError(t, err)
	desc, err := info.String("SetDesc")
	require.NoError(t, err)
	assert.Equal(t, "MCscales set derived from 'mcscales_v1', with all factorisation scales equal to 0.5.", desc)

	// Replicas 1 and 4 of the source carry fac 0.5.
	for newID, oldID := range map[int]int{1: 1, 2: 4} {
		want, err := os.ReadFile(gridfixture.MemberPath(src, "mcscales_v1", oldID))
		require.NoError(t, err)
		got, err := os.ReadFile(set.MemberPath(newID))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestPartitionByRenScale(t *testing.T) {
	_, out := setupCLI(t)
	cmd, _ := newCmd()
	splitByRenScale = "TOP"

	require.NoError(t, runPartition(cmd, []string{"mcscales_v1"}))
	assert.ElementsMatch(t, []string{
		"mcscales_v1_kF_0p5_kR_TOP_0p5",
		"mcscales_v1_kF_1_kR_TOP_1",
		"mcscales_v1_kF_2_kR_TOP_2",
		"mcscales_v1_kF_0p5_kR_TOP_2",
		"mcscales_v1_kF_2_kR_TOP_0p5",
	}, entries(t, out))

	set, err := pdfset.Validate(filepath.Join(out, "mcscales_v1_kF_1_kR_TOP_1"))
	require.NoError(t, err)
	info, err := set.Info()
	require.NoError(t, err)
	desc, err := info.String("SetDesc")
	require.NoError(t, err)
	assert.Equal(t, "MCscales set derived from 'mcscales_v1', with all factorisation scales equal to 1 and"+
		" all renormalisation scales for process TOP set to 1.", desc)
}

func TestPartitionInvalidProcess(t *testing.T) {
	src, out := setupCLI(t)
	cmd, _ := newCmd()
	splitByRenScale = "JETS"

	err := runPartition(cmd, []string{src})
	var ve *pdfset.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Contains(t, ve.Error(), `Invalid process. For mcscales_v1, the valid choices are ["DIS NC" "TOP"]. Got 'JETS'`)
	assert.Empty(t, entries(t, out))
}

func TestPartitionChecksEveryDestinationFirst(t *testing.T) {
	src, out := setupCLI(t)
	cmd, _ := newCmd()
	require.NoError(t, os.Mkdir(filepath.Join(out, "mcscales_v1_kF_2"), 0755))

	err := runPartition(cmd, []string{src})
	var ve *pdfset.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Contains(t, ve.Error(), "already exists")
	assert.Equal(t, []string{"mcscales_v1_kF_2"}, entries(t, out))
}

func TestTheoryDriven(t *testing.T) {
	src, out := setupCLI(t)
	cmd, stdout := newCmd()

	require.NoError(t, runTheoryDriven(cmd, []string{src, "7 point"}))
	assert.Equal(t, "mcscales_v1_7_point\n", stdout.String())

	set, err := pdfset.Validate(filepath.Join(out, "mcscales_v1_7_point"))
	require.NoError(t, err)
	n, err := set.Len()
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// Surviving source replicas are 1, 2, 3 and 5.
	want, err := os.ReadFile(gridfixture.MemberPath(src, "mcscales_v1", 5))
	require.NoError(t, err)
	got, err := os.ReadFile(set.MemberPath(4))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A second run collides with the first.
	err = runTheoryDriven(cmd, []string{src, "7 point"})
	assert.Equal(t, 1, exitCode(err))
}

func TestTheoryDrivenCustom(t *testing.T) {
	src, out := setupCLI(t)
	cmd, stdout := newCmd()

	err := runTheoryDriven(cmd, []string{src, "custom"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, scales.ErrCustomPrescription))
	assert.Equal(t, 2, exitCode(err))
	assert.Empty(t, stdout.String())
	assert.Empty(t, entries(t, out))
}

func TestTheoryDrivenNoSurvivors(t *testing.T) {
	_, out := setupCLI(t)
	cmd, _ := newCmd()
	src := gridfixture.Write(t, t.TempDir(), gridfixture.Set{
		Name:      "offdiag",
		Processes: []string{"TOP"},
		Replicas: []gridfixture.Replica{
			{Fac: 0.5, Ren: map[string]float64{"TOP": 1}},
			{Fac: 2, Ren: map[string]float64{"TOP": 1}},
		},
	})

	err := runTheoryDriven(cmd, []string{src, "3 point"})
	var ve *pdfset.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "No replicas satisfy the constraint", ve.Error())
	assert.Empty(t, entries(t, out))
}

func TestTheoryDrivenUnknownPrescription(t *testing.T) {
	src, _ := setupCLI(t)
	cmd, _ := newCmd()

	err := runTheoryDriven(cmd, []string{src, "9 point"})
	assert.Equal(t, 1, exitCode(err))
}

func TestValidateCmd(t *testing.T) {
	src, _ := setupCLI(t)
	cmd, stdout := newCmd()

	require.NoError(t, runValidate(cmd, []string{"mcscales_v1"}))
	assert.Equal(t, "ok\n", stdout.String())

	plain := gridfixture.Write(t, t.TempDir(), gridfixture.Set{Name: "plain", Replicas: []gridfixture.Replica{{Fac: 1}}})
	err := runValidate(cmd, []string{plain})
	assert.Equal(t, 1, exitCode(err))

	err = runValidate(cmd, []string{filepath.Join(src, "mcscales_v1.info")})
	assert.Equal(t, 1, exitCode(err))
}

func TestGroupsCmd(t *testing.T) {
	src, out := setupCLI(t)

	t.Run("by factorisation", func(t *testing.T) {
		cmd, stdout := newCmd()
		require.NoError(t, runGroups(cmd, []string{src}))
		assert.Contains(t, stdout.String(), "mcscales_v1_kF_0p5")
		assert.Contains(t, stdout.String(), "1 4")
	})

	t.Run("by renormalisation", func(t *testing.T) {
		groupsRenScale = "TOP"
		defer func() { groupsRenScale = "" }()
		cmd, stdout := newCmd()
		require.NoError(t, runGroups(cmd, []string{src}))
		assert.Contains(t, stdout.String(), "mcscales_v1_kF_2_kR_TOP_0p5")
	})

	t.Run("by prescription", func(t *testing.T) {
		groupsPrescription = "5 point"
		defer func() { groupsPrescription = "" }()
		cmd, stdout := newCmd()
		require.NoError(t, runGroups(cmd, []string{src}))
		assert.Contains(t, stdout.String(), "mcscales_v1_5_point")
		assert.Contains(t, stdout.String(), "2 5")
	})

	assert.Empty(t, entries(t, out), "groups must not write anything")
}

func TestExitCode(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger = zap.New(core)
	t.Cleanup(func() { logger = nil })

	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(pdfset.Invalid("x", "x is not a valid LHAPDF grid.")))
	assert.Equal(t, 2, exitCode(errors.New("disk on fire")))

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "Error processing script: x is not a valid LHAPDF grid.", entries[0].Message)
	assert.Equal(t, "Unexpected error occurred. Please report it", entries[1].Message)
	assert.Equal(t, "disk on fire", entries[1].ContextMap()["error"])
}

func TestRootCommand(t *testing.T) {
	src, _ := setupCLI(t)
	out := t.TempDir()
	t.Cleanup(func() {
		configPath, outputDir, workers, verbose = "", "", 0, false
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{
		"--config", filepath.Join(t.TempDir(), "absent.yaml"),
		"--output-dir", out,
		"--workers", "2",
		"theory-driven", src, "5 point",
	})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "mcscales_v1_5_point\n", stdout.String())
	assert.Equal(t, out, cfg.OutputDir)
	assert.Equal(t, 2, cfg.Workers)
	assert.DirExists(t, filepath.Join(out, "mcscales_v1_5_point"))

	rootCmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "validate"})
	err := rootCmd.Execute()
	var ue usageError
	require.True(t, errors.As(err, &ue), "got %v", err)
	assert.Equal(t, 2, exitCode(err))
}
