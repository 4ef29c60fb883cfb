package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/corrmatrix"
	"github.com/hupe1980/corrmatrix/internal/rowstore"
)

const ratingsFixture = `10::1::1
10::2::2
10::3::3
20::1::2
20::2::4
20::3::6
30::1::3
30::2::2
30::3::1
40::9::5
`

// execute runs the CLI with args and fresh flag state.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	for _, cmd := range []*cobra.Command{rootCmd, buildCmd, neighborsCmd, cleanCmd, pairCmd} {
		reset := func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		cmd.Flags().VisitAll(reset)
		cmd.PersistentFlags().VisitAll(reset)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands_Registered(t *testing.T) {
	var names []string
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Subset(t, names, []string{"build", "neighbors", "clean", "pair"})

	flag := buildCmd.Flags().Lookup("out")
	require.NotNil(t, flag)
	assert.Equal(t, "similarity.csv", flag.DefValue)
}

func TestBuildAndNeighbors(t *testing.T) {
	ratingsPath := writeFile(t, "ratings.dat", ratingsFixture)
	root := t.TempDir()
	spill := t.TempDir()
	metricsPath := filepath.Join(t.TempDir(), "corrmatrix.prom")

	out, err := execute(t, "build",
		"--ratings", ratingsPath,
		"--store-root", root,
		"--spill-dir", spill,
		"--out", "sim.csv",
		"--metrics-textfile", metricsPath,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote sim.csv: 4 users, 3 of 6 pairs defined")

	data, err := os.ReadFile(filepath.Join(root, "sim.csv"))
	require.NoError(t, err)
	assert.Equal(t, "4\nprecomputedMeans=false,minCommonRatedMovies=1\n"+
		"NaN,1.0000,-1.0000,NaN\n"+
		"1.0000,NaN,-1.0000,NaN\n"+
		"-1.0000,-1.0000,NaN,NaN\n"+
		"NaN,NaN,NaN,NaN\n", string(data))

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "corrmatrix_rows_written_total 4")

	out, err = execute(t, "neighbors",
		"--store-root", root,
		"--matrix", "sim.csv",
		"--ratings", ratingsPath,
		"--user", "10",
		"--k", "2",
	)
	require.NoError(t, err)
	assert.Equal(t, "10\t20\t1.0000\n10\t30\t-1.0000\n", out)

	out, err = execute(t, "neighbors", "--store-root", root, "--matrix", "sim.csv", "--k", "1")
	require.NoError(t, err)
	assert.Equal(t, "0\t1\t1.0000\n1\t0\t1.0000\n2\t0\t-1.0000\n", out)

	_, err = execute(t, "neighbors", "--store-root", root, "--matrix", "sim.csv", "--user", "99")
	assert.ErrorContains(t, err, "unknown user 99")
}

func TestBuild_JSONReportAndCompression(t *testing.T) {
	ratingsPath := writeFile(t, "ratings.dat", ratingsFixture)
	root := t.TempDir()

	out, err := execute(t, "build",
		"--ratings", ratingsPath,
		"--store-root", root,
		"--spill-dir", t.TempDir(),
		"--out", "sim.csv.zst",
		"--compress",
		"--min-common", "3",
		"--json",
	)
	require.NoError(t, err)
	assert.Contains(t, out, `"compressed": true`)
	assert.Contains(t, out, `"min_common_items": 3`)

	out, err = execute(t, "neighbors", "--store-root", root, "--matrix", "sim.csv.zst", "--user", "2", "--k", "5")
	require.NoError(t, err)
	assert.Equal(t, "2\t0\t-1.0000\n2\t1\t-1.0000\n", out)
}

func TestBuild_Errors(t *testing.T) {
	_, err := execute(t, "build", "--store-root", t.TempDir())
	assert.Error(t, err)

	_, err = execute(t, "build", "--ratings", filepath.Join(t.TempDir(), "missing.dat"), "--store-root", t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)

	ratingsPath := writeFile(t, "ratings.dat", ratingsFixture)
	_, err = execute(t, "build", "--ratings", ratingsPath, "--store-root", t.TempDir(), "--min-common", "0")
	assert.ErrorIs(t, err, corrmatrix.ErrInvalidThreshold)
}

func TestPair(t *testing.T) {
	ratingsPath := writeFile(t, "ratings.dat", ratingsFixture)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"10", "20"}, "1.0000\n"},
		{[]string{"30", "10"}, "-1.0000\n"},
		{[]string{"10", "40"}, "NaN\n"},
		{[]string{"--min-common", "4", "10", "20"}, "NaN\n"},
	}
	for _, tt := range tests {
		out, err := execute(t, append([]string{"pair", "--ratings", ratingsPath}, tt.args...)...)
		require.NoError(t, err, tt.args)
		assert.Equal(t, tt.want, out, tt.args)
	}

	_, err := execute(t, "pair", "--ratings", ratingsPath, "10", "99")
	assert.ErrorIs(t, err, corrmatrix.ErrUnknownUser)

	_, err = execute(t, "pair", "--ratings", ratingsPath, "10")
	assert.Error(t, err)
}

func TestBuild_DefaultSpillDirIsPrivate(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	// A spill file of another build still running in the shared temp dir.
	live := filepath.Join(tmp, rowstore.DefaultPrefix+"2.tmp")
	require.NoError(t, os.WriteFile(live, []byte("x"), 0o644))

	ratingsPath := writeFile(t, "ratings.dat", ratingsFixture)
	_, err := execute(t, "build", "--ratings", ratingsPath, "--store-root", t.TempDir(), "--budget", "1")
	require.NoError(t, err)

	assert.FileExists(t, live)
	runDirs, err := filepath.Glob(filepath.Join(tmp, runDirPrefix+"*"))
	require.NoError(t, err)
	assert.Empty(t, runDirs)
}

func TestClean_SweepsRunDirs(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	runDir := filepath.Join(tmp, runDirPrefix+"123")
	require.NoError(t, os.Mkdir(runDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, rowstore.DefaultPrefix+"0.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, rowstore.DefaultPrefix+"1.tmp"), []byte("x"), 0o644))
	other := filepath.Join(tmp, "unrelated")
	require.NoError(t, os.Mkdir(other, 0o755))

	out, err := execute(t, "clean")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 2 spill files")
	assert.NoDirExists(t, runDir)
	assert.DirExists(t, other)
}

func TestClean(t *testing.T) {
	spill := t.TempDir()
	stale := filepath.Join(spill, rowstore.DefaultPrefix+"7.tmp")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	keep := filepath.Join(spill, "other.tmp")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))

	root := t.TempDir()
	ratingsPath := writeFile(t, "ratings.dat", ratingsFixture)
	_, err := execute(t, "build", "--ratings", ratingsPath, "--store-root", root, "--spill-dir", t.TempDir(), "--out", "old.csv")
	require.NoError(t, err)

	out, err := execute(t, "clean", "--spill-dir", spill, "--store-root", root, "--matrix", "old.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 1 spill files")
	assert.Contains(t, out, "removed matrix old.csv")

	assert.NoFileExists(t, stale)
	assert.FileExists(t, keep)
	assert.NoFileExists(t, filepath.Join(root, "old.csv"))
	assert.NoFileExists(t, filepath.Join(root, "old.csv.report.json"))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New("boom"), exitGeneric},
		{&corrmatrix.IOError{Site: corrmatrix.SiteInit, Row: -1, Err: errors.New("x")}, exitInit},
		{&corrmatrix.IOError{Site: corrmatrix.SiteWrite, Row: 3, Err: errors.New("x")}, exitWrite},
		{&corrmatrix.IOError{Site: corrmatrix.SiteClose, Row: -1, Err: errors.New("x")}, exitClose},
		{fmt.Errorf("wrapped: %w", &corrmatrix.IOError{Site: corrmatrix.SiteSpill, Row: 1, Err: errors.New("x")}), exitSpill},
		{&corrmatrix.IOError{Site: corrmatrix.SiteLoad, Row: 1, Err: errors.New("x")}, exitLoad},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), tt.err.Error())
	}
}
