package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dargueta/biotest"
	"github.com/dargueta/biotest/errors"
	biotesttest "github.com/dargueta/biotest/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// runApp runs the CLI with `args` and returns what it printed to stdout.
func runApp(t *testing.T, args ...string) (string, error) {
	stdout := &bytes.Buffer{}
	app := newApp()
	app.Writer = stdout
	app.ErrWriter = &bytes.Buffer{}

	err := app.Run(append([]string{"biotest"}, args...))
	return stdout.String(), err
}

func TestCLI__SyncRun(t *testing.T) {
	path := biotesttest.TempTargetPath(t)
	output, err := runApp(t, "-t", path, "-m", "1", "-s", "1000")
	require.NoError(t, err)

	assert.Contains(t, output, "block size    =512\n")
	assert.Contains(t, output, "blocks        =2048\n")
	assert.Contains(t, output, "biotest passed\n")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 1024*1024, info.Size())
}

func TestCLI__RandomizedThenVerify(t *testing.T) {
	path := biotesttest.TempTargetPath(t)
	_, err := runApp(t, "-t", path, "-m", "1", "-r", "--seed", "77", "-a", "--window", "8")
	require.NoError(t, err)

	output, err := runApp(t, "-t", path, "-m", "1", "-r", "--seed", "77", "-v")
	require.NoError(t, err)
	assert.Contains(t, output, "biotest passed\n")

	_, err = runApp(t, "-t", path, "-m", "1", "-r", "--seed", "78", "-v")
	assert.ErrorIs(t, err, biotest.ErrContentMismatch)
	assert.Equal(t, errors.EBADMSG, exitCode(err))
}

func TestCLI__VerifyRandomWithoutSeed(t *testing.T) {
	_, err := runApp(t, "-t", biotesttest.TempTargetPath(t), "-m", "1", "-r", "-v")
	assert.ErrorIs(t, err, biotest.ErrInvalidParameters)
}

func TestCLI__ConflictingModes(t *testing.T) {
	path := biotesttest.TempTargetPath(t)
	_, err := runApp(t, "-t", path, "-m", "1", "-d", "-b")
	assert.ErrorIs(t, err, biotest.ErrConflictingModes)
	assert.Equal(t, errors.EINVAL, exitCode(err))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "target must not be touched")
}

func TestCLI__MissingRequiredFlag(t *testing.T) {
	_, err := runApp(t, "-m", "1")
	require.Error(t, err)
	assert.Equal(t, errors.EINVAL, exitCode(err))
}

func TestCLI__EnvironmentVariables(t *testing.T) {
	path := biotesttest.TempTargetPath(t)
	t.Setenv("BIOTEST_TARGET", path)
	t.Setenv("BIOTEST_MEGS", "1")
	t.Setenv("BIOTEST_BLOCK_SIZE", "4096")

	output, err := runApp(t)
	require.NoError(t, err)
	assert.Contains(t, output, "blocks        =256\n")
}

func TestCLI__FaultPlan(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.csv")
	require.NoError(t, os.WriteFile(planPath, []byte("op,block,count,errno\nwrite,37,1,5\n"), 0644))
	target := filepath.Join(dir, "target.img")

	_, err := runApp(t, "-t", target, "-m", "1", "--fault-plan", planPath)
	require.Error(t, err)
	assert.Equal(t, errors.EIO, exitCode(err))

	output, err := runApp(
		t, "-t", target, "-m", "1", "-y", "--retry-delay", "1ms", "--fault-plan", planPath)
	require.NoError(t, err)
	assert.Contains(t, output, "biotest passed\n")

	output, err = runApp(
		t, "-t", target, "-m", "1", "-a", "-y", "--retry-delay", "1ms", "--fault-plan", planPath)
	require.NoError(t, err)
	assert.Contains(t, output, "biotest passed\n")
}

func TestParametersFromContext__Defaults(t *testing.T) {
	var params biotest.RunParameters
	app := newApp()
	app.Writer = &bytes.Buffer{}
	app.Action = func(context *cli.Context) error {
		var err error
		params, err = parametersFromContext(context)
		return err
	}

	require.NoError(t, app.Run([]string{"biotest", "-t", "x", "-m", "3", "-y", "-s", "100"}))
	assert.Equal(
		t,
		biotest.RunParameters{
			Target:     "x",
			Megabytes:  3,
			BlockSize:  biotest.MinBlockSize,
			Mode:       biotest.ModeRetryOnError,
			Window:     biotest.DefaultWindow,
			RetryDelay: biotest.DefaultRetryDelay,
		},
		params)
}

func TestCLI__BufferedRun(t *testing.T) {
	path := biotesttest.TempTargetPath(t)

	output, err := runApp(t, "-t", path, "-m", "1", "-b")
	require.NoError(t, err)
	assert.Contains(t, output, "biotest passed\n")

	_, err = runApp(t, "-t", path, "-m", "1", "-b", "-r", "--seed", "31")
	require.NoError(t, err)
	output, err = runApp(t, "-t", path, "-m", "1", "-b", "-r", "--seed", "31", "-v")
	require.NoError(t, err)
	assert.Contains(t, output, "biotest passed\n")

	output, err = runApp(t, "-t", path, "-m", "1", "-b", "-a")
	require.NoError(t, err)
	assert.Contains(t, output, "biotest passed\n")
}

func TestCLI__BufferedRetry(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.csv")
	require.NoError(t, os.WriteFile(planPath, []byte("op,block,count,errno\nwrite,37,2,5\n"), 0644))

	output, err := runApp(
		t,
		"-t", filepath.Join(dir, "target.img"),
		"-m", "1", "-b", "-y", "--retry-delay", "1ms", "--fault-plan", planPath)
	require.NoError(t, err)
	assert.Contains(t, output, "biotest passed\n")
}

// A data set too small to hold a single block leaves an existing target alone.
func TestCLI__ZeroBlocksLeavesTargetUntouched(t *testing.T) {
	path := biotesttest.TempTargetPath(t)
	original := bytes.Repeat([]byte{0x4e}, 4096)
	require.NoError(t, os.WriteFile(path, original, 0644))

	output, err := runApp(t, "-t", path, "-m", "1", "-s", "2097152")
	require.NoError(t, err)
	assert.Contains(t, output, "blocks        =0\n")
	assert.Contains(t, output, "biotest passed\n")

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, contents)
}
