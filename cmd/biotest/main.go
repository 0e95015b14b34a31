package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/chzyer/logex"
	"github.com/dargueta/biotest"
	"github.com/dargueta/biotest/engine"
	"github.com/dargueta/biotest/errors"
	"github.com/dargueta/biotest/faults"
	"github.com/dargueta/biotest/filehandle"
	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"
)

func main() {
	app := newApp()
	err := app.Run(os.Args)
	if err != nil {
		code := exitCode(err)
		logFailure(err)
		fmt.Fprintf(app.Writer, "biotest failed: %d\n", code)
		os.Exit(int(code))
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:        "biotest",
		Usage:       "Write a pattern of blocks to a file or device and verify it",
		UsageText:   "biotest -t TARGET -m MEGS [options]",
		HideVersion: true,
		Writer:      os.Stdout,
		ErrWriter:   os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:      "target",
				Aliases:   []string{"t"},
				Usage:     "file or block device to test",
				Required:  true,
				TakesFile: true,
				EnvVars:   []string{"BIOTEST_TARGET"},
			},
			&cli.Uint64Flag{
				Name:     "megs",
				Aliases:  []string{"m"},
				Usage:    "size of the data set, in MiB",
				Required: true,
				EnvVars:  []string{"BIOTEST_MEGS"},
			},
			&cli.UintFlag{
				Name:    "block-size",
				Aliases: []string{"s"},
				Usage:   "transfer size in bytes, rounded down to a multiple of 512",
				Value:   biotest.MinBlockSize,
				EnvVars: []string{"BIOTEST_BLOCK_SIZE"},
			},
			&cli.BoolFlag{
				Name:    "random",
				Aliases: []string{"r"},
				Usage:   "stamp blocks in a random order",
				EnvVars: []string{"BIOTEST_RANDOM"},
			},
			&cli.BoolFlag{
				Name:    "aio",
				Aliases: []string{"a"},
				Usage:   "write through the asynchronous completion queue",
				EnvVars: []string{"BIOTEST_AIO"},
			},
			&cli.BoolFlag{
				Name:    "direct",
				Aliases: []string{"d"},
				Usage:   "bypass the page cache",
				EnvVars: []string{"BIOTEST_DIRECT"},
			},
			&cli.BoolFlag{
				Name:    "buffered",
				Aliases: []string{"b"},
				Usage:   "use buffered stream I/O (can't be combined with --direct)",
				EnvVars: []string{"BIOTEST_BUFFERED"},
			},
			&cli.BoolFlag{
				Name:    "verify",
				Aliases: []string{"v"},
				Usage:   "skip the write pass and only verify existing data",
				EnvVars: []string{"BIOTEST_VERIFY"},
			},
			&cli.BoolFlag{
				Name:    "retry",
				Aliases: []string{"y"},
				Usage:   "retry failed transfers instead of giving up",
				EnvVars: []string{"BIOTEST_RETRY"},
			},
			&cli.Int64Flag{
				Name:    "seed",
				Usage:   "seed for --random; required to verify a randomized data set",
				EnvVars: []string{"BIOTEST_SEED"},
			},
			&cli.UintFlag{
				Name:    "window",
				Usage:   "maximum number of asynchronous writes in flight",
				Value:   biotest.DefaultWindow,
				EnvVars: []string{"BIOTEST_WINDOW"},
			},
			&cli.DurationFlag{
				Name:    "retry-delay",
				Usage:   "backoff before retrying a failed transfer",
				Value:   biotest.DefaultRetryDelay,
				EnvVars: []string{"BIOTEST_RETRY_DELAY"},
			},
			&cli.StringFlag{
				Name:      "fault-plan",
				Usage:     "CSV file of transfer errors to inject",
				Hidden:    true,
				TakesFile: true,
				EnvVars:   []string{"BIOTEST_FAULT_PLAN"},
			},
		},
		Action: runTest,
	}
}

func parametersFromContext(context *cli.Context) (biotest.RunParameters, error) {
	params := biotest.RunParameters{
		Target:     context.String("target"),
		Megabytes:  context.Uint64("megs"),
		BlockSize:  biotest.NormalizeBlockSize(context.Uint("block-size")),
		Seed:       context.Int64("seed"),
		Window:     context.Uint("window"),
		RetryDelay: context.Duration("retry-delay"),
	}

	modeFlags := []struct {
		flag string
		mode biotest.Mode
	}{
		{"random", biotest.ModeRandomize},
		{"aio", biotest.ModeAsync},
		{"direct", biotest.ModeDirect},
		{"buffered", biotest.ModeBuffered},
		{"verify", biotest.ModeVerifyOnly},
		{"retry", biotest.ModeRetryOnError},
	}
	for _, entry := range modeFlags {
		if context.Bool(entry.flag) {
			params.Mode |= entry.mode
		}
	}

	if params.Mode.Has(biotest.ModeRandomize) && !context.IsSet("seed") {
		if params.Mode.Has(biotest.ModeVerifyOnly) {
			return params, biotest.ErrInvalidParameters.WithMessage(
				"verifying a randomized data set requires the --seed it was written with")
		}
		params.Seed = time.Now().UnixNano()
	}
	return params, nil
}

func printBanner(w io.Writer, params biotest.RunParameters) {
	fmt.Fprintf(w, "block size    =%d\n", params.BlockSize)
	fmt.Fprintf(w, "data set (mb) =%d\n", params.Megabytes)
	fmt.Fprintf(w, "blocks        =%d\n", params.TotalBlocks())
	if params.Mode.Has(biotest.ModeRandomize) {
		fmt.Fprintf(w, "seed          =%d\n", params.Seed)
	}
}

func runTest(context *cli.Context) (err error) {
	params, err := parametersFromContext(context)
	if err != nil {
		return err
	}

	printBanner(context.App.Writer, params)
	logParameters(params)
	if err := params.Validate(); err != nil {
		return err
	}
	if params.TotalBlocks() == 0 {
		// Opening would truncate the target.
		logNothingToDo(params)
		fmt.Fprintln(context.App.Writer, "biotest passed")
		return nil
	}

	target, err := openTarget(params, context.String("fault-plan"))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := target.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr).ErrorOrNil()
		}
	}()

	report, err := engine.Run(
		target,
		params,
		engine.Options{
			Progress:    context.App.ErrWriter,
			Diagnostics: context.App.ErrWriter,
		},
	)
	logReport(report)
	if err != nil {
		return err
	}

	fmt.Fprintln(context.App.Writer, "biotest passed")
	return nil
}

func logParameters(params biotest.RunParameters) {
	logex.Struct(params)
}

func logNothingToDo(params biotest.RunParameters) {
	logex.Info(fmt.Sprintf(
		"data set of %d MiB holds no whole %d-byte blocks, target left untouched",
		params.Megabytes,
		params.BlockSize))
}

func logReport(report engine.Report) {
	logex.Info(report)
}

func logFailure(err error) {
	logex.Error(err)
}

type closableTarget interface {
	biotest.AsyncTarget
	Close() error
}

// faultyHandle is a file handle behind a fault injector. Closing it closes
// both.
type faultyHandle struct {
	*faults.Target
	handle *filehandle.Handle
}

func (f *faultyHandle) Close() error {
	var result error
	if err := f.Target.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := f.handle.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}

func openTarget(params biotest.RunParameters, faultPlanPath string) (closableTarget, error) {
	options := filehandle.OptionsFor(params)
	if faultPlanPath == "" {
		return filehandle.Open(params.Target, options)
	}

	plan, err := faults.LoadPlanFile(faultPlanPath)
	if err != nil {
		return nil, err
	}

	// The queue has to sit in front of the injector, not behind it.
	wantQueue := options.AsyncCapable
	options.AsyncCapable = false

	handle, err := filehandle.Open(params.Target, options)
	if err != nil {
		return nil, err
	}

	target := faults.Wrap(handle, plan, params.BlockSize)
	if wantQueue {
		if err := target.EnableQueue(int(params.Window)); err != nil {
			handle.Close()
			return nil, err
		}
	}
	logex.Info("fault plan loaded, armed faults: ", plan.Armed())
	return &faultyHandle{Target: target, handle: handle}, nil
}

// exitCode gives the process exit status for `err`. Errors without an errno,
// such as command line usage errors, exit with EINVAL.
func exitCode(err error) errors.Errno {
	if !errors.HasErrno(err) {
		return errors.EINVAL
	}
	return errors.ErrnoOf(err)
}
