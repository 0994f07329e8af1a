// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	pkgerrors "github.com/pkg/errors"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/urfave/cli/v2"

	"slotlife/internal/config"
	"slotlife/internal/errors"
	"slotlife/internal/ir"
	"slotlife/internal/normalize"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "pipeline configuration file (default: nearest slotlife.toml)",
	}
	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "number of bodies normalized in parallel (overrides pipeline.workers)",
	}
	verbosityFlag = &cli.IntFlag{
		Name:    "verbosity",
		Aliases: []string{"v"},
		Usage:   "log verbosity: 0 quiet, 1 info, 2 debug (overrides log.verbosity)",
		Value:   -1,
	}
	noCoalesceFlag = &cli.BoolFlag{
		Name:  "no-coalesce",
		Usage: "stop after splitting and promotion",
	}
	noVerifyFlag = &cli.BoolFlag{
		Name:  "no-verify",
		Usage: "skip checking the coloring against the interference relation",
	}
	dotFlag = &cli.BoolFlag{
		Name:  "dot",
		Usage: "print control flow graphs in DOT format instead of bodies",
	}
	outFlag = &cli.StringFlag{
		Name:    "out",
		Aliases: []string{"o"},
		Usage:   "write output to a file instead of stdout",
	}
	noColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "disable colored diagnostics",
	}
)

func main() {
	app := &cli.App{
		Name:  "slotlife",
		Usage: "normalize variable lifetimes of slot-based method bodies",
		Flags: []cli.Flag{noColorFlag},
		Before: func(ctx *cli.Context) error {
			if ctx.Bool(noColorFlag.Name) {
				color.NoColor = true
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Split, promote and coalesce the variables of every body",
				ArgsUsage: "<file> [<file>...]",
				Action:    runBodies,
				Flags: []cli.Flag{
					configFlag, workersFlag, verbosityFlag,
					noCoalesceFlag, noVerifyFlag, dotFlag, outFlag,
				},
			},
			{
				Name:      "check",
				Usage:     "Parse bodies and print them in canonical form",
				ArgsUsage: "<file> [<file>...]",
				Action:    checkBodies,
				Flags:     []cli.Flag{dotFlag, outFlag},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("%v", err))
		os.Exit(1)
	}
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := ctx.String(configFlag.Name); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.FindAndLoad(".")
	}
	if err != nil {
		return nil, err
	}

	if ctx.IsSet(workersFlag.Name) {
		cfg.Pipeline.Workers = ctx.Int(workersFlag.Name)
	}
	if v := ctx.Int(verbosityFlag.Name); v >= 0 {
		cfg.Log.Verbosity = v
	}
	if ctx.Bool(noCoalesceFlag.Name) {
		cfg.Pipeline.Coalesce = false
	}
	if ctx.Bool(noVerifyFlag.Name) {
		cfg.Pipeline.VerifyColoring = false
	}
	return cfg, cfg.Validate()
}

func runBodies(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return pkgerrors.New("at least one body file is required")
	}
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	commonlog.Configure(cfg.Log.Verbosity, nil)

	startTime := time.Now()
	pipeline := normalize.NewPipeline(cfg)

	var out []byte
	failed := false
	for _, path := range ctx.Args().Slice() {
		program, ok := loadProgram(path)
		if !ok {
			failed = true
			continue
		}

		results, err := pipeline.RunAll(context.Background(), program.Methods)
		reporter := errors.NewErrorReporter(path, program.Source)
		for _, result := range results {
			if result == nil {
				continue
			}
			for _, w := range result.Warnings {
				fmt.Fprint(os.Stderr, reporter.FormatError(w))
			}
		}
		if err != nil {
			reportError(reporter, err)
			failed = true
			continue
		}

		out = append(out, render(ctx, program)...)
	}

	return finish(ctx, out, failed, startTime)
}

func checkBodies(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return pkgerrors.New("at least one body file is required")
	}

	startTime := time.Now()
	var out []byte
	failed := false
	for _, path := range ctx.Args().Slice() {
		program, ok := loadProgram(path)
		if !ok {
			failed = true
			continue
		}
		out = append(out, render(ctx, program)...)
	}

	return finish(ctx, out, failed, startTime)
}

// loadProgram reads and builds one file, reporting failures
func loadProgram(path string) (*ir.Program, bool) {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("failed to read file: %v", err))
		return nil, false
	}

	program, err := ir.Load(filepath.Base(path), string(source))
	if err != nil {
		reportError(errors.NewErrorReporter(path, string(source)), err)
		return nil, false
	}
	return program, true
}

func reportError(reporter *errors.ErrorReporter, err error) {
	var ce errors.CompilerError
	if pkgerrors.As(err, &ce) {
		fmt.Fprint(os.Stderr, reporter.FormatError(ce))
		return
	}
	fmt.Fprintln(os.Stderr, color.RedString("%v", err))
}

func render(ctx *cli.Context, program *ir.Program) []byte {
	if !ctx.Bool(dotFlag.Name) {
		return []byte(ir.PrintProgram(program))
	}
	var out []byte
	for _, body := range program.Methods {
		out = append(out, ir.DOT(body)...)
	}
	return out
}

func finish(ctx *cli.Context, out []byte, failed bool, startTime time.Time) error {
	formattedDuration := formatDuration(time.Since(startTime))
	if failed {
		return pkgerrors.Errorf("normalization failed after %s", formattedDuration)
	}

	if path := ctx.String(outFlag.Name); path != "" {
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return pkgerrors.Wrapf(err, "cannot write %s", path)
		}
	} else {
		os.Stdout.Write(out)
	}
	fmt.Fprintln(os.Stderr, color.GreenString("Successfully processed %d file(s) in %s", ctx.NArg(), formattedDuration))
	return nil
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
