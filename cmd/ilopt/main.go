// Command ilopt is the CLI driver for the `striplocalsinit` optimization:
// read each assembly named on the command line, apply the requested
// definite-assignment pass, and write the result under ./optimized. Grounds
// its small, single-Action layering of urfave/cli/v2 over a custom argument
// grammar on the teacher's cmd/maliciousvote-submit/main.go (one app, one
// Action, flags kept minimal) while the actual token grammar is the custom
// one internal/ilcli implements — spec.md §6 names option tokens that
// urfave/cli's flag model doesn't map onto cleanly (optimization names
// doubling as tokens, bare "help"/"h"/"?").
package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/Hengle/ilopt/internal/ilcache"
	"github.com/Hengle/ilopt/internal/ildefassign"
	"github.com/Hengle/ilopt/internal/ilcli"
	"github.com/Hengle/ilopt/internal/ilio"
	"github.com/Hengle/ilopt/internal/illog"
	"github.com/Hengle/ilopt/internal/iloptimize"
)

// exitFailure is "the minimum signed 32-bit integer on error or help", per
// spec.md §6.
const exitFailure = math.MinInt32

var modesByParam = map[string]ildefassign.Mode{
	"":           ildefassign.ModeNone,
	"none":       ildefassign.ModeNone,
	"out":        ildefassign.ModeOut,
	"stackalloc": ildefassign.ModeStackalloc,
	"csharp":     ildefassign.ModeCSharp,
	"all":        ildefassign.ModeAll,
}

func main() {
	app := &cli.App{
		Name:            "ilopt",
		Usage:           "strip provably-redundant .locals init flags from CIL method bodies",
		UsageText:       "ilopt [help|h|?] [filter=<regex>|f=<regex>] <optimization>[=<param>] ... <assembly> ...",
		Action:          run,
		HideHelp:        true,
		HideHelpCommand: true,
	}

	if err := app.Run(os.Args); err != nil {
		illog.Error(err.Error())
		os.Exit(exitFailure)
	}
}

func run(c *cli.Context) error {
	parsed, err := ilcli.Parse(c.Args().Slice())
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	if parsed.Help || len(parsed.Assemblies) == 0 || len(parsed.Optimizations) == 0 {
		cli.ShowAppHelp(c)
		return cli.Exit("", exitFailure)
	}

	var filterRe *regexp.Regexp
	if parsed.FilterPattern != "" {
		filterRe, err = regexp.Compile(parsed.FilterPattern)
		if err != nil {
			return cli.Exit(fmt.Sprintf("bad filter pattern %q: %v", parsed.FilterPattern, err), exitFailure)
		}
	}

	opts := make([]iloptimize.Optimization, 0, len(parsed.Optimizations))
	for _, o := range parsed.Optimizations {
		mode, ok := modesByParam[strings.ToLower(o.Param)]
		if !ok {
			return cli.Exit(fmt.Sprintf("%s: unrecognized mode %q", o.Name, o.Param), exitFailure)
		}
		opts = append(opts, iloptimize.Optimization{Name: o.Name, Mode: mode})
	}

	var filter func(string) bool
	if filterRe != nil {
		filter = filterRe.MatchString
	}

	cache := ilcache.NewDefault()
	for _, path := range parsed.Assemblies {
		if err := processOne(path, opts, filter, cache); err != nil {
			return cli.Exit(err.Error(), exitFailure)
		}
	}
	return nil
}

func processOne(inPath string, opts []iloptimize.Optimization, filter func(string) bool, cache *ilcache.Cache) error {
	outPath := filepath.Join("optimized", filepath.Base(inPath))

	if samePath(inPath, outPath) {
		illog.Warn(fmt.Sprintf("%s: output path would overwrite input, skipping", inPath))
		return nil
	}

	if _, err := os.Stat(outPath); err == nil {
		if !confirmOverwrite(outPath) {
			illog.Warn(fmt.Sprintf("%s: skipped (output exists)", inPath))
			return nil
		}
	}

	a, err := ilio.ReadFile(inPath)
	if err != nil {
		return err
	}

	modules, types, events, properties, methods := ilio.Counts(a)
	fmt.Printf("%s: %d modules, %d types, %d events, %d properties, %d methods\n",
		inPath, modules, types, events, properties, methods)

	results := iloptimize.ProcessAssembly(a, opts, filter, cache)
	printResults(results, opts)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	return ilio.WriteFile(outPath, a)
}

func printResults(results map[string]*iloptimize.Result, opts []iloptimize.Optimization) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Optimization", "Updated", "Skipped", "Failed"})
	for _, opt := range opts {
		r := results[opt.Name]
		table.Append([]string{opt.Name, itoa(r.Updated), itoa(r.Skipped), itoa(r.Failed)})
	}
	table.Render()
}

func itoa(n int) string { return fmt.Sprintf("%d", n) }

func samePath(a, b string) bool {
	ca, err1 := filepath.Abs(a)
	cb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return ca == cb
}

func confirmOverwrite(path string) bool {
	fmt.Printf("%s already exists, overwrite? [Y/n] ", path)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "" || line == "y" || line == "yes"
}
