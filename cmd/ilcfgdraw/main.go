// Command ilcfgdraw is a debug tool: given an assembly container and a
// method name, it builds that method's CFG and renders it as Graphviz
// DOT (optionally shelling out to `dot` for SVG). Directly adapted from the
// teacher's cmd/mircfgdraw/main.go, which does the same thing for an EVM
// contract's MIR CFG given raw bytecode hex — here the input is already a
// parsed MethodBody inside an ilio container rather than a hex string,
// since this repository never decodes raw opcode bytes itself.
package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Hengle/ilopt/internal/ilcfg"
	"github.com/Hengle/ilopt/internal/ilio"
)

func main() {
	var (
		assemblyArg string
		methodArg   string
		outArg      string
		format      string
		title       string
	)

	flag.StringVar(&assemblyArg, "assembly", "", "path to an ilopt container file")
	flag.StringVar(&methodArg, "method", "", "method name to render (first match, by name)")
	flag.StringVar(&outArg, "out", "", "output file path (.dot or .svg). If empty, write DOT to stdout")
	flag.StringVar(&format, "format", "", "output format: dot or svg (inferred from --out when omitted)")
	flag.StringVar(&title, "title", "", "graph title (optional)")
	flag.Parse()

	if assemblyArg == "" || methodArg == "" {
		usage()
		fatal(errors.New("both --assembly and --method are required"))
	}

	a, err := ilio.ReadFile(assemblyArg)
	if err != nil {
		fatal(fmt.Errorf("read assembly: %w", err))
	}

	m := findMethod(a, methodArg)
	if m == nil {
		fatal(fmt.Errorf("method %q not found in %s", methodArg, assemblyArg))
	}
	if m.Body == nil {
		fatal(fmt.Errorf("method %q has no body (abstract or extern)", methodArg))
	}

	cfg, err := ilcfg.Build(m.Body)
	if err != nil {
		fatal(fmt.Errorf("build CFG: %w", err))
	}

	dot := buildDOT(cfg, title)

	if format == "" && outArg != "" {
		switch strings.ToLower(filepath.Ext(outArg)) {
		case ".svg":
			format = "svg"
		default:
			format = "dot"
		}
	}
	if format == "" {
		format = "dot"
	}

	switch format {
	case "dot":
		writeOutput(outArg, dot)
	case "svg":
		svg := renderSVG(dot)
		writeOutput(outArg, svg)
	default:
		fatal(fmt.Errorf("unknown format %q (use dot or svg)", format))
	}
}

func findMethod(a *ilio.Assembly, name string) *ilio.Method {
	for _, m := range ilio.Methods(a) {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func writeOutput(outArg string, data []byte) {
	if outArg == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(outArg, data, 0o644); err != nil {
		fatal(err)
	}
}

func renderSVG(dot []byte) []byte {
	if _, err := exec.LookPath("dot"); err != nil {
		fatal(errors.New("dot not found in PATH; install graphviz or choose --format=dot"))
	}
	var svgOut bytes.Buffer
	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = bytes.NewReader(dot)
	cmd.Stdout = &svgOut
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fatal(fmt.Errorf("dot render: %w", err))
	}
	return svgOut.Bytes()
}

func usage() {
	fmt.Fprintf(os.Stderr, "ilcfgdraw - render a method body's CFG as DOT/SVG\n")
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  ilcfgdraw --assembly sample.ilopt --method MyMethod [--out graph.dot|graph.svg] [--format dot|svg] [--title title]\n")
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "ilcfgdraw: %v\n", err)
	os.Exit(1)
}

func buildDOT(cfg *ilcfg.CFG, title string) []byte {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	fmt.Fprintln(w, "digraph CFG {")
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box, fontname=\"monospace\"];")
	if title != "" {
		fmt.Fprintf(w, "  labelloc=\"t\";\n  label=\"%s\";\n", escapeDOT(title))
	}

	for _, b := range cfg.Blocks {
		label := blockLabel(b)
		fmt.Fprintf(w, "  n%d [label=\"%s\"];\n", b.ID(), escapeDOT(label))
	}
	for _, b := range cfg.Blocks {
		for _, c := range b.Children() {
			fmt.Fprintf(w, "  n%d -> n%d;\n", b.ID(), c.ID())
		}
	}
	fmt.Fprintln(w, "}")
	w.Flush()
	return buf.Bytes()
}

func blockLabel(b *ilcfg.BasicBlock) string {
	ins := b.Instructions()
	var sb strings.Builder
	fmt.Fprintf(&sb, "BB%d (%d insns)", b.ID(), len(ins))
	for _, in := range ins {
		fmt.Fprintf(&sb, "\n%s", in.Opcode)
	}
	return sb.String()
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
