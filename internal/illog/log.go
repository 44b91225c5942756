// Package illog is a thin key/value wrapper over log/slog, the standard
// library's structured logger that the teacher's own log package
// (github.com/ethereum/go-ethereum/log) is itself built on. Info/Warn/Error
// mirror the call shape of the teacher's MirDebugWarn/Info/Error
// (core/opcodeCompiler/compiler/debug_flags.go): a message plus a flat list
// of key/value pairs. Warn and Error additionally print a colorized line to
// stdout, per spec.md §6's "Progress output: ... Warnings are yellow;
// errors red; ordinary text default."
package illog

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// Info logs a structured diagnostic line. It never touches stdout — the
// CLI's ordinary progress lines are written directly by cmd/ilopt.
func Info(msg string, kv ...any) {
	logger.Info(msg, kv...)
}

// Warn logs a structured diagnostic line and prints msg to stdout in
// yellow.
func Warn(msg string, kv ...any) {
	logger.Warn(msg, kv...)
	fmt.Fprintln(os.Stdout, color.YellowString(msg))
}

// Error logs a structured diagnostic line and prints msg to stdout in red.
func Error(msg string, kv ...any) {
	logger.Error(msg, kv...)
	fmt.Fprintln(os.Stdout, color.RedString(msg))
}
