// Package ilcli tokenizes argv into the free-form grammar spec.md §6 names:
//
//	ilopt [help|h|?] [filter=<regex>|f=<regex>] <optimization>[=<param>] ... <assembly> ...
//
// It is deliberately not a flag.FlagSet or a urfave/cli flag set: cmd/ilopt
// layers a urfave/cli/v2 *cli.App on top for help text and exit-code
// plumbing, but the grammar itself — where "striplocalsinit=all" is a
// recognized optimization and "foo.dll" falls through to an assembly path —
// needs its own tokenizer, the same way the teacher's cmd/mircfgdraw keeps a
// small custom argument surface under its main rather than reaching for a
// general flag library for a handful of positional+keyed tokens.
package ilcli

import (
	"strings"

	"github.com/Hengle/ilopt/internal/ilmodel"
)

// Optimization is one parsed `<name>[=<param>]` token.
type Optimization struct {
	Name  string
	Param string
}

// Parsed is the fully tokenized command line.
type Parsed struct {
	Help          bool
	FilterPattern string // "" means no filter was supplied
	Optimizations []Optimization
	Assemblies    []string
}

// KnownOptimizations is the set of recognized optimization names. Per
// spec.md §6, "striplocalsinit" is the only one currently defined; a token
// whose name isn't in this set is not an optimization, and falls through to
// being treated as an assembly path.
var KnownOptimizations = map[string]bool{
	"striplocalsinit": true,
}

var helpNames = map[string]bool{"help": true, "h": true, "?": true}
var filterNames = map[string]bool{"filter": true, "f": true}

// Parse tokenizes argv per spec.md §6's grammar. Option tokens (help,
// filter) may appear with or without a leading "-"/"/" — the grammar's own
// "[help|h|?]" bracket omits the prefix, so both spellings are accepted.
// Any token whose name is a known optimization is an Optimization; anything
// else non-option is an assembly path, per "unrecognized non-option tokens
// are treated as assembly paths."
func Parse(argv []string) (*Parsed, error) {
	p := &Parsed{}

	for _, tok := range argv {
		if tok == "" {
			continue
		}

		stripped, hadPrefix := stripOptionPrefix(tok)
		name, value, hasValue := splitNameValue(stripped)
		lower := strings.ToLower(name)

		switch {
		case helpNames[lower]:
			p.Help = true

		case filterNames[lower]:
			if !hasValue {
				return nil, ilmodel.Argument(tok, "filter requires a =<regex> value")
			}
			p.FilterPattern = value

		case KnownOptimizations[lower]:
			p.Optimizations = append(p.Optimizations, Optimization{Name: lower, Param: value})

		case hadPrefix:
			return nil, ilmodel.Argument(tok, "unrecognized option")

		default:
			p.Assemblies = append(p.Assemblies, tok)
		}
	}

	return p, nil
}

// stripOptionPrefix removes a single leading "-" or "/" if present.
func stripOptionPrefix(tok string) (rest string, hadPrefix bool) {
	if len(tok) > 0 && (tok[0] == '-' || tok[0] == '/') {
		return tok[1:], true
	}
	return tok, false
}

// splitNameValue splits "name=value" or "name:value" into its parts.
// Absent either separator, value is "" and hasValue is false.
func splitNameValue(tok string) (name, value string, hasValue bool) {
	if i := strings.IndexAny(tok, "=:"); i >= 0 {
		return tok[:i], tok[i+1:], true
	}
	return tok, "", false
}
