// Package iloptimize is component F: it walks every method reachable from an
// assembly, runs the requested optimizations against each one, and
// aggregates the result. Grounded on the teacher's per-optimization counter
// pattern (core/opcodeCompiler/compiler/*.go's Updated/Skipped/Failed tally
// per pass), adapted from "per opcode rewrite pass over a contract" to "per
// definite-assignment pass over a method body".
package iloptimize

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Hengle/ilopt/internal/ilcache"
	"github.com/Hengle/ilopt/internal/ilcfg"
	"github.com/Hengle/ilopt/internal/ildefassign"
	"github.com/Hengle/ilopt/internal/ilio"
	"github.com/Hengle/ilopt/internal/ilmodel"
)

// Optimization names a single analyzer pass plus the mode it runs under.
// spec.md §6 currently defines exactly one: striplocalsinit.
type Optimization struct {
	Name string
	Mode ildefassign.Mode
}

// StripLocalsInit is the one optimization spec.md §6 names.
const StripLocalsInit = "striplocalsinit"

// Result is the per-optimization tally the CLI prints a line for.
type Result struct {
	Updated int
	Skipped int
	Failed  int
}

func (r *Result) record(v ildefassign.Verdict) {
	switch v {
	case ildefassign.Updated:
		r.Updated++
	case ildefassign.Skipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// ProcessAssembly runs every optimization against every method reachable
// from a, sequentially and in iteration order, per spec.md §5's
// single-threaded cooperative scheduling model. A panic raised by any one
// method's analysis is recovered at this boundary and counted as Failed for
// that method, per spec.md §4.F/§7's propagation policy — it never aborts
// the run. Returns one Result per optimization name, keyed the same way the
// caller supplied them.
//
// cache may be nil (no caching); when non-nil, a method body's CFG and
// per-mode verdict are looked up by content hash before doing the work and
// stored back afterward, so re-running against an unchanged body is a cache
// hit rather than a rebuild.
func ProcessAssembly(a *ilio.Assembly, opts []Optimization, filter func(name string) bool, cache *ilcache.Cache) map[string]*Result {
	results := make(map[string]*Result, len(opts))
	for _, opt := range opts {
		results[opt.Name] = &Result{}
	}

	for _, m := range ilio.Methods(a) {
		if filter != nil && !filter(m.Name) {
			continue
		}
		for _, opt := range opts {
			v := applyOneCached(m.Body, opt.Mode, cache)
			results[opt.Name].record(v)
		}
	}
	return results
}

// ProcessAssemblyParallel is the documented, opt-in parallel path spec.md §5
// allows ("a parallel driver that invokes the analyzer on independent
// methods is correct by construction because no per-method structure
// escapes"). cmd/ilopt does not call this by default; it exists for callers
// that want per-method concurrency without re-deriving the correctness
// argument themselves.
func ProcessAssemblyParallel(a *ilio.Assembly, opts []Optimization, filter func(name string) bool, cache *ilcache.Cache) (map[string]*Result, error) {
	results := make(map[string]*Result, len(opts))
	for _, opt := range opts {
		results[opt.Name] = &Result{}
	}

	var mu sync.Mutex
	var g errgroup.Group
	for _, m := range ilio.Methods(a) {
		if filter != nil && !filter(m.Name) {
			continue
		}
		m := m
		g.Go(func() error {
			for _, opt := range opts {
				v := applyOneCached(m.Body, opt.Mode, cache)
				mu.Lock()
				results[opt.Name].record(v)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// applyOneCached consults cache (if non-nil) before and after analyzing,
// keyed by the method body's content hash and the requested mode. A body
// whose InitLocals is already clear bypasses the cache and is Skipped. A
// verdict hit skips analysis and applies the cached verdict (an Updated hit
// clears InitLocals, as Analyze would); a verdict miss still consults (and
// populates) the CFG cache, so a method re-analyzed under a second mode
// reuses the CFG built for the first.
func applyOneCached(body *ilmodel.MethodBody, mode ildefassign.Mode, cache *ilcache.Cache) ildefassign.Verdict {
	if cache == nil || body == nil || len(body.Instructions) == 0 || !body.InitLocals {
		return applyOne(body, mode)
	}

	hash := ilcache.HashBody(body)
	if v, ok := cache.GetVerdict(hash, mode); ok {
		if v == ildefassign.Updated {
			body.InitLocals = false
		}
		return v
	}

	v := analyzeBody(body, mode, func() (*ilcfg.CFG, error) {
		if cfg, ok := cache.GetCFG(hash); ok {
			return cfg, nil
		}
		cfg, err := ilcfg.Build(body)
		if err == nil {
			cache.AddCFG(hash, cfg)
		}
		return cfg, err
	})
	cache.AddVerdict(hash, mode, v)
	return v
}

// applyOne runs one method through CFG construction and the
// definite-assignment analyzer with no caching, translating any error or
// panic into a Failed verdict rather than letting it escape to the caller.
func applyOne(body *ilmodel.MethodBody, mode ildefassign.Mode) ildefassign.Verdict {
	return analyzeBody(body, mode, func() (*ilcfg.CFG, error) {
		return ilcfg.Build(body)
	})
}

// analyzeBody is the shared skip/recover/build/analyze sequence both
// applyOne and applyOneCached drive, parameterized only by how the CFG is
// obtained.
func analyzeBody(body *ilmodel.MethodBody, mode ildefassign.Mode, buildCFG func() (*ilcfg.CFG, error)) (verdict ildefassign.Verdict) {
	defer func() {
		if recover() != nil {
			verdict = ildefassign.Failed
		}
	}()

	if body == nil || len(body.Instructions) == 0 {
		return ildefassign.Skipped
	}

	cfg, err := buildCFG()
	if err != nil {
		return ildefassign.Failed
	}

	v, err := ildefassign.Analyze(body, cfg, mode)
	if err != nil {
		return ildefassign.Failed
	}
	return v
}
