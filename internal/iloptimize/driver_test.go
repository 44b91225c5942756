package iloptimize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Hengle/ilopt/internal/ilcache"
	"github.com/Hengle/ilopt/internal/ildefassign"
	"github.com/Hengle/ilopt/internal/ilio"
	"github.com/Hengle/ilopt/internal/ilmodel"
)

func bodyAssignedInRoot() *ilmodel.MethodBody {
	b := &ilmodel.MethodBody{
		InitLocals: true,
		Locals:     []*ilmodel.Local{{Index: 0, Type: ilmodel.TypeRef{Kind: ilmodel.KindI4}}},
		Instructions: []*ilmodel.Instruction{
			{Opcode: ilmodel.LdcI40},
			{Opcode: ilmodel.Stloc0},
			{Opcode: ilmodel.Ldloc0},
			{Opcode: ilmodel.Ret},
		},
	}
	b.Link()
	return b
}

func bodyReadBeforeWrite() *ilmodel.MethodBody {
	b := &ilmodel.MethodBody{
		InitLocals:   true,
		Locals:       []*ilmodel.Local{{Index: 0, Type: ilmodel.TypeRef{Kind: ilmodel.KindI4}}},
		Instructions: []*ilmodel.Instruction{{Opcode: ilmodel.Ldloc0}, {Opcode: ilmodel.Ret}},
	}
	b.Link()
	return b
}

func bodyAbstract() *ilmodel.MethodBody { return nil }

func asmWith(methods ...*ilio.Method) *ilio.Assembly {
	return &ilio.Assembly{
		Name: "T.dll",
		Modules: []*ilio.ModuleDef{{
			Name: "T.dll",
			Types: []*ilio.TypeDef{{
				Name:    "T",
				Methods: methods,
			}},
		}},
	}
}

func TestProcessAssemblyAggregatesAcrossMethods(t *testing.T) {
	a := asmWith(
		&ilio.Method{Name: "Good", Body: bodyAssignedInRoot()},
		&ilio.Method{Name: "ReadBeforeWrite", Body: bodyReadBeforeWrite()},
		&ilio.Method{Name: "Abstract", Body: bodyAbstract()},
	)

	results := ProcessAssembly(a, []Optimization{{Name: StripLocalsInit, Mode: ildefassign.ModeNone}}, nil, nil)
	r := results[StripLocalsInit]
	require.NotNil(t, r)
	require.Equal(t, 1, r.Updated)
	require.Equal(t, 1, r.Skipped)
	require.Equal(t, 1, r.Failed)
}

func TestProcessAssemblyModeAllUpdatesEveryInitLocalsMethod(t *testing.T) {
	a := asmWith(
		&ilio.Method{Name: "Good", Body: bodyAssignedInRoot()},
		&ilio.Method{Name: "ReadBeforeWrite", Body: bodyReadBeforeWrite()},
	)

	results := ProcessAssembly(a, []Optimization{{Name: StripLocalsInit, Mode: ildefassign.ModeAll}}, nil, nil)
	r := results[StripLocalsInit]
	require.Equal(t, 2, r.Updated)
	require.Equal(t, 0, r.Failed)
}

func TestProcessAssemblyUnsupportedOpcodeFamilyCountsAsFailedNotPanic(t *testing.T) {
	// cpblk follows a ldloca, so the stack simulator walks into it and
	// reports a family it does not model.
	local := &ilmodel.Local{Index: 0, Type: ilmodel.TypeRef{Kind: ilmodel.KindI4}}
	body := &ilmodel.MethodBody{
		InitLocals: true,
		Locals:     []*ilmodel.Local{local},
		Instructions: []*ilmodel.Instruction{
			{Opcode: ilmodel.LdlocaS, Operand: local},
			{Opcode: ilmodel.Cpblk},
			{Opcode: ilmodel.Ret},
		},
	}
	body.Link()
	a := asmWith(&ilio.Method{Name: "Weird", Body: body})

	require.NotPanics(t, func() {
		results := ProcessAssembly(a, []Optimization{{Name: StripLocalsInit, Mode: ildefassign.ModeNone}}, nil, nil)
		require.Equal(t, 1, results[StripLocalsInit].Failed)
	})
}

func TestProcessAssemblyParallelMatchesSequentialTally(t *testing.T) {
	a := asmWith(
		&ilio.Method{Name: "Good", Body: bodyAssignedInRoot()},
		&ilio.Method{Name: "ReadBeforeWrite", Body: bodyReadBeforeWrite()},
		&ilio.Method{Name: "Abstract", Body: bodyAbstract()},
	)

	results, err := ProcessAssemblyParallel(a, []Optimization{{Name: StripLocalsInit, Mode: ildefassign.ModeNone}}, nil, nil)
	require.NoError(t, err)
	r := results[StripLocalsInit]
	require.Equal(t, 1, r.Updated)
	require.Equal(t, 1, r.Skipped)
	require.Equal(t, 1, r.Failed)
}

func TestProcessAssemblyEmptyAssemblyYieldsZeroCounts(t *testing.T) {
	a := asmWith()
	results := ProcessAssembly(a, []Optimization{{Name: StripLocalsInit, Mode: ildefassign.ModeNone}}, nil, nil)
	r := results[StripLocalsInit]
	require.Equal(t, &Result{}, r)
}

func TestProcessAssemblyFilterExcludesNonMatchingMethods(t *testing.T) {
	a := asmWith(
		&ilio.Method{Name: "Good", Body: bodyAssignedInRoot()},
		&ilio.Method{Name: "ReadBeforeWrite", Body: bodyReadBeforeWrite()},
	)

	onlyGood := func(name string) bool { return name == "Good" }
	results := ProcessAssembly(a, []Optimization{{Name: StripLocalsInit, Mode: ildefassign.ModeNone}}, onlyGood, nil)
	r := results[StripLocalsInit]
	require.Equal(t, 1, r.Updated)
	require.Equal(t, 0, r.Skipped)
	require.Equal(t, 0, r.Failed)
}

func TestProcessAssemblyWithCacheMatchesUncachedTally(t *testing.T) {
	a := asmWith(
		&ilio.Method{Name: "Good", Body: bodyAssignedInRoot()},
		&ilio.Method{Name: "ReadBeforeWrite", Body: bodyReadBeforeWrite()},
		&ilio.Method{Name: "Abstract", Body: bodyAbstract()},
	)
	opts := []Optimization{{Name: StripLocalsInit, Mode: ildefassign.ModeNone}}

	cache := ilcache.NewDefault()
	first := ProcessAssembly(a, opts, nil, cache)
	require.Equal(t, 1, first[StripLocalsInit].Updated)
	require.Equal(t, 1, first[StripLocalsInit].Skipped)
	require.Equal(t, 1, first[StripLocalsInit].Failed)
	require.Equal(t, 2, cache.Len()) // Good and ReadBeforeWrite both build a CFG; Abstract has no body to build one from.

	// Same assembly, same cache: Good's InitLocals was cleared by the first
	// pass, so it is now Skipped; ReadBeforeWrite's Failed verdict comes from
	// the cache. The tally is the one an uncached run reports.
	second := ProcessAssembly(a, opts, nil, cache)
	uncached := ProcessAssembly(a, opts, nil, nil)
	require.Equal(t, &Result{Updated: 0, Skipped: 2, Failed: 1}, second[StripLocalsInit])
	require.Equal(t, uncached[StripLocalsInit], second[StripLocalsInit])
}
