package ilio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Hengle/ilopt/internal/ilmodel"
)

func sampleAssembly() *Assembly {
	body := &ilmodel.MethodBody{
		InitLocals: true,
		Instructions: []*ilmodel.Instruction{
			{Opcode: ilmodel.LdcI40},
			{Opcode: ilmodel.Stloc0},
			{Opcode: ilmodel.Ldloc0},
			{Opcode: ilmodel.Ret},
		},
	}
	body.Link()

	return &Assembly{
		Name: "Sample.dll",
		Modules: []*ModuleDef{
			{
				Name: "Sample.dll",
				Types: []*TypeDef{
					{
						Name:    "Sample.Widget",
						Methods: []*Method{{Name: "DoThing", Body: body}},
						Properties: []*Property{
							{Name: "Count", Methods: []*Method{{Name: "get_Count", Body: body}}},
						},
						Events: []*Event{
							{Name: "Changed", Methods: []*Method{{Name: "add_Changed", Body: body}}},
						},
						NestedTypes: []*TypeDef{
							{Name: "Sample.Widget+Inner", Methods: []*Method{{Name: "Helper", Body: body}}},
						},
					},
				},
			},
		},
	}
}

func TestWriteFileThenReadFileRoundTrips(t *testing.T) {
	a := sampleAssembly()
	path := filepath.Join(t.TempDir(), "sample.ilopt")

	if err := WriteFile(path, a); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Name != a.Name {
		t.Fatalf("got name %q, want %q", got.Name, a.Name)
	}
	if len(got.Modules) != 1 || len(got.Modules[0].Types) != 1 {
		t.Fatalf("unexpected shape after round trip: %+v", got)
	}
}

func TestMethodsWalksEveryShape(t *testing.T) {
	a := sampleAssembly()
	methods := Methods(a)

	var names []string
	for _, m := range methods {
		names = append(names, m.Name)
	}

	want := map[string]bool{"Helper": true, "add_Changed": true, "get_Count": true, "DoThing": true}
	if len(names) != len(want) {
		t.Fatalf("got %d methods (%v), want %d", len(names), names, len(want))
	}
	for _, n := range names {
		if !want[n] {
			t.Fatalf("unexpected method %q in walk result", n)
		}
	}
}

func TestWriteFileLeavesNoPartialOutputOnEncodeFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.ilopt")

	// toWireInstruction only recognizes the operand shapes ilmodel.Instruction
	// documents (*Local, *Parameter, *Field, *MemberRef, *TypeRef, int64,
	// branch/switch targets). Anything else is rejected before gob ever sees
	// it; use an unrecognized operand type to force that failure and confirm
	// no temp or destination file survives.
	type unrecognized struct{ X int }
	body := &ilmodel.MethodBody{
		InitLocals:   true,
		Instructions: []*ilmodel.Instruction{{Opcode: ilmodel.Ldtoken, Operand: unrecognized{X: 1}}},
	}
	a := &Assembly{Name: "Bad", Modules: []*ModuleDef{{Name: "Bad", Types: []*TypeDef{
		{Name: "T", Methods: []*Method{{Name: "M", Body: body}}},
	}}}}

	if err := WriteFile(path, a); err == nil {
		t.Fatalf("expected encode failure, got nil error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no destination file, stat returned: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no leftover temp files, found: %v", entries)
	}
}
