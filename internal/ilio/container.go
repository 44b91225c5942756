// Package ilio is the external collaborator spec.md treats as opaque
// plumbing: something that reads an assembly into MethodBody values and
// writes one back out. It is deliberately not an ECMA-335 metadata reader —
// no library in the retrieved corpus understands that format, and building
// one is explicitly out of this repository's scope. What's here is a small,
// self-describing container good enough to drive cmd/ilopt end to end:
// read, optimize, write, with the same atomic-write and initLocals-only-
// mutation guarantees spec.md §6/§8 ask of the real thing.
//
// The wire format is gob, but instruction operands are re-encoded through a
// flat, index-based form first (wireInstruction/wireBody below) rather than
// handed to gob as-is: an Instruction's Operand can be a *Instruction (a
// branch target) or []*Instruction (switch targets) pointing at siblings in
// the same method body, and Prev/Next link every instruction into the next
// one besides. gob follows pointers wherever it finds them with no notion
// of "already visited", so encoding that graph directly would re-encode
// every reachable instruction once per incoming pointer and decode it back
// as disconnected copies — breaking the pointer-identity invariants
// internal/ilcfg and internal/ildefassign depend on (map lookups keyed by
// *Instruction, branch targets resolved by resolving Operand to the actual
// node in MethodBody.Instructions). Branch/switch operands are written as
// instruction indices instead, and Prev/Next is dropped entirely and
// rebuilt by MethodBody.Link() on read. Local operands are resolved on read
// back to the body's own declared Locals, by index.
package ilio

import (
	"bytes"
	"encoding/gob"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/Hengle/ilopt/internal/ilmodel"
)

// Method is one method's declaration plus its body. Body is nil for
// abstract/extern methods, which the driver must Skip rather than analyze.
type Method struct {
	Name string
	Body *ilmodel.MethodBody
}

// Property is a property's accessor methods, walked for their bodies the
// same as any other method.
type Property struct {
	Name    string
	Methods []*Method
}

// Event is an event's accessor methods.
type Event struct {
	Name    string
	Methods []*Method
}

// TypeDef is one type's methods, properties, events, and nested types.
type TypeDef struct {
	Name        string
	NestedTypes []*TypeDef
	Methods     []*Method
	Properties  []*Property
	Events      []*Event
}

// ModuleDef is one module's top-level types.
type ModuleDef struct {
	Name  string
	Types []*TypeDef
}

// Assembly is the container's root: a named set of modules. This is the
// unit cmd/ilopt reads, optimizes in place, and writes back out.
type Assembly struct {
	Name    string
	Modules []*ModuleDef
}

// Methods walks modules -> types -> (nested types, events, properties,
// methods), in that order, returning every Method reachable from a. This is
// component F's "external iteration" from spec.md §4.F.
func Methods(a *Assembly) []*Method {
	var out []*Method
	for _, m := range a.Modules {
		for _, t := range m.Types {
			out = append(out, methodsOfType(t)...)
		}
	}
	return out
}

func methodsOfType(t *TypeDef) []*Method {
	var out []*Method
	for _, nested := range t.NestedTypes {
		out = append(out, methodsOfType(nested)...)
	}
	for _, e := range t.Events {
		out = append(out, e.Methods...)
	}
	for _, p := range t.Properties {
		out = append(out, p.Methods...)
	}
	out = append(out, t.Methods...)
	return out
}

// Counts reports the processed-counts breakdown spec.md §6's progress output
// prints per assembly: module, type, event, property, and method totals.
func Counts(a *Assembly) (modules, types, events, properties, methods int) {
	modules = len(a.Modules)
	for _, m := range a.Modules {
		for _, t := range m.Types {
			tt, e, p, mm := countsOfType(t)
			types += tt
			events += e
			properties += p
			methods += mm
		}
	}
	return
}

func countsOfType(t *TypeDef) (types, events, properties, methods int) {
	types = 1
	events = len(t.Events)
	properties = len(t.Properties)
	methods = len(t.Methods)
	for _, e := range t.Events {
		methods += len(e.Methods)
	}
	for _, p := range t.Properties {
		methods += len(p.Methods)
	}
	for _, nested := range t.NestedTypes {
		tt, e, p, mm := countsOfType(nested)
		types += tt
		events += e
		properties += p
		methods += mm
	}
	return
}

// Read decodes an Assembly from r.
func Read(r io.Reader) (*Assembly, error) {
	var w wireAssembly
	if err := gob.NewDecoder(r).Decode(&w); err != nil {
		return nil, errors.Wrap(ilmodel.ErrAssemblyIO, err.Error())
	}
	return fromWireAssembly(&w), nil
}

// ReadFile reads an Assembly from path.
func ReadFile(path string) (*Assembly, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ilmodel.ErrAssemblyIO, "open %s: %v", path, err)
	}
	defer f.Close()
	return Read(f)
}

// WriteFile atomically writes a to path: it encodes to a temp file in the
// same directory first, and only renames over path once the encode fully
// succeeds, so a failed write never leaves a truncated or partial output
// file behind, per spec.md §6 "Assembly write is atomic."
func WriteFile(path string, a *Assembly) error {
	w, err := toWireAssembly(a)
	if err != nil {
		return errors.Wrap(ilmodel.ErrAssemblyIO, err.Error())
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return errors.Wrap(ilmodel.ErrAssemblyIO, err.Error())
	}

	tmp, err := os.CreateTemp(dirOf(path), ".ilopt-*")
	if err != nil {
		return errors.Wrap(ilmodel.ErrAssemblyIO, err.Error())
	}
	tmpName := tmp.Name()

	if _, err := buf.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(ilmodel.ErrAssemblyIO, err.Error())
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(ilmodel.ErrAssemblyIO, err.Error())
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(ilmodel.ErrAssemblyIO, err.Error())
	}
	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
