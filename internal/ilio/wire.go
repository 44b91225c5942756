package ilio

import (
	"fmt"

	"github.com/Hengle/ilopt/internal/ilmodel"
)

type operandKind byte

const (
	operandNone operandKind = iota
	operandLocal
	operandParameter
	operandField
	operandMemberRef
	operandTypeRef
	operandInt64
	operandBranchTarget
	operandSwitchTargets
)

// wireInstruction mirrors ilmodel.Instruction but replaces any Operand that
// points at a sibling instruction (branch/switch targets) with indices into
// the enclosing wireBody.Instructions slice, and drops Prev/Next entirely —
// see the package doc comment for why.
type wireInstruction struct {
	Opcode        ilmodel.Opcode
	Kind          operandKind
	Local         *ilmodel.Local
	Parameter     *ilmodel.Parameter
	Field         *ilmodel.Field
	MemberRef     *ilmodel.MemberRef
	TypeRef       *ilmodel.TypeRef
	Int64         int64
	BranchTarget  int
	SwitchTargets []int
}

type wireBody struct {
	InitLocals   bool
	Locals       []*ilmodel.Local
	This         *ilmodel.Parameter
	Parameters   []*ilmodel.Parameter
	Instructions []wireInstruction
}

type wireMethod struct {
	Name string
	Body *wireBody
}

type wireProperty struct {
	Name    string
	Methods []*wireMethod
}

type wireEvent struct {
	Name    string
	Methods []*wireMethod
}

type wireType struct {
	Name        string
	NestedTypes []*wireType
	Methods     []*wireMethod
	Properties  []*wireProperty
	Events      []*wireEvent
}

type wireModule struct {
	Name  string
	Types []*wireType
}

type wireAssembly struct {
	Name    string
	Modules []*wireModule
}

func toWireAssembly(a *Assembly) (*wireAssembly, error) {
	w := &wireAssembly{Name: a.Name}
	for _, m := range a.Modules {
		wm, err := toWireModule(m)
		if err != nil {
			return nil, err
		}
		w.Modules = append(w.Modules, wm)
	}
	return w, nil
}

func toWireModule(m *ModuleDef) (*wireModule, error) {
	w := &wireModule{Name: m.Name}
	for _, t := range m.Types {
		wt, err := toWireType(t)
		if err != nil {
			return nil, err
		}
		w.Types = append(w.Types, wt)
	}
	return w, nil
}

func toWireType(t *TypeDef) (*wireType, error) {
	w := &wireType{Name: t.Name}
	for _, nested := range t.NestedTypes {
		wn, err := toWireType(nested)
		if err != nil {
			return nil, err
		}
		w.NestedTypes = append(w.NestedTypes, wn)
	}
	for _, m := range t.Methods {
		wm, err := toWireMethod(m)
		if err != nil {
			return nil, err
		}
		w.Methods = append(w.Methods, wm)
	}
	for _, p := range t.Properties {
		wp := &wireProperty{Name: p.Name}
		for _, m := range p.Methods {
			wm, err := toWireMethod(m)
			if err != nil {
				return nil, err
			}
			wp.Methods = append(wp.Methods, wm)
		}
		w.Properties = append(w.Properties, wp)
	}
	for _, e := range t.Events {
		we := &wireEvent{Name: e.Name}
		for _, m := range e.Methods {
			wm, err := toWireMethod(m)
			if err != nil {
				return nil, err
			}
			we.Methods = append(we.Methods, wm)
		}
		w.Events = append(w.Events, we)
	}
	return w, nil
}

func toWireMethod(m *Method) (*wireMethod, error) {
	w := &wireMethod{Name: m.Name}
	if m.Body != nil {
		wb, err := toWireBody(m.Body)
		if err != nil {
			return nil, fmt.Errorf("method %q: %w", m.Name, err)
		}
		w.Body = wb
	}
	return w, nil
}

func toWireBody(body *ilmodel.MethodBody) (*wireBody, error) {
	indexOf := make(map[*ilmodel.Instruction]int, len(body.Instructions))
	for i, in := range body.Instructions {
		indexOf[in] = i
	}

	w := &wireBody{
		InitLocals: body.InitLocals,
		Locals:     body.Locals,
		This:       body.This,
		Parameters: body.Parameters,
	}
	for _, in := range body.Instructions {
		wi, err := toWireInstruction(in, indexOf)
		if err != nil {
			return nil, err
		}
		w.Instructions = append(w.Instructions, wi)
	}
	return w, nil
}

func toWireInstruction(in *ilmodel.Instruction, indexOf map[*ilmodel.Instruction]int) (wireInstruction, error) {
	wi := wireInstruction{Opcode: in.Opcode}
	switch op := in.Operand.(type) {
	case nil:
		wi.Kind = operandNone
	case *ilmodel.Local:
		wi.Kind = operandLocal
		wi.Local = op
	case *ilmodel.Parameter:
		wi.Kind = operandParameter
		wi.Parameter = op
	case *ilmodel.Field:
		wi.Kind = operandField
		wi.Field = op
	case *ilmodel.MemberRef:
		wi.Kind = operandMemberRef
		wi.MemberRef = op
	case *ilmodel.TypeRef:
		wi.Kind = operandTypeRef
		wi.TypeRef = op
	case int64:
		wi.Kind = operandInt64
		wi.Int64 = op
	case *ilmodel.Instruction:
		wi.Kind = operandBranchTarget
		wi.BranchTarget = indexOf[op]
	case []*ilmodel.Instruction:
		wi.Kind = operandSwitchTargets
		for _, t := range op {
			wi.SwitchTargets = append(wi.SwitchTargets, indexOf[t])
		}
	default:
		return wireInstruction{}, fmt.Errorf("unrecognized operand type %T for opcode %s", op, in.Opcode)
	}
	return wi, nil
}

func fromWireAssembly(w *wireAssembly) *Assembly {
	a := &Assembly{Name: w.Name}
	for _, m := range w.Modules {
		a.Modules = append(a.Modules, fromWireModule(m))
	}
	return a
}

func fromWireModule(w *wireModule) *ModuleDef {
	m := &ModuleDef{Name: w.Name}
	for _, t := range w.Types {
		m.Types = append(m.Types, fromWireType(t))
	}
	return m
}

func fromWireType(w *wireType) *TypeDef {
	t := &TypeDef{Name: w.Name}
	for _, nested := range w.NestedTypes {
		t.NestedTypes = append(t.NestedTypes, fromWireType(nested))
	}
	for _, m := range w.Methods {
		t.Methods = append(t.Methods, fromWireMethod(m))
	}
	for _, p := range w.Properties {
		prop := &Property{Name: p.Name}
		for _, m := range p.Methods {
			prop.Methods = append(prop.Methods, fromWireMethod(m))
		}
		t.Properties = append(t.Properties, prop)
	}
	for _, e := range w.Events {
		evt := &Event{Name: e.Name}
		for _, m := range e.Methods {
			evt.Methods = append(evt.Methods, fromWireMethod(m))
		}
		t.Events = append(t.Events, evt)
	}
	return t
}

func fromWireMethod(w *wireMethod) *Method {
	m := &Method{Name: w.Name}
	if w.Body != nil {
		m.Body = fromWireBody(w.Body)
	}
	return m
}

func fromWireBody(w *wireBody) *ilmodel.MethodBody {
	body := &ilmodel.MethodBody{
		InitLocals: w.InitLocals,
		Locals:     w.Locals,
		This:       w.This,
		Parameters: w.Parameters,
	}

	instructions := make([]*ilmodel.Instruction, len(w.Instructions))
	for i, wi := range w.Instructions {
		instructions[i] = &ilmodel.Instruction{Opcode: wi.Opcode}
	}
	for i, wi := range w.Instructions {
		instructions[i].Operand = fromWireOperand(wi, instructions)
		// gob decodes each local operand as its own copy; point it back at
		// the body's declared Local so analyses keyed by *Local see one node.
		if wi.Kind == operandLocal && wi.Local != nil {
			if idx := wi.Local.Index; idx >= 0 && idx < len(body.Locals) {
				instructions[i].Operand = body.Locals[idx]
			}
		}
	}

	body.Instructions = instructions
	body.Link()
	return body
}

func fromWireOperand(wi wireInstruction, instructions []*ilmodel.Instruction) any {
	switch wi.Kind {
	case operandLocal:
		return wi.Local
	case operandParameter:
		return wi.Parameter
	case operandField:
		return wi.Field
	case operandMemberRef:
		return wi.MemberRef
	case operandTypeRef:
		return wi.TypeRef
	case operandInt64:
		return wi.Int64
	case operandBranchTarget:
		if wi.BranchTarget < 0 || wi.BranchTarget >= len(instructions) {
			return nil
		}
		return instructions[wi.BranchTarget]
	case operandSwitchTargets:
		targets := make([]*ilmodel.Instruction, 0, len(wi.SwitchTargets))
		for _, idx := range wi.SwitchTargets {
			if idx >= 0 && idx < len(instructions) {
				targets = append(targets, instructions[idx])
			}
		}
		return targets
	default:
		return nil
	}
}
