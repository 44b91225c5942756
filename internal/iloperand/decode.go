// Package iloperand resolves the implicit operands of short/indexed CIL
// opcodes to their explicit local/parameter/field/type references. Each
// decoder is a free function dispatched by InstructionFamily, not a method
// on an instruction subtype hierarchy, per the teacher's operand-decoder
// layout in core/opcodeCompiler/compiler's free-function opcode handling.
package iloperand

import (
	"github.com/Hengle/ilopt/internal/ilmodel"
)

// Local resolves an Ldloc/Stloc/Ldloca instruction to the Local it targets.
func Local(in *ilmodel.Instruction, body *ilmodel.MethodBody) (*ilmodel.Local, error) {
	fam, err := in.Family()
	if err != nil {
		return nil, err
	}
	switch fam {
	case ilmodel.FamLdloc, ilmodel.FamStloc, ilmodel.FamLdloca:
	default:
		return nil, ilmodel.FamilyMismatch(ilmodel.FamLdloc, fam)
	}

	switch in.Opcode {
	case ilmodel.Ldloc0, ilmodel.Stloc0:
		return indexedLocal(body, 0)
	case ilmodel.Ldloc1, ilmodel.Stloc1:
		return indexedLocal(body, 1)
	case ilmodel.Ldloc2, ilmodel.Stloc2:
		return indexedLocal(body, 2)
	case ilmodel.Ldloc3, ilmodel.Stloc3:
		return indexedLocal(body, 3)
	default:
		// ldloc.s/ldloc/stloc.s/stloc/ldloca.s/ldloca carry the Local
		// directly as the operand.
		if loc, ok := in.Operand.(*ilmodel.Local); ok {
			return loc, nil
		}
		return nil, ilmodel.FamilyMismatch(ilmodel.FamLdloc, fam)
	}
}

func indexedLocal(body *ilmodel.MethodBody, idx int) (*ilmodel.Local, error) {
	if idx < 0 || idx >= len(body.Locals) {
		return nil, ilmodel.OperandIndexOutOfRange(idx, len(body.Locals))
	}
	return body.Locals[idx], nil
}

// Parameter resolves an Ldarg/Starg instruction to the Parameter it targets.
// For ldarg.0..3, index 0 resolves to `this` when the method has one (per
// spec: HasThis maps index 0 to `this`, indices 1..3 to parameter i-1).
func Parameter(in *ilmodel.Instruction, body *ilmodel.MethodBody) (*ilmodel.Parameter, error) {
	fam, err := in.Family()
	if err != nil {
		return nil, err
	}
	if fam != ilmodel.FamLdarg && fam != ilmodel.FamStarg && fam != ilmodel.FamLdarga {
		return nil, ilmodel.FamilyMismatch(ilmodel.FamLdarg, fam)
	}

	switch in.Opcode {
	case ilmodel.Ldarg0:
		return argAtIndex(body, 0)
	case ilmodel.Ldarg1:
		return argAtIndex(body, 1)
	case ilmodel.Ldarg2:
		return argAtIndex(body, 2)
	case ilmodel.Ldarg3:
		return argAtIndex(body, 3)
	default:
		if p, ok := in.Operand.(*ilmodel.Parameter); ok {
			return p, nil
		}
		return nil, ilmodel.FamilyMismatch(ilmodel.FamLdarg, fam)
	}
}

// argAtIndex implements the exact ldarg.0..3 mapping from spec.md §4.B:
// index 0 returns `this` when present, else parameter 0; indices 1..3
// return parameter (i - hasThis).
func argAtIndex(body *ilmodel.MethodBody, i int) (*ilmodel.Parameter, error) {
	hasThis := body.HasThis()
	if i == 0 {
		if hasThis {
			return body.This, nil
		}
		return paramAtIndex(body, 0)
	}
	offset := i
	if hasThis {
		offset = i - 1
	}
	return paramAtIndex(body, offset)
}

func paramAtIndex(body *ilmodel.MethodBody, idx int) (*ilmodel.Parameter, error) {
	if idx < 0 || idx >= len(body.Parameters) {
		return nil, ilmodel.OperandIndexOutOfRange(idx, len(body.Parameters))
	}
	return body.Parameters[idx], nil
}

// FieldRef resolves an Ldfld/Ldflda/Stfld/Ldsfld/Ldsflda/Stsfld instruction
// to the Field it targets.
func FieldRef(in *ilmodel.Instruction) (*ilmodel.Field, error) {
	fam, err := in.Family()
	if err != nil {
		return nil, err
	}
	switch fam {
	case ilmodel.FamLdfld, ilmodel.FamLdflda, ilmodel.FamStfld,
		ilmodel.FamLdsfld, ilmodel.FamLdsflda, ilmodel.FamStsfld:
	default:
		return nil, ilmodel.FamilyMismatch(ilmodel.FamLdfld, fam)
	}
	if f, ok := in.Operand.(*ilmodel.Field); ok {
		return f, nil
	}
	return nil, ilmodel.FamilyMismatch(ilmodel.FamLdfld, fam)
}

// ElementType resolves the element type of an Ldelem/Ldelema/Stelem
// instruction. Encoded-type forms (ldelem.i4, stelem.ref, ...) carry no
// explicit type operand and resolve to nil, matching spec.md's "None for
// encoded-type forms".
func ElementType(in *ilmodel.Instruction) (*ilmodel.TypeRef, error) {
	fam, err := in.Family()
	if err != nil {
		return nil, err
	}
	switch fam {
	case ilmodel.FamLdelem, ilmodel.FamLdelema, ilmodel.FamStelem:
	default:
		return nil, ilmodel.FamilyMismatch(ilmodel.FamLdelem, fam)
	}
	if in.Opcode != ilmodel.LdelemAny && in.Opcode != ilmodel.StelemAny && in.Opcode != ilmodel.Ldelema {
		return nil, nil
	}
	if t, ok := in.Operand.(*ilmodel.TypeRef); ok {
		return t, nil
	}
	return nil, nil
}

// MemberRef resolves a Call/Callvirt/Newobj/Calli instruction's callee.
func MemberRef(in *ilmodel.Instruction) (*ilmodel.MemberRef, error) {
	fam, err := in.Family()
	if err != nil {
		return nil, err
	}
	switch fam {
	case ilmodel.FamCall, ilmodel.FamCallvirt, ilmodel.FamNewobj, ilmodel.FamCalli:
	default:
		return nil, ilmodel.FamilyMismatch(ilmodel.FamCall, fam)
	}
	if m, ok := in.Operand.(*ilmodel.MemberRef); ok {
		return m, nil
	}
	return nil, ilmodel.FamilyMismatch(ilmodel.FamCall, fam)
}
