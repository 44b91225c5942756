package ilstack

import (
	"github.com/Hengle/ilopt/internal/ilmodel"
	"github.com/Hengle/ilopt/internal/iloperand"
)

// Consumer is the instruction that pops a ldloca-pushed managed pointer off
// the abstract stack. StackIndex is the instruction's pop count minus the
// tracked stack depth when it was reached: the pointer's position among the
// operands the instruction pops, counted from the first-pushed one (0 = the
// deepest operand, e.g. initobj's address or an instance call's receiver).
type Consumer struct {
	Instruction *ilmodel.Instruction
	StackIndex  int
}

// wideOpcodes collects every opcode variant whose encoded width is 8 bytes;
// every opcode absent from this set is 4. Spans Ldc/Conv/Ldind/Stind/Ldelem/
// Stelem because their numeric codes never collide across families.
var wideOpcodes = map[ilmodel.Opcode]bool{
	ilmodel.LdcI8: true, ilmodel.LdcR8: true,
	ilmodel.ConvI8: true, ilmodel.ConvR8: true, ilmodel.ConvU8: true, ilmodel.ConvOvfI8U: true,
	ilmodel.LdindI8: true, ilmodel.LdindR8: true,
	ilmodel.StindI8: true, ilmodel.StindR8: true,
	ilmodel.LdelemI8: true, ilmodel.LdelemR8: true,
	ilmodel.StelemI8: true, ilmodel.StelemR8: true,
}

func widthOf(op ilmodel.Opcode) int {
	if wideOpcodes[op] {
		return 8
	}
	return 4
}

// FindConsumer walks forward from start (the instruction immediately after a
// ldloca) simulating stack slot widths, per spec.md §4.D, until it finds the
// instruction that consumes the ldloca's pushed address, runs off the end of
// the straight-line path (stack drains without a hit, or a control transfer
// is reached), or hits an opcode family the simulator does not model.
//
// A nil Consumer with a nil error means "no consumer on this straight-line
// path" — the caller (the definite-assignment analyzer) treats that as a
// read of the address.
func FindConsumer(body *ilmodel.MethodBody, start *ilmodel.Instruction) (*Consumer, error) {
	stack := []int{4}

	for in := start; in != nil; in = ilmodel.Next(in) {
		fam, err := in.Family()
		if err != nil {
			return nil, err
		}

		consumed, idx, halt, next, err := step(body, in, fam, stack)
		if err != nil {
			return nil, err
		}
		if consumed {
			return &Consumer{Instruction: in, StackIndex: idx}, nil
		}
		if halt {
			return nil, nil
		}
		stack = next
		if len(stack) == 0 {
			return nil, nil
		}
	}
	return nil, nil
}

// step applies one instruction's effect to stack, or reports that it
// consumes the tracked slot instead. The boolean results are mutually
// exclusive: consumed, halt, or (implicitly) "grew/shrank normally".
//
// Trigger rule: an instruction consumes the tracked slot when its required
// pop count reaches or exceeds the current depth — at that point the pop
// would have to remove the bottommost (oldest, first-pushed) tracked slot,
// which is always the ldloca address itself. stackIndex is the pop count
// minus the depth: the address's operand position, counted from the
// first-pushed operand the instruction pops.
func step(
	body *ilmodel.MethodBody,
	in *ilmodel.Instruction,
	fam ilmodel.InstructionFamily,
	stack []int,
) (consumed bool, stackIndex int, halt bool, next []int, err error) {
	depth := len(stack)

	popN := func(n int) []int {
		return stack[:len(stack)-n]
	}
	top := func() int { return stack[len(stack)-1] }
	push := func(s []int, size int) []int { return append(s, size) }

	switch fam {
	case ilmodel.FamNop, ilmodel.FamBreak, ilmodel.FamVolatile, ilmodel.FamConstrained,
		ilmodel.FamNeg, ilmodel.FamNot:
		return false, 0, false, stack, nil

	case ilmodel.FamLdarga, ilmodel.FamLdloca, ilmodel.FamLdnull, ilmodel.FamLdstr,
		ilmodel.FamLdsflda, ilmodel.FamLdtoken, ilmodel.FamArglist, ilmodel.FamSizeof:
		return false, 0, false, push(stack, 4), nil

	case ilmodel.FamLdarg:
		p, err := iloperand.Parameter(in, body)
		if err != nil {
			return false, 0, false, nil, err
		}
		size, err := SizeOf(p.Type)
		if err != nil {
			return false, 0, false, nil, err
		}
		return false, 0, false, push(stack, size), nil

	case ilmodel.FamLdloc:
		l, err := iloperand.Local(in, body)
		if err != nil {
			return false, 0, false, nil, err
		}
		size, err := SizeOf(l.Type)
		if err != nil {
			return false, 0, false, nil, err
		}
		return false, 0, false, push(stack, size), nil

	case ilmodel.FamStloc:
		if 1 >= depth {
			return true, 1 - depth, false, nil, nil
		}
		return false, 0, false, popN(1), nil

	case ilmodel.FamStarg:
		if 1 >= depth {
			return true, 1 - depth, false, nil, nil
		}
		return false, 0, false, popN(1), nil

	case ilmodel.FamLdc:
		return false, 0, false, push(stack, widthOf(in.Opcode)), nil

	case ilmodel.FamDup:
		if 1 >= depth {
			return true, 1 - depth, false, nil, nil
		}
		return false, 0, false, push(stack, top()), nil

	case ilmodel.FamPop:
		if 1 >= depth {
			return true, 1 - depth, false, nil, nil
		}
		return false, 0, false, popN(1), nil

	case ilmodel.FamCall, ilmodel.FamCallvirt, ilmodel.FamNewobj:
		m, err := iloperand.MemberRef(in)
		if err != nil {
			return false, 0, false, nil, err
		}
		argCount := len(m.Params)
		receiverPop := 0
		if m.HasThis && !m.ExplicitThis {
			receiverPop = 1
		}
		total := argCount + receiverPop
		if total >= depth {
			// Spec's "argumentCount - depth" formula is written excluding
			// the implicit receiver pop, but an implicit-receiver
			// constructor call (`call instance void T::.ctor()` against a
			// ldloca'd address, no explicit args) must land at stackIndex
			// 0 to be classified as a write. Folding receiverPop in here
			// is what makes that documented case land correctly; without
			// it the formula goes negative whenever receiverPop == 1.
			return true, total - depth, false, nil, nil
		}
		s := popN(total)
		if m.ReturnType == nil {
			return false, 0, false, s, nil
		}
		retSize, err := SizeOf(*m.ReturnType)
		if err != nil {
			return false, 0, false, nil, err
		}
		return false, 0, false, push(s, retSize), nil

	case ilmodel.FamLdind:
		if 1 >= depth {
			return true, 1 - depth, false, nil, nil
		}
		return false, 0, false, push(popN(1), widthOf(in.Opcode)), nil

	case ilmodel.FamStind:
		if 2 >= depth {
			return true, 2 - depth, false, nil, nil
		}
		return false, 0, false, popN(2), nil

	case ilmodel.FamAdd, ilmodel.FamSub, ilmodel.FamMul, ilmodel.FamDiv, ilmodel.FamRem,
		ilmodel.FamAnd, ilmodel.FamOr, ilmodel.FamXor, ilmodel.FamShl, ilmodel.FamShr,
		ilmodel.FamCalli:
		if 2 >= depth {
			return true, 2 - depth, false, nil, nil
		}
		a, b := stack[len(stack)-2], stack[len(stack)-1]
		return false, 0, false, push(popN(2), max(a, b)), nil

	case ilmodel.FamConv:
		if 1 >= depth {
			return true, 1 - depth, false, nil, nil
		}
		return false, 0, false, push(popN(1), widthOf(in.Opcode)), nil

	case ilmodel.FamCastclass, ilmodel.FamIsinst:
		if 1 >= depth {
			return true, 1 - depth, false, nil, nil
		}
		return false, 0, false, push(popN(1), 4), nil

	case ilmodel.FamUnbox, ilmodel.FamBox:
		if 1 >= depth {
			return true, 1 - depth, false, nil, nil
		}
		return false, 0, false, push(popN(1), 4), nil

	case ilmodel.FamLdfld:
		if 1 >= depth {
			return true, 1 - depth, false, nil, nil
		}
		f, err := iloperand.FieldRef(in)
		if err != nil {
			return false, 0, false, nil, err
		}
		size, err := SizeOf(f.Type)
		if err != nil {
			return false, 0, false, nil, err
		}
		return false, 0, false, push(popN(1), size), nil

	case ilmodel.FamLdflda:
		if 1 >= depth {
			return true, 1 - depth, false, nil, nil
		}
		return false, 0, false, push(popN(1), 4), nil

	case ilmodel.FamStfld:
		if 2 >= depth {
			return true, 2 - depth, false, nil, nil
		}
		return false, 0, false, popN(2), nil

	case ilmodel.FamLdsfld:
		f, err := iloperand.FieldRef(in)
		if err != nil {
			return false, 0, false, nil, err
		}
		size, err := SizeOf(f.Type)
		if err != nil {
			return false, 0, false, nil, err
		}
		return false, 0, false, push(stack, size), nil

	case ilmodel.FamStsfld:
		if 1 >= depth {
			return true, 1 - depth, false, nil, nil
		}
		return false, 0, false, popN(1), nil

	case ilmodel.FamNewarr, ilmodel.FamLdlen:
		if 1 >= depth {
			return true, 1 - depth, false, nil, nil
		}
		return false, 0, false, push(popN(1), 4), nil

	case ilmodel.FamLdelema:
		if 2 >= depth {
			return true, 2 - depth, false, nil, nil
		}
		return false, 0, false, push(popN(2), 4), nil

	case ilmodel.FamLdelem:
		if 2 >= depth {
			return true, 2 - depth, false, nil, nil
		}
		size := widthOf(in.Opcode)
		if in.Opcode == ilmodel.LdelemAny {
			et, err := iloperand.ElementType(in)
			if err != nil {
				return false, 0, false, nil, err
			}
			if et != nil {
				size, err = SizeOf(*et)
				if err != nil {
					return false, 0, false, nil, err
				}
			}
		}
		return false, 0, false, push(popN(2), size), nil

	case ilmodel.FamStelem:
		if 3 >= depth {
			return true, 3 - depth, false, nil, nil
		}
		return false, 0, false, popN(3), nil

	case ilmodel.FamCeq, ilmodel.FamCgt, ilmodel.FamClt:
		if 2 >= depth {
			return true, 2 - depth, false, nil, nil
		}
		return false, 0, false, push(popN(2), 4), nil

	case ilmodel.FamInitobj:
		if 1 >= depth {
			return true, 1 - depth, false, nil, nil
		}
		return false, 0, false, popN(1), nil

	case ilmodel.FamJmp, ilmodel.FamRet, ilmodel.FamBr, ilmodel.FamBrfalse, ilmodel.FamBrtrue,
		ilmodel.FamBeq, ilmodel.FamBge, ilmodel.FamBgt, ilmodel.FamBle, ilmodel.FamBlt,
		ilmodel.FamBne, ilmodel.FamSwitch, ilmodel.FamThrow:
		return false, 0, true, nil, nil

	default:
		return false, 0, false, nil, ilmodel.UnsupportedFamily(fam)
	}
}
