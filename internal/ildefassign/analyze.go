package ildefassign

import (
	"github.com/Hengle/ilopt/internal/ilcfg"
	"github.com/Hengle/ilopt/internal/ilmodel"
	"github.com/Hengle/ilopt/internal/iloperand"
	"github.com/Hengle/ilopt/internal/ilstack"
)

// Analyze decides whether body's `initLocals` flag can be cleared under
// mode, given cfg (built from body). It is the single entry point for
// component F's driver: exactly one of Skipped/Updated/Failed comes back,
// never an error for analyzable-but-unprovable bodies — those are Failed,
// not an error. An error return means the body itself is malformed (an
// opcode the decoders or the stack simulator cannot make sense of).
func Analyze(body *ilmodel.MethodBody, cfg *ilcfg.CFG, mode Mode) (Verdict, error) {
	if body == nil || len(body.Instructions) == 0 || !body.InitLocals {
		return Skipped, nil
	}

	if mode == ModeAll {
		body.InitLocals = false
		return Updated, nil
	}

	access := make(map[*ilcfg.BasicBlock]map[*ilmodel.Local]*VariableAccessData)
	containsLocalloc := false

	var walkErr error
	cfg.DFS(func(b *ilcfg.BasicBlock) {
		if walkErr != nil {
			return
		}
		for _, in := range b.Instructions() {
			fam, err := in.Family()
			if err != nil {
				walkErr = err
				return
			}
			switch fam {
			case ilmodel.FamStloc:
				local, err := iloperand.Local(in, body)
				if err != nil {
					walkErr = err
					return
				}
				accessFor(access, b, local).recordFirst(true)

			case ilmodel.FamLdloc:
				local, err := iloperand.Local(in, body)
				if err != nil {
					walkErr = err
					return
				}
				accessFor(access, b, local).recordFirst(false)

			case ilmodel.FamLdloca:
				local, err := iloperand.Local(in, body)
				if err != nil {
					walkErr = err
					return
				}
				data := accessFor(access, b, local)
				if data.seen {
					continue
				}
				consumer, err := ilstack.FindConsumer(body, ilmodel.Next(in))
				if err != nil {
					walkErr = err
					return
				}
				write, err := classifyConsumer(consumer, mode)
				if err != nil {
					walkErr = err
					return
				}
				data.recordFirst(write)

			case ilmodel.FamLocalloc:
				containsLocalloc = true
			}
		}
	})
	if walkErr != nil {
		return Failed, walkErr
	}

	if containsLocalloc && !mode.Has(ModeStackalloc) {
		return Failed, nil
	}

	for _, local := range body.Locals {
		if unassigned(access, cfg.Root, local) {
			return Failed, nil
		}
	}

	body.InitLocals = false
	return Updated, nil
}

func accessFor(
	access map[*ilcfg.BasicBlock]map[*ilmodel.Local]*VariableAccessData,
	b *ilcfg.BasicBlock,
	local *ilmodel.Local,
) *VariableAccessData {
	byLocal, ok := access[b]
	if !ok {
		byLocal = make(map[*ilmodel.Local]*VariableAccessData)
		access[b] = byLocal
	}
	d, ok := byLocal[local]
	if !ok {
		d = &VariableAccessData{}
		byLocal[local] = d
	}
	return d
}

// unassigned implements spec.md §4.E step 4: pick the block whose access
// data governs this local, and report whether that data's first access was
// a read. A local referenced by more than one non-root block is the
// inter-block case the analyzer does not attempt to prove — it is reported
// unassigned unconditionally, matching the documented conservative-failure
// behavior.
func unassigned(
	access map[*ilcfg.BasicBlock]map[*ilmodel.Local]*VariableAccessData,
	root *ilcfg.BasicBlock,
	local *ilmodel.Local,
) bool {
	var referencing []*VariableAccessData
	var rootData *VariableAccessData
	for b, byLocal := range access {
		d, ok := byLocal[local]
		if !ok {
			continue
		}
		referencing = append(referencing, d)
		if b == root {
			rootData = d
		}
	}

	switch {
	case len(referencing) == 0:
		return false
	case rootData != nil:
		return !rootData.AssignedFirst
	case len(referencing) == 1:
		return !referencing[0].AssignedFirst
	default:
		return true
	}
}

// classifyConsumer implements the Ldloca-consumer classification table from
// spec.md §4.E step 2.
func classifyConsumer(consumer *ilstack.Consumer, mode Mode) (bool, error) {
	if consumer == nil {
		return false, nil
	}
	fam, err := consumer.Instruction.Family()
	if err != nil {
		return false, err
	}

	switch fam {
	case ilmodel.FamInitobj:
		return consumer.StackIndex == 0, nil

	case ilmodel.FamCall, ilmodel.FamCallvirt, ilmodel.FamNewobj:
		m, err := iloperand.MemberRef(consumer.Instruction)
		if err != nil {
			return false, err
		}
		if consumer.StackIndex == 0 && m.IsConstructor {
			return true, nil
		}
		if mode.Has(ModeOut) {
			// StackIndex counts from the first operand the call pops, which
			// is the receiver when the simulator popped one.
			paramIdx := consumer.StackIndex
			if m.HasThis && !m.ExplicitThis {
				paramIdx--
			}
			if paramIdx >= 0 && paramIdx < len(m.Params) && m.OutParams[paramIdx] {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, nil
	}
}
