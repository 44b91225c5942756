package ilcfg

import (
	"github.com/Hengle/ilopt/internal/ilmodel"
)

// CFG is a rooted, possibly cyclic graph of basic blocks over one method
// body's instruction stream. Blocks live in an arena with stable integer
// IDs (Blocks, indexed by BasicBlock.ID), so the arena can be walked with a
// plain loop and no recursion. Parent/child sets hold *BasicBlock pointers,
// not IDs, so a cyclic graph is also a cycle of pointers between blocks.
type CFG struct {
	Root   *BasicBlock
	Blocks []*BasicBlock
	Body   *ilmodel.MethodBody
}

// Build constructs the CFG for body using the stack-based, iterative
// algorithm from spec.md §4.C. Recursion is never used: block growth and
// splitting are explicit worklist loops, because method bodies can be
// arbitrarily deep.
func Build(body *ilmodel.MethodBody) (*CFG, error) {
	cfg := &CFG{Body: body}
	first := body.First()
	if first == nil {
		return cfg, nil
	}

	instructionToBlock := make(map[*ilmodel.Instruction]*BasicBlock)
	blockEntry := make(map[*ilmodel.Instruction]*BasicBlock)

	root := cfg.newBlock(first)
	instructionToBlock[first] = root
	blockEntry[first] = root
	cfg.Root = root

	pending := []*BasicBlock{root}

	for len(pending) > 0 {
		b := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		if err := cfg.growBlock(b, instructionToBlock, blockEntry, &pending); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *CFG) newBlock(first *ilmodel.Instruction) *BasicBlock {
	b := newBlock(len(c.Blocks), first)
	c.Blocks = append(c.Blocks, b)
	return b
}

// growBlock repeatedly advances b's tail instruction until it hits a branch,
// a return/throw, an already-claimed block entry, or an unsupported shape.
func (c *CFG) growBlock(
	b *BasicBlock,
	instructionToBlock map[*ilmodel.Instruction]*BasicBlock,
	blockEntry map[*ilmodel.Instruction]*BasicBlock,
	pending *[]*BasicBlock,
) error {
	for {
		in := b.Last()
		fam, err := in.Family()
		if err != nil {
			return err
		}
		flow := ilmodel.Flow(fam)

		switch flow {
		case ilmodel.FlowNext, ilmodel.FlowBreak, ilmodel.FlowCall:
			if grown, err := c.growLinear(b, in, instructionToBlock, blockEntry, pending); err != nil {
				return err
			} else if grown {
				continue
			}
			return nil

		case ilmodel.FlowMeta:
			if in.Opcode != ilmodel.Volatile {
				return ilmodel.UnsupportedFlow(in.Opcode)
			}
			if grown, err := c.growLinear(b, in, instructionToBlock, blockEntry, pending); err != nil {
				return err
			} else if grown {
				continue
			}
			return nil

		case ilmodel.FlowBranch:
			target := branchTarget(in)
			return c.processBranchTarget(target, b, instructionToBlock, blockEntry, pending)

		case ilmodel.FlowCondBranch:
			if fam == ilmodel.FamSwitch {
				for _, target := range switchTargets(in) {
					if err := c.processBranchTarget(target, b, instructionToBlock, blockEntry, pending); err != nil {
						return err
					}
				}
			} else if target := branchTarget(in); target != nil {
				if err := c.processBranchTarget(target, b, instructionToBlock, blockEntry, pending); err != nil {
					return err
				}
			}
			return c.processBranchTarget(ilmodel.Next(in), b, instructionToBlock, blockEntry, pending)

		case ilmodel.FlowReturn, ilmodel.FlowThrow:
			return nil

		case ilmodel.FlowPhi:
			return ilmodel.UnsupportedFlow(in.Opcode)

		default:
			return ilmodel.UnsupportedFlow(in.Opcode)
		}
	}
}

// growLinear appends the next instruction to b, or stops b at an edge to an
// already-existing block entry. It returns grown=true when b should keep
// being grown by the caller's loop.
func (c *CFG) growLinear(
	b *BasicBlock,
	in *ilmodel.Instruction,
	instructionToBlock map[*ilmodel.Instruction]*BasicBlock,
	blockEntry map[*ilmodel.Instruction]*BasicBlock,
	pending *[]*BasicBlock,
) (bool, error) {
	j := ilmodel.Next(in)
	if j == nil {
		return false, nil
	}
	if entryBlock, ok := blockEntry[j]; ok {
		addEdge(b, entryBlock)
		return false, nil
	}
	b.append(j)
	instructionToBlock[j] = b
	return true, nil
}

// processBranchTarget resolves target to a block — an existing entry, a
// split of an existing block, or a freshly created one — and wires b as its
// predecessor, per spec.md §4.C's three-case ProcessBranchTarget.
func (c *CFG) processBranchTarget(
	target *ilmodel.Instruction,
	b *BasicBlock,
	instructionToBlock map[*ilmodel.Instruction]*BasicBlock,
	blockEntry map[*ilmodel.Instruction]*BasicBlock,
	pending *[]*BasicBlock,
) error {
	if target == nil {
		return nil
	}

	if entryBlock, ok := blockEntry[target]; ok {
		addEdge(b, entryBlock)
		return nil
	}

	if owner, ok := instructionToBlock[target]; ok {
		n := c.split(owner, target, instructionToBlock, blockEntry)
		addEdge(b, n)
		// n inherited owner's tail instruction. When owner is b itself, that
		// tail is the branch being resolved right now and its outgoing edges
		// haven't been wired yet; otherwise owner was already fully grown and
		// re-growing n only re-adds the edges split moved onto it. Queue it
		// for growth.
		*pending = append(*pending, n)
		return nil
	}

	n := c.newBlock(target)
	instructionToBlock[target] = n
	blockEntry[target] = n
	*pending = append(*pending, n)
	addEdge(b, n)
	return nil
}

// split breaks m in two at target: m keeps the prefix ending just before
// target, and a new block n gets target and everything after it. m's old
// children become n's children (n is m's sole remaining child).
func (c *CFG) split(
	m *BasicBlock,
	target *ilmodel.Instruction,
	instructionToBlock map[*ilmodel.Instruction]*BasicBlock,
	blockEntry map[*ilmodel.Instruction]*BasicBlock,
) *BasicBlock {
	idx := -1
	for i, in := range m.instructions {
		if in == target {
			idx = i
			break
		}
	}
	// idx == 0 would mean target is already m's entry, a case the caller
	// (processBranchTarget) has already excluded by checking blockEntry.

	n := c.newBlock(target)
	n.instructions = append(n.instructions, m.instructions[idx+1:]...)
	m.instructions = m.instructions[:idx]

	for _, in := range n.instructions {
		instructionToBlock[in] = n
	}
	blockEntry[target] = n

	for _, child := range m.children.ToSlice() {
		child.parents.Remove(m)
		child.parents.Add(n)
		n.children.Add(child)
	}
	m.children.Clear()
	addEdge(m, n)

	return n
}

// branchTarget resolves the single-target operand of a Br/Leave/conditional
// branch instruction to the target Instruction.
func branchTarget(in *ilmodel.Instruction) *ilmodel.Instruction {
	if t, ok := in.Operand.(*ilmodel.Instruction); ok {
		return t
	}
	return nil
}

// switchTargets resolves a Switch instruction's case-target list.
func switchTargets(in *ilmodel.Instruction) []*ilmodel.Instruction {
	if ts, ok := in.Operand.([]*ilmodel.Instruction); ok {
		return ts
	}
	return nil
}
