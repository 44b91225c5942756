// Package ilcfg builds the control-flow graph of basic blocks out of a
// method body's linear instruction stream, and provides non-recursive
// traversals over it. Grounded on the teacher's MIRBasicBlock/CFG layout in
// core/opcodeCompiler/compiler/MIRBasicBlock.go, generalized from EVM PC
// ranges to CIL instruction links.
package ilcfg

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Hengle/ilopt/internal/ilmodel"
)

// BasicBlock is a maximal straight-line run of instructions with a single
// entry. Children/parents are sets, per spec.md's data model — represented
// with golang-set so edge de-duplication (the same successor reached by two
// different terminators) is free.
type BasicBlock struct {
	id           int
	instructions []*ilmodel.Instruction
	children     mapset.Set[*BasicBlock]
	parents      mapset.Set[*BasicBlock]
	properties   map[any]any
}

func newBlock(id int, first *ilmodel.Instruction) *BasicBlock {
	return &BasicBlock{
		id:           id,
		instructions: []*ilmodel.Instruction{first},
		children:     mapset.NewThreadUnsafeSet[*BasicBlock](),
		parents:      mapset.NewThreadUnsafeSet[*BasicBlock](),
	}
}

// ID is a stable integer index into the CFG's block arena.
func (b *BasicBlock) ID() int { return b.id }

// Instructions returns the block's contiguous instruction run, in original order.
func (b *BasicBlock) Instructions() []*ilmodel.Instruction { return b.instructions }

// First returns the block's entry instruction.
func (b *BasicBlock) First() *ilmodel.Instruction { return b.instructions[0] }

// Last returns the block's final instruction.
func (b *BasicBlock) Last() *ilmodel.Instruction { return b.instructions[len(b.instructions)-1] }

// Children returns the block's successors, insertion order not guaranteed.
func (b *BasicBlock) Children() []*BasicBlock { return b.children.ToSlice() }

// Parents returns the block's predecessors, insertion order not guaranteed.
func (b *BasicBlock) Parents() []*BasicBlock { return b.parents.ToSlice() }

func addEdge(from, to *BasicBlock) {
	from.children.Add(to)
	to.parents.Add(from)
}

func (b *BasicBlock) append(in *ilmodel.Instruction) {
	b.instructions = append(b.instructions, in)
}

// Property returns the value stored under key on this block's side table,
// the extensibility hook spec.md's data model describes for the node. The
// definite-assignment analyzer deliberately does not use this — it keeps its
// own (block, variable) map, per Design Note 4.9 — but other analyses built
// on this CFG can.
func (b *BasicBlock) Property(key any) (any, bool) {
	v, ok := b.properties[key]
	return v, ok
}

// SetProperty stores a value under key on this block's side table.
func (b *BasicBlock) SetProperty(key, value any) {
	if b.properties == nil {
		b.properties = make(map[any]any)
	}
	b.properties[key] = value
}
