package ilmodel

// TypeKind is the coarse shape of a TypeRef, just detailed enough to resolve
// stack-slot sizes and enum/modifier wrapping (see sizeOf's map in ilstack).
type TypeKind uint8

const (
	KindUnknown TypeKind = iota
	KindBool
	KindChar
	KindI1
	KindU1
	KindI2
	KindU2
	KindI4
	KindU4
	KindI8
	KindU8
	KindR4
	KindR8
	KindString
	KindPointer
	KindByReference
	KindClass
	KindArray
	KindIntPtr
	KindUIntPtr
	KindFunctionPointer
	KindObject
	KindPinned
	KindGenericVar
	KindValueType
	KindEnum
	KindRequiredModifier
	KindOptionalModifier
	KindVoid
	KindTypedByReference
	KindSentinel
)

// TypeRef is a resolved type reference. Enum and modifier kinds wrap another
// TypeRef (the enum's underlying field type, or the modifier's element type).
type TypeRef struct {
	Kind    TypeKind
	Name    string
	Wrapped *TypeRef
}

// Local is a declared local variable slot.
type Local struct {
	Index int
	Type  TypeRef
}

// Parameter is a declared method parameter, or the implicit `this`.
type Parameter struct {
	Index int
	Type  TypeRef
}

// Field is a resolved field reference.
type Field struct {
	Name     string
	Type     TypeRef
	IsStatic bool
}

// MemberRef identifies the callee of a Call/Callvirt/Newobj instruction —
// just enough detail (is it a constructor? which parameters are `out`?) for
// the definite-assignment analyzer's ldloca-consumer classification.
type MemberRef struct {
	Name          string
	IsConstructor bool
	HasThis       bool
	ExplicitThis  bool
	Params        []TypeRef
	OutParams     map[int]bool // index into Params that are `out` parameters
	ReturnType    *TypeRef     // nil means void
}

// Instruction is one element of a method body's linear instruction stream.
// The core never creates, reorders, or mutates an Instruction; it is produced
// by the external reader and only read here.
type Instruction struct {
	Opcode  Opcode
	Operand any // *Local, *Parameter, *Field, *MemberRef, *TypeRef, int64, *Instruction (branch target), []*Instruction (switch targets), or nil
	Offset  int
	Prev    *Instruction
	Next    *Instruction
}

// Family classifies this instruction's opcode.
func (i *Instruction) Family() (InstructionFamily, error) {
	return Family(i.Opcode)
}

// MethodBody is an ordered instruction stream plus the declarations the
// analyzer needs. The core mutates only InitLocals.
type MethodBody struct {
	Instructions []*Instruction
	Locals       []*Local
	This         *Parameter // nil for static methods
	Parameters   []*Parameter
	InitLocals   bool
}

// First returns the method's first instruction, or nil for an empty body.
func (m *MethodBody) First() *Instruction {
	if len(m.Instructions) == 0 {
		return nil
	}
	return m.Instructions[0]
}

// HasThis reports whether the method has an implicit `this` parameter.
func (m *MethodBody) HasThis() bool { return m.This != nil }

// Link wires Prev/Next pointers and Offset across m.Instructions in order.
// The external reader is expected to have done this already; Link exists so
// tests and the in-repo container reader (internal/ilio) can build a
// MethodBody from a flat instruction slice without hand-wiring links.
func (m *MethodBody) Link() {
	offset := 0
	for idx, in := range m.Instructions {
		in.Offset = offset
		if idx > 0 {
			in.Prev = m.Instructions[idx-1]
			m.Instructions[idx-1].Next = in
		}
		offset += operandWidth(in)
	}
	if n := len(m.Instructions); n > 0 {
		m.Instructions[n-1].Next = nil
	}
}

// operandWidth is a byte-count placeholder sufficient to keep Offset
// monotonically increasing; the core never reasons about absolute byte
// offsets, only instruction identity and Next/Prev order.
func operandWidth(in *Instruction) int {
	if uint16(in.Opcode)>>prefixShift == 0xFE {
		return 2
	}
	return 1
}

// Next returns the instruction following in, or nil if in is the last
// instruction of its method body.
func Next(in *Instruction) *Instruction {
	if in == nil {
		return nil
	}
	return in.Next
}
