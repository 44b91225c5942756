package ilmodel

import (
	"github.com/pkg/errors"
)

// Sentinel error kinds, per the taxonomy: each is a "kind", not a concrete
// type, so call sites wrap it with github.com/pkg/errors to attach the
// offset/opcode/block detail that actually explains the failure.
var (
	ErrUnknownOpcode          = errors.New("ilmodel: unknown opcode")
	ErrFamilyMismatch         = errors.New("ilmodel: operand decoder applied to wrong instruction family")
	ErrUnsupportedFlow        = errors.New("ilmodel: unsupported control-flow shape")
	ErrUnsupportedFamily      = errors.New("ilmodel: instruction family not modeled by the stack simulator")
	ErrStackUnderflow         = errors.New("ilmodel: abstract stack underflow")
	ErrStackMismatch          = errors.New("ilmodel: abstract stack slot size mismatch")
	ErrAssemblyIO             = errors.New("ilmodel: assembly read/write failed")
	ErrArgument               = errors.New("ilmodel: invalid command-line argument")
	ErrOperandIndexOutOfRange = errors.New("ilmodel: indexed local/parameter operand out of range")
)

func errUnknownOpcode(op Opcode) error {
	return errors.Wrapf(ErrUnknownOpcode, "opcode %s (0x%x)", op, uint16(op))
}

// FamilyMismatch wraps ErrFamilyMismatch with the family an operand decoder
// expected versus the family it actually saw.
func FamilyMismatch(want, got InstructionFamily) error {
	return errors.Wrapf(ErrFamilyMismatch, "expected %s, got %s", want, got)
}

// UnsupportedFlow wraps ErrUnsupportedFlow with the opcode that triggered it.
func UnsupportedFlow(op Opcode) error {
	return errors.Wrapf(ErrUnsupportedFlow, "opcode %s", op)
}

// UnsupportedFamily wraps ErrUnsupportedFamily with the offending family.
func UnsupportedFamily(fam InstructionFamily) error {
	return errors.Wrapf(ErrUnsupportedFamily, "family %s", fam)
}

// StackUnderflow wraps ErrStackUnderflow with the requested vs. available depth.
func StackUnderflow(need, have int) error {
	return errors.Wrapf(ErrStackUnderflow, "need %d slots, have %d", need, have)
}

// StackMismatch wraps ErrStackMismatch with the conflicting slot sizes.
func StackMismatch(want, got int) error {
	return errors.Wrapf(ErrStackMismatch, "want %d-byte slot, got %d-byte", want, got)
}

// Argument wraps ErrArgument with the offending token.
func Argument(token, reason string) error {
	return errors.Wrapf(ErrArgument, "%q: %s", token, reason)
}

// OperandIndexOutOfRange wraps ErrOperandIndexOutOfRange with the requested
// local/parameter index and the table size it fell outside of. Distinct from
// ErrStackMismatch: this is a decode-time operand-table bounds failure, not
// a slot-size disagreement in the abstract stack simulator.
func OperandIndexOutOfRange(idx, size int) error {
	return errors.Wrapf(ErrOperandIndexOutOfRange, "index %d, table size %d", idx, size)
}
