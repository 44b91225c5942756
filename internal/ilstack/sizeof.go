// Package ilstack simulates the CIL evaluation stack at the level of slot
// byte widths — never full value types — to locate the instruction that
// consumes a ldloca-pushed managed pointer. Grounded on the teacher's
// ValueStack.go, which tracks EVM stack depth the same coarse way: enough
// state to answer "how deep is this" without modeling actual values.
package ilstack

import "github.com/Hengle/ilopt/internal/ilmodel"

// SizeOf returns the abstract stack slot width, in bytes, of t. Only 4 and 8
// are ever returned; everything that isn't an 8-byte primitive collapses to
// 4 the same way the CLR's stack transition diagrams do.
func SizeOf(t ilmodel.TypeRef) (int, error) {
	switch t.Kind {
	case ilmodel.KindI8, ilmodel.KindU8, ilmodel.KindR8:
		return 8, nil
	case ilmodel.KindEnum:
		if t.Wrapped == nil {
			return 4, nil
		}
		return SizeOf(*t.Wrapped)
	case ilmodel.KindRequiredModifier, ilmodel.KindOptionalModifier:
		if t.Wrapped == nil {
			return 4, nil
		}
		return SizeOf(*t.Wrapped)
	case ilmodel.KindVoid, ilmodel.KindTypedByReference, ilmodel.KindSentinel:
		return 0, ilmodel.UnsupportedFamily(ilmodel.FamUnknown)
	default:
		return 4, nil
	}
}
