package ilmodel

// InstructionFamily groups opcodes by semantic role. The mapping from Opcode
// to InstructionFamily is total and computed once; see Family.
type InstructionFamily uint8

const (
	FamUnknown InstructionFamily = iota
	FamNop
	FamBreak
	FamLdarg
	FamLdarga
	FamStarg
	FamLdloc
	FamLdloca
	FamStloc
	FamLdnull
	FamLdc
	FamDup
	FamPop
	FamJmp
	FamCall
	FamCalli
	FamCallvirt
	FamNewobj
	FamRet
	FamBr
	FamBrfalse
	FamBrtrue
	FamBeq
	FamBge
	FamBgt
	FamBle
	FamBlt
	FamBne
	FamSwitch
	FamLdind
	FamStind
	FamAdd
	FamSub
	FamMul
	FamDiv
	FamRem
	FamAnd
	FamOr
	FamXor
	FamShl
	FamShr
	FamNeg
	FamNot
	FamConv
	FamCpobj
	FamLdobj
	FamLdstr
	FamCastclass
	FamIsinst
	FamUnbox
	FamThrow
	FamLdfld
	FamLdflda
	FamStfld
	FamLdsfld
	FamLdsflda
	FamStsfld
	FamStobj
	FamBox
	FamNewarr
	FamLdlen
	FamLdelema
	FamLdelem
	FamStelem
	FamRefanyval
	FamCkfinite
	FamMkrefany
	FamLdtoken
	FamEndfinally
	FamLeave
	FamArglist
	FamCeq
	FamCgt
	FamClt
	FamLdftn
	FamLdvirtftn
	FamLocalloc
	FamEndfilter
	FamUnaligned
	FamVolatile
	FamTail
	FamInitobj
	FamConstrained
	FamCpblk
	FamInitblk
	FamNo
	FamRethrow
	FamSizeof
	FamRefanytype
	FamReadonly
)

var familyNames = map[InstructionFamily]string{
	FamUnknown: "Unknown", FamNop: "Nop", FamBreak: "Break", FamLdarg: "Ldarg",
	FamLdarga: "Ldarga", FamStarg: "Starg", FamLdloc: "Ldloc", FamLdloca: "Ldloca",
	FamStloc: "Stloc", FamLdnull: "Ldnull", FamLdc: "Ldc", FamDup: "Dup", FamPop: "Pop",
	FamJmp: "Jmp", FamCall: "Call", FamCalli: "Calli", FamCallvirt: "Callvirt",
	FamNewobj: "Newobj", FamRet: "Ret", FamBr: "Br", FamBrfalse: "Brfalse",
	FamBrtrue: "Brtrue", FamBeq: "Beq", FamBge: "Bge", FamBgt: "Bgt", FamBle: "Ble",
	FamBlt: "Blt", FamBne: "Bne", FamSwitch: "Switch", FamLdind: "Ldind",
	FamStind: "Stind", FamAdd: "Add", FamSub: "Sub", FamMul: "Mul", FamDiv: "Div",
	FamRem: "Rem", FamAnd: "And", FamOr: "Or", FamXor: "Xor", FamShl: "Shl",
	FamShr: "Shr", FamNeg: "Neg", FamNot: "Not", FamConv: "Conv", FamCpobj: "Cpobj",
	FamLdobj: "Ldobj", FamLdstr: "Ldstr", FamCastclass: "Castclass", FamIsinst: "Isinst",
	FamUnbox: "Unbox", FamThrow: "Throw", FamLdfld: "Ldfld", FamLdflda: "Ldflda",
	FamStfld: "Stfld", FamLdsfld: "Ldsfld", FamLdsflda: "Ldsflda", FamStsfld: "Stsfld",
	FamStobj: "Stobj", FamBox: "Box", FamNewarr: "Newarr", FamLdlen: "Ldlen",
	FamLdelema: "Ldelema", FamLdelem: "Ldelem", FamStelem: "Stelem",
	FamRefanyval: "Refanyval", FamCkfinite: "Ckfinite", FamMkrefany: "Mkrefany",
	FamLdtoken: "Ldtoken", FamEndfinally: "Endfinally", FamLeave: "Leave",
	FamArglist: "Arglist", FamCeq: "Ceq", FamCgt: "Cgt", FamClt: "Clt",
	FamLdftn: "Ldftn", FamLdvirtftn: "Ldvirtftn", FamLocalloc: "Localloc",
	FamEndfilter: "Endfilter", FamUnaligned: "Unaligned", FamVolatile: "Volatile",
	FamTail: "Tail", FamInitobj: "Initobj", FamConstrained: "Constrained",
	FamCpblk: "Cpblk", FamInitblk: "Initblk", FamNo: "No", FamRethrow: "Rethrow",
	FamSizeof: "Sizeof", FamRefanytype: "Refanytype", FamReadonly: "Readonly",
}

func (f InstructionFamily) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return "Unknown"
}

// familyTable is the read-only opcode -> family lookup map, built once at
// package init. It is safe to share across every method's analysis and,
// were a future driver to parallelize per-method work, across goroutines.
var familyTable = buildFamilyTable()

func buildFamilyTable() map[Opcode]InstructionFamily {
	t := make(map[Opcode]InstructionFamily, 256)
	set := func(fam InstructionFamily, ops ...Opcode) {
		for _, op := range ops {
			t[op] = fam
		}
	}

	set(FamNop, Nop)
	set(FamBreak, Break)
	set(FamLdarg, Ldarg0, Ldarg1, Ldarg2, Ldarg3, LdargS, LdargFE)
	set(FamLdarga, LdargaS, LdargaFE)
	set(FamStarg, StargS, StargFE)
	set(FamLdloc, Ldloc0, Ldloc1, Ldloc2, Ldloc3, LdlocS, LdlocFE)
	set(FamLdloca, LdlocaS, LdlocaFE)
	set(FamStloc, Stloc0, Stloc1, Stloc2, Stloc3, StlocS, StlocFE)
	set(FamLdnull, Ldnull)
	set(FamLdc, LdcI4M1, LdcI40, LdcI41, LdcI42, LdcI43, LdcI44, LdcI45, LdcI46,
		LdcI47, LdcI48, LdcI4S, LdcI4, LdcI8, LdcR4, LdcR8)
	set(FamDup, Dup)
	set(FamPop, Pop)
	set(FamJmp, Jmp)
	set(FamCall, Call)
	set(FamCalli, Calli)
	set(FamCallvirt, Callvirt)
	set(FamNewobj, Newobj)
	set(FamRet, Ret)
	set(FamBr, Br, BrS)
	set(FamBrfalse, Brfalse, BrfalseS)
	set(FamBrtrue, Brtrue, BrtrueS)
	set(FamBeq, Beq, BeqS)
	set(FamBge, Bge, BgeS, BgeUn, BgeUnS)
	set(FamBgt, Bgt, BgtS, BgtUn, BgtUnS)
	set(FamBle, Ble, BleS, BleUn, BleUnS)
	set(FamBlt, Blt, BltS, BltUn, BltUnS)
	set(FamBne, BneUn, BneUnS)
	set(FamSwitch, Switch)
	set(FamLdind, LdindI1, LdindU1, LdindI2, LdindU2, LdindI4, LdindU4, LdindI8,
		LdindI, LdindR4, LdindR8, LdindRef)
	set(FamStind, StindRef, StindI1, StindI2, StindI4, StindI8, StindR4, StindR8, StindI)
	set(FamAdd, Add, AddOvf, AddOvfUn)
	set(FamSub, Sub, SubOvf, SubOvfUn)
	set(FamMul, Mul, MulOvf, MulOvfUn)
	set(FamDiv, Div, DivUn)
	set(FamRem, Rem, RemUn)
	set(FamAnd, And)
	set(FamOr, Or)
	set(FamXor, Xor)
	set(FamShl, Shl)
	set(FamShr, Shr, ShrUn)
	set(FamNeg, Neg)
	set(FamNot, Not)
	set(FamConv, ConvI1, ConvI2, ConvI4, ConvI8, ConvR4, ConvR8, ConvU4, ConvU8,
		ConvRUn, ConvOvfI1U, ConvOvfI2U, ConvOvfI4U, ConvOvfI8U, ConvU2, ConvU1,
		ConvI, ConvOvfI, ConvOvfU, ConvU)
	set(FamCpobj, Cpobj)
	set(FamLdobj, Ldobj)
	set(FamLdstr, Ldstr)
	set(FamCastclass, Castclass)
	set(FamIsinst, Isinst)
	set(FamUnbox, Unbox, Unboxany)
	set(FamThrow, Throw)
	set(FamLdfld, Ldfld)
	set(FamLdflda, Ldflda)
	set(FamStfld, Stfld)
	set(FamLdsfld, Ldsfld)
	set(FamLdsflda, Ldsflda)
	set(FamStsfld, Stsfld)
	set(FamStobj, Stobj)
	set(FamBox, Box)
	set(FamNewarr, Newarr)
	set(FamLdlen, Ldlen)
	set(FamLdelema, Ldelema)
	set(FamLdelem, LdelemI1, LdelemU1, LdelemI2, LdelemU2, LdelemI4, LdelemU4,
		LdelemI8, LdelemI, LdelemR4, LdelemR8, LdelemRef, LdelemAny)
	set(FamStelem, StelemI, StelemI1, StelemI2, StelemI4, StelemI8, StelemR4,
		StelemR8, StelemRef, StelemAny)
	set(FamRefanyval, Refanyval)
	set(FamCkfinite, Ckfinite)
	set(FamMkrefany, Mkrefany)
	set(FamLdtoken, Ldtoken)
	set(FamEndfinally, Endfinally)
	set(FamLeave, Leave, LeaveS)
	set(FamArglist, Arglist)
	set(FamCeq, Ceq)
	set(FamCgt, Cgt, CgtUn)
	set(FamClt, Clt, CltUn)
	set(FamLdftn, Ldftn)
	set(FamLdvirtftn, Ldvirtftn)
	set(FamLocalloc, Localloc)
	set(FamEndfilter, Endfilter)
	set(FamUnaligned, Unaligned)
	set(FamVolatile, Volatile)
	set(FamTail, Tail)
	set(FamInitobj, Initobj)
	set(FamConstrained, Constrained)
	set(FamCpblk, Cpblk)
	set(FamInitblk, Initblk)
	set(FamNo, No)
	set(FamRethrow, Rethrow)
	set(FamSizeof, Sizeof)
	set(FamRefanytype, Refanytype)
	set(FamReadonly, Readonly)

	return t
}

// Family classifies op into its InstructionFamily. It fails with
// ErrUnknownOpcode only if op's numeric code lies outside the table.
func Family(op Opcode) (InstructionFamily, error) {
	if fam, ok := familyTable[op]; ok {
		return fam, nil
	}
	return FamUnknown, errUnknownOpcode(op)
}
