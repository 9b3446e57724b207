package tac

import "fmt"

// Frame layout constants. Every variable occupies one 4-byte slot.
const (
	VarSize             = 4
	OffsetToFirstLocal  = -8
	OffsetToFirstParam  = 4
	OffsetToFirstGlobal = 0
)

// Runtime error messages printed by generated bounds checks.
const (
	ErrArrOutOfBounds = "Decaf runtime error: Array subscript out of bounds\n"
	ErrArrBadSize     = "Decaf runtime error: Array size is <= 0\n"
)

// Namer hands out label names, temporary names and Location IDs.
// One Namer per compilation keeps output deterministic across runs.
type Namer struct {
	nextID    int
	nextTemp  int
	nextLabel int
}

// NewNamer creates a naming context with all counters at zero.
func NewNamer() *Namer {
	return &Namer{}
}

// NewLabel returns a fresh label: _L0, _L1, ...
func (n *Namer) NewLabel() string {
	l := fmt.Sprintf("_L%d", n.nextLabel)
	n.nextLabel++
	return l
}

// NewTempName returns a fresh temporary name: _tmp0, _tmp1, ...
func (n *Namer) NewTempName() string {
	t := fmt.Sprintf("_tmp%d", n.nextTemp)
	n.nextTemp++
	return t
}

// NewLocation creates a Location with the next creation index.
func (n *Namer) NewLocation(name string, seg Segment, offset int) *Location {
	l := &Location{id: n.nextID, name: name, segment: seg, offset: offset}
	n.nextID++
	return l
}

// NewIndirect creates the reference *(base + offset).
func (n *Namer) NewIndirect(base *Location, offset int) *Location {
	l := n.NewLocation(base.name, base.segment, offset)
	l.base = base
	return l
}

// BuiltIn names one of the runtime library routines.
type BuiltIn int

const (
	Alloc BuiltIn = iota
	ReadLine
	ReadInteger
	StringEqual
	PrintInt
	PrintString
	PrintBool
	Halt
)

type builtinInfo struct {
	label     string
	numArgs   int
	hasReturn bool
}

var builtins = [...]builtinInfo{
	Alloc:       {"_Alloc", 1, true},
	ReadLine:    {"_ReadLine", 0, true},
	ReadInteger: {"_ReadInteger", 0, true},
	StringEqual: {"_StringEqual", 2, true},
	PrintInt:    {"_PrintInt", 1, false},
	PrintString: {"_PrintString", 1, false},
	PrintBool:   {"_PrintBool", 1, false},
	Halt:        {"_Halt", 0, false},
}

// Builder appends TAC instructions to a Program.
// It tracks stack and global offsets so that each new variable gets the
// next slot, and back-patches the frame size of the open function.
type Builder struct {
	prog            *Program
	names           *Namer
	curStackOffset  int
	curGlobalOffset int
	insideFn        *BeginFunc
}

// NewBuilder creates a builder over an empty program. A nil Namer gets a
// fresh one.
func NewBuilder(names *Namer) *Builder {
	if names == nil {
		names = NewNamer()
	}
	return &Builder{
		prog:            &Program{},
		names:           names,
		curGlobalOffset: OffsetToFirstGlobal,
	}
}

// Program returns the program built so far.
func (b *Builder) Program() *Program { return b.prog }

// Namer returns the builder's naming context.
func (b *Builder) Namer() *Namer { return b.names }

// NewLabel returns a fresh label name without emitting it.
func (b *Builder) NewLabel() string { return b.names.NewLabel() }

func (b *Builder) emit(instr Instruction) {
	b.prog.Append(instr)
}

// --- Locations ---

// GenLocalVariable allocates the next frame slot.
func (b *Builder) GenLocalVariable(name string) *Location {
	b.curStackOffset -= VarSize
	return b.names.NewLocation(name, FPRelative, b.curStackOffset+VarSize)
}

// GenGlobalVariable allocates the next global slot.
func (b *Builder) GenGlobalVariable(name string) *Location {
	b.curGlobalOffset += VarSize
	return b.names.NewLocation(name, GPRelative, b.curGlobalOffset-VarSize)
}

// GenParameter returns the Location of the index-th incoming parameter.
func (b *Builder) GenParameter(index int, name string) *Location {
	return b.names.NewLocation(name, FPRelative, OffsetToFirstParam+index*VarSize)
}

// GenIndirect returns the reference *(base + offset).
func (b *Builder) GenIndirect(base *Location, offset int) *Location {
	return b.names.NewIndirect(base, offset)
}

// GenTempVar allocates a compiler temporary in the current frame.
func (b *Builder) GenTempVar() *Location {
	return b.GenLocalVariable(b.names.NewTempName())
}

// --- Simple instructions ---

func (b *Builder) GenLoadConstant(value int) *Location {
	result := b.GenTempVar()
	b.emit(LoadConstant{Dst: result, Value: value})
	return result
}

func (b *Builder) GenLoadString(s string) *Location {
	result := b.GenTempVar()
	b.emit(LoadStringConstant{Dst: result, Str: s})
	return result
}

func (b *Builder) GenLoadLabel(label string) *Location {
	result := b.GenTempVar()
	b.emit(LoadLabel{Dst: result, Label: label})
	return result
}

func (b *Builder) GenAssign(dst, src *Location) {
	b.emit(Assign{Dst: dst, Src: src})
}

// GenLoad reads the word at ref + offset into a new temporary.
func (b *Builder) GenLoad(ref *Location, offset int) *Location {
	result := b.GenTempVar()
	b.emit(Load{Dst: result, Src: ref, Offset: offset})
	return result
}

// GenStore writes src to the word at dst + offset.
func (b *Builder) GenStore(dst, src *Location, offset int) {
	b.emit(Store{Dst: dst, Src: src, Offset: offset})
}

func (b *Builder) GenBinaryOp(code OpCode, op1, op2 *Location) *Location {
	result := b.GenTempVar()
	b.emit(BinaryOp{Code: code, Dst: result, Op1: op1, Op2: op2})
	return result
}

func (b *Builder) GenLabel(label string) {
	b.emit(Label{Name: label})
}

func (b *Builder) GenIfZ(test *Location, label string) {
	b.emit(IfZ{Test: test, Target: label})
}

func (b *Builder) GenGoto(label string) {
	b.emit(Goto{Target: label})
}

// GenReturn emits a return; val may be nil.
func (b *Builder) GenReturn(val *Location) {
	b.emit(Return{Value: val})
}

// --- Functions ---

// GenBeginFunc opens a function body and resets the frame offsets.
func (b *Builder) GenBeginFunc() *BeginFunc {
	begin := &BeginFunc{}
	b.emit(begin)
	b.insideFn = begin
	b.curStackOffset = OffsetToFirstLocal
	return begin
}

// GenEndFunc closes the open function and records its frame size.
func (b *Builder) GenEndFunc() {
	b.emit(EndFunc{})
	if b.insideFn != nil {
		b.insideFn.FrameSize = OffsetToFirstLocal - b.curStackOffset
		b.insideFn = nil
	}
}

// --- Calls ---

func (b *Builder) GenPushParam(param *Location) {
	b.emit(PushParam{Param: param})
}

// GenPopParams pops the given number of argument bytes. Zero emits nothing.
func (b *Builder) GenPopParams(numBytes int) {
	if numBytes > 0 {
		b.emit(PopParams{Bytes: numBytes})
	}
}

// GenLCall calls label and returns the result temporary, or nil.
func (b *Builder) GenLCall(label string, hasReturn bool) *Location {
	var result *Location
	if hasReturn {
		result = b.GenTempVar()
	}
	b.emit(LCall{Label: label, Result: result})
	return result
}

// GenACall calls through fnAddr and returns the result temporary, or nil.
func (b *Builder) GenACall(fnAddr *Location, hasReturn bool) *Location {
	var result *Location
	if hasReturn {
		result = b.GenTempVar()
	}
	b.emit(ACall{Addr: fnAddr, Result: result})
	return result
}

// GenFunctionCall pushes args right to left, calls, and pops them.
func (b *Builder) GenFunctionCall(label string, args []*Location, hasReturn bool) *Location {
	for i := len(args) - 1; i >= 0; i-- {
		b.GenPushParam(args[i])
	}
	result := b.GenLCall(label, hasReturn)
	b.GenPopParams(len(args) * VarSize)
	return result
}

// GenMethodCall is GenFunctionCall through a method address, with the
// receiver pushed last as the hidden this parameter.
func (b *Builder) GenMethodCall(rcvr, meth *Location, args []*Location, hasReturn bool) *Location {
	for i := len(args) - 1; i >= 0; i-- {
		b.GenPushParam(args[i])
	}
	b.GenPushParam(rcvr)
	result := b.GenACall(meth, hasReturn)
	b.GenPopParams((len(args) + 1) * VarSize)
	return result
}

// GenBuiltInCall calls a runtime routine. It panics if the number of
// non-nil arguments does not match the routine.
func (b *Builder) GenBuiltInCall(bn BuiltIn, arg1, arg2 *Location) *Location {
	if bn < 0 || int(bn) >= len(builtins) {
		panic(fmt.Sprintf("tac: unknown builtin %d", int(bn)))
	}
	info := builtins[bn]
	n := 0
	if arg1 != nil {
		n++
	}
	if arg2 != nil {
		if arg1 == nil {
			panic(fmt.Sprintf("tac: %s: second argument without first", info.label))
		}
		n++
	}
	if n != info.numArgs {
		panic(fmt.Sprintf("tac: %s takes %d arguments, got %d", info.label, info.numArgs, n))
	}

	var result *Location
	if info.hasReturn {
		result = b.GenTempVar()
	}
	if arg2 != nil {
		b.GenPushParam(arg2)
	}
	if arg1 != nil {
		b.GenPushParam(arg1)
	}
	b.emit(LCall{Label: info.label, Result: result})
	b.GenPopParams(VarSize * info.numArgs)
	return result
}

// GenVTable declares the method table of a class.
func (b *Builder) GenVTable(className string, methodLabels []string) {
	b.emit(VTable{Class: className, Methods: methodLabels})
}

// --- Composite sequences ---

// GenArrayLen loads the length word stored just before the elements.
func (b *Builder) GenArrayLen(array *Location) *Location {
	return b.GenLoad(array, -VarSize)
}

// GenNew allocates an object and stores its vtable pointer.
func (b *Builder) GenNew(vTableLabel string, instanceSize int) *Location {
	size := b.GenLoadConstant(instanceSize)
	result := b.GenBuiltInCall(Alloc, size, nil)
	vt := b.GenLoadLabel(vTableLabel)
	b.GenStore(result, vt, 0)
	return result
}

// GenDynamicDispatch calls the method at vtableOffset in rcvr's vtable.
func (b *Builder) GenDynamicDispatch(rcvr *Location, vtableOffset int, args []*Location, hasReturn bool) *Location {
	vptr := b.GenLoad(rcvr, 0)
	m := b.GenLoad(vptr, vtableOffset*VarSize)
	return b.GenMethodCall(rcvr, m, args, hasReturn)
}

// GenSubscript emits a bounds check and returns a reference to
// array[index].
func (b *Builder) GenSubscript(array, index *Location) *Location {
	zero := b.GenLoadConstant(0)
	isNegative := b.GenBinaryOp(Less, index, zero)
	count := b.GenLoad(array, -VarSize)
	isWithinRange := b.GenBinaryOp(Less, index, count)
	pastEnd := b.GenBinaryOp(Eq, isWithinRange, zero)
	outOfRange := b.GenBinaryOp(Or, isNegative, pastEnd)
	pastError := b.NewLabel()
	b.GenIfZ(outOfRange, pastError)
	b.GenHaltWithMessage(ErrArrOutOfBounds)
	b.GenLabel(pastError)
	four := b.GenLoadConstant(VarSize)
	offset := b.GenBinaryOp(Mul, four, index)
	elem := b.GenBinaryOp(Add, array, offset)
	return b.GenIndirect(elem, 0)
}

// GenNewArray allocates numElems words plus a length header and returns
// the address of the first element.
func (b *Builder) GenNewArray(numElems *Location) *Location {
	one := b.GenLoadConstant(1)
	isNonpositive := b.GenBinaryOp(Less, numElems, one)
	pastError := b.NewLabel()
	b.GenIfZ(isNonpositive, pastError)
	b.GenHaltWithMessage(ErrArrBadSize)
	b.GenLabel(pastError)

	arraySize := b.GenLoadConstant(1)
	num := b.GenBinaryOp(Add, arraySize, numElems)
	four := b.GenLoadConstant(VarSize)
	bytes := b.GenBinaryOp(Mul, num, four)
	result := b.GenBuiltInCall(Alloc, bytes, nil)
	b.GenStore(result, numElems, 0)
	return b.GenBinaryOp(Add, result, four)
}

// GenHaltWithMessage prints message and halts the program.
func (b *Builder) GenHaltWithMessage(message string) {
	msg := b.GenLoadString(message)
	b.GenBuiltInCall(PrintString, msg, nil)
	b.GenBuiltInCall(Halt, nil, nil)
}
