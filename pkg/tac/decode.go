package tac

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrBadProgram is returned when a YAML program cannot be turned into TAC.
var ErrBadProgram = errors.New("bad TAC program")

// programFile is the YAML layout of a TAC program:
//
//	globals: [count]
//	code:
//	  - {op: label, label: main}
//	  - {op: begin_func}
//	  - {op: const, dst: t1, value: 5}
//	  - {op: binop, operator: "+", dst: t2, src: [t1, count]}
//	  - {op: return, src: [t2]}
//	  - {op: end_func}
type programFile struct {
	Globals []string         `yaml:"globals"`
	Code    []instructionRec `yaml:"code"`
}

type instructionRec struct {
	Op       string   `yaml:"op"`
	Dst      string   `yaml:"dst,omitempty"`
	Src      []string `yaml:"src,omitempty"`
	Label    string   `yaml:"label,omitempty"`
	Value    int      `yaml:"value,omitempty"`
	Str      string   `yaml:"str,omitempty"`
	Operator string   `yaml:"operator,omitempty"`
	Offset   int      `yaml:"offset,omitempty"`
	Bytes    int      `yaml:"bytes,omitempty"`
	Params   []string `yaml:"params,omitempty"`
	Name     string   `yaml:"name,omitempty"`
	Methods  []string `yaml:"methods,omitempty"`
}

// DecodeFile reads a YAML program from path.
func DecodeFile(path string, names *Namer) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, names)
}

// Decode reads a YAML program. Operand names resolve to one Location per
// function body; names listed under globals are shared by every function.
// A name written as *p or *p+8 is an indirect reference through p.
func Decode(r io.Reader, names *Namer) (*Program, error) {
	var f programFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &Program{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrBadProgram, err)
	}

	d := &decoder{
		b:       NewBuilder(names),
		globals: make(map[string]*Location),
		locals:  make(map[string]*Location),
	}
	for _, g := range f.Globals {
		if _, dup := d.globals[g]; dup {
			return nil, fmt.Errorf("%w: global %q declared twice", ErrBadProgram, g)
		}
		d.globals[g] = d.b.GenGlobalVariable(g)
	}
	for i, rec := range f.Code {
		if err := d.instruction(rec); err != nil {
			return nil, fmt.Errorf("%w: code[%d] (%s): %v", ErrBadProgram, i, rec.Op, err)
		}
	}
	return d.b.Program(), nil
}

type decoder struct {
	b       *Builder
	globals map[string]*Location
	locals  map[string]*Location
}

// loc resolves an operand name, creating a frame slot on first use.
func (d *decoder) loc(name string) (*Location, error) {
	if name == "" {
		return nil, errors.New("empty operand")
	}
	if l, ok := d.locals[name]; ok {
		return l, nil
	}
	if l, ok := d.globals[name]; ok {
		return l, nil
	}
	if strings.HasPrefix(name, "*") {
		baseName, offset, err := splitIndirect(name[1:])
		if err != nil {
			return nil, err
		}
		base, err := d.loc(baseName)
		if err != nil {
			return nil, err
		}
		l := d.b.GenIndirect(base, offset)
		d.locals[name] = l
		return l, nil
	}
	l := d.b.GenLocalVariable(name)
	d.locals[name] = l
	return l, nil
}

func splitIndirect(s string) (string, int, error) {
	base, off, found := strings.Cut(s, "+")
	if !found {
		return strings.TrimSpace(base), 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(off))
	if err != nil {
		return "", 0, fmt.Errorf("bad offset in *%s", s)
	}
	return strings.TrimSpace(base), n, nil
}

// optLoc resolves a name that may be absent.
func (d *decoder) optLoc(name string) (*Location, error) {
	if name == "" {
		return nil, nil
	}
	return d.loc(name)
}

func (d *decoder) srcs(rec instructionRec, n int) ([]*Location, error) {
	if len(rec.Src) != n {
		return nil, fmt.Errorf("want %d source operands, got %d", n, len(rec.Src))
	}
	locs := make([]*Location, n)
	for i, name := range rec.Src {
		l, err := d.loc(name)
		if err != nil {
			return nil, err
		}
		locs[i] = l
	}
	return locs, nil
}

func (d *decoder) instruction(rec instructionRec) error {
	b := d.b
	switch rec.Op {
	case "label":
		if rec.Label == "" {
			return errors.New("missing label")
		}
		b.GenLabel(rec.Label)
	case "goto":
		if rec.Label == "" {
			return errors.New("missing label")
		}
		b.GenGoto(rec.Label)
	case "ifz":
		if rec.Label == "" {
			return errors.New("missing label")
		}
		src, err := d.srcs(rec, 1)
		if err != nil {
			return err
		}
		b.GenIfZ(src[0], rec.Label)
	case "begin_func":
		d.locals = make(map[string]*Location)
		b.GenBeginFunc()
		for i, p := range rec.Params {
			if _, dup := d.locals[p]; dup {
				return fmt.Errorf("parameter %q declared twice", p)
			}
			d.locals[p] = b.GenParameter(i, p)
		}
	case "end_func":
		b.GenEndFunc()
	case "assign", "load", "store":
		src, err := d.srcs(rec, 1)
		if err != nil {
			return err
		}
		dst, err := d.loc(rec.Dst)
		if err != nil {
			return err
		}
		switch rec.Op {
		case "assign":
			b.GenAssign(dst, src[0])
		case "load":
			b.emit(Load{Dst: dst, Src: src[0], Offset: rec.Offset})
		default:
			b.GenStore(dst, src[0], rec.Offset)
		}
	case "binop":
		code, ok := OpCodeForName(rec.Operator)
		if !ok {
			return fmt.Errorf("unknown operator %q", rec.Operator)
		}
		src, err := d.srcs(rec, 2)
		if err != nil {
			return err
		}
		dst, err := d.loc(rec.Dst)
		if err != nil {
			return err
		}
		b.emit(BinaryOp{Code: code, Dst: dst, Op1: src[0], Op2: src[1]})
	case "const", "string", "load_label":
		dst, err := d.loc(rec.Dst)
		if err != nil {
			return err
		}
		switch rec.Op {
		case "const":
			b.emit(LoadConstant{Dst: dst, Value: rec.Value})
		case "string":
			b.emit(LoadStringConstant{Dst: dst, Str: rec.Str})
		default:
			b.emit(LoadLabel{Dst: dst, Label: rec.Label})
		}
	case "push_param":
		src, err := d.srcs(rec, 1)
		if err != nil {
			return err
		}
		b.GenPushParam(src[0])
	case "pop_params":
		if rec.Bytes < 0 || rec.Bytes%VarSize != 0 {
			return fmt.Errorf("pop of %d bytes is not a whole number of slots", rec.Bytes)
		}
		b.GenPopParams(rec.Bytes)
	case "lcall":
		if rec.Label == "" {
			return errors.New("missing label")
		}
		result, err := d.optLoc(rec.Dst)
		if err != nil {
			return err
		}
		b.emit(LCall{Label: rec.Label, Result: result})
	case "acall":
		src, err := d.srcs(rec, 1)
		if err != nil {
			return err
		}
		result, err := d.optLoc(rec.Dst)
		if err != nil {
			return err
		}
		b.emit(ACall{Addr: src[0], Result: result})
	case "return":
		if len(rec.Src) > 1 {
			return fmt.Errorf("return takes at most one operand, got %d", len(rec.Src))
		}
		var val *Location
		if len(rec.Src) == 1 {
			var err error
			if val, err = d.loc(rec.Src[0]); err != nil {
				return err
			}
		}
		b.GenReturn(val)
	case "vtable":
		if rec.Name == "" {
			return errors.New("missing class name")
		}
		b.GenVTable(rec.Name, rec.Methods)
	default:
		return fmt.Errorf("unknown op %q", rec.Op)
	}
	return nil
}
