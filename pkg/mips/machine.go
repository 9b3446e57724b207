package mips

import (
	"errors"
	"fmt"
	"os"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
)

// Environment variables read by FromEnv.
const (
	EnvRegisters = "TACALLOC_REGISTERS"
	EnvMachine   = "TACALLOC_MACHINE"
)

// ErrBadMachine is returned for machine descriptions that cannot be used.
var ErrBadMachine = errors.New("invalid machine description")

// Machine is the target parameter of the allocator: an ordered pool of
// K general-purpose registers. Register selection walks Pool in order.
type Machine struct {
	Name string
	Pool []Register
}

// Default returns the standard MIPS machine with 18 allocatable registers.
func Default() *Machine {
	pool := make([]Register, len(GeneralPurpose))
	copy(pool, GeneralPurpose)
	return &Machine{Name: "mips32", Pool: pool}
}

// K returns the number of allocatable registers.
func (m *Machine) K() int {
	return len(m.Pool)
}

// WithRegisters returns a copy restricted to the first k pool registers.
// k larger than the pool is an error: the machine has no more registers.
func (m *Machine) WithRegisters(k int) (*Machine, error) {
	if k < 0 || k > len(m.Pool) {
		return nil, fmt.Errorf("%w: %d registers requested, pool has %d", ErrBadMachine, k, len(m.Pool))
	}
	pool := make([]Register, k)
	copy(pool, m.Pool[:k])
	return &Machine{Name: m.Name, Pool: pool}, nil
}

// Index returns the position of r in the pool, or -1.
func (m *Machine) Index(r Register) int {
	for i, p := range m.Pool {
		if p == r {
			return i
		}
	}
	return -1
}

// machineFile is the YAML layout of a machine description.
type machineFile struct {
	Name      string   `yaml:"name"`
	Registers []string `yaml:"registers"`
}

// ParseMachine decodes a YAML machine description:
//
//	name: mips32
//	registers: [t0, t1, t2]
func ParseMachine(data []byte) (*Machine, error) {
	var f machineFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMachine, err)
	}
	m := &Machine{Name: f.Name}
	if m.Name == "" {
		m.Name = "mips32"
	}
	seen := make(map[Register]bool)
	for _, name := range f.Registers {
		r, err := ParseRegister(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadMachine, err)
		}
		if seen[r] {
			return nil, fmt.Errorf("%w: register %s listed twice", ErrBadMachine, r)
		}
		if r == Zero || r == SP || r == FP || r == RA || r == GP {
			return nil, fmt.Errorf("%w: register %s is reserved", ErrBadMachine, r)
		}
		seen[r] = true
		m.Pool = append(m.Pool, r)
	}
	return m, nil
}

// LoadMachine reads a machine description from a YAML file.
func LoadMachine(path string) (*Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMachine(data)
}

// FromEnv builds the machine from the environment: TACALLOC_MACHINE names
// a description file (the default machine otherwise) and TACALLOC_REGISTERS
// limits the pool size.
func FromEnv() (*Machine, error) {
	m, err := BaseFromEnv()
	if err != nil {
		return nil, err
	}
	return m.RegistersFromEnv()
}

// BaseFromEnv loads the description TACALLOC_MACHINE names, or Default.
// env caches the environment, so it is reloaded on every call.
func BaseFromEnv() (*Machine, error) {
	env.Load()
	if path := env.Str(EnvMachine); path != "" {
		return LoadMachine(path)
	}
	return Default(), nil
}

// RegistersFromEnv restricts m to TACALLOC_REGISTERS registers when it is
// set. m is returned unchanged otherwise.
func (m *Machine) RegistersFromEnv() (*Machine, error) {
	env.Load()
	k := env.Int(EnvRegisters, m.K())
	if k == m.K() {
		return m, nil
	}
	return m.WithRegisters(k)
}
