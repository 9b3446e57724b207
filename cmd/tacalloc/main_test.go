package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/raymyers/tacalloc/pkg/mips"
	"github.com/spf13/cobra"
)

const addChain = `code:
  - {op: label, label: main}
  - {op: begin_func}
  - {op: const, dst: t1, value: 5}
  - {op: const, dst: one, value: 1}
  - {op: binop, operator: "+", dst: t2, src: [t1, one]}
  - {op: push_param, src: [t2]}
  - {op: push_param, src: [t1]}
  - {op: end_func}
`

func writeProgram(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(normalizeFlags(args))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestDebugFlagsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)

	expectedFlags := []string{"dtac", "dlive", "dinterf", "dregs", "machine", "registers", "verbose", "log-format", "log-file"}
	for _, flagName := range expectedFlags {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("expected flag --%s to exist", flagName)
		}
	}
}

func TestNoArgsPrintsHelp(t *testing.T) {
	out, _, err := execute(t)
	if err != nil {
		t.Fatalf("expected no error without arguments, got %v", err)
	}
	if !strings.Contains(out, "Usage:") {
		t.Errorf("expected help output, got %q", out)
	}
}

func TestDefaultOutputIsRegisterMap(t *testing.T) {
	out, _, err := execute(t, "-k", "1", writeProgram(t, addChain))
	if err != nil {
		t.Fatalf("tacalloc failed: %v", err)
	}
	if !strings.Contains(out, "\tPushParam t2 ;\t# $t0=t2\n") {
		t.Errorf("expected annotated PushParam, got:\n%s", out)
	}
}

func TestStdinInput(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetIn(strings.NewReader(addChain))
	cmd.SetArgs([]string{"--dtac", "-"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("tacalloc failed: %v\nStderr: %s", err, errOut.String())
	}
	if !strings.Contains(out.String(), "\tBeginFunc 12 ;") {
		t.Errorf("expected TAC dump from stdin, got:\n%s", out.String())
	}
}

func TestMissingFile(t *testing.T) {
	_, errOut, err := execute(t, filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.HasPrefix(errOut, "tacalloc: error: ") {
		t.Errorf("stderr = %q, want tacalloc: error prefix", errOut)
	}
}

func TestBadLogFormat(t *testing.T) {
	_, _, err := execute(t, "--log-format", "xml", writeProgram(t, addChain))
	if !errors.Is(err, ErrBadFlag) {
		t.Errorf("err = %v, want ErrBadFlag", err)
	}
}

func TestVerboseJSONLogs(t *testing.T) {
	_, errOut, err := execute(t, "-v", "--log-format", "json", "-k", "1", writeProgram(t, addChain))
	if err != nil {
		t.Fatalf("tacalloc failed: %v", err)
	}
	for _, want := range []string{`"msg":"loaded program"`, `"registers":1`, `"function":"main"`, `"spilled":1`} {
		if !strings.Contains(errOut, want) {
			t.Errorf("log output missing %s:\n%s", want, errOut)
		}
	}
}

func TestQuietByDefault(t *testing.T) {
	_, errOut, err := execute(t, writeProgram(t, addChain))
	if err != nil {
		t.Fatalf("tacalloc failed: %v", err)
	}
	if errOut != "" {
		t.Errorf("expected no log output without -v, got %q", errOut)
	}
}

func TestLogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.log")
	_, errOut, err := execute(t, "-v", "--log-file", logPath, writeProgram(t, addChain))
	if err != nil {
		t.Fatalf("tacalloc failed: %v", err)
	}
	if errOut != "" {
		t.Errorf("logs should go to the file, stderr got %q", errOut)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "function=main") {
		t.Errorf("log file missing function record:\n%s", data)
	}
}

func TestLoadMachine(t *testing.T) {
	machinePath := filepath.Join(t.TempDir(), "machine.yaml")
	if err := os.WriteFile(machinePath, []byte("name: tiny\nregisters: [s0, s1, t5]\n"), 0644); err != nil {
		t.Fatalf("failed to write machine file: %v", err)
	}

	tests := []struct {
		name string
		args []string
		env  map[string]string
		want []mips.Register
	}{
		{
			name: "default",
			want: mips.GeneralPurpose,
		},
		{
			name: "registers flag",
			args: []string{"-k", "2"},
			want: []mips.Register{mips.T0, mips.T1},
		},
		{
			name: "machine flag",
			args: []string{"--machine", machinePath},
			want: []mips.Register{mips.S0, mips.S1, mips.T5},
		},
		{
			name: "machine and registers flags",
			args: []string{"--machine", machinePath, "--registers", "1"},
			want: []mips.Register{mips.S0},
		},
		{
			name: "environment",
			env:  map[string]string{mips.EnvMachine: machinePath, mips.EnvRegisters: "2"},
			want: []mips.Register{mips.S0, mips.S1},
		},
		{
			name: "flag beats environment",
			args: []string{"-k", "3"},
			env:  map[string]string{mips.EnvRegisters: "1"},
			want: []mips.Register{mips.T0, mips.T1, mips.T2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			var got *mips.Machine
			var out, errOut bytes.Buffer
			cmd := newRootCmd(&out, &errOut)
			cmd.RunE = func(cmd *cobra.Command, args []string) error {
				var err error
				got, err = loadMachine(cmd)
				return err
			}
			cmd.SetArgs(tt.args)
			if err := cmd.Execute(); err != nil {
				t.Fatalf("loadMachine failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got.Pool); diff != "" {
				t.Errorf("pool mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeFlags(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "single-dash dlive",
			input:    []string{"-dlive", "prog.yaml"},
			expected: []string{"--dlive", "prog.yaml"},
		},
		{
			name:     "double-dash dregs unchanged",
			input:    []string{"--dregs", "prog.yaml"},
			expected: []string{"--dregs", "prog.yaml"},
		},
		{
			name:     "mixed flags",
			input:    []string{"-dtac", "-k", "4", "-dinterf", "prog.yaml"},
			expected: []string{"--dtac", "-k", "4", "--dinterf", "prog.yaml"},
		},
		{
			name:     "short flags untouched",
			input:    []string{"-v", "-"},
			expected: []string{"-v", "-"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.expected, normalizeFlags(tt.input)); diff != "" {
				t.Errorf("normalizeFlags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
