package integration

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"

	"github.com/chazu/tuga/compiler"
	"github.com/chazu/tuga/pkg/bytecode"
	"github.com/chazu/tuga/vm"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// compile compiles source or fails the test.
func compile(t *testing.T, source string) *bytecode.Program {
	t.Helper()
	res, err := compiler.Compile(source, compiler.Options{})
	be.Err(t, err, nil)
	return res.Program
}

// runProgram executes prog with its texts in file form and returns its
// output and run error.
func runProgram(prog *bytecode.Program) (string, error) {
	var out bytes.Buffer
	m := vm.New(prog.FileForm())
	m.SetOutput(&out)
	err := m.Run()
	return out.String(), err
}

// runFile writes prog to a bytecode file, loads it back and executes it.
func runFile(t *testing.T, prog *bytecode.Program) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bytecodes")
	be.Err(t, prog.WriteFile(path), nil)

	m, err := vm.LoadFile(path)
	be.Err(t, err, nil)
	var out bytes.Buffer
	m.SetOutput(&out)
	err = m.Run()
	return out.String(), err
}

var programs = map[string]string{
	"mixed arithmetic": `
escreve 1 + 2 * 3;
escreve (1 + 2) * 3;
escreve 7 / 2 + 0.5;
escreve -(4 - 10) % 4;
`,
	"comparisons": `
escreve 3 > 2;
escreve 2 >= 3;
escreve 1.5 < 2;
escreve 0.1 + 0.2 igual 0.3;
escreve "a" diferente "b";
escreve verdadeiro igual nao falso;
`,
	"text building": `
escreve "total: " + 10;
escreve "media: " + 7 / 2.0;
escreve "ok: " + (1 < 2);
escreve "";
`,
	"logic": `
escreve verdadeiro e falso ou verdadeiro;
escreve nao (1 igual 1) ou 2 diferente 2;
`,
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestBytecodeFileRunsLikeTheCompiledProgram(t *testing.T) {
	for name, source := range programs {
		t.Run(name, func(t *testing.T) {
			prog := compile(t, source)

			want, err := runProgram(prog)
			be.Err(t, err, nil)
			got, err := runFile(t, prog)
			be.Err(t, err, nil)
			be.Equal(t, got, want)
		})
	}
}

func TestListingRunsLikeTheBytecodeFile(t *testing.T) {
	for name, source := range programs {
		t.Run(name, func(t *testing.T) {
			prog := compile(t, source)

			data, err := bytecode.MarshalListing(prog, nil)
			be.Err(t, err, nil)
			l, err := bytecode.UnmarshalListing(data)
			be.Err(t, err, nil)
			fromListing, err := l.Program()
			be.Err(t, err, nil)

			want, err := runFile(t, prog)
			be.Err(t, err, nil)
			got, err := runProgram(fromListing)
			be.Err(t, err, nil)
			be.Equal(t, got, want)
		})
	}
}

func TestExpectedOutput(t *testing.T) {
	out, err := runFile(t, compile(t, programs["mixed arithmetic"]))
	be.Err(t, err, nil)
	be.Equal(t, out, "7\n9\n3.5\n2\n")

	out, err = runFile(t, compile(t, programs["text building"]))
	be.Err(t, err, nil)
	be.Equal(t, out, "total: 10\nmedia: 3.5\nok: verdadeiro\n\n")
}

func TestRuntimeFaultFromFile(t *testing.T) {
	prog := compile(t, "escreve \"antes\";\nescreve 5 % (3 - 3);\nescreve \"depois\";\n")
	out, err := runFile(t, prog)
	be.Err(t, err, vm.ErrModuloByZero)
	be.Equal(t, out, "antes\n")
}

func TestDecodedFileMatchesProgram(t *testing.T) {
	prog := compile(t, programs["comparisons"])
	path := filepath.Join(t.TempDir(), "bytecodes")
	be.Err(t, prog.WriteFile(path), nil)

	loaded, err := bytecode.ReadFile(path)
	be.Err(t, err, nil)
	be.Equal(t, loaded.Code, prog.Code)
	be.Equal(t, len(loaded.Constants), len(prog.Constants))
	for i, c := range loaded.Constants {
		want := prog.Constants[i]
		if want.Kind == bytecode.ConstText {
			want = bytecode.TextConstant(bytecode.Unquote(want.Text))
		}
		be.True(t, c.Same(want))
	}
}
