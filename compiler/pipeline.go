package compiler

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/tuga/pkg/bytecode"
)

// Stage names the compiler stage that rejected a program.
type Stage int

const (
	StageLexical Stage = iota
	StageSyntax
	StageType
	StageCodegen
)

func (s Stage) String() string {
	switch s {
	case StageLexical:
		return "lexical"
	case StageSyntax:
		return "syntax"
	case StageType:
		return "type"
	case StageCodegen:
		return "codegen"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// StageError reports that compilation stopped at Stage. Its message is the
// category line printed to the user; Diagnostics holds the detail.
type StageError struct {
	Stage       Stage
	Diagnostics []Diagnostic
	Err         error // underlying error for StageCodegen
}

func (e *StageError) Error() string {
	switch e.Stage {
	case StageLexical:
		return "Input has lexical errors"
	case StageSyntax:
		return "Input has parsing errors"
	case StageType:
		return "Input has type checking errors"
	}
	return fmt.Sprintf("code generation failed: %v", e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Options controls per-stage error detail. Each Show flag prints that
// stage's diagnostics to Out as they are reported.
type Options struct {
	ShowLexerErrors  bool
	ShowParserErrors bool
	ShowTypeErrors   bool
	Out              io.Writer // defaults to os.Stdout
}

// Result is a successful compilation.
type Result struct {
	AST     *Program
	Types   TypeMap
	Program *bytecode.Program
}

// Check runs the front end (lex, parse, analyze) without generating code.
// The partial result is returned alongside a StageError so that tools can
// still inspect whatever was built.
func Check(source string, opts Options) (*Result, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	ast, parser := Parse(source)
	res := &Result{AST: ast}

	if errs := parser.LexErrors(); len(errs) > 0 {
		log.Debugf("%d lexical errors", len(errs))
		if opts.ShowLexerErrors {
			printDiagnostics(opts.Out, errs)
		}
		return res, &StageError{Stage: StageLexical, Diagnostics: errs}
	}
	if errs := parser.SyntaxErrors(); len(errs) > 0 {
		log.Debugf("%d syntax errors", len(errs))
		if opts.ShowParserErrors {
			printDiagnostics(opts.Out, errs)
		}
		return res, &StageError{Stage: StageSyntax, Diagnostics: errs}
	}

	analyzer := NewSemanticAnalyzer(AnalyzerOptions{ShowErrors: opts.ShowTypeErrors, Out: opts.Out})
	res.Types = analyzer.Analyze(ast)
	if analyzer.HasErrors() {
		diags := make([]Diagnostic, len(analyzer.TypeErrors()))
		for i, e := range analyzer.TypeErrors() {
			diags[i] = e.Diagnostic()
		}
		return res, &StageError{Stage: StageType, Diagnostics: diags}
	}

	return res, nil
}

// Compile runs the whole pipeline, gating each stage on the previous one.
func Compile(source string, opts Options) (*Result, error) {
	res, err := Check(source, opts)
	if err != nil {
		return res, err
	}

	prog, err := Generate(res.AST, res.Types)
	if err != nil {
		diag := Diagnostic{Msg: err.Error()}
		var cg *CodegenError
		if errors.As(err, &cg) {
			diag = Diagnostic{Pos: cg.Span.Start, End: cg.Span.End, Msg: cg.Msg}
		}
		return res, &StageError{Stage: StageCodegen, Diagnostics: []Diagnostic{diag}, Err: err}
	}
	res.Program = prog
	return res, nil
}

func printDiagnostics(w io.Writer, diags []Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.String())
	}
}
