// Package mdcase extracts Tuga test cases from Markdown documents.
//
// A test case starts at a heading of the form "Test: <name>". It holds one
// ```tuga fence with the program and one or more assertion fences:
//
//	output         expected program output, one line per print
//	compile-error  the category line, e.g. "Input has type checking errors"
//	runtime-error  the runtime error line, e.g. "runtime error: division by 0"
//	types          the type of each printed expression, one per line
//	bytecode       the instruction listing as printed by the disassembler
//
// Prose and fences without a language are ignored.
package mdcase

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// SourceLanguage is the fence language holding the program under test.
const SourceLanguage = "tuga"

// Kind is the kind of an assertion fence.
type Kind string

const (
	KindOutput       Kind = "output"
	KindCompileError Kind = "compile-error"
	KindRuntimeError Kind = "runtime-error"
	KindTypes        Kind = "types"
	KindBytecode     Kind = "bytecode"
)

var knownKinds = map[Kind]bool{
	KindOutput:       true,
	KindCompileError: true,
	KindRuntimeError: true,
	KindTypes:        true,
	KindBytecode:     true,
}

// Assertion is one expectation about a test case.
type Assertion struct {
	Kind    Kind
	Content string // fence body without its final newline
	Line    int    // line of the fence in the Markdown source
}

// Lines splits the content into lines; empty content has none.
func (a Assertion) Lines() []string {
	if a.Content == "" {
		return nil
	}
	return strings.Split(a.Content, "\n")
}

// TestCase is a program plus the assertions made about it.
type TestCase struct {
	Name       string
	Source     string
	Line       int
	Assertions []Assertion
}

// Assertion returns the first assertion of kind k.
func (tc *TestCase) Assertion(k Kind) (Assertion, bool) {
	for _, a := range tc.Assertions {
		if a.Kind == k {
			return a, true
		}
	}
	return Assertion{}, false
}

// Extract parses a Markdown document and returns its test cases in order.
func Extract(markdown []byte) ([]TestCase, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(markdown))

	var cases []TestCase
	var current *TestCase

	finish := func() error {
		if current == nil {
			return nil
		}
		if err := validate(current); err != nil {
			return err
		}
		cases = append(cases, *current)
		current = nil
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			title := nodeText(n, markdown)
			if !strings.HasPrefix(title, "Test: ") {
				return ast.WalkContinue, nil
			}
			if err := finish(); err != nil {
				return ast.WalkStop, err
			}
			current = &TestCase{
				Name: strings.TrimSpace(strings.TrimPrefix(title, "Test: ")),
				Line: lineOf(n, markdown),
			}

		case *ast.FencedCodeBlock:
			lang := string(n.Language(markdown))
			if lang == "" {
				return ast.WalkContinue, nil
			}
			line := lineOf(n, markdown)
			if current == nil {
				return ast.WalkStop, fmt.Errorf("line %d: %s fence outside of a test case", line, lang)
			}
			content := strings.TrimSuffix(fenceBody(n, markdown), "\n")

			switch {
			case lang == SourceLanguage:
				if current.Source != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple %s fences in test %q", line, lang, current.Name)
				}
				current.Source = content
			case knownKinds[Kind(lang)]:
				current.Assertions = append(current.Assertions, Assertion{Kind: Kind(lang), Content: content, Line: line})
			default:
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language %q in test %q", line, lang, current.Name)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("mdcase: %w", err)
	}
	if err := finish(); err != nil {
		return nil, fmt.Errorf("mdcase: %w", err)
	}
	return cases, nil
}

func validate(tc *TestCase) error {
	if tc.Source == "" {
		return fmt.Errorf("test %q has no %s fence", tc.Name, SourceLanguage)
	}
	if len(tc.Assertions) == 0 {
		return fmt.Errorf("test %q has no assertion fences", tc.Name)
	}
	_, compileErr := tc.Assertion(KindCompileError)
	_, output := tc.Assertion(KindOutput)
	_, runtimeErr := tc.Assertion(KindRuntimeError)
	if compileErr && (output || runtimeErr) {
		return fmt.Errorf("test %q expects a compile error and execution results", tc.Name)
	}
	return nil
}

func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func fenceBody(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

// lineOf returns the 1-based source line where node's content starts.
func lineOf(node ast.Node, source []byte) int {
	if node.Lines().Len() == 0 {
		return 1
	}
	start := node.Lines().At(0).Start
	return bytes.Count(source[:start], []byte("\n")) + 1
}
