package server

import (
	"testing"

	"github.com/nalgeon/be"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ---------------------------------------------------------------------------
// Text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"end of word", "escreve verd", protocol.Position{Line: 0, Character: 12}, "verd"},
		{"whole line", "esc", protocol.Position{Line: 0, Character: 3}, "esc"},
		{"empty", "", protocol.Position{Line: 0, Character: 0}, ""},
		{"second line", "escreve 1;\nes", protocol.Position{Line: 1, Character: 2}, "es"},
		{"after paren", "escreve (na", protocol.Position{Line: 0, Character: 11}, "na"},
		{"cursor at start", "escreve", protocol.Position{Line: 0, Character: 0}, ""},
		{"line beyond document", "escreve 1;", protocol.Position{Line: 5, Character: 0}, ""},
		{"column past line end", "ou", protocol.Position{Line: 0, Character: 40}, "ou"},
		{"accented word", "escreve não", protocol.Position{Line: 0, Character: 11}, "não"},
		{"after astral character", "\"😀\" e ver", protocol.Position{Line: 0, Character: 10}, "ver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be.Equal(t, extractPrefix(tt.text, tt.pos), tt.want)
		})
	}
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

func TestCompleteAt_Keywords(t *testing.T) {
	items := completeAt("escreve ver", protocol.Position{Line: 0, Character: 11})
	be.Equal(t, len(items), 1)
	be.Equal(t, items[0].Label, "verdadeiro")
	be.Equal(t, *items[0].Kind, protocol.CompletionItemKindKeyword)
}

func TestCompleteAt_NoPrefix(t *testing.T) {
	items := completeAt("escreve ", protocol.Position{Line: 0, Character: 8})
	be.Equal(t, len(items), 0)
}

func TestCompleteAt_CompleteWordNotOffered(t *testing.T) {
	items := completeAt("escreve", protocol.Position{Line: 0, Character: 7})
	be.Equal(t, len(items), 0)
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestDiagnosticsFor_CleanDocument(t *testing.T) {
	diags := diagnosticsFor("escreve 1 + 2;\n")
	be.True(t, diags != nil)
	be.Equal(t, len(diags), 0)
}

func TestDiagnosticsFor_TypeError(t *testing.T) {
	diags := diagnosticsFor("escreve 1;\nescreve 5 % 2.0;\n")
	be.Equal(t, len(diags), 1)

	d := diags[0]
	be.Equal(t, d.Range.Start.Line, protocol.UInteger(1))
	be.Equal(t, d.Range.Start.Character, protocol.UInteger(8))
	be.Equal(t, *d.Severity, protocol.DiagnosticSeverityError)
	be.Equal(t, *d.Source, "tuga-lsp/type")
	be.Equal(t, d.Message, "operator '%' cannot be applied to 'inteiro' and 'real'")
}

func TestDiagnosticsFor_SyntaxError(t *testing.T) {
	diags := diagnosticsFor("escreve 1\n")
	be.True(t, len(diags) > 0)
	be.Equal(t, *diags[0].Source, "tuga-lsp/syntax")
}

func TestDiagnosticsFor_CountsUTF16Units(t *testing.T) {
	// The emoji is one rune but two UTF-16 code units.
	diags := diagnosticsFor("escreve \"😀\" % 2;\n")
	be.Equal(t, len(diags), 1)
	be.Equal(t, diags[0].Range.Start.Character, protocol.UInteger(8))
	be.Equal(t, diags[0].Range.End.Character, protocol.UInteger(16))
}

func TestDiagnosticsFor_LexicalErrorWins(t *testing.T) {
	diags := diagnosticsFor("escreve @;\n")
	be.True(t, len(diags) > 0)
	be.Equal(t, *diags[0].Source, "tuga-lsp/lexical")
	be.Equal(t, diags[0].Range.Start.Character, protocol.UInteger(8))
}

// ---------------------------------------------------------------------------
// Hover
// ---------------------------------------------------------------------------

func TestHoverAt_InnermostExpression(t *testing.T) {
	text := "escreve 1 + 2.5;"

	h := hoverAt(text, protocol.Position{Line: 0, Character: 8})
	be.True(t, h != nil)
	be.Equal(t, h.Contents.(protocol.MarkupContent).Value, "`inteiro`")

	h = hoverAt(text, protocol.Position{Line: 0, Character: 10})
	be.True(t, h != nil)
	be.Equal(t, h.Contents.(protocol.MarkupContent).Value, "`real`")
}

func TestHoverAt_OutsideExpression(t *testing.T) {
	h := hoverAt("escreve verdadeiro;", protocol.Position{Line: 0, Character: 2})
	be.True(t, h == nil)
}

func TestHoverAt_TypeErrorStillAnnotates(t *testing.T) {
	h := hoverAt("escreve 5 % 2.0;", protocol.Position{Line: 0, Character: 9})
	be.True(t, h != nil)
	be.Equal(t, h.Contents.(protocol.MarkupContent).Value, "`erro`")
}

func TestHoverAt_SyntaxErrorHasNoTypes(t *testing.T) {
	h := hoverAt("escreve 1 +;", protocol.Position{Line: 0, Character: 8})
	be.True(t, h == nil)
}

func TestHoverAt_AfterAstralCharacter(t *testing.T) {
	// "😀" with its quotes spans UTF-16 characters 8 to 12, so 1 sits at 15.
	text := "escreve \"😀\" + 1;"

	h := hoverAt(text, protocol.Position{Line: 0, Character: 15})
	be.True(t, h != nil)
	be.Equal(t, h.Contents.(protocol.MarkupContent).Value, "`inteiro`")
	be.Equal(t, h.Range.Start.Character, protocol.UInteger(15))
	be.Equal(t, h.Range.End.Character, protocol.UInteger(16))

	h = hoverAt(text, protocol.Position{Line: 0, Character: 10})
	be.True(t, h != nil)
	be.Equal(t, h.Contents.(protocol.MarkupContent).Value, "`string`")
	be.Equal(t, h.Range.Start.Character, protocol.UInteger(8))
	be.Equal(t, h.Range.End.Character, protocol.UInteger(12))
}

func TestHoverAt_LineBeyondDocument(t *testing.T) {
	h := hoverAt("escreve 1;", protocol.Position{Line: 3, Character: 8})
	be.True(t, h == nil)
}
