package compiler

import (
	"testing"

	"github.com/chazu/tuga/pkg/bytecode"
)

var fuzzSeeds = []string{
	// Tokens
	`( ) ; + - * / % < <= > >=`,
	`42`, `0`, `3.14`, `0.5`, `1.`, `.5`,
	`"ola"`, `""`, `"unterminated`,
	`escreve`, `verdadeiro`, `falso`, `e`, `ou`, `nao`, `igual`, `diferente`,
	`foo`, `Escreve`,
	// Comments
	"// comment\nescreve 1;", "/* block */", "/* unterminated",
	// Programs
	`escreve 1 + 2;`,
	`escreve (1 + 2) * 3.0;`,
	`escreve "a" + 1 + verdadeiro;`,
	`escreve nao (1 < 2) e 3 >= 2.5 ou falso;`,
	`escreve 1 igual 1.0; escreve "a" diferente "b";`,
	`escreve 5 % 2.0;`,
	`escreve 10 / 0;`,
	`escreve 99999999999;`,
	`escreve 2147483648;`,
	`escreve - - 1;`,
	// Broken
	``, `;`, `escreve`, `escreve ;`, `escreve (1;`, `escreve 1 +;`, `)))`,
	// Unicode
	`escreve "olá";`, `escreve @;`, "\x00",
}

// FuzzLexer ensures the lexer never panics and always reaches EOF.
func FuzzLexer(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		l := NewLexer(data)
		for i := 0; i <= len(data)+1; i++ {
			if l.NextToken().Type == TokenEOF {
				return
			}
		}
		t.Fatalf("lexer made no progress on %q", data)
	})
}

// FuzzCompile ensures the pipeline never panics, that every successful
// compilation annotates every expression and ends in halt, and that its
// bytecode survives encoding.
func FuzzCompile(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data string) {
		res, err := Compile(data, Options{})
		if err != nil {
			return
		}
		if missing := res.Types.Missing(res.AST); len(missing) > 0 {
			t.Fatalf("%d expressions without a type in %q", len(missing), data)
		}
		code := res.Program.Code
		if len(code) == 0 || code[len(code)-1].Op != bytecode.OpHalt {
			t.Fatalf("program for %q does not end in halt", data)
		}
		bin, err := res.Program.MarshalBinary()
		if err != nil {
			t.Fatalf("encoding %q: %v", data, err)
		}
		var back bytecode.Program
		if err := back.UnmarshalBinary(bin); err != nil {
			t.Fatalf("decoding %q: %v", data, err)
		}
		if len(back.Code) != len(code) {
			t.Fatalf("decoded %d instructions, want %d", len(back.Code), len(code))
		}
	})
}
