package server

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/tuga/compiler"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "tuga-lsp"

var log = commonlog.GetLogger("tuga.lsp")

// LspServer serves Tuga documents to editors: diagnostics on every change,
// expression types on hover and keyword completion.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("Tuga LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.mu.Lock()
	s.docs = make(map[string]string)
	s.mu.Unlock()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.setDocument(uri, text)
	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.setDocument(uri, whole.Text)
			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) setDocument(uri protocol.DocumentUri, text string) {
	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return completeAt(text, params.Position), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return hoverAt(text, params.Position), nil
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := diagnosticsFor(text)
	log.Debugf("%s: %d diagnostics", uri, len(diagnostics))

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// compile runs the whole pipeline silently; detail printing would corrupt
// the stdio transport.
func compile(text string) (*compiler.Result, error) {
	return compiler.Compile(text, compiler.Options{Out: io.Discard})
}

// diagnosticsFor compiles text and converts every reported error into an
// LSP diagnostic. Only the first failing stage contributes.
func diagnosticsFor(text string) []protocol.Diagnostic {
	_, err := compile(text)
	if err == nil {
		return []protocol.Diagnostic{}
	}

	var stageErr *compiler.StageError
	if !errors.As(err, &stageErr) {
		return []protocol.Diagnostic{newDiagnostic(protocol.Range{}, "tuga", err.Error())}
	}

	source := lspName + "/" + stageErr.Stage.String()
	diagnostics := make([]protocol.Diagnostic, 0, len(stageErr.Diagnostics))
	for _, d := range stageErr.Diagnostics {
		end := d.End
		if end.Line == 0 {
			end = d.Pos
		}
		rng := protocol.Range{Start: toProtocol(text, d.Pos), End: toProtocol(text, end)}
		diagnostics = append(diagnostics, newDiagnostic(rng, source, d.Msg))
	}
	return diagnostics
}

func newDiagnostic(rng protocol.Range, source, msg string) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	return protocol.Diagnostic{
		Range:    rng,
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}

// toProtocol converts a compiler position in text to an LSP one, whose
// character counts UTF-16 code units. Positions the compiler could not
// attach clamp to the document start.
func toProtocol(text string, p compiler.Position) protocol.Position {
	if p.Line < 1 {
		return protocol.Position{}
	}
	off := min(p.Offset, len(text))
	lineStart := strings.LastIndexByte(text[:off], '\n') + 1
	return protocol.Position{
		Line:      protocol.UInteger(p.Line - 1),
		Character: protocol.UInteger(utf16Len(text[lineStart:off])),
	}
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// byteOffset converts an LSP position to a byte offset into text. Characters
// past the end of a line clamp to the line end; ok is false when the line
// is past the end of the document.
func byteOffset(text string, pos protocol.Position) (off int, ok bool) {
	if int(pos.Line) > strings.Count(text, "\n") {
		return 0, false
	}
	return pos.IndexIn(text + "\n"), true
}

// hoverAt shows the type of the innermost expression under the cursor.
// Types are only known once the document lexes and parses cleanly.
func hoverAt(text string, pos protocol.Position) *protocol.Hover {
	res, _ := compile(text)
	if res == nil || res.AST == nil || res.Types == nil {
		return nil
	}
	off, ok := byteOffset(text, pos)
	if !ok {
		return nil
	}
	expr := compiler.ExprAt(res.AST, off)
	if expr == nil {
		return nil
	}
	t := res.Types.Of(expr)
	if t == compiler.TypeNone {
		return nil
	}

	span := expr.Span()
	rng := protocol.Range{Start: toProtocol(text, span.Start), End: toProtocol(text, span.End)}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: fmt.Sprintf("`%s`", t),
		},
		Range: &rng,
	}
}

// completeAt offers the reserved words that start with the prefix before
// the cursor.
func completeAt(text string, pos protocol.Position) []protocol.CompletionItem {
	prefix := extractPrefix(text, pos)
	if prefix == "" {
		return nil
	}

	var items []protocol.CompletionItem
	for _, word := range compiler.Keywords() {
		if !strings.HasPrefix(word, prefix) || word == prefix {
			continue
		}
		kind := protocol.CompletionItemKindKeyword
		insert := word
		items = append(items, protocol.CompletionItem{
			Label:      word,
			Kind:       &kind,
			InsertText: &insert,
		})
	}
	return items
}

// --- Text extraction helpers ---

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	off, ok := byteOffset(text, pos)
	if !ok {
		return ""
	}
	lineStart := strings.LastIndexByte(text[:off], '\n') + 1

	// Walk backwards from cursor to find the start of the word
	start := off
	for start > lineStart {
		r, w := utf8.DecodeLastRuneInString(text[lineStart:start])
		if !isWordChar(r) {
			break
		}
		start -= w
	}
	return text[start:off]
}

func isWordChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

func boolPtr(b bool) *bool {
	return &b
}
