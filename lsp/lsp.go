// Package lsp is a language server that knows the operation table: it
// completes and describes operation names in any document and checks
// operation table files as they are edited.
package lsp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/oapi/optable"
)

const lspName = "oapi-lsp"

// Server bridges LSP editor features to an operation table.
type Server struct {
	table     *optable.Table
	tablePath string // file the table was loaded from, if any

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
	log     commonlog.Logger
}

// New creates a language server for table. tablePath, when set, is the
// table file definitions point into.
func New(table *optable.Table, tablePath string) *Server {
	if table == nil {
		table = optable.New()
	}
	s := &Server{
		table:     table,
		tablePath: tablePath,
		docs:      make(map[string]string),
		version:   "0.1.0",
		log:       commonlog.GetLogger("oapi.lsp"),
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
		TextDocumentDefinition: s.textDocumentDefinition,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)
	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *Server) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Infof("initializing with %d operations", s.table.Len())

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"."},
	}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *Server) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *Server) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return s.complete(prefix), nil
}

func (s *Server) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.hover(word), nil
}

func (s *Server) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	if loc := s.definition(word); loc != nil {
		return []protocol.Location{*loc}, nil
	}
	return nil, nil
}

// --- Table-backed logic ---

func (s *Server) complete(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	lowerPrefix := strings.ToLower(prefix)

	for _, op := range s.table.Ops() {
		if !strings.HasPrefix(strings.ToLower(op.Name), lowerPrefix) {
			continue
		}
		kind := protocol.CompletionItemKindMethod
		detail := op.String()
		name := op.Name
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &name,
		})
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func (s *Server) hover(word string) *protocol.Hover {
	op := s.table.Lookup(word)
	if op == nil {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n\n", op.Name)
	if op.Doc != "" {
		b.WriteString(op.Doc)
		b.WriteString("\n\n")
	}
	if len(op.Params) == 0 {
		b.WriteString("No parameters.\n")
	}
	for i, p := range op.Params {
		opt := ""
		if p.Optional {
			opt = " (optional)"
		}
		fmt.Fprintf(&b, "%d. `%s` %s `%s`%s\n", i+1, p.Name, p.Mode, p.Type(), opt)
	}
	fmt.Fprintf(&b, "\nGo wrapper: `Client.%s`", optable.GoName(op.Name))

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// definition finds the line declaring word in the table file.
func (s *Server) definition(word string) *protocol.Location {
	if s.tablePath == "" || s.table.Lookup(word) == nil {
		return nil
	}
	data, err := os.ReadFile(s.tablePath)
	if err != nil {
		return nil
	}
	quoted := fmt.Sprintf("%q", word)
	for i, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(key) != "name" || strings.TrimSpace(value) != quoted {
			continue
		}
		abs, err := filepath.Abs(s.tablePath)
		if err != nil {
			return nil
		}
		pos := protocol.Position{Line: protocol.UInteger(i), Character: 0}
		return &protocol.Location{
			URI:   protocol.DocumentUri("file://" + filepath.ToSlash(abs)),
			Range: protocol.Range{Start: pos, End: pos},
		}
	}
	return nil
}

// --- Diagnostics ---

// diagnose checks operation table files; other documents have none.
func diagnose(uri protocol.DocumentUri, text string) []protocol.Diagnostic {
	if !strings.HasSuffix(string(uri), ".toml") || !strings.Contains(text, "[[op]]") {
		return nil
	}
	if _, err := optable.Parse([]byte(text)); err != nil {
		severity := protocol.DiagnosticSeverityError
		source := lspName
		return []protocol.Diagnostic{{
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 0},
				End:   protocol.Position{Line: 0, Character: 0},
			},
			Severity: &severity,
			Source:   &source,
			Message:  err.Error(),
		}}
	}
	return nil
}

func (s *Server) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := diagnose(uri, text)
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// --- Text extraction helpers ---

func isNameChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '.'
}

// extractPrefix returns the dotted name fragment before the cursor.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := min(int(pos.Character), len(line))

	start := col
	for start > 0 && isNameChar(rune(line[start-1])) {
		start--
	}
	return line[start:col]
}

// extractWord returns the full dotted name under the cursor, without a
// trailing dot.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := min(int(pos.Character), len(line))

	start := col
	for start > 0 && isNameChar(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isNameChar(rune(line[end])) {
		end++
	}
	return strings.Trim(line[start:end], ".")
}

func boolPtr(b bool) *bool {
	return &b
}
