package lsp

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"slotlife/internal/config"
	"slotlife/internal/ir"
	"slotlife/internal/normalize"
)

var log = commonlog.GetLogger("slotlife.lsp")

// BodyHandler implements the LSP server handlers for method body files.
// Every open document is loaded and normalized on each change, and the
// resulting errors and warnings are published as diagnostics.
type BodyHandler struct {
	mu       sync.RWMutex
	content  map[string]string
	pipeline *normalize.Pipeline
}

// NewBodyHandler creates a handler normalizing with the given configuration
func NewBodyHandler(cfg *config.Config) *BodyHandler {
	return &BodyHandler{
		content:  make(map[string]string),
		pipeline: normalize.NewPipeline(cfg),
	}
}

// Initialize responds to the LSP client's initialize request and advertises the server's capabilities
func (h *BodyHandler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("initialize")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true),
			},
		},
	}, nil
}

func (h *BodyHandler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Info("initialized")
	return nil
}

func (h *BodyHandler) Shutdown(ctx *glsp.Context) error {
	log.Info("shutdown")
	return nil
}

func (h *BodyHandler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// TextDocumentDidOpen handles file open notifications from the editor
func (h *BodyHandler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}
	log.Debugf("opened %s", path)

	h.store(path, params.TextDocument.Text)
	publish(ctx, params.TextDocument.URI, h.Diagnose(path, params.TextDocument.Text))
	return nil
}

// TextDocumentDidChange handles file change notifications. Only full
// document sync is advertised, so the last change carries the whole text.
func (h *BodyHandler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}

	var text string
	found := false
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text, found = c.Text, true
		case protocol.TextDocumentContentChangeEvent:
			text, found = c.Text, true
		}
	}
	if !found {
		return nil
	}

	h.store(path, text)
	publish(ctx, params.TextDocument.URI, h.Diagnose(path, text))
	return nil
}

// TextDocumentDidClose forgets the document and clears its diagnostics
func (h *BodyHandler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}

	h.mu.Lock()
	delete(h.content, path)
	h.mu.Unlock()

	publish(ctx, params.TextDocument.URI, []protocol.Diagnostic{})
	return nil
}

// TextDocumentSemanticTokensFull handles semantic token requests for the entire document
func (h *BodyHandler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	text, err := h.text(path)
	if err != nil {
		return nil, err
	}

	tokens, err := collectSemanticTokens(path, text)
	if err != nil {
		return nil, err
	}

	var data []uint32
	var prevLine, prevStart uint32

	// delta-line, delta-start encoding
	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		deltaStart := token.StartChar
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		}
		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))

		prevLine = token.Line
		prevStart = token.StartChar
	}

	return &protocol.SemanticTokens{Data: data}, nil
}

// Diagnose loads and normalizes text, returning every error and warning found
func (h *BodyHandler) Diagnose(path, text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	program, err := ir.Load(filepath.Base(path), text)
	if err != nil {
		return append(diagnostics, ConvertError(err))
	}

	results, err := h.pipeline.RunAll(context.Background(), program.Methods)
	for _, result := range results {
		if result == nil {
			continue
		}
		for _, w := range result.Warnings {
			diagnostics = append(diagnostics, ConvertCompilerError(w))
		}
	}
	if err != nil {
		diagnostics = append(diagnostics, ConvertError(err))
	}
	return diagnostics
}

func (h *BodyHandler) store(path, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.content[path] = text
}

// text returns the open document, falling back to the file on disk
func (h *BodyHandler) text(path string) (string, error) {
	h.mu.RLock()
	text, ok := h.content[path]
	h.mu.RUnlock()
	if ok {
		return text, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file %s", path)
	}
	return string(data), nil
}

// Convert URI to platform-local file path
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", errors.Wrapf(err, "invalid URI %s", rawURI)
	}

	path := u.Path

	// On Windows, remove leading slash (e.g., /C:/...)
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path), nil
}

func publish(ctx *glsp.Context, uri protocol.DocumentUri, diagnostics []protocol.Diagnostic) {
	if ctx == nil || ctx.Notify == nil {
		return
	}
	log.Debugf("publishing %d diagnostics for %s", len(diagnostics), uri)

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
