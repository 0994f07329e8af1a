package lsp

import (
	"strings"

	"github.com/pkg/errors"
	protocol "github.com/tliron/glsp/protocol_3_16"

	diag "slotlife/internal/errors"
)

const diagnosticSource = "slotlife"

// ConvertCompilerError transforms a load or pass error into an LSP
// diagnostic. Errors without a source position are reported at the start
// of the document.
func ConvertCompilerError(err diag.CompilerError) protocol.Diagnostic {
	var line, column uint32
	if err.Position.Line > 0 {
		line = uint32(err.Position.Line - 1)
		if err.Position.Column > 0 {
			column = uint32(err.Position.Column - 1)
		}
	}
	length := uint32(1)
	if err.Length > 0 {
		length = uint32(err.Length)
	}

	message := err.Message
	var extra []string
	for _, s := range err.Suggestions {
		extra = append(extra, "help: "+s.Message)
	}
	for _, n := range err.Notes {
		extra = append(extra, "note: "+n)
	}
	if err.HelpText != "" {
		extra = append(extra, "help: "+err.HelpText)
	}
	if len(extra) > 0 {
		message += "\n" + strings.Join(extra, "\n")
	}

	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: column},
			End:   protocol.Position{Line: line, Character: column + length},
		},
		Severity: ptrSeverity(severity(err.Level)),
		Code:     &protocol.IntegerOrString{Value: err.Code},
		Source:   ptrString(diagnosticSource),
		Message:  message,
	}
}

// ConvertError converts any error; plain Go errors become position-less
// error diagnostics
func ConvertError(err error) protocol.Diagnostic {
	var ce diag.CompilerError
	if errors.As(err, &ce) {
		return ConvertCompilerError(ce)
	}
	return protocol.Diagnostic{
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString(diagnosticSource),
		Message:  err.Error(),
	}
}

func severity(level diag.ErrorLevel) protocol.DiagnosticSeverity {
	switch level {
	case diag.Warning:
		return protocol.DiagnosticSeverityWarning
	case diag.Note:
		return protocol.DiagnosticSeverityInformation
	case diag.Help:
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityError
	}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
