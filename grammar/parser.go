package grammar

import (
	"os"

	"github.com/alecthomas/participle/v2"
	"github.com/pkg/errors"

	diag "slotlife/internal/errors"
)

var parser = participle.MustBuild[File](
	participle.Lexer(BodyLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(3),
)

// ParseFile reads and parses a body file
func ParseFile(path string) (*File, string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to read file")
	}

	file, err := ParseString(path, string(source))
	return file, string(source), err
}

// ParseString parses body text. Syntax errors are returned as a
// CompilerError carrying the failing position.
func ParseString(filename, source string) (*File, error) {
	file, err := parser.ParseString(filename, source)
	if err != nil {
		return nil, syntaxError(err)
	}
	return file, nil
}

func syntaxError(err error) error {
	pe, ok := err.(participle.Error)
	if !ok {
		return errors.Wrap(err, "unexpected parser failure")
	}

	pos := pe.Position()
	return diag.SyntaxError(pe.Message(), diag.Position{Line: pos.Line, Column: pos.Column})
}
