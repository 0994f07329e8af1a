package lsp

import (
	"unicode/utf16"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"

	"slotlife/grammar"
)

// Token legend, in the order advertised to the client
var SemanticTokenTypes = []string{"keyword", "function", "variable", "type", "number", "comment", "label"}

var SemanticTokenModifiers = []string{"declaration"}

const (
	tokenKeyword = iota
	tokenFunction
	tokenVariable
	tokenType
	tokenNumber
	tokenComment
	tokenLabel
)

const modifierDeclaration = 1 << 0

var keywords = map[string]bool{
	"method": true, "var": true, "debug": true, "from": true, "to": true,
	"with": true, "catch": true, "goto": true, "if": true, "return": true,
	"throw": true, "do": true, "nop": true, "subsumes": true, "end": true,
}

// SemanticToken represents a single LSP semantic token entry
// Line and StartChar are 0-based positions
// TokenType is an index into SemanticTokenTypes
// TokenModifiers is a bitmask based on SemanticTokenModifiers
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int
	TokenModifiers int
}

// collectSemanticTokens classifies the lexical tokens of a body file.
// It works from the token stream alone so that half-typed documents
// still get highlighted.
func collectSemanticTokens(path, text string) ([]SemanticToken, error) {
	lex, err := grammar.BodyLexer.LexString(path, text)
	if err != nil {
		return nil, errors.Wrap(err, "lexing failed")
	}
	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, errors.Wrap(err, "lexing failed")
	}

	symbols := grammar.BodyLexer.Symbols()
	whitespace := symbols["Whitespace"]

	var stream []lexer.Token
	for _, tok := range all {
		if tok.Type == whitespace || tok.EOF() {
			continue
		}
		stream = append(stream, tok)
	}

	var tokens []SemanticToken
	for i, tok := range stream {
		kind, mods, ok := classify(symbols, stream, i)
		if !ok {
			continue
		}
		tokens = append(tokens, SemanticToken{
			Line:           uint32(tok.Pos.Line - 1),
			StartChar:      uint32(tok.Pos.Column - 1),
			Length:         uint32(len(utf16.Encode([]rune(tok.Value)))),
			TokenType:      kind,
			TokenModifiers: mods,
		})
	}
	return tokens, nil
}

func classify(symbols map[string]lexer.TokenType, stream []lexer.Token, i int) (int, int, bool) {
	tok := stream[i]
	switch tok.Type {
	case symbols["Comment"]:
		return tokenComment, 0, true
	case symbols["String"]:
		return tokenType, 0, true
	case symbols["Integer"]:
		return tokenNumber, 0, true
	case symbols["Ident"]:
	default:
		return 0, 0, false
	}

	var prev, next string
	if i > 0 {
		prev = stream[i-1].Value
	}
	if i+1 < len(stream) {
		next = stream[i+1].Value
	}

	switch prev {
	case "method":
		return tokenFunction, modifierDeclaration, true
	case "var":
		return tokenVariable, modifierDeclaration, true
	case "debug":
		return tokenVariable, 0, true
	case "=", "do":
		return tokenFunction, 0, true
	case "goto", "from", "catch", "with":
		return tokenLabel, 0, true
	case "to":
		if tok.Value == "end" {
			return tokenKeyword, 0, true
		}
		return tokenLabel, 0, true
	}

	if keywords[tok.Value] {
		return tokenKeyword, 0, true
	}
	if next == ":" {
		return tokenLabel, modifierDeclaration, true
	}
	return tokenVariable, 0, true
}
