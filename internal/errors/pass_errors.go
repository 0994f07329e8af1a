package errors

import (
	"fmt"
	"strings"
)

// PassErrorBuilder provides a fluent interface for creating pass and loader errors
type PassErrorBuilder struct {
	err CompilerError
}

// NewPassError creates a new error builder
func NewPassError(code, message string, pos Position) *PassErrorBuilder {
	return &PassErrorBuilder{
		err: CompilerError{
			Level:    Error,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// NewPassWarning creates a new warning builder
func NewPassWarning(code, message string, pos Position) *PassErrorBuilder {
	return &PassErrorBuilder{
		err: CompilerError{
			Level:    Warning,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// WithLength sets the length of the error span
func (b *PassErrorBuilder) WithLength(length int) *PassErrorBuilder {
	b.err.Length = length
	return b
}

// WithMethod records the method body the error belongs to
func (b *PassErrorBuilder) WithMethod(method string) *PassErrorBuilder {
	b.err.Method = method
	return b
}

// WithSuggestion adds a suggestion to the error
func (b *PassErrorBuilder) WithSuggestion(message string) *PassErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message})
	return b
}

// WithNote adds a note to the error
func (b *PassErrorBuilder) WithNote(note string) *PassErrorBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

// WithHelp adds help text to the error
func (b *PassErrorBuilder) WithHelp(help string) *PassErrorBuilder {
	b.err.HelpText = help
	return b
}

// Build returns the completed compiler error
func (b *PassErrorBuilder) Build() CompilerError {
	return b.err
}

// MultipleDefinitions reports an instruction with more than one definition operand
func MultipleDefinitions(method string, index int, defs []string, pos Position) CompilerError {
	return NewPassError(ErrorMultipleDefinitions,
		fmt.Sprintf("instruction %d defines %d operands (%s)", index, len(defs), strings.Join(defs, ", ")), pos).
		WithMethod(method).
		WithNote("an instruction may carry at most one definition operand").
		WithHelp("the body is malformed; fix the stage that produced it").
		Build()
}

// ColoringCollision reports two interfering variables of one group mapped to the same color
func ColoringCollision(method, group, first, second string, color int) CompilerError {
	return NewPassError(ErrorColoringCollision,
		fmt.Sprintf("variables '%s' and '%s' of group %s interfere but share color %d", first, second, group, color), Position{}).
		WithMethod(method).
		WithNote("coalescing them would corrupt generated code").
		Build()
}

// IncompleteLiveness reports a colorer query over partial liveness information
func IncompleteLiveness(method string) CompilerError {
	return NewPassError(ErrorIncompleteLiveness, "liveness does not cover every reachable instruction", Position{}).
		WithMethod(method).
		Build()
}

// MissingColor reports a variable the colorer did not color
func MissingColor(method, variable string) CompilerError {
	return NewPassError(ErrorMissingColor, fmt.Sprintf("colorer returned no color for '%s'", variable), Position{}).
		WithMethod(method).
		Build()
}

// SyntaxError wraps a parse failure of body text
func SyntaxError(message string, pos Position) CompilerError {
	return NewPassError(ErrorSyntax, message, pos).Build()
}

// UndefinedVariable reports an operand naming an undeclared variable
func UndefinedVariable(name string, pos Position, declared []string) CompilerError {
	builder := NewPassError(ErrorUndefinedVariable, fmt.Sprintf("undefined variable '%s'", name), pos).
		WithLength(len(name))

	similar := findSimilarNames(name, declared)
	switch len(similar) {
	case 0:
		builder = builder.WithSuggestion(fmt.Sprintf("declare it with 'var %s : \"I\";'", name))
	case 1:
		builder = builder.WithSuggestion(fmt.Sprintf("did you mean '%s'?", similar[0]))
	default:
		builder = builder.WithSuggestion(fmt.Sprintf("did you mean one of: '%s'?", strings.Join(similar, "', '")))
	}
	return builder.Build()
}

// UndefinedLabel reports a branch, trap or debug range naming an unknown label
func UndefinedLabel(label string, pos Position) CompilerError {
	return NewPassError(ErrorUndefinedLabel, fmt.Sprintf("undefined label '%s'", label), pos).
		WithLength(len(label)).
		Build()
}

// InvalidDescriptor reports a type descriptor that cannot be parsed
func InvalidDescriptor(desc string, pos Position, cause error) CompilerError {
	return NewPassError(ErrorInvalidDescriptor, fmt.Sprintf("invalid type descriptor %q", desc), pos).
		WithNote(cause.Error()).
		WithHelp("use a JVM field descriptor such as \"I\", \"J\", \"Ljava/lang/String;\" or an inferred kind such as \"int1\"").
		Build()
}

// DuplicateDeclaration reports a variable or label declared twice
func DuplicateDeclaration(kind, name string, pos Position) CompilerError {
	return NewPassError(ErrorDuplicateDeclaration, fmt.Sprintf("%s '%s' is declared more than once", kind, name), pos).
		WithLength(len(name)).
		Build()
}

// MalformedRange warns about a debug variable whose range cannot be walked
func MalformedRange(method, name string, slot int, reason string) CompilerError {
	return NewPassWarning(WarningMalformedRange, fmt.Sprintf("debug variable '%s' (slot %d) ignored: %s", name, slot, reason), Position{}).
		WithMethod(method).
		Build()
}

// findSimilarNames returns names within edit distance 2 of target
func findSimilarNames(target string, candidates []string) []string {
	var similar []string
	for _, c := range candidates {
		if c != target && levenshteinDistance(target, c) <= 2 {
			similar = append(similar, c)
		}
	}
	return similar
}

func levenshteinDistance(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
