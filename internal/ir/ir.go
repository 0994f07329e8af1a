package ir

// This file provides the main entry points for loading and printing bodies.

import (
	"slotlife/grammar"
)

// Load parses body text and converts it to IR
func Load(filename, source string) (*Program, error) {
	file, err := grammar.ParseString(filename, source)
	if err != nil {
		return nil, err
	}
	return BuildProgram(source, file)
}

// LoadFile reads, parses and converts a body file
func LoadFile(path string) (*Program, error) {
	file, source, err := grammar.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return BuildProgram(source, file)
}

// PrintProgram returns the text form of every body in the program
func PrintProgram(program *Program) string {
	return Print(program)
}
