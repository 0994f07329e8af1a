package errors

// Error codes for the slotlife normalization stage
// These codes are used in error messages and documentation
// to provide consistent error identification across the toolchain.
//
// Error code ranges:
// E1000-E1099: Body consistency and pass invariant errors
// E1100-E1199: Body text loading errors
// W1100-W1199: Debug metadata warnings

const (
	// E1001: An instruction carries more than one definition operand
	ErrorMultipleDefinitions = "E1001"

	// E1002: The colorer gave two interfering variables of one group the same color
	ErrorColoringCollision = "E1002"

	// E1003: The colorer was queried before liveness covered every reachable instruction
	ErrorIncompleteLiveness = "E1003"

	// E1004: The colorer left a variable without a color
	ErrorMissingColor = "E1004"

	// Body text loading errors (reserved range: E1100-E1199)

	// E1100: Syntax error in body text
	ErrorSyntax = "E1100"

	// E1101: Reference to an undeclared variable
	ErrorUndefinedVariable = "E1101"

	// E1102: Reference to an unknown label
	ErrorUndefinedLabel = "E1102"

	// E1103: Malformed type descriptor
	ErrorInvalidDescriptor = "E1103"

	// E1104: Duplicate variable or label declaration
	ErrorDuplicateDeclaration = "E1104"

	// Warning codes

	// W1101: Debug variable range is malformed and was ignored
	WarningMalformedRange = "W1101"
)
