package mindbend

import "fmt"

// CompileError is the flat diagnostic taxonomy produced by the lexer and
// parser stages (spec §7). Lexer diagnostics carry the approximate 1-based
// character position that produced them, parser diagnostics the 1-based
// token index; the missing-terminator diagnostic carries 0.
type CompileError struct {
	Message string
	Pos     Pos
}

// Error returns the human readable representation of a compile diagnostic.
func (e *CompileError) Error() string {
	return fmt.Sprintf("%s @ %d", e.Message, e.Pos)
}

func newErr(pos Pos, format string, args ...any) *CompileError {
	return &CompileError{Message: fmt.Sprintf(format, args...), Pos: pos}
}

func errWhitespace(pos Pos) error {
	return newErr(pos, "Invalid whitespace at position n where n is around %d", int(pos))
}

func errUnrecognizedToken(pos Pos) error {
	return newErr(pos, "Unrecognized token at position n where n is around %d", int(pos))
}

func errExpected(pos Pos, expected any) error {
	return newErr(pos, "Expected %v at position n where n is around %d", expected, int(pos))
}

func errInvalidPrimitive(pos Pos) error {
	return newErr(pos, "Invalid primitive at position n where n is around %d", int(pos))
}

func errInvalidPrimitiveAccessRegion(pos Pos) error {
	return newErr(pos, "Attempting to access primitive outside the Layers Region at the nth token, where n is around %d", int(pos))
}

func errInvalidPrimitiveAccessGates(pos Pos) error {
	return newErr(pos, "Attempting to access primitive when the Layers gates aren't fully open at the nth token, where n is around %d", int(pos))
}

func errInvalidCellAccessRegion(pos Pos) error {
	return newErr(pos, "Attempting to access cell outside the Cells Region at the nth token, where n is around %d", int(pos))
}

func errUnrecognizedRegion(pos Pos, found string) error {
	return newErr(pos, "Use of unrecognized region %s at the nth token, where n is around %d", found, int(pos))
}

func errExpectedCellExpressionAfter(pos Pos) error {
	return newErr(pos, "Expected cell expression after the nth token, where n is around %d", int(pos))
}

func errExpectedCellExpression(pos Pos) error {
	return newErr(pos, "Expected cell expression at the nth token, where n is around %d", int(pos))
}

func errUnrecognizedCell(pos Pos, found string) error {
	return newErr(pos, "Use of unrecognized cell %s at the nth token, where n is around %d", found, int(pos))
}

func errDrillInCells(pos Pos) error {
	return newErr(pos, "Attempt to drill in the Cells Region at the nth token, where n is around %d", int(pos))
}

func errOrgExprMustEndInDeath() error {
	return newErr(0, "A Mindbend program must end in the death of the Organism Expression")
}

func errChainedLeachMustEndInMassacre(pos Pos) error {
	return newErr(pos, "Chained leach expression at the nth token, where n is around %d, does not end in a massacre. A chained leach expression must end in a massacre", int(pos))
}

func errAttemptToJumpToNonExistentLabel(pos Pos) error {
	return newErr(pos, "Attempt to jump to non existent label at the nth token, where n is around %d", int(pos))
}

func errDuplicateLabel(pos1, pos2 Pos) error {
	return newErr(pos2, "Label name at the nth token duplicated in the label name at the mth token, where n is around %d and m is around %d", int(pos1), int(pos2))
}

func errLeachMustStartWithPrimitiveOrCell(pos Pos) error {
	return newErr(pos, "The leach expression at the nth token, where n is around %d, does not begin with a primitive or Cell", int(pos))
}

func errAttemptToLeachOntoItself(pos Pos) error {
	return newErr(pos, "Attempt to leach expression onto itself at the nth token, where n is around %d", int(pos))
}

func errChainLeachEndingWithoutChainLeach(pos Pos) error {
	return newErr(pos, "Ending a chain leach expression without a chain leach expression at the nth token, where n is around %d", int(pos))
}

func errTripleSixEqNotExpectedHere(pos Pos) error {
	return newErr(pos, "^^^^^^666^^^^^^= not expected at the nth token, where n is around %d", int(pos))
}

func errTripleSixNotExpectedHere(pos Pos) error {
	return newErr(pos, "^^^^^^666^^^^^^ not expected at the nth token, where n is around %d", int(pos))
}

// Runtime diagnostic strings (spec §7), printed by the generated program to
// stdout via a sequence of putchar calls when a runtime check fails.

const (
	runtimeMsgPrimitiveNotLayers    = "Attempt to access primitive when not in layers region"
	runtimeMsgPrimitiveGatesNotOpen = "Attempt to access primitive when the gates aren't open"
	runtimeMsgDrillNotLayers        = "Attempt to drill gates when not in the Layers Region"
	runtimeMsgNonFunctionMassacre   = "Attempt to use non-function primitive to massacre"
	runtimeMsgCellOutsideCells      = "Attempting to access cell outside the Cells Region"
	runtimeMsgLeachDeath            = "Attempt to leach death expression onto another Cell"
)
