package diag

import "fmt"

// Code identifies the category of a diagnostic. The numbering follows the
// taxonomy from the error handling design: each pipeline stage owns a
// contiguous range so the leading digit tells you which stage produced it.
type Code uint16

const (
	UnknownCode Code = 0

	// Syntax (1000s) -- surfaced by the lexer/parser as parse-error.
	ParseError              Code = 1000
	ParseUnexpectedToken    Code = 1001
	ParseUnclosedDelimiter  Code = 1002
	ParseUnterminatedString Code = 1003
	ParseBadNumber          Code = 1004

	// Resolution (2000s).
	ResUndefinedVariable Code = 2000
	ResUndefinedFunction Code = 2001
	ResUndefinedType     Code = 2002
	ResUndefinedEffect   Code = 2003
	ResDuplicateDef      Code = 2004

	// Type checking (3000s).
	TypeMismatch          Code = 3000
	TypeArityMismatch     Code = 3001
	TypeNotCallable       Code = 3002
	TypeUnknownField      Code = 3003
	TypeIntegerOverflow   Code = 3004
	TypeCannotConvert     Code = 3005
	TypeRecursiveType     Code = 3006
	TypeTraitBoundNotMet  Code = 3007
	TypeMissingGenericArg Code = 3008

	// Borrow checking (4000s).
	BorrowConflict    Code = 4000
	BorrowUseAfterEnd Code = 4001

	// Effect/error-set checking (5000s).
	EffectUndeclaredPerform Code = 5000
	EffectUndeclaredThrow   Code = 5001

	// Lowering (6000s): a construct not representable at the target stage.
	LoweringUnsupported Code = 6000

	// Codegen (7000s).
	CodegenUnsupportedType Code = 7000
	CodegenLoweringFailed  Code = 7001

	// Build (8000s): external tool invocation.
	BuildToolNotFound    Code = 8000
	BuildSubprocessError Code = 8001
)

// ID renders a short machine-stable identifier such as "TYPE3000", grouping by
// the stage that owns the code's range (matches the §7 error taxonomy).
func (c Code) ID() string {
	n := uint16(c)
	switch {
	case n < 1000:
		return fmt.Sprintf("GEN%d", n)
	case n < 2000:
		return fmt.Sprintf("PARSE%d", n)
	case n < 3000:
		return fmt.Sprintf("RES%d", n)
	case n < 4000:
		return fmt.Sprintf("TYPE%d", n)
	case n < 5000:
		return fmt.Sprintf("BORROW%d", n)
	case n < 6000:
		return fmt.Sprintf("EFFECT%d", n)
	case n < 7000:
		return fmt.Sprintf("LOWER%d", n)
	case n < 8000:
		return fmt.Sprintf("CODEGEN%d", n)
	default:
		return fmt.Sprintf("BUILD%d", n)
	}
}

func (c Code) String() string {
	switch c {
	case UnknownCode:
		return "unknown"
	case ParseError:
		return "parse-error"
	case ParseUnexpectedToken:
		return "parse-error/unexpected-token"
	case ParseUnclosedDelimiter:
		return "parse-error/unclosed-delimiter"
	case ParseUnterminatedString:
		return "parse-error/unterminated-string"
	case ParseBadNumber:
		return "parse-error/bad-number"
	case ResUndefinedVariable:
		return "undefined-variable"
	case ResUndefinedFunction:
		return "undefined-function"
	case ResUndefinedType:
		return "undefined-type"
	case ResUndefinedEffect:
		return "undefined-effect"
	case ResDuplicateDef:
		return "duplicate-definition"
	case TypeMismatch:
		return "type-mismatch"
	case TypeArityMismatch:
		return "arity-mismatch"
	case TypeNotCallable:
		return "not-callable"
	case TypeUnknownField:
		return "unknown-field"
	case TypeIntegerOverflow:
		return "integer-overflow"
	case TypeCannotConvert:
		return "cannot-convert"
	case TypeRecursiveType:
		return "recursive-type"
	case TypeTraitBoundNotMet:
		return "trait-bound-not-satisfied"
	case TypeMissingGenericArg:
		return "missing-generic-parameter"
	case BorrowConflict:
		return "borrow-error"
	case BorrowUseAfterEnd:
		return "borrow-error/use-after-end"
	case EffectUndeclaredPerform:
		return "effect-error/undeclared-perform"
	case EffectUndeclaredThrow:
		return "effect-error/undeclared-throw"
	case LoweringUnsupported:
		return "lowering-error"
	case CodegenUnsupportedType:
		return "codegen-error/unsupported-type"
	case CodegenLoweringFailed:
		return "codegen-error/instruction-lowering"
	case BuildToolNotFound:
		return "build-error/tool-not-found"
	case BuildSubprocessError:
		return "build-error/subprocess"
	default:
		return fmt.Sprintf("Code(%d)", uint16(c))
	}
}
