package lexer

import (
	"zulonc/internal/token"
)




func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()


	//  - 0b[01_]+, 0o[0-7_]+, 0x[0-9a-fA-F_]+




	kind := token.IntLit


	if lx.cursor.Peek() == '.' {
		lx.cursor.Bump() // '.'
		if !isDec(lx.cursor.Peek()) {
			sp := lx.cursor.SpanFrom(start)
			lx.report("BadNumber", sp, "expected digit after '.'")
			return token.Token{Kind: token.Invalid, Span: sp, Text: string(lx.file.Content[sp.Start:sp.End])}
		}
		kind = token.FloatLit
		for isDec(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
			lx.cursor.Bump()
		}
		goto emitWithMaybeExp
	}


	if lx.cursor.Peek() == '0' {
		lx.cursor.Bump()
		switch lx.cursor.Peek() {
		case 'b', 'B':
			lx.cursor.Bump()
			for {
				b := lx.cursor.Peek()
				if b == '0' || b == '1' || b == '_' {
					lx.cursor.Bump()
				} else { break }
			}
			goto emit
		case 'o', 'O':
			lx.cursor.Bump()
			for {
				b := lx.cursor.Peek()
				if (b >= '0' && b <= '7') || b == '_' {
					lx.cursor.Bump()
				} else { break }
			}
			goto emit
		case 'x', 'X':
			lx.cursor.Bump()
			for isHex(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
				lx.cursor.Bump()
			}
			goto emit
		default:

		}
	}


	for isDec(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
		lx.cursor.Bump()
	}


	if lx.cursor.Peek() == '.' {

		b0, b1, ok := lx.cursor.Peek2()
		if ok && b0 == '.' && (b1 == '.' || b1 == '=') {

		} else {
			lx.cursor.Bump() // '.'
			if isDec(lx.cursor.Peek()) {
				kind = token.FloatLit
				for isDec(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
					lx.cursor.Bump()
				}
			} else {

				kind = token.FloatLit
			}
		}
	}

emitWithMaybeExp:

	if lx.cursor.Peek() == 'e' || lx.cursor.Peek() == 'E' {
		kind = token.FloatLit
		lx.cursor.Bump() // e/E
		if lx.cursor.Peek() == '+' || lx.cursor.Peek() == '-' {
			lx.cursor.Bump()
		}
		if !isDec(lx.cursor.Peek()) {
			sp := lx.cursor.SpanFrom(start)
			lx.report("BadNumber", sp, "expected digit after exponent")
			return token.Token{Kind: token.Invalid, Span: sp, Text: string(lx.file.Content[sp.Start:sp.End])}
		}
		for isDec(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
			lx.cursor.Bump()
		}
	}

emit:
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: kind, Span: sp, Text: string(lx.file.Content[sp.Start:sp.End])}
}
