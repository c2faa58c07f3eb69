package cypher

import "unicode"

// Lex tokenizes a query string. It never fails: unrecognized characters
// become TokenOther tokens and string literals are terminated at end of
// input if unclosed.
func Lex(input string) []Token {
	var tokens []Token
	runes := []rune(input)
	i := 0
	n := len(runes)

	emit := func(kind TokenKind, text string, pos int) {
		tokens = append(tokens, Token{Kind: kind, Text: text, Pos: pos})
	}

	for i < n {
		r := runes[i]

		switch {
		case unicode.IsSpace(r):
			i++

		case r == '/' && i+1 < n && runes[i+1] == '/':
			for i < n && runes[i] != '\n' {
				i++
			}

		case r == '/' && i+1 < n && runes[i+1] == '*':
			i += 2
			for i+1 < n && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i += 2

		case r == '\'' || r == '"':
			quote := r
			start := i
			i++
			var text []rune
			for i < n && runes[i] != quote {
				if runes[i] == '\\' && i+1 < n {
					i++
				}
				text = append(text, runes[i])
				i++
			}
			i++ // closing quote (or past end)
			emit(TokenString, string(text), start)

		case r == '`':
			// Backquoted identifier
			start := i
			i++
			var text []rune
			for i < n && runes[i] != '`' {
				text = append(text, runes[i])
				i++
			}
			i++
			emit(TokenIdent, string(text), start)

		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < n && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			emit(TokenIdent, string(runes[start:i]), start)

		case unicode.IsDigit(r):
			start := i
			for i < n && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				// ".." is a range operator, not part of a number
				if runes[i] == '.' && i+1 < n && runes[i+1] == '.' {
					break
				}
				i++
			}
			emit(TokenNumber, string(runes[start:i]), start)

		case r == '-':
			if i+1 < n && runes[i+1] == '>' {
				emit(TokenArrow, "->", i)
				i += 2
			} else {
				emit(TokenDash, "-", i)
				i++
			}

		case r == '<':
			if i+1 < n && runes[i+1] == '>' {
				emit(TokenNeq, "<>", i)
				i += 2
			} else if i+1 < n && runes[i+1] == '=' {
				emit(TokenLe, "<=", i)
				i += 2
			} else {
				emit(TokenLt, "<", i)
				i++
			}

		case r == '>':
			if i+1 < n && runes[i+1] == '=' {
				emit(TokenGe, ">=", i)
				i += 2
			} else {
				emit(TokenGt, ">", i)
				i++
			}

		default:
			kind := TokenOther
			switch r {
			case '(':
				kind = TokenLParen
			case ')':
				kind = TokenRParen
			case '[':
				kind = TokenLBracket
			case ']':
				kind = TokenRBracket
			case '{':
				kind = TokenLBrace
			case '}':
				kind = TokenRBrace
			case ':':
				kind = TokenColon
			case ',':
				kind = TokenComma
			case '.':
				kind = TokenDot
			case '=':
				kind = TokenEq
			case '+':
				kind = TokenPlus
			case ';':
				kind = TokenSemi
			}
			emit(kind, string(r), i)
			i++
		}
	}

	tokens = append(tokens, Token{Kind: TokenEOF, Pos: n})
	return tokens
}
