package cypher

import "strings"

// TokenKind classifies a lexical token.
type TokenKind int

const (
	// TokenEOF marks the end of input.
	TokenEOF TokenKind = iota
	// TokenIdent is an identifier or keyword.
	TokenIdent
	// TokenString is a quoted string literal (quotes stripped).
	TokenString
	// TokenNumber is a numeric literal.
	TokenNumber
	// TokenLParen is "(".
	TokenLParen
	// TokenRParen is ")".
	TokenRParen
	// TokenLBracket is "[".
	TokenLBracket
	// TokenRBracket is "]".
	TokenRBracket
	// TokenLBrace is "{".
	TokenLBrace
	// TokenRBrace is "}".
	TokenRBrace
	// TokenColon is ":".
	TokenColon
	// TokenComma is ",".
	TokenComma
	// TokenDot is ".".
	TokenDot
	// TokenEq is "=".
	TokenEq
	// TokenNeq is "<>".
	TokenNeq
	// TokenLt is "<".
	TokenLt
	// TokenGt is ">".
	TokenGt
	// TokenLe is "<=".
	TokenLe
	// TokenGe is ">=".
	TokenGe
	// TokenPlus is "+".
	TokenPlus
	// TokenArrow is "->".
	TokenArrow
	// TokenDash is "-".
	TokenDash
	// TokenSemi is ";".
	TokenSemi
	// TokenOther is any character the lexer does not recognize.
	TokenOther
)

// Token is one lexical token with its source position.
type Token struct {
	Kind TokenKind
	Text string
	Pos  int
}

// IsKeyword reports whether the token is the given keyword, compared
// case-insensitively.
func (t Token) IsKeyword(kw string) bool {
	return t.Kind == TokenIdent && strings.EqualFold(t.Text, kw)
}

// clauseKeywords are the keywords that terminate the current clause.
var clauseKeywords = []string{"MATCH", "OPTIONAL", "WHERE", "WITH", "RETURN", "UNWIND", "MERGE", "CREATE", "ORDER", "LIMIT", "SKIP"}

// isClauseBoundary reports whether the token starts a new top-level clause.
func isClauseBoundary(t Token) bool {
	if t.Kind != TokenIdent {
		return false
	}
	for _, kw := range clauseKeywords {
		if strings.EqualFold(t.Text, kw) {
			return true
		}
	}
	return false
}
