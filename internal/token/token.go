// Package token defines the lexical token kinds produced by internal/lexer
// and consumed by internal/parser. The core pipeline (hwctx/lower/resolve/
// emit) never sees tokens directly, only the ast it is handed.
package token

// Kind identifies the lexical category of a Token.
type Kind uint8

const (
	EOF Kind = iota
	Error

	Ident
	Number

	// Keywords
	KwInt
	KwBool
	KwChar
	KwUnsigned
	KwBitInt
	KwIf
	KwElse
	KwWhile
	KwFor
	KwSwitch
	KwCase
	KwDefault
	KwBreak
	KwContinue
	KwReturn
	KwTrue
	KwFalse

	// Punctuation
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semicolon
	Comma
	Colon

	// Operators
	Assign
	Plus
	Minus
	Star
	Slash
	Less
	LessEq
	Greater
	GreaterEq
	Eq
	NotEq
	AndAnd
	OrOr
	Not
	Amp
	Pipe
)

var names = map[Kind]string{
	EOF: "EOF", Error: "Error", Ident: "identifier", Number: "number",
	KwInt: "int", KwBool: "bool", KwChar: "char", KwUnsigned: "unsigned",
	KwBitInt: "_BitInt", KwIf: "if", KwElse: "else", KwWhile: "while",
	KwFor: "for", KwSwitch: "switch", KwCase: "case", KwDefault: "default",
	KwBreak: "break", KwContinue: "continue", KwReturn: "return",
	KwTrue: "true", KwFalse: "false",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}",
	LBracket: "[", RBracket: "]", Semicolon: ";", Comma: ",", Colon: ":",
	Assign: "=", Plus: "+", Minus: "-", Star: "*", Slash: "/",
	Less: "<", LessEq: "<=", Greater: ">", GreaterEq: ">=",
	Eq: "==", NotEq: "!=", AndAnd: "&&", OrOr: "||", Not: "!",
	Amp: "&", Pipe: "|",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "unknown"
}

// Keywords maps identifier text to its reserved keyword Kind.
var Keywords = map[string]Kind{
	"int": KwInt, "bool": KwBool, "char": KwChar, "unsigned": KwUnsigned,
	"_BitInt": KwBitInt, "if": KwIf, "else": KwElse, "while": KwWhile,
	"for": KwFor, "switch": KwSwitch, "case": KwCase, "default": KwDefault,
	"break": KwBreak, "continue": KwContinue, "return": KwReturn,
	"true": KwTrue, "false": KwFalse,
}

// Token is one lexical unit: its kind, literal text, and source position.
type Token struct {
	Kind Kind
	Text string
	Line int
	Col  int
}
