/*
Token Types and Modifiers:
------------------------
clangd answers semantic token requests with indices into the legend the client
advertised during initialize. The constants below mirror that legend:

	TokenType (dense index)        TokenModifier (bit flag)
	-----------------------        ------------------------
	0  namespace                   1 << 0  declaration
	1  type                        1 << 1  definition
	...                            ...
	21 operator                    1 << 9  defaultLibrary

The server is free to answer with its own legend, so decoding always goes
through the negotiated Legend and never through these constants.
*/
package semtok

// TokenType is a position in the default client legend.
type TokenType uint32

const (
	TypeNamespace TokenType = iota
	TypeType
	TypeClass
	TypeEnum
	TypeInterface
	TypeStruct
	TypeTypeParameter
	TypeParameter
	TypeVariable
	TypeProperty
	TypeEnumMember
	TypeEvent
	TypeFunction
	TypeMember
	TypeMacro
	TypeKeyword
	TypeModifier
	TypeComment
	TypeString
	TypeNumber
	TypeRegexp
	TypeOperator
)

var tokenTypeNames = [...]string{
	TypeNamespace:     "namespace",
	TypeType:          "type",
	TypeClass:         "class",
	TypeEnum:          "enum",
	TypeInterface:     "interface",
	TypeStruct:        "struct",
	TypeTypeParameter: "typeParameter",
	TypeParameter:     "parameter",
	TypeVariable:      "variable",
	TypeProperty:      "property",
	TypeEnumMember:    "enumMember",
	TypeEvent:         "event",
	TypeFunction:      "function",
	TypeMember:        "member",
	TypeMacro:         "macro",
	TypeKeyword:       "keyword",
	TypeModifier:      "modifier",
	TypeComment:       "comment",
	TypeString:        "string",
	TypeNumber:        "number",
	TypeRegexp:        "regexp",
	TypeOperator:      "operator",
}

// String returns the legend name of the token type
func (t TokenType) String() string {
	if int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return "unknown"
}

// TokenModifier is a bit in the default client modifier legend.
type TokenModifier uint32

const (
	ModifierDeclaration TokenModifier = 1 << iota
	ModifierDefinition
	ModifierReadonly
	ModifierStatic
	ModifierDeprecated
	ModifierAbstract
	ModifierAsync
	ModifierModification
	ModifierDocumentation
	ModifierDefaultLibrary
)

var tokenModifierNames = [...]string{
	"declaration",
	"definition",
	"readonly",
	"static",
	"deprecated",
	"abstract",
	"async",
	"modification",
	"documentation",
	"defaultLibrary",
}

// String returns the legend name of a single modifier bit
func (m TokenModifier) String() string {
	for i, name := range tokenModifierNames {
		if m == 1<<i {
			return name
		}
	}
	return "unknown"
}

// DefaultLegend returns a fresh copy of the legend advertised to clangd.
func DefaultLegend() *Legend {
	legend := &Legend{
		TokenTypes:     make([]string, len(tokenTypeNames)),
		TokenModifiers: make([]string, len(tokenModifierNames)),
	}
	copy(legend.TokenTypes, tokenTypeNames[:])
	copy(legend.TokenModifiers, tokenModifierNames[:])
	return legend
}
