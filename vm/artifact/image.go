// Package artifact reads and writes program images: the CBOR encoded object
// graph and declaration tables an analyzer hands to the interpreter.
package artifact

import (
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// Magic and Version identify a program image.
const (
	Magic   = "SEEDCORE"
	Version = 1
)

var (
	ErrBadMagic = errors.New("artifact: not a program image")
	ErrVersion  = errors.New("artifact: unsupported image version")
)

// Ref is a 1-based index into Image.Objects. The zero Ref means "none".
type Ref uint32

// Kind selects how an object record is materialized.
type Kind uint8

const (
	KindSymbol   Kind = iota + 1 // interned identifier, Text is the name
	KindSysVar                   // well-known object, Text is its name
	KindType                     // type object, Text is the type name
	KindBound                    // object bound in the root scope under Text
	KindAction                   // primitive action Text with result Type
	KindInt                      // Int
	KindBigInt                   // Text in decimal
	KindChar                     // Int is the code point
	KindFloat                    // Float
	KindString                   // Text
	KindSet                      // Ints are the member ordinals
	KindDeclared                 // object of Type without a value
	KindExpr                     // unresolved call shape of Elems
	KindArray                    // Elems starting at index Int
	KindStruct                   // Elems in field order
	KindBlock                    // Block
	KindParam                    // formal parameter slot, Param is its kind
	KindLocalVar                 // local variable slot
	KindResult                   // result variable slot
)

var kindNames = map[Kind]string{
	KindSymbol:   "symbol",
	KindSysVar:   "sysvar",
	KindType:     "type",
	KindBound:    "bound",
	KindAction:   "action",
	KindInt:      "int",
	KindBigInt:   "bigint",
	KindChar:     "char",
	KindFloat:    "float",
	KindString:   "string",
	KindSet:      "set",
	KindDeclared: "declared",
	KindExpr:     "expr",
	KindArray:    "array",
	KindStruct:   "struct",
	KindBlock:    "block",
	KindParam:    "param",
	KindLocalVar: "local",
	KindResult:   "result",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Image is a complete program ready to be loaded.
type Image struct {
	Magic    string          `cbor:"1,keyasint"`
	Version  uint16          `cbor:"2,keyasint"`
	Name     string          `cbor:"3,keyasint"`
	Source   string          `cbor:"4,keyasint,omitempty"`
	Files    []string        `cbor:"5,keyasint,omitempty"`
	Types    []TypeRecord    `cbor:"6,keyasint,omitempty"`
	Objects  []ObjectRecord  `cbor:"7,keyasint,omitempty"`
	Decls    []DeclRecord    `cbor:"8,keyasint,omitempty"`
	Bindings []BindingRecord `cbor:"9,keyasint,omitempty"`
	Main     Ref             `cbor:"10,keyasint,omitempty"`
	Scopes   []ScopeRecord   `cbor:"11,keyasint,omitempty"`
}

// ScopeRecord declares a scope nested in Parent, a 1-based index into
// Image.Scopes that names an earlier record, or 0 for the root scope.
type ScopeRecord struct {
	Name   string `cbor:"1,keyasint"`
	Parent int    `cbor:"2,keyasint,omitempty"`
}

// TypeRecord declares a type beyond the prelude. Kind is one of "enum",
// "array", "set", "struct" or "subtype".
type TypeRecord struct {
	Name     string        `cbor:"1,keyasint"`
	Kind     string        `cbor:"2,keyasint"`
	Base     string        `cbor:"3,keyasint,omitempty"` // supertype of a subtype
	Passing  string        `cbor:"4,keyasint,omitempty"` // "value" or "ref", for subtypes
	Elem     string        `cbor:"5,keyasint,omitempty"`
	Literals []string      `cbor:"6,keyasint,omitempty"`
	Fields   []FieldRecord `cbor:"7,keyasint,omitempty"`
}

// FieldRecord is one struct element.
type FieldRecord struct {
	Name string `cbor:"1,keyasint"`
	Type string `cbor:"2,keyasint"`
	Init Ref    `cbor:"3,keyasint"`
}

// ObjectRecord is one node of the object graph.
type ObjectRecord struct {
	Kind  Kind         `cbor:"1,keyasint"`
	Type  string       `cbor:"2,keyasint,omitempty"`
	Var   bool         `cbor:"3,keyasint,omitempty"`
	Int   int64        `cbor:"4,keyasint,omitempty"`
	Float float64      `cbor:"5,keyasint,omitempty"`
	Text  string       `cbor:"6,keyasint,omitempty"`
	Ints  []int64      `cbor:"7,keyasint,omitempty"`
	Elems []Ref        `cbor:"8,keyasint,omitempty"`
	Param string       `cbor:"9,keyasint,omitempty"`
	Block *BlockRecord `cbor:"10,keyasint,omitempty"`
	Pos   *PosRecord   `cbor:"11,keyasint,omitempty"`
}

// PosRecord is a source position: an index into Image.Files and a line.
type PosRecord struct {
	File int `cbor:"1,keyasint"`
	Line int `cbor:"2,keyasint"`
}

// BlockRecord describes a user-defined function or procedure. Params refer
// to KindParam slots, in the order of the signature's formal parameters.
type BlockRecord struct {
	Params     []Ref         `cbor:"1,keyasint,omitempty"`
	Result     *LocalRecord  `cbor:"2,keyasint,omitempty"`
	Locals     []LocalRecord `cbor:"3,keyasint,omitempty"`
	Body       Ref           `cbor:"4,keyasint"`
	ResultType string        `cbor:"5,keyasint,omitempty"`
	Scope      int           `cbor:"6,keyasint,omitempty"` // body scope; 0 means the declaring scope
}

// LocalRecord pairs a local or result slot with its initial value.
type LocalRecord struct {
	Slot Ref `cbor:"1,keyasint"`
	Init Ref `cbor:"2,keyasint,omitempty"`
}

// PatternRecord is one signature element. Kind is "sym", "in", "ref",
// "inout", "attr" or "expr".
type PatternRecord struct {
	Kind string `cbor:"1,keyasint"`
	Text string `cbor:"2,keyasint,omitempty"` // symbol text or type name
}

// DeclRecord declares a signature in Scope (0 is the root). The callable is
// either a block object or a primitive action. A forward declaration has
// neither; a later record names it in Defines (1-based) to supply the body.
type DeclRecord struct {
	Name     string          `cbor:"1,keyasint"`
	Pattern  []PatternRecord `cbor:"2,keyasint"`
	Result   string          `cbor:"3,keyasint,omitempty"`
	Callable Ref             `cbor:"4,keyasint,omitempty"`
	Action   string          `cbor:"5,keyasint,omitempty"`
	Forward  bool            `cbor:"6,keyasint,omitempty"`
	Defines  int             `cbor:"7,keyasint,omitempty"`
	Scope    int             `cbor:"8,keyasint,omitempty"`
}

// BindingRecord binds an object under a name in Scope (0 is the root).
type BindingRecord struct {
	Name   string `cbor:"1,keyasint"`
	Object Ref    `cbor:"2,keyasint"`
	Scope  int    `cbor:"3,keyasint,omitempty"`
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("artifact: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Marshal serializes an image to canonical CBOR, so equal images encode
// to equal bytes.
func Marshal(img *Image) ([]byte, error) {
	if img.Magic == "" {
		img.Magic = Magic
	}
	if img.Version == 0 {
		img.Version = Version
	}
	return encMode.Marshal(img)
}

// Unmarshal deserializes an image and checks its header.
func Unmarshal(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("artifact: unmarshal image: %w", err)
	}
	if img.Magic != Magic {
		return nil, ErrBadMagic
	}
	if img.Version != Version {
		return nil, fmt.Errorf("%w %d", ErrVersion, img.Version)
	}
	return &img, nil
}

// ReadFile reads an image from path.
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// WriteFile writes an image to path.
func WriteFile(path string, img *Image) error {
	data, err := Marshal(img)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
