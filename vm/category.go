package vm

// Category classifies the payload an Object carries. Every Object has
// exactly one category and it is derived from the payload, so the two can
// never disagree.
type Category uint8

const (
	CategorySymbol       Category = iota // raw identifier or syntax marker
	CategoryDeclared                     // declared, no value yet
	CategoryForward                      // forward declaration placeholder
	CategoryFwdRef                       // reference to a forward-declared object
	CategoryBlock                        // user-defined function or procedure body
	CategoryCall                         // resolved invocation
	CategoryMatch                        // resolved invocation, evaluated on demand
	CategoryType                         // a type used as a value
	CategoryFormParam                    // attribute or expression formal parameter
	CategoryInt                          // integer literal or value
	CategoryBigInt                       // arbitrary precision integer
	CategoryChar                         // character
	CategoryString                       // string
	CategoryArray                        // array
	CategoryHash                         // hash table
	CategoryStruct                       // struct
	CategoryInterface                    // interface (dynamic object)
	CategorySet                          // set of ordinals
	CategoryFile                         // file handle
	CategorySocket                       // socket handle
	CategoryList                         // plain list of objects
	CategoryFloat                        // float
	CategoryEnumLiteral                  // enum literal, booleans included
	CategoryConstEnum                    // constant bound to an enum literal
	CategoryVarEnum                      // variable holding an enum literal
	CategoryRef                          // reference to an object
	CategoryRefList                      // list of references
	CategoryExpr                         // unresolved call shape
	CategoryAction                       // native primitive
	CategoryValueParam                   // formal parameter passed by value
	CategoryRefParam                     // formal parameter passed by reference
	CategoryResult                       // function result slot
	CategoryLocalVar                     // local variable slot
	CategoryProg                         // program handle
	CategoryDatabase                     // database connection handle
	CategorySQLStatement                 // prepared statement handle

	numCategories
)

var categoryNames = [numCategories]string{
	CategorySymbol:       "SYMBOLOBJECT",
	CategoryDeclared:     "DECLAREDOBJECT",
	CategoryForward:      "FORWARDOBJECT",
	CategoryFwdRef:       "FWDREFOBJECT",
	CategoryBlock:        "BLOCKOBJECT",
	CategoryCall:         "CALLOBJECT",
	CategoryMatch:        "MATCHOBJECT",
	CategoryType:         "TYPEOBJECT",
	CategoryFormParam:    "FORMPARAMOBJECT",
	CategoryInt:          "INTOBJECT",
	CategoryBigInt:       "BIGINTOBJECT",
	CategoryChar:         "CHAROBJECT",
	CategoryString:       "STRIOBJECT",
	CategoryArray:        "ARRAYOBJECT",
	CategoryHash:         "HASHOBJECT",
	CategoryStruct:       "STRUCTOBJECT",
	CategoryInterface:    "INTERFACEOBJECT",
	CategorySet:          "SETOBJECT",
	CategoryFile:         "FILEOBJECT",
	CategorySocket:       "SOCKETOBJECT",
	CategoryList:         "LISTOBJECT",
	CategoryFloat:        "FLOATOBJECT",
	CategoryEnumLiteral:  "ENUMLITERALOBJECT",
	CategoryConstEnum:    "CONSTENUMOBJECT",
	CategoryVarEnum:      "VARENUMOBJECT",
	CategoryRef:          "REFOBJECT",
	CategoryRefList:      "REFLISTOBJECT",
	CategoryExpr:         "EXPROBJECT",
	CategoryAction:       "ACTOBJECT",
	CategoryValueParam:   "VALUEPARAMOBJECT",
	CategoryRefParam:     "REFPARAMOBJECT",
	CategoryResult:       "RESULTOBJECT",
	CategoryLocalVar:     "LOCALVOBJECT",
	CategoryProg:         "PROGOBJECT",
	CategoryDatabase:     "DATABASEOBJECT",
	CategorySQLStatement: "SQLSTMTOBJECT",
}

// String returns the conventional upper-case category name.
func (c Category) String() string {
	if c < numCategories {
		return categoryNames[c]
	}
	return "*UNKNOWN_CATEGORY*"
}

// Valid reports whether c names a known category.
func (c Category) Valid() bool {
	return c < numCategories
}

// isRefCategory reports whether objects of this category carry a single
// target object (parameter slots, locals, references, enum bindings).
func (c Category) isRefCategory() bool {
	switch c {
	case CategoryFwdRef, CategoryFormParam, CategoryValueParam, CategoryRefParam,
		CategoryResult, CategoryLocalVar, CategoryConstEnum, CategoryVarEnum,
		CategoryRef, CategoryInterface:
		return true
	}
	return false
}

// isListCategory reports whether objects of this category carry a list.
func (c Category) isListCategory() bool {
	return c == CategoryList || c == CategoryExpr || c == CategoryRefList
}

// isCallCategory reports whether objects of this category are resolved
// invocations.
func (c Category) isCallCategory() bool {
	return c == CategoryCall || c == CategoryMatch
}

// isHandleCategory reports whether objects of this category wrap an
// external resource.
func (c Category) isHandleCategory() bool {
	switch c {
	case CategoryFile, CategorySocket, CategoryDatabase, CategorySQLStatement:
		return true
	}
	return false
}

// isScalar reports whether values of this category need no destructor when
// a local object of the category goes out of scope.
func (c Category) isScalar() bool {
	switch c {
	case CategoryInt, CategoryChar, CategoryFloat, CategoryRef,
		CategoryAction, CategoryEnumLiteral, CategoryConstEnum, CategoryVarEnum:
		return true
	}
	return false
}
