package layout

// Op identifies an abstract array operation.
type Op uint8

const (
	OpRelease Op = iota
	OpCopy
	OpGet
	OpGetThrow
	OpSet
	OpRemove
	OpAppend
	OpIterBegin
	OpIterLast
	OpIterEnd
	OpIterAdvance
	OpGetPosKey
	OpGetPosVal
	OpElem
	OpEscalateToVanilla

	NumOps
)

var opNames = [...]string{
	OpRelease:           "Release",
	OpCopy:              "Copy",
	OpGet:               "Get",
	OpGetThrow:          "GetThrow",
	OpSet:               "Set",
	OpRemove:            "Remove",
	OpAppend:            "Append",
	OpIterBegin:         "IterBegin",
	OpIterLast:          "IterLast",
	OpIterEnd:           "IterEnd",
	OpIterAdvance:       "IterAdvance",
	OpGetPosKey:         "GetPosKey",
	OpGetPosVal:         "GetPosVal",
	OpElem:              "Elem",
	OpEscalateToVanilla: "EscalateToVanilla",
}

func (op Op) String() string {
	if op < NumOps {
		return opNames[op]
	}
	return "Unknown"
}

// Keyed reports whether the op takes a key and is specialized by KeyKind.
func (op Op) Keyed() bool {
	switch op {
	case OpGet, OpGetThrow, OpSet, OpRemove, OpElem:
		return true
	}
	return false
}

// Mutates reports whether the op returns a possibly different array.
func (op Op) Mutates() bool {
	switch op {
	case OpCopy, OpSet, OpRemove, OpAppend, OpElem, OpEscalateToVanilla:
		return true
	}
	return false
}

var opArity = [NumOps][2]int{
	OpRelease:           {1, 0},
	OpCopy:              {1, 1},
	OpGet:               {2, 2},
	OpGetThrow:          {2, 2},
	OpSet:               {4, 1},
	OpRemove:            {2, 1},
	OpAppend:            {3, 1},
	OpIterBegin:         {1, 1},
	OpIterLast:          {1, 1},
	OpIterEnd:           {1, 1},
	OpIterAdvance:       {2, 1},
	OpGetPosKey:         {2, 2},
	OpGetPosVal:         {2, 2},
	OpElem:              {3, 3},
	OpEscalateToVanilla: {2, 1},
}

// Params returns the number of stack words the op reads.
func (op Op) Params() int { return opArity[op][0] }

// Results returns the number of stack words the op writes.
func (op Op) Results() int { return opArity[op][1] }

// StackSize returns the stack length needed to call the op.
func (op Op) StackSize() int {
	return max(op.Params(), op.Results())
}

// KeyKind is the static kind of an operation's key.
type KeyKind uint8

const (
	KeyNone KeyKind = iota
	KeyInt
	KeyStr

	NumKeyKinds
)

var keyKindNames = [...]string{
	KeyNone: "",
	KeyInt:  "Int",
	KeyStr:  "Str",
}

func (k KeyKind) String() string {
	if k < NumKeyKinds {
		return keyKindNames[k]
	}
	return "?"
}

// Symbol returns the op's name specialized for key, e.g. "GetStr".
func (op Op) Symbol(key KeyKind) string {
	if !op.Keyed() {
		return op.String()
	}
	return op.String() + key.String()
}
