package ir

// Block is an ordered list of nodes executed in list order. Used as a value,
// a block evaluates to its last node.
type Block struct {
	Stmts []Expr
}

func (*Block) exprNode() {}

// NewBlock returns a block holding stmts.
func NewBlock(stmts ...Expr) *Block { return &Block{Stmts: stmts} }

// Append adds stmts to the end of b.
func (b *Block) Append(stmts ...Expr) { b.Stmts = append(b.Stmts, stmts...) }

// Last returns the last statement that is not Empty, or nil.
func (b *Block) Last() Expr {
	for i := len(b.Stmts) - 1; i >= 0; i-- {
		if _, ok := b.Stmts[i].(*Empty); !ok {
			return b.Stmts[i]
		}
	}
	return nil
}

// IsEmpty reports whether b is nil or holds only Empty statements.
func (b *Block) IsEmpty() bool { return b == nil || b.Last() == nil }

// Assignment stores Value into Target. Target is a VariableRead, or a
// MemberAccess or Index chain rooted at one.
type Assignment struct {
	Target Expr
	Value  Expr
}

func (*Assignment) exprNode() {}

// Conditional is an if statement, or with Ternary set, a conditional
// expression. Failure may be nil for an if without else.
type Conditional struct {
	Test    Expr
	Success Expr
	Failure Expr
	Ternary bool
	Type    Type
}

func (*Conditional) exprNode() {}

// Label is a jump target. Identity is by pointer.
type Label struct {
	Name string
}

func (*Label) exprNode() {}

// Loop repeats Body until a Goto to Break. A Goto to Continue starts the
// next iteration.
type Loop struct {
	Body     *Block
	Break    *Label
	Continue *Label
}

func (*Loop) exprNode() {}

// NewLoop returns a loop with fresh break and continue labels.
func NewLoop(body *Block) *Loop {
	return &Loop{Body: body, Break: &Label{Name: "break"}, Continue: &Label{Name: "continue"}}
}

// Goto transfers control to Target.
type Goto struct {
	Target *Label
}

func (*Goto) exprNode() {}

// Return leaves the method. Value is nil for void methods.
type Return struct {
	Value Expr
}

func (*Return) exprNode() {}

// Empty does nothing. Passes leave it behind instead of splicing lists.
type Empty struct{}

func (*Empty) exprNode() {}

// IsEmptyStmt reports whether e is nil, Empty, or an empty Block.
func IsEmptyStmt(e Expr) bool {
	switch e := e.(type) {
	case nil, *Empty:
		return true
	case *Block:
		return e.IsEmpty()
	}
	return false
}

// EndsInReturn reports whether control cannot fall off the end of e.
func EndsInReturn(e Expr) bool {
	switch e := e.(type) {
	case *Return:
		return true
	case *Block:
		return e != nil && EndsInReturn(e.Last())
	case *Conditional:
		return !e.Ternary && e.Failure != nil && EndsInReturn(e.Success) && EndsInReturn(e.Failure)
	}
	return false
}
