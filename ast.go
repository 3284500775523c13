package mindbend

// Expr is any node reachable from the top-level Organism list (spec §3.2).
// Repr renders the node back to a single-line, deterministic textual form
// used by DumpOrganism (the CLI's -dump-ast mode).
type Expr interface {
	Repr() string
}

// Organism is the right-leaning list that is the program's top-level shape
// (spec §3.2, §4.2): Child holds one expression, Right links to the rest of
// the Organism, nil at the final node. A TripleSixEqO splice (spec §4.2.1)
// inserts a node mid-stream without otherwise disturbing the chain.
type Organism struct {
	Child Expr
	Right *Organism
}

func (o *Organism) Repr() string {
	if o == nil {
		return ""
	}
	s := o.Child.Repr()
	if o.Right != nil {
		s += " ~ " + o.Right.Repr()
	}
	return s
}

// RegionExpr is a standalone region-change expression ("->L" / "->C").
type RegionExpr struct {
	Pos    Pos
	Region Region
}

func (e *RegionExpr) Repr() string {
	if e.Region == RegionLayers {
		return "->L"
	}
	return "->C"
}

// DrillExpr is a single drill-gate-forward expression.
type DrillExpr struct {
	Pos Pos
}

func (e *DrillExpr) Repr() string { return `\|//` }

// LabelExpr declares a jump target at this point in the Organism.
type LabelExpr struct {
	Pos  Pos
	Name string
}

func (e *LabelExpr) Repr() string { return "label:" + e.Name + ":" }

// JumpExpr is an unconditional or conditional jump to a declared label.
type JumpExpr struct {
	Pos         Pos
	Target      string
	Conditional bool
}

func (e *JumpExpr) Repr() string {
	if e.Conditional {
		return "ijmp:" + e.Target + ":"
	}
	return "jmp:" + e.Target + ":"
}

// CellExpr is a lone cell reference, e.g. appearing without being the left
// or right side of a leach (spec §3.2 "Cell Expression").
type CellExpr struct {
	Pos  Pos
	Cell int
}

func (e *CellExpr) Repr() string { return cellRepr(e.Cell) }

// PrimitiveExpr is a lone primitive reference, appearing outside a leach.
type PrimitiveExpr struct {
	Pos   Pos
	Value PrimitiveValue
}

func (e *PrimitiveExpr) Repr() string { return "$" + e.Value.String() }

// LeachExpr models a "leach" relation (spec §3.2, §4.2.1): Left leaches onto
// Right. Right is itself always a *LeachExpr — a bare cell target is
// represented as a LeachExpr whose own Right is nil — so a massacre chain
// reads out as a singly linked list of Left idents terminating at the node
// with Right == nil. IsChain is true only on the outermost node of a chain
// that ended in a massacre terminator; every inner link carries false.
// RegionChanges holds any "->L"/"->C" tokens that appeared between Left and
// the leach arrow; only ever populated when Left is a Primitive.
type LeachExpr struct {
	Pos           Pos
	Left          Expr
	Right         *LeachExpr
	IsChain       bool
	RegionChanges []*RegionExpr
}

func (e *LeachExpr) Repr() string {
	s := "(left: " + e.Left.Repr() + ", right: "
	if e.Right != nil {
		s += e.Right.Repr()
	} else {
		s += "None"
	}
	s += ", is_chain: "
	if e.IsChain {
		s += "true"
	} else {
		s += "false"
	}
	return s + ")"
}

// Cells returns the ordered list of cell idents along a chain leach, read
// left to right starting at the function cell: [f, a0, a1, ..., aN].
func (e *LeachExpr) Cells() []int {
	var out []int
	for cur := e; cur != nil; cur = cur.Right {
		if c, ok := cur.Left.(*CellExpr); ok {
			out = append(out, c.Cell)
		}
	}
	return out
}

// DummyExpr fills a hole left by a TripleSixEqO splice that is immediately
// followed by end of input (spec §4.2, "mid-stream separator").
type DummyExpr struct{}

func (e *DummyExpr) Repr() string { return "Dummy Expression" }

func cellRepr(cell int) string {
	if cell < 10 {
		return string(rune('0' + cell))
	}
	return string(rune('A' + (cell - 10)))
}
