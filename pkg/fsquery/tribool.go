package fsquery

// Tribool is the three-valued result every node evaluation is expressed in.
//
// Uncertain means "expensive to decide synchronously; defer to ApplyBlocked".
// Negating Uncertain yields a second encoding that is still uncertain under
// every method below, so callers never see a difference between the two.
type Tribool uint8

const (
	// False is the concrete false value.
	False Tribool = 0
	// True is the concrete true value.
	True Tribool = 1
	// Uncertain marks an outcome that needs exact evaluation.
	Uncertain Tribool = 2

	// uncertainNegated is Not(Uncertain). Bit 1 marks both uncertain encodings.
	uncertainNegated Tribool = 3
)

// FromBool converts a concrete boolean.
func FromBool(b bool) Tribool {
	if b {
		return True
	}
	return False
}

// IsUncertain reports whether t is undecided.
func (t Tribool) IsUncertain() bool {
	return t&Uncertain != 0
}

// Bool returns the concrete value of t. Uncertain values report false.
func (t Tribool) Bool() bool {
	return t == True
}

// Equal reports whether t and o are the same concrete value.
// Two uncertain values are never equal, so undecided results cannot be
// memoized or deduplicated by comparison.
func (t Tribool) Equal(o Tribool) bool {
	if t.IsUncertain() || o.IsUncertain() {
		return false
	}
	return t == o
}

// NotEqual reports whether t and o are different concrete values.
// Like Equal, it is false whenever either side is uncertain.
func (t Tribool) NotEqual(o Tribool) bool {
	if t.IsUncertain() || o.IsUncertain() {
		return false
	}
	return t != o
}

// Not flips a concrete value. Not(Uncertain) stays uncertain.
func (t Tribool) Not() Tribool {
	return t ^ True
}

// And is the Kleene conjunction: False dominates, then Uncertain.
func (t Tribool) And(o Tribool) Tribool {
	switch {
	case t == False || o == False:
		return False
	case t == True && o == True:
		return True
	}
	return Uncertain
}

// Or is the Kleene disjunction: True dominates, then Uncertain.
func (t Tribool) Or(o Tribool) Tribool {
	switch {
	case t == True || o == True:
		return True
	case t == False && o == False:
		return False
	}
	return Uncertain
}

// Xor needs both operands concrete.
func (t Tribool) Xor(o Tribool) Tribool {
	if t.IsUncertain() || o.IsUncertain() {
		return Uncertain
	}
	return FromBool(t != o)
}

// Xnor needs both operands concrete.
func (t Tribool) Xnor(o Tribool) Tribool {
	if t.IsUncertain() || o.IsUncertain() {
		return Uncertain
	}
	return FromBool(t == o)
}

// String returns "true", "false" or "uncertain".
func (t Tribool) String() string {
	switch {
	case t.IsUncertain():
		return "uncertain"
	case t == True:
		return "true"
	}
	return "false"
}
