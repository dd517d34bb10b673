package condition

import "fmt"

// ArityKind distinguishes the three argument shapes a filter can take.
type ArityKind int

const (
	// ArityZero takes no arguments.
	ArityZero ArityKind = iota
	// ArityFixed takes exactly N arguments.
	ArityFixed
	// ArityVariadic takes at least N arguments; the trailing ones are
	// collected into a sequence.
	ArityVariadic
)

// Arity is the required argument count/shape for a filter.
type Arity struct {
	Kind ArityKind
	N    int
}

// Zero returns the zero-argument arity.
func Zero() Arity { return Arity{Kind: ArityZero} }

// Fixed returns an arity of exactly n arguments. Fixed(0) is Zero.
func Fixed(n int) Arity {
	if n <= 0 {
		return Zero()
	}
	return Arity{Kind: ArityFixed, N: n}
}

// Variadic returns an arity of at least min arguments.
func Variadic(minArgs int) Arity {
	if minArgs < 0 {
		minArgs = 0
	}
	return Arity{Kind: ArityVariadic, N: minArgs}
}

// IsZero reports whether the filter takes no arguments.
func (a Arity) IsZero() bool {
	return a.Kind == ArityZero
}

// Accepts reports whether n arguments satisfy the arity.
func (a Arity) Accepts(n int) bool {
	switch a.Kind {
	case ArityZero:
		return n == 0
	case ArityFixed:
		return n == a.N
	case ArityVariadic:
		return n >= a.N
	default:
		return false
	}
}

// String renders the arity as Zero, Fixed(n) or Variadic(min).
func (a Arity) String() string {
	switch a.Kind {
	case ArityZero:
		return "Zero"
	case ArityFixed:
		return fmt.Sprintf("Fixed(%d)", a.N)
	case ArityVariadic:
		return fmt.Sprintf("Variadic(%d)", a.N)
	default:
		return fmt.Sprintf("Arity(%d)", int(a.Kind))
	}
}

// ArgType is the advisory primitive shape a filter's arguments should be
// coerced to by the caller. It is never enforced here.
type ArgType string

const (
	ArgText    ArgType = "text"
	ArgNumeric ArgType = "numeric"
	ArgDate    ArgType = "date"
	ArgBoolean ArgType = "boolean"
)

// ArgTypeForColumn maps a schema column type to an argument type tag.
// Unknown column types default to text.
func ArgTypeForColumn(columnType string) ArgType {
	switch columnType {
	case "int", "integer", "numeric", "decimal":
		return ArgNumeric
	case "date", "datetime", "timestamp":
		return ArgDate
	case "bool", "boolean":
		return ArgBoolean
	default:
		return ArgText
	}
}

// Signature is what a filter declares about its invocation contract.
type Signature struct {
	Arity   Arity
	ArgType ArgType
}
