package value

import "strconv"

// Format renders v the way PRINT (§4.1) and the language's implicit
// stringification do: nil -> "nil", booleans -> "true"/"false", numbers ->
// the shortest decimal that round-trips to the same 32-bit float, strings
// -> their raw content with no surrounding quotes. Callables render with a
// name for readability; they are never produced by a well-typed PRINT of a
// comparison or arithmetic result, but can reach PRINT directly
// (`print clock;`), so a stable representation is still required.
func (v Value) Format() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case KindNumber:
		return strconv.FormatFloat(float64(v.number), 'g', -1, 32)
	case KindString:
		return v.AsString().String()
	case KindFunction, KindNative, KindClosure:
		if s, ok := v.heap.(stringer); ok {
			return s.String()
		}
		return "<" + v.kind.String() + ">"
	default:
		return "<invalid value>"
	}
}

// stringer mirrors fmt.Stringer; object.Function/Native/Closure all
// implement String(), this just avoids importing fmt for one interface.
type stringer interface {
	String() string
}
