package field

import (
	"fmt"
	"strconv"
)

// stringify renders a scalar the way choice values compare: numbers without
// exponent noise, bools as true/false, everything else via fmt.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Stringify exposes scalar rendering for packages that compare a field value
// against option values, for example dependency variant keys.
func Stringify(value any) string {
	if value == nil {
		return ""
	}
	return stringify(value)
}
