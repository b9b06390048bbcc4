package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

func coerce(v any, t ColumnType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case Int:
		return toInt(v)
	case Bool:
		return toBool(v)
	default:
		return toText(v), nil
	}
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func toInt(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		if x != math.Trunc(x) {
			return nil, fmt.Errorf("%v is not a whole number", x)
		}
		return int64(x), nil
	case json.Number:
		return x.Int64()
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil, nil
		}
		return strconv.ParseInt(s, 10, 64)
	default:
		return nil, fmt.Errorf("unsupported number %T", v)
	}
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case float64:
		return x != 0, nil
	case int:
		return x != 0, nil
	case int64:
		return x != 0, nil
	case json.Number:
		f, err := x.Float64()
		return f != 0, err
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "", "false", "no", "n", "0", "off":
			return false, nil
		case "true", "yes", "y", "1", "on", "si", "sim":
			return true, nil
		}
		return nil, fmt.Errorf("%q is not a yes/no value", x)
	default:
		return nil, fmt.Errorf("unsupported flag %T", v)
	}
}
