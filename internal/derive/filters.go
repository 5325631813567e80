package derive

import (
	"html/template"
	"math"
	"time"
)

// Имена фильтров в шаблонах.
const (
	FilterCalculateAge = "calculate_age"
	FilterGetBizzFuzz  = "get_bizz_fuzz"
)

// FuncMap возвращает фильтры для html/template.
// now — источник текущей даты; nil означает time.Now.
//
// Фильтры вариативные: их можно вызвать без аргумента, с nil
// или с аргументом неподходящего типа — результат будет "".
func FuncMap(now func() time.Time) template.FuncMap {
	if now == nil {
		now = time.Now
	}

	return template.FuncMap{
		FilterCalculateAge: func(args ...any) string {
			return EligibilityOf(now(), args...)
		},
		FilterGetBizzFuzz: BizzFuzzOf,
	}
}

// EligibilityOf — нетипизированный вариант Eligibility.
// Берётся последний аргумент (так html/template передаёт значение из пайплайна).
// Поддерживаются time.Time и *time.Time.
func EligibilityOf(now time.Time, args ...any) string {
	if len(args) == 0 {
		return ""
	}

	switch v := args[len(args)-1].(type) {
	case time.Time:
		return Eligibility(&v, now)
	case *time.Time:
		return Eligibility(v, now)
	default:
		return ""
	}
}

// BizzFuzzOf — нетипизированный вариант BizzFuzz.
// Поддерживаются все целые типы Go, указатели на int/int32/int64
// и float32/float64 с целым значением (3.0 — "Bizz", 7.0 — "7").
func BizzFuzzOf(args ...any) string {
	if len(args) == 0 {
		return ""
	}

	n, ok := toInt64(args[len(args)-1])
	if !ok {
		return ""
	}

	return classify(n)
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return uintToInt64(uint64(x))
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return uintToInt64(x)
	case *int:
		if x == nil {
			return 0, false
		}
		return int64(*x), true
	case *int32:
		if x == nil {
			return 0, false
		}
		return int64(*x), true
	case *int64:
		if x == nil {
			return 0, false
		}
		return *x, true
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	default:
		return 0, false
	}
}

func uintToInt64(u uint64) (int64, bool) {
	if u > 1<<63-1 {
		return 0, false
	}

	return int64(u), true
}

// floatToInt64 принимает только конечные целые значения в диапазоне int64.
func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}

	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}

	return int64(f), true
}
