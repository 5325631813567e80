package derive

import "strconv"

const (
	LabelBizz     = "Bizz"
	LabelFuzz     = "Fuzz"
	LabelBizzFuzz = "BizzFuzz"
)

// BizzFuzz классифицирует число по делимости (приоритет сверху вниз):
// кратно 15 -> BizzFuzz, кратно 3 -> Bizz, кратно 5 -> Fuzz,
// иначе — само число в десятичной записи. nil -> "".
func BizzFuzz(n *int) string {
	if n == nil {
		return ""
	}

	return classify(int64(*n))
}

func classify(n int64) string {
	switch {
	case n%3 == 0 && n%5 == 0:
		return LabelBizzFuzz
	case n%3 == 0:
		return LabelBizz
	case n%5 == 0:
		return LabelFuzz
	default:
		return strconv.FormatInt(n, 10)
	}
}
