// export формирует CSV-выгрузку пользователей: заголовок, строки
// с вычисляемыми атрибутами (derive) и имя файла для Content-Disposition.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pribylovaa/user-manager/internal/derive"
	"github.com/pribylovaa/user-manager/internal/models"
)

// ContentType — MIME-тип выгрузки.
const ContentType = "text/csv"

// filenameLayout соответствует "<Mon>-<DD>-<YYYY>", например "Oct-19-2026".
const filenameLayout = "Jan-02-2006"

// Header — фиксированная первая строка документа.
var Header = []string{"Username", "Birthday", "Eligible", "Random Number", "BizzFuzz"}

// Filename возвращает имя файла выгрузки на дату now.
func Filename(now time.Time) string {
	return now.Format(filenameLayout) + "_user_list.csv"
}

// ContentDisposition возвращает значение заголовка Content-Disposition для файла filename.
func ContentDisposition(filename string) string {
	return fmt.Sprintf(`attachment; filename="%s"`, filename)
}

// Row собирает строку CSV для одного пользователя.
// Отсутствующие дата рождения и число дают пустые ячейки.
func Row(u *models.User, now time.Time) []string {
	random := ""
	if u.RandomNumber != nil {
		random = strconv.Itoa(*u.RandomNumber)
	}

	return []string{
		u.Username,
		u.BirthDateString(),
		derive.Eligibility(u.BirthDate, now),
		random,
		derive.BizzFuzz(u.RandomNumber),
	}
}

// WriteUsers пишет заголовок и по строке на пользователя в порядке users.
// Возвращает количество строк данных (без заголовка).
func WriteUsers(w io.Writer, users []models.User, now time.Time) (int, error) {
	const op = "export/WriteUsers"

	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	for i := range users {
		if err := cw.Write(Row(&users[i], now)); err != nil {
			return i, fmt.Errorf("%s: %w", op, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return len(users), fmt.Errorf("%s: %w", op, err)
	}

	return len(users), nil
}
