package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pribylovaa/user-manager/internal/export"
	"github.com/pribylovaa/user-manager/pkg/log"
)

// ExportResult — итог CSV-выгрузки.
type ExportResult struct {
	// Filename — имя файла для Content-Disposition.
	Filename string
	// Rows — число строк данных (без заголовка).
	Rows int
	// ArchiveKey — ключ копии в архиве; пусто, если архив не настроен или загрузка не удалась.
	ArchiveKey string
}

// ExportUsersCSV формирует CSV со всеми активными пользователями без staff
// и пишет его в w только целиком: при ошибке хранилища в w ничего не попадает.
//
// Если настроен архив выгрузок, документ дополнительно сохраняется туда;
// ошибка архива логируется и не влияет на результат.
func (s *Service) ExportUsersCSV(ctx context.Context, w io.Writer) (ExportResult, error) {
	const op = "service/export/ExportUsersCSV"

	lg := log.From(ctx).With("op", op)

	users, err := s.ListUsers(ctx)
	if err != nil {
		return ExportResult{}, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now()

	var buf bytes.Buffer
	rows, err := export.WriteUsers(&buf, users, now)
	if err != nil {
		lg.Error("csv render failed", "err", err)

		return ExportResult{}, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	res := ExportResult{Filename: export.Filename(now), Rows: rows}

	if s.archive != nil {
		key, err := s.archive.PutExport(ctx, res.Filename, buf.Bytes())
		if err != nil {
			lg.Warn("csv_archive_failed", slog.String("err", err.Error()))
		} else {
			res.ArchiveKey = key
		}
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		lg.Error("csv write failed", "err", err)

		return ExportResult{}, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	s.metrics.Export(rows)
	lg.Info("csv_export_done", slog.Int("rows", rows), slog.String("archive_key", res.ArchiveKey))

	return res, nil
}
