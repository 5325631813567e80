// minio предоставляет реализацию storage.ExportArchive на базе MinIO/S3.
// Конструктор нормализует endpoint, настраивает Secure/creds и проверяет
// наличие целевого бакета; PutExport сохраняет CSV под ключом
// "<prefix>/<YYYY-MM-DD>/<uuid>_<name>".
package minio

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pribylovaa/user-manager/internal/config"
	"github.com/pribylovaa/user-manager/internal/storage"
)

// ExportArchive — адаптер MinIO для архива выгрузок.
type ExportArchive struct {
	client *mclient.Client
	bucket string
	prefix string
	now    func() time.Time
}

// New создаёт клиент MinIO и выполняет fail-fast-проверку бакета.
func New(ctx context.Context, cfg config.ArchiveConfig) (*ExportArchive, error) {
	const op = "storage/minio/New"

	endpoint, secure := normalizeEndpoint(cfg.Endpoint)

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.RootUser, cfg.RootPassword, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, cfg.Bucket)
	}

	return &ExportArchive{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		now:    time.Now,
	}, nil
}

// normalizeEndpoint убирает схему из endpoint и подбирает Secure по ней.
func normalizeEndpoint(raw string) (string, bool) {
	endpoint := raw
	secure := strings.HasPrefix(endpoint, "https://")

	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	return endpoint, secure
}

// objectKey строит ключ объекта для имени файла выгрузки.
func (a *ExportArchive) objectKey(name string) string {
	day := a.now().UTC().Format("2006-01-02")
	return path.Join(a.prefix, day, uuid.NewString()+"_"+path.Base(name))
}

// PutExport загружает документ в бакет с Content-Type text/csv.
func (a *ExportArchive) PutExport(ctx context.Context, name string, data []byte) (string, error) {
	const op = "storage/minio/PutExport"

	key := a.objectKey(name)

	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)),
		mclient.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return key, nil
}

// Проверка выполнения контракта.
var _ storage.ExportArchive = (*ExportArchive)(nil)
