package minio

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in         string
		wantHost   string
		wantSecure bool
	}{
		{in: "localhost:9000", wantHost: "localhost:9000", wantSecure: false},
		{in: "http://minio:9000", wantHost: "minio:9000", wantSecure: false},
		{in: "https://s3.example.com", wantHost: "s3.example.com", wantSecure: true},
	}

	for _, tt := range tests {
		host, secure := normalizeEndpoint(tt.in)
		require.Equal(t, tt.wantHost, host, tt.in)
		require.Equal(t, tt.wantSecure, secure, tt.in)
	}
}

func TestObjectKey(t *testing.T) {
	t.Parallel()

	a := &ExportArchive{
		prefix: "exports",
		now:    func() time.Time { return time.Date(2026, time.October, 19, 10, 0, 0, 0, time.UTC) },
	}

	key := a.objectKey("Oct-19-2026_user_list.csv")
	require.True(t, strings.HasPrefix(key, "exports/2026-10-19/"), key)
	require.True(t, strings.HasSuffix(key, "_Oct-19-2026_user_list.csv"), key)

	// Путь из имени не должен выходить за префикс.
	key = a.objectKey("../../etc/passwd")
	require.True(t, strings.HasPrefix(key, "exports/2026-10-19/"), key)
	require.True(t, strings.HasSuffix(key, "_passwd"), key)
}
