package s3blob

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"makersim/internal/domain"
)

func TestNewRequiresBucketAndRegion(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, ClientConfig{Region: "auto"})
	require.ErrorContains(t, err, "bucket")

	_, err = New(ctx, ClientConfig{Bucket: "makersim"})
	require.ErrorContains(t, err, "region")
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "http://localhost:9000", normaliseEndpoint("localhost:9000", false))
	assert.Equal(t, "https://storage.example.com", normaliseEndpoint("storage.example.com", true))

	// An explicit scheme is kept regardless of the TLS flag.
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("http://minio:9000", true))
	assert.Equal(t, "https://acct.r2.cloudflarestorage.com", normaliseEndpoint("https://acct.r2.cloudflarestorage.com", false))
}

func TestResultPathMatchesDomainScheme(t *testing.T) {
	result := domain.Result{
		RunID:     "2f2c7a7e-1111-2222-3333-444455556666",
		StartedAt: time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC),
	}
	assert.Equal(t, "results/2026/08/2f2c7a7e-1111-2222-3333-444455556666.json", resultPath(result))
	assert.Equal(t, resultPath(result), domain.ResultBlobPath(result.RunID, result.StartedAt))
}
