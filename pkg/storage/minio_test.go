package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starkeys-go/internal/config"
)

func TestNewReportUploader_DisabledWithoutEndpoint(t *testing.T) {
	uploader, err := NewReportUploader(context.Background(), config.MinIOConfig{})
	require.NoError(t, err)
	assert.Nil(t, uploader)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", contentType("/tmp/err_ids.csv"))
	assert.Equal(t, "application/octet-stream", contentType("/tmp/report.bin"))
}
