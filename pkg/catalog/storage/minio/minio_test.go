package minio

import (
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-catalog/pkg/catalog/objectkey"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing endpoint",
			cfg:     Config{AccessKeyID: "a", SecretAccessKey: "b", BucketName: "c"},
			wantErr: "endpoint",
		},
		{
			name:    "missing credentials",
			cfg:     Config{Endpoint: "localhost:9000", BucketName: "c"},
			wantErr: "credentials",
		},
		{
			name:    "missing bucket",
			cfg:     Config{Endpoint: "localhost:9000", AccessKeyID: "a", SecretAccessKey: "b"},
			wantErr: "bucket",
		},
		{
			name: "valid",
			cfg:  Config{Endpoint: "localhost:9000", AccessKeyID: "a", SecretAccessKey: "b", BucketName: "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNew_NoNetworkWithoutEnsureBucket(t *testing.T) {
	backend, err := New(Config{
		Endpoint:        "localhost:9000",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		BucketName:      "catalog",
		Generator:       objectkey.NewShardedGenerator(),
	})
	require.NoError(t, err)
	assert.Equal(t, "catalog", backend.bucket)
	assert.IsType(t, &objectkey.ShardedGenerator{}, backend.generator)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("connection refused")))
}
