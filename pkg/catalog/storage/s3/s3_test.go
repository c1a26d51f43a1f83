package s3

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-catalog/pkg/catalog/objectkey"
)

// TestS3Backend_BasicConfiguration tests the configuration and creation of S3 backend
func TestS3Backend_BasicConfiguration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("DefaultRegion", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", backend.config.Region)
		assert.IsType(t, &objectkey.TokenGenerator{}, backend.generator)
	})

	t.Run("InvalidSSEAlgorithm", func(t *testing.T) {
		_, err := New(Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			EnableSSE:       true,
			SSEAlgorithm:    "rot13",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid SSE")
	})

	t.Run("CustomEndpoint", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "test-bucket",
			Region:          "us-east-1",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			Endpoint:        "http://localhost:9000",
			UsePathStyle:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:9000", aws.ToString(backend.client.Options().BaseEndpoint))
		assert.True(t, backend.client.Options().UsePathStyle)
	})
}

func TestS3Backend_PutInput(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		contentType string
		wantIfNone  bool
		wantSSE     types.ServerSideEncryption
		wantKMSKey  string
	}{
		{
			name:        "conditional write by default",
			config:      Config{Bucket: "b"},
			contentType: "video/mp4",
			wantIfNone:  true,
		},
		{
			name:       "conditional write disabled",
			config:     Config{Bucket: "b", SkipConditionalWrite: true},
			wantIfNone: false,
		},
		{
			name:       "AES256",
			config:     Config{Bucket: "b", EnableSSE: true, SSEAlgorithm: "AES256"},
			wantIfNone: true,
			wantSSE:    types.ServerSideEncryptionAes256,
		},
		{
			name:       "KMS with key",
			config:     Config{Bucket: "b", EnableSSE: true, SSEAlgorithm: "aws:kms", SSEKMSKeyID: "key-1"},
			wantIfNone: true,
			wantSSE:    types.ServerSideEncryptionAwsKms,
			wantKMSKey: "key-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Backend{bucket: tt.config.Bucket, config: tt.config}
			input := b.putInput("thumbnails/ab/cd_x.png", strings.NewReader("x"), tt.contentType)

			assert.Equal(t, "b", aws.ToString(input.Bucket))
			assert.Equal(t, "thumbnails/ab/cd_x.png", aws.ToString(input.Key))
			assert.Equal(t, tt.contentType, aws.ToString(input.ContentType))
			if tt.wantIfNone {
				assert.Equal(t, "*", aws.ToString(input.IfNoneMatch))
			} else {
				assert.Nil(t, input.IfNoneMatch)
			}
			assert.Equal(t, tt.wantSSE, input.ServerSideEncryption)
			assert.Equal(t, tt.wantKMSKey, aws.ToString(input.SSEKMSKeyId))
		})
	}
}

func TestS3Backend_ErrorClassification(t *testing.T) {
	precondition := &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
	assert.Equal(t, "PreconditionFailed", apiErrorCode(fmt.Errorf("upload: %w", precondition)))
	assert.Equal(t, "", apiErrorCode(errors.New("plain")))
	assert.Equal(t, "", apiErrorCode(nil))

	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, isNotFound(precondition))
}
