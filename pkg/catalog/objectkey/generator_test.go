package objectkey

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testID = uuid.MustParse("987fcdeb-51a2-43d1-9f12-345678901234")

func TestTokenGenerator(t *testing.T) {
	gen := NewTokenGenerator()

	tests := []struct {
		name     string
		metadata *KeyMetadata
		expected string
	}{
		{
			name:     "without metadata",
			metadata: nil,
			expected: "987fcdeb-51a2-43d1-9f12-345678901234",
		},
		{
			name:     "with filename",
			metadata: &KeyMetadata{FileName: "sunset.jpg"},
			expected: "987fcdeb-51a2-43d1-9f12-345678901234_sunset.jpg",
		},
		{
			name:     "path separators are flattened",
			metadata: &KeyMetadata{FileName: "../../etc/passwd"},
			expected: "987fcdeb-51a2-43d1-9f12-345678901234_.._.._etc_passwd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, gen.GenerateKey(testID, tt.metadata))
		})
	}
}

func TestTimestampGenerator(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	gen := NewTimestampGenerator()
	gen.Now = func() time.Time { return fixed }

	first := gen.GenerateKey(uuid.New(), &KeyMetadata{FileName: "clip.mp4"})
	second := gen.GenerateKey(uuid.New(), &KeyMetadata{FileName: "clip.mp4"})

	assert.Equal(t, "1700000000000-1-clip.mp4", first)
	assert.Equal(t, "1700000000000-2-clip.mp4", second)
	assert.NotEqual(t, first, second, "same millisecond and name must still differ")
}

func TestTimestampGeneratorConcurrentUniqueness(t *testing.T) {
	gen := NewTimestampGenerator()
	gen.Now = func() time.Time { return time.UnixMilli(42) }

	const n = 200
	keys := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keys <- gen.GenerateKey(uuid.Nil, &KeyMetadata{FileName: "a.png"})
		}()
	}
	wg.Wait()
	close(keys)

	seen := make(map[string]bool, n)
	for k := range keys {
		assert.False(t, seen[k], "duplicate key %s", k)
		seen[k] = true
	}
	assert.Len(t, seen, n)
}

func TestShardedGenerator(t *testing.T) {
	gen := NewShardedGenerator()

	tests := []struct {
		name     string
		metadata *KeyMetadata
		expected string
	}{
		{
			name:     "thumbnail",
			metadata: &KeyMetadata{FileName: "sunset.jpg", Kind: "thumbnail"},
			expected: "thumbnails/98/7fcdeb51a243d19f12345678901234_sunset.jpg",
		},
		{
			name:     "video",
			metadata: &KeyMetadata{FileName: "my clip.mp4", Kind: "video"},
			expected: "videos/98/7fcdeb51a243d19f12345678901234_my_clip.mp4",
		},
		{
			name:     "no metadata",
			metadata: nil,
			expected: "assets/98/7fcdeb51a243d19f12345678901234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, gen.GenerateKey(testID, tt.metadata))
		})
	}

	wide := &ShardedGenerator{ShardLength: 3}
	assert.True(t, strings.HasPrefix(wide.GenerateKey(testID, nil), "assets/987/"))
}

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		strategy string
		wantErr  bool
	}{
		{"", false},
		{"token", false},
		{"TIMESTAMP", false},
		{"sharded", false},
		{"random", true},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			gen, err := NewGenerator(tt.strategy)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, gen)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, gen.GenerateKey(uuid.New(), &KeyMetadata{FileName: "x.png"}))
		})
	}
}

func TestCustomFuncGenerator(t *testing.T) {
	gen := NewCustomFuncGenerator(func(id uuid.UUID, metadata *KeyMetadata) string {
		return "custom/" + metadata.Kind + "/" + id.String()
	})

	assert.Equal(t, "custom/video/"+testID.String(), gen.GenerateKey(testID, &KeyMetadata{Kind: "video"}))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c.png", sanitizeFilename("a b/c.png"))
	assert.Equal(t, "file", sanitizeFilename(".."))
	assert.Equal(t, "file", sanitizeFilename("   "))
	assert.Equal(t, "tab.png", sanitizeFilename("ta\tb.png"))
}
