package objectkey

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Strategy names accepted by NewGenerator
const (
	StrategyToken     = "token"
	StrategyTimestamp = "timestamp"
	StrategySharded   = "sharded"
)

// Generator defines the interface for asset reference naming strategies
type Generator interface {
	// GenerateKey creates a storage key; id is a fresh random identifier
	// supplied by the asset store
	GenerateKey(id uuid.UUID, metadata *KeyMetadata) string
}

// KeyMetadata contains information that influences key generation
type KeyMetadata struct {
	FileName    string
	ContentType string
	Kind        string // "thumbnail" or "video"
}

// NewGenerator returns the generator for a named strategy
func NewGenerator(strategy string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategyToken:
		return NewTokenGenerator(), nil
	case StrategyTimestamp:
		return NewTimestampGenerator(), nil
	case StrategySharded:
		return NewShardedGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown key strategy %q", strategy)
	}
}

// TokenGenerator names every asset after its random id: {id}_{filename}
type TokenGenerator struct{}

func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

func (g *TokenGenerator) GenerateKey(id uuid.UUID, metadata *KeyMetadata) string {
	if metadata != nil && metadata.FileName != "" {
		return fmt.Sprintf("%s_%s", id, sanitizeFilename(metadata.FileName))
	}
	return id.String()
}

// TimestampGenerator reproduces the legacy "{millis}-{name}" layout. A
// process-wide counter is inserted so two files stored in the same
// millisecond never collide.
type TimestampGenerator struct {
	Now     func() time.Time
	counter atomic.Uint64
}

func NewTimestampGenerator() *TimestampGenerator {
	return &TimestampGenerator{Now: time.Now}
}

func (g *TimestampGenerator) GenerateKey(_ uuid.UUID, metadata *KeyMetadata) string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	seq := g.counter.Add(1)

	name := "file"
	if metadata != nil && metadata.FileName != "" {
		name = sanitizeFilename(metadata.FileName)
	}
	return fmt.Sprintf("%d-%d-%s", now().UnixMilli(), seq, name)
}

// ShardedGenerator provides Git-style sharded storage grouped by file kind
// Thumbnails: thumbnails/ab/cd1234ef5678_filename
// Videos:     videos/ab/cd1234ef5678_filename
type ShardedGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewShardedGenerator() *ShardedGenerator {
	return &ShardedGenerator{
		ShardLength: 2,
	}
}

func (g *ShardedGenerator) GenerateKey(id uuid.UUID, metadata *KeyMetadata) string {
	idStr := strings.ReplaceAll(id.String(), "-", "")

	shardLength := g.ShardLength
	if shardLength <= 0 {
		shardLength = 2
	}
	if shardLength > len(idStr) {
		shardLength = len(idStr)
	}

	shardDir := idStr[:shardLength]
	filename := idStr[shardLength:]
	if metadata != nil && metadata.FileName != "" {
		filename = fmt.Sprintf("%s_%s", filename, sanitizeFilename(metadata.FileName))
	}

	prefix := "assets"
	if metadata != nil && metadata.Kind != "" {
		prefix = sanitizePathComponent(metadata.Kind) + "s"
	}

	return fmt.Sprintf("%s/%s/%s", prefix, shardDir, filename)
}

// CustomFuncGenerator allows callers to provide their own key generation function
type CustomFuncGenerator struct {
	GenerateFunc func(id uuid.UUID, metadata *KeyMetadata) string
}

func NewCustomFuncGenerator(fn func(id uuid.UUID, metadata *KeyMetadata) string) *CustomFuncGenerator {
	return &CustomFuncGenerator{
		GenerateFunc: fn,
	}
}

func (g *CustomFuncGenerator) GenerateKey(id uuid.UUID, metadata *KeyMetadata) string {
	return g.GenerateFunc(id, metadata)
}

var unsafeChars = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
	"%", "_",
	"#", "_",
)

// sanitizeFilename keeps a client-supplied name safe to embed in a single
// path segment and a URL
func sanitizeFilename(filename string) string {
	name := unsafeChars.Replace(strings.TrimSpace(filename))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" || strings.Trim(name, ".") == "" {
		return "file"
	}
	return name
}

func sanitizePathComponent(component string) string {
	return strings.ToLower(sanitizeFilename(component))
}
