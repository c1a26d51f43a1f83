package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrInvalidFilePart indicates a file part with an unknown field name or
	// a content type outside the accepted set for its kind
	ErrInvalidFilePart = errors.New("invalid file part")

	// ErrMissingRequiredFiles indicates a create without both a thumbnail and a video
	ErrMissingRequiredFiles = errors.New("both thumbnail and video files are required")

	// ErrMissingOwner indicates a create without an owner identifier
	ErrMissingOwner = errors.New("owner id is required")

	// ErrInvalidField indicates a text field outside its bounds
	ErrInvalidField = errors.New("invalid field")

	// ErrInvalidIdentifier indicates a malformed entry identifier
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrNotFound indicates a well-formed identifier with no entry behind it
	ErrNotFound = errors.New("entry not found")

	// ErrStoreUnavailable indicates the asset store rejected a write
	ErrStoreUnavailable = errors.New("asset store unavailable")

	// ErrPartialUploadFailure indicates a multi-file store aborted midway
	ErrPartialUploadFailure = errors.New("partial upload failure")

	// ErrAssetNotFound indicates no blob exists under the given reference
	ErrAssetNotFound = errors.New("asset not found")

	// ErrAssetExists indicates a store refused to overwrite an existing blob
	ErrAssetExists = errors.New("asset already exists")
)

// Kind is the stable name of an error class reported to callers
type Kind string

const (
	KindInvalidFilePart      Kind = "InvalidFilePart"
	KindMissingRequiredFiles Kind = "MissingRequiredFiles"
	KindMissingOwner         Kind = "MissingOwner"
	KindInvalidField         Kind = "InvalidField"
	KindInvalidIdentifier    Kind = "InvalidIdentifier"
	KindNotFound             Kind = "NotFound"
	KindStoreUnavailable     Kind = "StoreUnavailable"
	KindPartialUploadFailure Kind = "PartialUploadFailure"
	KindInternal             Kind = "Internal"
)

// kindOrder is checked first to last; PartialUploadFailure must precede
// StoreUnavailable because an UploadError matches both.
var kindOrder = []struct {
	err  error
	kind Kind
}{
	{ErrPartialUploadFailure, KindPartialUploadFailure},
	{ErrInvalidFilePart, KindInvalidFilePart},
	{ErrMissingRequiredFiles, KindMissingRequiredFiles},
	{ErrMissingOwner, KindMissingOwner},
	{ErrInvalidField, KindInvalidField},
	{ErrInvalidIdentifier, KindInvalidIdentifier},
	{ErrNotFound, KindNotFound},
	{ErrAssetNotFound, KindNotFound},
	{ErrStoreUnavailable, KindStoreUnavailable},
}

// KindOf classifies err into one of the stable error kinds
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kindOrder {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// PartError describes why a single file part was rejected
type PartError struct {
	Field       string
	FileName    string
	ContentType string
	Reason      string
}

func (e *PartError) Error() string {
	return fmt.Sprintf("invalid file part %q (field %q, type %q): %s", e.FileName, e.Field, e.ContentType, e.Reason)
}

func (e *PartError) Unwrap() error {
	return ErrInvalidFilePart
}

// FieldError describes a text field that failed validation
type FieldError struct {
	Field string
	Rule  string
	Param string
}

func (e *FieldError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("field %s failed %s=%s", e.Field, e.Rule, e.Param)
	}
	return fmt.Sprintf("field %s failed %s", e.Field, e.Rule)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidField
}

// FieldErrors collects every text field violation of one request
type FieldErrors []*FieldError

func (e FieldErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, fe := range e {
		msgs = append(msgs, fe.Error())
	}
	return strings.Join(msgs, "; ")
}

func (e FieldErrors) Unwrap() error {
	return ErrInvalidField
}

// EntryError represents an error related to entry operations
type EntryError struct {
	EntryID uuid.UUID
	Op      string
	Err     error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry operation %s failed for entry %s: %v", e.Op, e.EntryID, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// StorageError represents a write rejected by an asset store. It always
// matches ErrStoreUnavailable.
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Backend == "" {
		return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

// UploadError reports an aborted multi-file store. StoredRefs lists the blobs
// that were written before the failure and were not rolled back.
type UploadError struct {
	Op         string
	FileName   string
	StoredRefs []string
	Err        error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s aborted at %q after storing %d file(s): %v", e.Op, e.FileName, len(e.StoredRefs), e.Err)
}

func (e *UploadError) Unwrap() []error {
	return []error{ErrPartialUploadFailure, e.Err}
}
