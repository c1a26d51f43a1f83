package catalog

import (
	"errors"
	"mime"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Policy describes which file parts an upload accepts
type Policy struct {
	// Field names recognized per kind; the first entry is the canonical name
	ThumbnailFields []string
	VideoFields     []string

	// Accepted declared content types per kind
	ImageTypes []string
	VideoTypes []string

	// MaxFilesPerKind caps the number of parts of one kind; 0 means no cap
	MaxFilesPerKind int
}

// DefaultPolicy returns the stock upload policy: JPEG or PNG
// thumbnails and MP4 videos
func DefaultPolicy() Policy {
	return Policy{
		ThumbnailFields: []string{"thumbnail", "thumbnails"},
		VideoFields:     []string{"video", "videos"},
		ImageTypes:      []string{"image/jpeg", "image/png"},
		VideoTypes:      []string{"video/mp4"},
		MaxFilesPerKind: 10,
	}
}

// textFields carries the bounded text of a request through the struct validator
type textFields struct {
	Title       string `validate:"max=50"`
	Description string `validate:"max=200"`
}

// Validator enforces the upload policy before anything is persisted
type Validator struct {
	policy Policy
	fields *validator.Validate
}

// NewValidator creates a validator for the given policy
func NewValidator(policy Policy) *Validator {
	return &Validator{
		policy: policy,
		fields: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Policy returns the policy the validator enforces
func (v *Validator) Policy() Policy {
	return v.policy
}

// Classify maps a field name to its file kind
func (v *Validator) Classify(field string) (FileKind, bool) {
	name := strings.ToLower(strings.TrimSpace(field))
	for _, f := range v.policy.ThumbnailFields {
		if name == f {
			return FileKindThumbnail, true
		}
	}
	for _, f := range v.policy.VideoFields {
		if name == f {
			return FileKindVideo, true
		}
	}
	return "", false
}

// ValidatedParts holds the accepted parts split by kind, each in submission order
type ValidatedParts struct {
	Thumbnails []FilePart
	Videos     []FilePart
}

// ValidateParts checks every part's field name and declared content type.
// When requireBoth is set at least one part of each kind must be present.
func (v *Validator) ValidateParts(parts []FilePart, requireBoth bool) (ValidatedParts, error) {
	var out ValidatedParts
	for _, p := range parts {
		kind, ok := v.Classify(p.Field)
		if !ok {
			return ValidatedParts{}, &PartError{Field: p.Field, FileName: p.FileName, ContentType: p.ContentType, Reason: "unrecognized field"}
		}

		if p.Content == nil {
			return ValidatedParts{}, &PartError{Field: p.Field, FileName: p.FileName, ContentType: p.ContentType, Reason: "missing content"}
		}

		accepted := v.policy.ImageTypes
		if kind == FileKindVideo {
			accepted = v.policy.VideoTypes
		}
		if !containsType(accepted, p.ContentType) {
			return ValidatedParts{}, &PartError{Field: p.Field, FileName: p.FileName, ContentType: p.ContentType, Reason: "content type not accepted for " + string(kind)}
		}

		if kind == FileKindThumbnail {
			out.Thumbnails = append(out.Thumbnails, p)
		} else {
			out.Videos = append(out.Videos, p)
		}
	}

	if limit := v.policy.MaxFilesPerKind; limit > 0 {
		if len(out.Thumbnails) > limit || len(out.Videos) > limit {
			return ValidatedParts{}, &PartError{Reason: "too many files", Field: "*"}
		}
	}

	if requireBoth && (len(out.Thumbnails) == 0 || len(out.Videos) == 0) {
		return ValidatedParts{}, ErrMissingRequiredFiles
	}

	return out, nil
}

// ValidateText checks the bounded text fields; nil pointers are skipped
func (v *Validator) ValidateText(title, description *string) error {
	var tf textFields
	if title != nil {
		tf.Title = *title
	}
	if description != nil {
		tf.Description = *description
	}

	err := v.fields.Struct(tf)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	fes := make(FieldErrors, 0, len(ve))
	for _, e := range ve {
		fes = append(fes, &FieldError{
			Field: strings.ToLower(e.StructField()),
			Rule:  e.Tag(),
			Param: e.Param(),
		})
	}
	return fes
}

// normalizeContentType lower-cases a declared content type and strips its parameters
func normalizeContentType(contentType string) string {
	ct := strings.TrimSpace(contentType)
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func containsType(accepted []string, contentType string) bool {
	ct := normalizeContentType(contentType)
	if ct == "" {
		return false
	}
	for _, a := range accepted {
		if strings.EqualFold(a, ct) {
			return true
		}
	}
	return false
}
