// Package imageinput normalizes a user supplied image, either a local file or
// a remote URL, into the single payload shape the relay accepts.
package imageinput

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/example/deeptrust/internal/analysis"
)

// ErrEmptyURL is returned when the URL input is blank after trimming.
var ErrEmptyURL = errors.New("image url is empty")

// ImageInput carries exactly one of URL or Base64. Preview is always a
// renderable reference to the same image.
type ImageInput struct {
	URL     string
	Base64  string
	Preview string
}

// IsZero reports whether neither payload field is set.
func (in ImageInput) IsZero() bool {
	return in.URL == "" && in.Base64 == ""
}

// FromURL takes the trimmed input verbatim as both target and preview.
// Reachability is not checked here.
func FromURL(raw string) (ImageInput, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ImageInput{}, ErrEmptyURL
	}
	return ImageInput{URL: trimmed, Preview: trimmed}, nil
}

// FromFile reads the whole file and encodes it as a base64 data URI. The
// declared content type must be an image type; when it is empty the type is
// sniffed from the content instead. Non-image files produce no payload.
func FromFile(r io.Reader, declaredType string) (ImageInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ImageInput{}, fmt.Errorf("read image: %w", err)
	}

	contentType := mediaType(declaredType)
	if contentType == "" {
		contentType = mediaType(mimetype.Detect(data).String())
	}
	if !IsImageType(contentType) {
		return ImageInput{}, analysis.NewError(
			analysis.KindUnsupportedMediaType,
			analysis.MessageUnsupported,
			fmt.Errorf("content type %q", contentType),
		)
	}

	uri := DataURI(contentType, data)
	return ImageInput{Base64: uri, Preview: uri}, nil
}

// FromBytes is FromFile for an in-memory payload.
func FromBytes(data []byte, declaredType string) (ImageInput, error) {
	return FromFile(bytes.NewReader(data), declaredType)
}

// DataURI encodes data as a base64 data URI with the given MIME type.
func DataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsImageType reports whether contentType names an image media type.
func IsImageType(contentType string) bool {
	return strings.HasPrefix(mediaType(contentType), "image/")
}

func mediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(contentType)
	}
	return parsed
}
