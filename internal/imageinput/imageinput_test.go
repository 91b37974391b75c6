package imageinput

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/deeptrust/internal/analysis"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}

func TestFromURLTrimsAndUsesInputAsPreview(t *testing.T) {
	in, err := FromURL("  https://example.com/photo.jpg \n")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/photo.jpg", in.URL)
	assert.Equal(t, in.URL, in.Preview)
	assert.Empty(t, in.Base64)
}

func TestFromURLRejectsBlank(t *testing.T) {
	_, err := FromURL("   ")
	assert.ErrorIs(t, err, ErrEmptyURL)
}

func TestFromFileEncodesDataURI(t *testing.T) {
	in, err := FromFile(strings.NewReader("fake-jpeg"), "image/jpeg")
	require.NoError(t, err)

	want := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("fake-jpeg"))
	assert.Equal(t, want, in.Base64)
	assert.Equal(t, want, in.Preview)
	assert.Empty(t, in.URL)
}

func TestFromFileRejectsNonImage(t *testing.T) {
	in, err := FromFile(strings.NewReader("hello"), "text/plain; charset=utf-8")
	require.Error(t, err)
	assert.True(t, errors.Is(err, analysis.ErrUnsupportedMediaType))
	assert.True(t, in.IsZero())
	assert.Empty(t, in.Preview)
}

func TestFromBytesSniffsWhenUndeclared(t *testing.T) {
	in, err := FromBytes(pngHeader, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(in.Base64, "data:image/png;base64,"))

	_, err = FromBytes([]byte("plain text body"), "")
	assert.ErrorIs(t, err, analysis.ErrUnsupportedMediaType)
}
