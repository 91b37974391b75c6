package relay

import (
	"strings"

	"github.com/example/deeptrust/internal/imageinput"
)

// DefaultImageMIME is assumed for bare base64 payloads.
const DefaultImageMIME = "image/jpeg"

// Attachment is the image part of the outbound user message. It is either a
// RemoteImage or an InlineImage.
type Attachment interface {
	// URL is the value placed in the image_url part of the request.
	URL() string
	attachment()
}

// RemoteImage references an image the provider fetches itself.
type RemoteImage struct {
	Location string
}

func (r RemoteImage) URL() string { return r.Location }
func (RemoteImage) attachment()   {}

// InlineImage carries base64 image data together with its MIME type.
type InlineImage struct {
	MIME string
	Data string
}

func (i InlineImage) URL() string {
	return "data:" + i.MIME + ";base64," + i.Data
}
func (InlineImage) attachment() {}

// AttachmentFor picks the attachment shape for in. Base64 wins when both
// fields are set. ok is false when neither is.
func AttachmentFor(in imageinput.ImageInput) (Attachment, bool) {
	switch {
	case in.Base64 != "":
		return inlineFromBase64(in.Base64), true
	case in.URL != "":
		return RemoteImage{Location: in.URL}, true
	default:
		return nil, false
	}
}

func inlineFromBase64(payload string) InlineImage {
	if !strings.HasPrefix(payload, "data:") {
		return InlineImage{MIME: DefaultImageMIME, Data: payload}
	}
	header, data, found := strings.Cut(strings.TrimPrefix(payload, "data:"), ",")
	if !found {
		return InlineImage{MIME: DefaultImageMIME, Data: payload}
	}
	mime := strings.TrimSuffix(header, ";base64")
	if mime == "" {
		mime = DefaultImageMIME
	}
	return InlineImage{MIME: mime, Data: data}
}
