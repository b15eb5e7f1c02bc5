package analysis

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
)

// DefaultMIMEType is assumed for payloads that carry no data-URL prefix.
const DefaultMIMEType = "image/jpeg"

var ErrEmptyImage = errors.New("empty image payload")

var dataURLPrefix = regexp.MustCompile(`^data:(image/\w+);base64,`)

// Image is one captured photo.
type Image struct {
	Data     []byte
	MIMEType string
}

// ParseDataURL accepts "data:image/<x>;base64,<payload>" or bare base64.
func ParseDataURL(s string) (Image, error) {
	s = strings.TrimSpace(s)
	mime := DefaultMIMEType
	if m := dataURLPrefix.FindStringSubmatch(s); m != nil {
		mime = m[1]
		s = s[len(m[0]):]
	}
	if s == "" {
		return Image{}, ErrEmptyImage
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Image{}, fmt.Errorf("decode image payload: %w", err)
	}
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}
	return Image{Data: data, MIMEType: mime}, nil
}

// NewImage sniffs the MIME type of raw bytes when mime is empty.
func NewImage(data []byte, mime string) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}
	mime = strings.TrimSpace(mime)
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = DefaultMIMEType
	}
	return Image{Data: data, MIMEType: mime}, nil
}

// LoadFile reads an image from disk.
func LoadFile(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("read image: %w", err)
	}
	return NewImage(data, "")
}

func (img Image) mimeType() string {
	if img.MIMEType == "" {
		return DefaultMIMEType
	}
	return img.MIMEType
}

// Base64 is the standard base64 encoding of the payload.
func (img Image) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

// DataURL re-encodes the image as a data URL, the form kept on log entries.
func (img Image) DataURL() string {
	return "data:" + img.mimeType() + ";base64," + img.Base64()
}
