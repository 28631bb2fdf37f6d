package service

import (
	"bytes"
	"testing"

	"github.com/pageza/nutrilog/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngBytes is a 1x1 transparent PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func pngUpload() *ImageUpload {
	return &ImageUpload{Filename: "meal.png", ContentType: "image/png", Size: int64(len(pngBytes)), Data: pngBytes}
}

func requireInvalid(t *testing.T, err error, contains string) {
	t.Helper()
	require.Error(t, err)
	var ie *IngestError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, KindInvalidInput, ie.Kind)
	assert.Contains(t, ie.Details, contains)
}

func TestNormalizeText(t *testing.T) {
	n := NewNormalizer(0)

	req, err := n.Normalize(Submission{Text: "  1 apple and a slice of pizza  "})
	require.NoError(t, err)
	assert.Equal(t, models.LogTypeText, req.LogType)
	assert.Equal(t, "1 apple and a slice of pizza", req.Text)
	assert.Nil(t, req.Image)
}

func TestNormalizeVoiceIsTreatedAsText(t *testing.T) {
	req, err := NewNormalizer(0).Normalize(Submission{Type: "voice", Text: "two eggs"})
	require.NoError(t, err)
	assert.Equal(t, models.LogTypeVoice, req.LogType)
	assert.Equal(t, "two eggs", req.Text)
}

func TestNormalizeImage(t *testing.T) {
	req, err := NewNormalizer(0).Normalize(Submission{Image: pngUpload()})
	require.NoError(t, err)
	assert.Equal(t, models.LogTypeImage, req.LogType)
	assert.Equal(t, pngBytes, req.Image.Data)
}

func TestNormalizeMissingFields(t *testing.T) {
	n := NewNormalizer(0)

	_, err := n.Normalize(Submission{Text: "   "})
	requireInvalid(t, err, "missing field: text")

	_, err = n.Normalize(Submission{Type: "image"})
	requireInvalid(t, err, "missing field: image")

	_, err = n.Normalize(Submission{Type: "text", Image: pngUpload()})
	requireInvalid(t, err, "requires field: text")
}

func TestNormalizeRejectsBothInputs(t *testing.T) {
	_, err := NewNormalizer(0).Normalize(Submission{Text: "apple", Image: pngUpload()})
	requireInvalid(t, err, "not both")
}

func TestNormalizeRejectsUnknownType(t *testing.T) {
	_, err := NewNormalizer(0).Normalize(Submission{Type: "video", Text: "apple"})
	requireInvalid(t, err, "unsupported type")
}

func TestNormalizeRejectsOversizedImage(t *testing.T) {
	n := NewNormalizer(DefaultMaxImageBytes)

	big := &ImageUpload{
		Filename:    "huge.jpg",
		ContentType: "image/jpeg",
		Size:        DefaultMaxImageBytes + 1,
	}
	_, err := n.Normalize(Submission{Image: big})
	requireInvalid(t, err, "limit")

	data := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, 64)...)
	_, err = NewNormalizer(32).Normalize(Submission{Image: &ImageUpload{ContentType: "image/png", Data: data}})
	requireInvalid(t, err, "limit")
}

func TestNormalizeRejectsNonImages(t *testing.T) {
	n := NewNormalizer(0)

	_, err := n.Normalize(Submission{Image: &ImageUpload{ContentType: "application/pdf", Size: 10, Data: []byte("%PDF-1.4 hello")}})
	requireInvalid(t, err, "content type")

	_, err = n.Normalize(Submission{Image: &ImageUpload{ContentType: "image/png", Size: 11, Data: []byte("hello world")}})
	requireInvalid(t, err, "not an image")

	_, err = n.Normalize(Submission{Image: &ImageUpload{ContentType: "image/png"}})
	requireInvalid(t, err, "empty")
}
