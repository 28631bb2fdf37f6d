package service

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pageza/nutrilog/backend/internal/models"
)

// DefaultMaxImageBytes caps uploaded meal photos.
const DefaultMaxImageBytes int64 = 10 << 20

// ImageUpload is a meal photo received from the client.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// Submission is the raw client input before validation.
type Submission struct {
	Type  string
	Text  string
	Image *ImageUpload
}

// AnalyzerRequest is a validated submission ready for the analyzer. Exactly
// one of Text and Image is set.
type AnalyzerRequest struct {
	LogType models.LogType
	Text    string
	Image   *ImageUpload
}

// Normalizer validates submissions before any external call is made.
type Normalizer struct {
	maxImageBytes int64
}

func NewNormalizer(maxImageBytes int64) *Normalizer {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	return &Normalizer{maxImageBytes: maxImageBytes}
}

// Normalize turns a submission into an analyzer request or an
// InvalidInput error naming the offending field.
func (n *Normalizer) Normalize(sub Submission) (*AnalyzerRequest, error) {
	text := strings.TrimSpace(sub.Text)
	hasImage := sub.Image != nil

	logType := models.LogType(strings.ToLower(strings.TrimSpace(sub.Type)))
	if logType == "" {
		if hasImage {
			logType = models.LogTypeImage
		} else {
			logType = models.LogTypeText
		}
	}
	if !logType.Valid() {
		return nil, invalidInput(fmt.Sprintf("unsupported type %q (expected text, image or voice)", sub.Type))
	}

	if text != "" && hasImage {
		return nil, invalidInput("provide either text or an image, not both")
	}

	switch logType {
	case models.LogTypeImage:
		if !hasImage {
			return nil, invalidInput("missing field: image")
		}
		if err := n.checkImage(sub.Image); err != nil {
			return nil, err
		}
		return &AnalyzerRequest{LogType: logType, Image: sub.Image}, nil
	default:
		// voice submissions arrive already transcribed
		if text == "" {
			if hasImage {
				return nil, invalidInput(fmt.Sprintf("type %q requires field: text", logType))
			}
			return nil, invalidInput("missing field: text")
		}
		return &AnalyzerRequest{LogType: logType, Text: text}, nil
	}
}

func (n *Normalizer) checkImage(img *ImageUpload) error {
	size := img.Size
	if int64(len(img.Data)) > size {
		size = int64(len(img.Data))
	}
	if size > n.maxImageBytes {
		return invalidInput(fmt.Sprintf("image is %d bytes, the limit is %d bytes", size, n.maxImageBytes))
	}
	if len(img.Data) == 0 {
		return invalidInput("image is empty")
	}
	if !strings.HasPrefix(strings.ToLower(img.ContentType), "image/") {
		return invalidInput(fmt.Sprintf("image content type must be image/*, got %q", img.ContentType))
	}
	detected := mimetype.Detect(img.Data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return invalidInput(fmt.Sprintf("uploaded file is not an image (detected %s)", detected.String()))
	}
	return nil
}
