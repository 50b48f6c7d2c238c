package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/relaydesk/relaydesk-backend/internal/storage"
)

const (
	// targetWidthPx is the rendered width the extraction service works best with
	targetWidthPx = 1800
	// maxScale caps upscaling of small pages
	maxScale = 2.0
	// maxPNGBytes is the size above which the PNG is re-encoded as JPEG
	maxPNGBytes = 8 * 1024 * 1024
	// jpegQuality is used for the JPEG fallback encoding
	jpegQuality = 85
)

// Converter rasterizes the first page of a PDF attachment and uploads
// the result as a derived asset.
type Converter struct {
	objects storage.ObjectStorage
}

// NewConverter creates a new Converter instance
func NewConverter(objects storage.ObjectStorage) *Converter {
	return &Converter{objects: objects}
}

// ConvertFirstPage rasterizes page 1 of the PDF, encodes it, uploads it
// to derived/{attachmentID}-p1.{ext} with upsert, and returns the public
// URL of the uploaded image.
func (c *Converter) ConvertFirstPage(attachmentID uint, pdfBytes []byte) (string, error) {
	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() < 1 {
		return "", fmt.Errorf("PDF has no pages")
	}

	bound, err := doc.Bound(0)
	if err != nil {
		return "", fmt.Errorf("failed to read page bounds: %w", err)
	}

	// Page bounds are in points at 72 DPI. Scale so the rendered width
	// lands near the target, capped to avoid blowing up small pages.
	scale := float64(targetWidthPx) / float64(bound.Dx())
	if scale > maxScale {
		scale = maxScale
	}

	img, err := doc.ImageDPI(0, 72*scale)
	if err != nil {
		return "", fmt.Errorf("failed to rasterize page: %w", err)
	}

	data, ext, err := encodePage(img)
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("derived/%d-p1.%s", attachmentID, ext)
	if _, err := c.objects.Upload(path, bytes.NewReader(data), mimeForExt(ext), true); err != nil {
		return "", fmt.Errorf("failed to upload converted page: %w", err)
	}

	return c.objects.PublicURL(path), nil
}

// mimeForExt maps an encoder extension to its MIME type. The file
// extension "jpg" is not a registered subtype; the type is image/jpeg.
func mimeForExt(ext string) string {
	if ext == "jpg" {
		return "image/jpeg"
	}
	return "image/" + ext
}

// encodePage encodes the rendered page as PNG, falling back to JPEG
// when the PNG would be too large to send to the extraction service.
func encodePage(img image.Image) ([]byte, string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	if buf.Len() <= maxPNGBytes {
		return buf.Bytes(), "png", nil
	}

	buf.Reset()
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), "jpg", nil
}
