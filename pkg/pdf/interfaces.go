package pdf

import (
	"context"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
)

// Document is an opaque document handle produced by a DocumentService.
// Page indices are 0-based.
type Document interface {
	// PageCount returns the number of pages
	PageCount() int

	// PageSize returns the MediaBox size of a page in points, ignoring rotation
	PageSize(index int) (geometry.Size, error)

	// PageRotation returns the stored /Rotate of a page in degrees
	PageRotation(index int) (int, error)
}

// PageToken is a page copied out of a document, ready to be added to another one.
// It is only meaningful to the service that produced it.
type PageToken any

// ImageToken is an embedded image. It is only meaningful to the service that produced it.
type ImageToken any

// DocumentService loads, assembles and serializes documents.
type DocumentService interface {
	// Load parses raw bytes. Unreadable input fails with ErrCorruptDocument.
	Load(ctx context.Context, data []byte) (Document, error)

	// Create returns a new document without pages
	Create(ctx context.Context) (Document, error)

	// CopyPages copies pages of src so they can be added to dst
	CopyPages(ctx context.Context, dst, src Document, indices []int) ([]PageToken, error)

	// AddPage appends a copied page to dst
	AddPage(ctx context.Context, dst Document, page PageToken) error

	// AddBlankPage appends an empty page of the given size
	AddBlankPage(ctx context.Context, dst Document, size geometry.Size) error

	// RemovePage deletes a page
	RemovePage(ctx context.Context, doc Document, index int) error

	// SetRotation sets the /Rotate of a page
	SetRotation(ctx context.Context, doc Document, index int, degrees int) error

	// DrawText draws a text run in page user space
	DrawText(ctx context.Context, doc Document, index int, p TextParams) error

	// DrawLine strokes a line segment in page user space
	DrawLine(ctx context.Context, doc Document, index int, p LineParams) error

	// DrawRectangle strokes a rectangle in page user space
	DrawRectangle(ctx context.Context, doc Document, index int, p RectParams) error

	// EmbedImage registers a PNG or JPEG image with doc
	EmbedImage(ctx context.Context, doc Document, data []byte) (ImageToken, error)

	// DrawImage places an embedded image in page user space
	DrawImage(ctx context.Context, doc Document, index int, p ImageParams) error

	// Save serializes doc
	Save(ctx context.Context, doc Document) ([]byte, error)

	// Close releases the resources held by doc
	Close(doc Document) error
}

// TextSource returns the positioned text runs of a document page.
type TextSource interface {
	TextContent(ctx context.Context, index int) ([]TextItem, error)
}
