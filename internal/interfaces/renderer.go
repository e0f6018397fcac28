package interfaces

import "context"

// PDFRenderer converts resume body HTML into a PDF file on disk
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html, outputPath string) error
}
