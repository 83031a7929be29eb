package http

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/thuvien/thuvien/internal/content"
)

// PdfController serves primary documents.
type PdfController struct {
	resolver *content.Server
}

// NewPdfController creates a new PdfController.
func NewPdfController(resolver *content.Server) *PdfController {
	return &PdfController{resolver: resolver}
}

// GetPdf serves or redirects to the primary document.
// GET /api/books/:id/pdf
func (controller *PdfController) GetPdf(c *gin.Context) {
	controller.serve(c, "inline")
}

// DownloadPdf serves the primary document as an attachment.
// GET /api/books/:id/download
func (controller *PdfController) DownloadPdf(c *gin.Context) {
	controller.serve(c, "attachment")
}

func (controller *PdfController) serve(c *gin.Context, dispositionType string) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	res, err := controller.resolver.ResolvePrimary(id)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			respondNotFound(c, "document")
			return
		}
		respondInternalError(c, err, "resolve document")
		return
	}

	switch res.Kind {
	case content.KindRemoteRedirect:
		c.Redirect(http.StatusFound, res.URL)
	case content.KindLocalStream:
		c.Header("Content-Type", res.ContentType)
		c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", dispositionType, filepath.Base(res.Path)))
		c.File(res.Path)
	default:
		respondInternalError(c, errors.New("unexpected resolution kind"), "resolve document")
	}
}
