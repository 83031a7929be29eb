package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thuvien/thuvien/internal/content"
)

// ThumbnailsController serves thumbnail images, proxying remote ones.
type ThumbnailsController struct {
	resolver *content.Server
}

// NewThumbnailsController creates a new ThumbnailsController.
func NewThumbnailsController(resolver *content.Server) *ThumbnailsController {
	return &ThumbnailsController{resolver: resolver}
}

// GetThumbnail serves a thumbnail by filename, e.g. book_10.jpg.
// GET /api/thumbnails/:filename
func (controller *ThumbnailsController) GetThumbnail(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" {
		respondBadRequest(c, "filename is required")
		return
	}

	res, err := controller.resolver.ResolveThumbnail(filename)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			respondNotFound(c, "thumbnail")
			return
		}
		respondInternalError(c, err, "resolve thumbnail")
		return
	}

	switch res.Kind {
	case content.KindProxiedBytes:
		c.Header("Content-Disposition", res.Disposition)
		c.Data(http.StatusOK, res.ContentType, res.Bytes)
	case content.KindLocalStream:
		c.Header("Content-Type", res.ContentType)
		c.Header("Content-Disposition", res.Disposition)
		c.File(res.Path)
	default:
		respondInternalError(c, errors.New("unexpected resolution kind"), "resolve thumbnail")
	}
}
