package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/silverhost/panel/internal/api/middleware"
	"github.com/silverhost/panel/internal/files"
	"github.com/silverhost/panel/internal/infrastructure/logging"
)

// Handlers exposes the file engine over REST.
type Handlers struct {
	engine *files.Service
	log    *logging.Logger
}

// NewHandlers creates the REST handler set.
func NewHandlers(engine *files.Service, log *logging.Logger) *Handlers {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handlers{engine: engine, log: log}
}

// Register attaches all file routes to the given group.
func (h *Handlers) Register(api *gin.RouterGroup) {
	fg := api.Group("/files")
	fg.GET("/list", h.List)
	fg.POST("/create", h.Create)
	fg.GET("/read", h.Read)
	fg.POST("/write", h.Write)
	fg.POST("/delete", h.Delete)
	fg.POST("/rename", h.Rename)
	fg.POST("/copy", h.Copy)
	fg.POST("/move", h.Move)
	fg.POST("/compress", h.Compress)
	fg.POST("/extract", h.Extract)
	fg.GET("/search", h.Search)

	api.GET("/connector", h.Connector)
	api.POST("/connector", h.Connector)
}

type createRequest struct {
	Path     string `json:"path"`
	Name     string `json:"name" binding:"required"`
	FileType string `json:"file_type" binding:"required"`
	Content  string `json:"content"`
}

type writeRequest struct {
	Path              string `json:"path" binding:"required"`
	Content           string `json:"content"`
	Encoding          string `json:"encoding"`
	CreateIfNotExists bool   `json:"create_if_not_exists"`
}

type deleteRequest struct {
	Path      string `json:"path" binding:"required"`
	Recursive bool   `json:"recursive"`
}

type renameRequest struct {
	Path    string `json:"path" binding:"required"`
	NewName string `json:"new_name" binding:"required"`
}

type transferRequest struct {
	Source      string `json:"source" binding:"required"`
	Destination string `json:"destination" binding:"required"`
	Overwrite   bool   `json:"overwrite"`
}

type compressRequest struct {
	Paths       []string `json:"paths" binding:"required"`
	ArchiveName string   `json:"archive_name" binding:"required"`
	Format      string   `json:"format"`
}

type extractRequest struct {
	ArchivePath string `json:"archive_path" binding:"required"`
	Destination string `json:"destination"`
	Overwrite   bool   `json:"overwrite"`
}

// List handles GET /api/files/list
func (h *Handlers) List(c *gin.Context) {
	showHidden, _ := strconv.ParseBool(c.DefaultQuery("show_hidden", "false"))
	listing, err := h.engine.List(c.Request.Context(), middleware.TenantID(c), c.Query("path"), showHidden)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// Create handles POST /api/files/create
func (h *Handlers) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	entry, err := h.engine.Create(c.Request.Context(), middleware.TenantID(c),
		req.Path, req.Name, files.EntryKind(req.FileType), req.Content)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Read handles GET /api/files/read
func (h *Handlers) Read(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, errorBody("validation_error", "path query parameter is required"))
		return
	}
	content, err := h.engine.Read(c.Request.Context(), middleware.TenantID(c), path)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, content)
}

// Write handles POST /api/files/write
func (h *Handlers) Write(c *gin.Context) {
	var req writeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	entry, err := h.engine.Write(c.Request.Context(), middleware.TenantID(c),
		req.Path, req.Content, req.Encoding, req.CreateIfNotExists)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Delete handles POST /api/files/delete
func (h *Handlers) Delete(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := h.engine.Delete(c.Request.Context(), middleware.TenantID(c), req.Path, req.Recursive); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": req.Path})
}

// Rename handles POST /api/files/rename
func (h *Handlers) Rename(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	entry, err := h.engine.Rename(c.Request.Context(), middleware.TenantID(c), req.Path, req.NewName)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Copy handles POST /api/files/copy
func (h *Handlers) Copy(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	entry, err := h.engine.Copy(c.Request.Context(), middleware.TenantID(c),
		req.Source, req.Destination, req.Overwrite)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Move handles POST /api/files/move
func (h *Handlers) Move(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	entry, err := h.engine.Move(c.Request.Context(), middleware.TenantID(c),
		req.Source, req.Destination, req.Overwrite)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Compress handles POST /api/files/compress
func (h *Handlers) Compress(c *gin.Context) {
	var req compressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if req.Format != "" && !strings.EqualFold(req.Format, "zip") {
		c.JSON(http.StatusBadRequest, errorBody("validation_error", "only the zip format is supported"))
		return
	}
	entry, err := h.engine.Compress(c.Request.Context(), middleware.TenantID(c), req.Paths, req.ArchiveName)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Extract handles POST /api/files/extract
func (h *Handlers) Extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	entry, err := h.engine.Extract(c.Request.Context(), middleware.TenantID(c),
		req.ArchivePath, req.Destination, req.Overwrite)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Search handles GET /api/files/search
func (h *Handlers) Search(c *gin.Context) {
	maxResults, _ := strconv.Atoi(c.DefaultQuery("max_results", "0"))
	results, err := h.engine.Search(c.Request.Context(), middleware.TenantID(c),
		c.Query("path"), c.Query("query"), c.Query("pattern"), maxResults)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   len(results),
	})
}

func errorBody(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

func (h *Handlers) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody("validation_error", err.Error()))
}

// writeError maps engine errors to the wire envelope. Internal error
// details are logged but not echoed to clients in release mode.
func (h *Handlers) writeError(c *gin.Context, err error) {
	var fe *files.Error
	if !errors.As(err, &fe) {
		h.log.Error("unclassified error",
			zap.String("request_id", c.GetString("request_id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorBody("internal_error", "internal error"))
		return
	}

	message := fe.Message
	if fe.Kind == files.ErrInternal {
		h.log.Error("operation failed",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("op", fe.Op),
			zap.String("path", fe.Path),
			zap.Error(err))
		if gin.Mode() == gin.ReleaseMode {
			message = "internal error"
		}
	}
	c.JSON(fe.Kind.HTTPStatus(), errorBody(fe.Kind.Code(), message))
}
