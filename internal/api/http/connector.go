package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/silverhost/panel/internal/api/middleware"
	"github.com/silverhost/panel/internal/files"
)

// connectorEnvelope is the response frame of the legacy connector
// protocol. Adapter and storages are fixed: this service only ever
// exposes the tenant's local storage.
type connectorEnvelope struct {
	Adapter  string      `json:"adapter"`
	Storages []string    `json:"storages"`
	Results  interface{} `json:"results"`
}

func envelope(results interface{}) connectorEnvelope {
	return connectorEnvelope{
		Adapter:  "local",
		Storages: []string{"local"},
		Results:  results,
	}
}

// connectorIndex augments a listing with the recursive payload the
// connector clients expect.
type connectorIndex struct {
	*files.Listing
	SizeBytes int64 `json:"size_bytes"`
	FileCount int   `json:"file_count"`
}

// Connector handles GET|POST /api/connector. Action dispatch mirrors
// the legacy file-manager wire protocol while reusing the same engine
// and sandbox as the REST surface.
func (h *Handlers) Connector(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	ctx := c.Request.Context()
	path := c.Query("path")

	switch action := c.DefaultQuery("action", "index"); action {
	case "index":
		showHidden, _ := strconv.ParseBool(c.DefaultQuery("show_hidden", "false"))
		listing, err := h.engine.List(ctx, tenantID, path, showHidden)
		if err != nil {
			h.writeError(c, err)
			return
		}
		size, count, err := h.engine.DirectorySize(ctx, tenantID, path)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, envelope(connectorIndex{
			Listing:   listing,
			SizeBytes: size,
			FileCount: count,
		}))

	case "new_folder":
		name := c.Query("name")
		entry, err := h.engine.Create(ctx, tenantID, path, name, files.EntryDirectory, "")
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, envelope(entry))

	case "delete":
		recursive, _ := strconv.ParseBool(c.DefaultQuery("recursive", "false"))
		if err := h.engine.Delete(ctx, tenantID, path, recursive); err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, envelope(gin.H{"deleted": path}))

	case "rename":
		newName := c.Query("new_name")
		entry, err := h.engine.Rename(ctx, tenantID, path, newName)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, envelope(entry))

	default:
		c.JSON(http.StatusBadRequest, errorBody("validation_error", "unknown action "+strconv.Quote(action)))
	}
}
