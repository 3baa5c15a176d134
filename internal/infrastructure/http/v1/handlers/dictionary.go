package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"refbook/internal/core/apperror"
	"refbook/internal/domain/dictionary"
	"refbook/internal/infrastructure/http/v1/dto"
)

// DictionaryHandler serves the dictionary CRUD, search, filter, statistics
// and exchange endpoints.
type DictionaryHandler struct {
	*BaseHandler
	svc *dictionary.Service
}

// NewDictionaryHandler creates a dictionary handler.
func NewDictionaryHandler(base *BaseHandler, svc *dictionary.Service) *DictionaryHandler {
	return &DictionaryHandler{BaseHandler: base, svc: svc}
}

// Types lists every dictionary type with its capabilities.
func (h *DictionaryHandler) Types(c *gin.Context) {
	infos := make([]dto.TypeInfo, 0, len(dictionary.AllTypes))
	for _, t := range dictionary.AllTypes {
		infos = append(infos, dto.TypeInfo{
			Type:        string(t),
			HasEndpoint: t.HasEndpoint(),
			ReadOnly:    t.ReadOnly(),
		})
	}
	c.JSON(http.StatusOK, infos)
}

// List returns every item of the type. The optional search query narrows
// the result.
func (h *DictionaryHandler) List(c *gin.Context) {
	t, ok := h.DictionaryType(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	var items []dictionary.Item
	if q := c.Query("search"); q != "" {
		items = h.svc.SearchItems(ctx, t, q)
	} else {
		items = h.svc.GetItems(ctx, t)
	}
	c.JSON(http.StatusOK, dto.ListResponse{Items: items, Total: len(items)})
}

// Search matches items by name or code.
func (h *DictionaryHandler) Search(c *gin.Context) {
	t, ok := h.DictionaryType(c)
	if !ok {
		return
	}
	items := h.svc.SearchItems(c.Request.Context(), t, c.Query("q"))
	c.JSON(http.StatusOK, dto.ListResponse{Items: items, Total: len(items)})
}

// Filter applies conjunctive criteria from the request body.
func (h *DictionaryHandler) Filter(c *gin.Context) {
	t, ok := h.DictionaryType(c)
	if !ok {
		return
	}
	var req dto.FilterRequest
	if !h.BindJSON(c, &req) {
		return
	}
	items := h.svc.FilterItems(c.Request.Context(), t, req.ToFilters())
	c.JSON(http.StatusOK, dto.ListResponse{Items: items, Total: len(items)})
}

// Statistics summarizes the dictionary.
func (h *DictionaryHandler) Statistics(c *gin.Context) {
	t, ok := h.DictionaryType(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.svc.GetStatistics(c.Request.Context(), t))
}

// Validate checks an item against the type's rules without saving it.
func (h *DictionaryHandler) Validate(c *gin.Context) {
	t, ok := h.DictionaryType(c)
	if !ok {
		return
	}
	item, ok := h.bindItem(c, t)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.svc.ValidateItem(t, item))
}

// Get returns one item by id.
func (h *DictionaryHandler) Get(c *gin.Context) {
	t, ok := h.DictionaryType(c)
	if !ok {
		return
	}
	item, err := h.svc.GetItem(c.Request.Context(), t, c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Create validates and persists a new item.
func (h *DictionaryHandler) Create(c *gin.Context) {
	t, ok := h.DictionaryType(c)
	if !ok {
		return
	}
	item, ok := h.bindItem(c, t)
	if !ok {
		return
	}
	created, err := h.svc.CreateItem(c.Request.Context(), t, item)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Update validates and replaces an item.
func (h *DictionaryHandler) Update(c *gin.Context) {
	t, ok := h.DictionaryType(c)
	if !ok {
		return
	}
	item, ok := h.bindItem(c, t)
	if !ok {
		return
	}
	updated, err := h.svc.UpdateItem(c.Request.Context(), t, c.Param("id"), item)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete removes an item.
func (h *DictionaryHandler) Delete(c *gin.Context) {
	t, ok := h.DictionaryType(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteItem(c.Request.Context(), t, c.Param("id")); err != nil {
		h.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// BulkCreate creates several items, reporting per-item failures.
func (h *DictionaryHandler) BulkCreate(c *gin.Context) {
	t, ok := h.DictionaryType(c)
	if !ok {
		return
	}
	var req dto.BulkCreateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	items := make([]dictionary.Item, 0, len(req.Items))
	for _, raw := range req.Items {
		item, err := dictionary.DecodeItem(t, raw)
		if err != nil {
			h.Error(c, apperror.NewValidation(err.Error()))
			return
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, h.svc.BulkCreate(c.Request.Context(), t, items))
}

// BulkUpdate applies several updates, reporting per-item failures.
func (h *DictionaryHandler) BulkUpdate(c *gin.Context) {
	t, ok := h.DictionaryType(c)
	if !ok {
		return
	}
	var req dto.BulkUpdateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	entries := make([]dictionary.BulkUpdateEntry, 0, len(req.Updates))
	for _, u := range req.Updates {
		item, err := dictionary.DecodeItem(t, u.Item)
		if err != nil {
			h.Error(c, apperror.NewValidation(err.Error()))
			return
		}
		entries = append(entries, dictionary.BulkUpdateEntry{ID: u.ID, Item: item})
	}
	c.JSON(http.StatusOK, h.svc.BulkUpdate(c.Request.Context(), t, entries))
}

// BulkDelete removes several ids, reporting per-item failures.
func (h *DictionaryHandler) BulkDelete(c *gin.Context) {
	t, ok := h.DictionaryType(c)
	if !ok {
		return
	}
	var req dto.BulkDeleteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.svc.BulkDelete(c.Request.Context(), t, req.IDs))
}

// Export streams the dictionary as csv or json.
func (h *DictionaryHandler) Export(c *gin.Context) {
	t, ok := h.DictionaryType(c)
	if !ok {
		return
	}
	out, err := h.svc.Export(c.Request.Context(), t, dictionary.ExportOptions{
		Format:     dictionary.ExportFormat(c.DefaultQuery("format", "csv")),
		ActiveOnly: c.Query("activeOnly") == "true",
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	c.Data(http.StatusOK, out.ContentType, out.Content)
}

// Template streams an empty import template.
func (h *DictionaryHandler) Template(c *gin.Context) {
	t, ok := h.DictionaryType(c)
	if !ok {
		return
	}
	out, err := h.svc.Template(c.Request.Context(), t, dictionary.ExportFormat(c.DefaultQuery("format", "csv")))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	c.Data(http.StatusOK, out.ContentType, out.Content)
}

// Import accepts a csv or json upload and creates its rows.
func (h *DictionaryHandler) Import(c *gin.Context) {
	t, ok := h.DictionaryType(c)
	if !ok {
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.Error(c, apperror.NewValidation("missing file upload").WithDetail("error", err.Error()))
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		h.Error(c, apperror.NewValidation("unreadable file upload").WithDetail("error", err.Error()))
		return
	}
	res, err := h.svc.Import(c.Request.Context(), t, header.Filename, content)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *DictionaryHandler) bindItem(c *gin.Context, t dictionary.Type) (dictionary.Item, bool) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		h.Error(c, apperror.NewValidation("empty request body"))
		return nil, false
	}
	item, err := dictionary.DecodeItem(t, raw)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return nil, false
	}
	return item, true
}
