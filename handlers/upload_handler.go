package handlers

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"

	"campus_market/internal/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var allowedImageExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// UploadHandler handles file uploads
type UploadHandler struct {
	Store    storage.Store
	MaxBytes int64
	Log      *zap.Logger
}

func NewUploadHandler(store storage.Store, maxBytes int64, log *zap.Logger) *UploadHandler {
	return &UploadHandler{Store: store, MaxBytes: maxBytes, Log: log}
}

type uploadResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// UploadImage - POST /api/upload stores the "image" form file and returns
// its public URL.
func (h *UploadHandler) UploadImage(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Image file is required")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExt[ext] {
		return fiber.NewError(fiber.StatusBadRequest, "Only .jpg, .jpeg, and .png files are allowed")
	}
	if h.MaxBytes > 0 && file.Size > h.MaxBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "Image is too large")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	id, err := h.Store.Save(c.UserContext(), file.Filename, src)
	if err != nil {
		h.Log.Error("upload failed", zap.String("filename", file.Filename), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Could not save file")
	}
	return created(c, "File uploaded", uploadResponse{ID: id, URL: h.Store.URL(id)})
}

// ServeFile - GET /api/files/:id streams a stored file.
func (h *UploadHandler) ServeFile(c *fiber.Ctx) error {
	id := c.Params("id")
	r, err := h.Store.Open(c.UserContext(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "File not found")
	}
	if err != nil {
		return err
	}
	if ct := mime.TypeByExtension(filepath.Ext(id)); ct != "" {
		c.Set(fiber.HeaderContentType, ct)
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	// fasthttp closes the reader once the body is written.
	return c.SendStream(r)
}
