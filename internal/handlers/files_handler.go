package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/damacus/storx-files/internal/preview"
	"github.com/damacus/storx-files/internal/services"
	"github.com/damacus/storx-files/internal/utils"
	"github.com/labstack/echo/v4"
)

// DownloadURLExpiry is the lifetime of presigned download links
const DownloadURLExpiry = time.Hour

// FileMetrics receives upload and bucket deletion events
type FileMetrics interface {
	ObserveUpload(size int64)
	BucketDeleted()
}

type FilesHandler struct {
	factory         services.ClientFactory
	lister          *services.Lister
	cleaner         *services.BucketCleaner
	extractor       *preview.Extractor
	previewMaxBytes int64
	metrics         FileMetrics
}

func NewFilesHandler(factory services.ClientFactory, lister *services.Lister, cleaner *services.BucketCleaner,
	extractor *preview.Extractor, previewMaxBytes int64, metrics FileMetrics) *FilesHandler {
	return &FilesHandler{
		factory:         factory,
		lister:          lister,
		cleaner:         cleaner,
		extractor:       extractor,
		previewMaxBytes: previewMaxBytes,
		metrics:         metrics,
	}
}

// client revalidates the session credentials and builds a storage client
func (h *FilesHandler) client(c echo.Context) (services.StorageClient, error) {
	creds, err := GetCredentials(c)
	if err != nil {
		return nil, err
	}
	if err := creds.Validate(time.Now()); err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Session expired")
	}
	client, err := h.factory.NewClient(*creds)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid storage endpoint")
	}
	return client, nil
}

// List returns every object across every bucket
func (h *FilesHandler) List(c echo.Context) error {
	creds, err := GetCredentials(c)
	if err != nil {
		return err
	}

	result, err := h.lister.ListAll(c.Request().Context(), *creds)
	if err != nil {
		return storageFailure(c, "Failed to list files", err)
	}
	return c.JSON(http.StatusOK, result)
}

// Upload stores a multipart file in the chosen bucket
func (h *FilesHandler) Upload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "File is required")
	}
	bucketName := strings.TrimSpace(c.FormValue("bucketName"))
	if bucketName == "" {
		return badRequest(c, "Bucket name is required")
	}
	fileName := utils.BaseName(strings.ReplaceAll(file.Filename, "\\", "/"))
	if fileName == "" {
		return badRequest(c, "File name is required")
	}
	key := objectPrefix(c.FormValue("prefix")) + fileName

	client, err := h.client(c)
	if err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return badRequest(c, "Failed to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	contentType := file.Header.Get("Content-Type")
	if err := client.PutObject(c.Request().Context(), bucketName, key, src, file.Size, contentType); err != nil {
		return storageFailure(c, "Failed to upload file", err)
	}
	if h.metrics != nil {
		h.metrics.ObserveUpload(file.Size)
	}

	c.Logger().Infof("uploaded %s to bucket %s", key, bucketName)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  "File uploaded successfully: " + key,
		"key":      key,
		"bucket":   bucketName,
		"fileName": fileName,
		"size":     file.Size,
	})
}

// Download returns a presigned GET URL valid for one hour
func (h *FilesHandler) Download(c echo.Context) error {
	var req objectRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if msg := req.normalize(); msg != "" {
		return badRequest(c, msg)
	}

	client, err := h.client(c)
	if err != nil {
		return err
	}

	u, err := client.PresignedGetObject(c.Request().Context(), req.Bucket, req.Key, DownloadURLExpiry)
	if err != nil {
		return storageFailure(c, "Failed to generate download URL", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": u.String()})
}

// View fetches an object and returns its preview
func (h *FilesHandler) View(c echo.Context) error {
	var req objectRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if msg := req.normalize(); msg != "" {
		return badRequest(c, msg)
	}

	client, err := h.client(c)
	if err != nil {
		return err
	}

	reader, size, err := client.GetObjectReader(c.Request().Context(), req.Bucket, req.Key)
	if err != nil {
		return storageFailure(c, "Failed to fetch file content", err)
	}
	defer func() { _ = reader.Close() }()

	if size > h.previewMaxBytes {
		return tooLarge(c, size, h.previewMaxBytes)
	}
	raw, err := io.ReadAll(io.LimitReader(reader, h.previewMaxBytes+1))
	if err != nil {
		return storageFailure(c, "Failed to fetch file content", err)
	}
	if int64(len(raw)) > h.previewMaxBytes {
		return tooLarge(c, int64(len(raw)), h.previewMaxBytes)
	}

	return c.JSON(http.StatusOK, h.extractor.Extract(raw))
}

func tooLarge(c echo.Context, size, limit int64) error {
	return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
		Error:   "File is too large to preview",
		Message: fmt.Sprintf("%s exceeds the preview limit of %s", utils.FormatFileSize(size), utils.FormatFileSize(limit)),
	})
}

// Delete removes a single object
func (h *FilesHandler) Delete(c echo.Context) error {
	var req objectRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if msg := req.normalize(); msg != "" {
		return badRequest(c, msg)
	}

	client, err := h.client(c)
	if err != nil {
		return err
	}

	if err := client.RemoveObject(c.Request().Context(), req.Bucket, req.Key); err != nil {
		return storageFailure(c, "Failed to delete file", err)
	}

	c.Logger().Infof("deleted %s from bucket %s", req.Key, req.Bucket)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "File deleted successfully: " + req.Key,
		"key":     req.Key,
		"bucket":  req.Bucket,
	})
}

// CreateBucket creates an empty bucket
func (h *FilesHandler) CreateBucket(c echo.Context) error {
	var req bucketRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if msg := req.normalize(); msg != "" {
		return badRequest(c, msg)
	}

	client, err := h.client(c)
	if err != nil {
		return err
	}

	if err := client.MakeBucket(c.Request().Context(), req.BucketName); err != nil {
		return storageFailure(c, "Failed to create bucket", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Bucket created successfully: " + req.BucketName,
		"bucketName": req.BucketName,
	})
}

// DeleteBucket empties a bucket and removes it
func (h *FilesHandler) DeleteBucket(c echo.Context) error {
	var req bucketRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if msg := req.normalize(); msg != "" {
		return badRequest(c, msg)
	}

	client, err := h.client(c)
	if err != nil {
		return err
	}

	deleted, err := h.cleaner.DeleteBucket(c.Request().Context(), client, req.BucketName)
	if err != nil {
		return storageFailure(c, "Failed to delete bucket", err)
	}
	if h.metrics != nil {
		h.metrics.BucketDeleted()
	}

	message := "Bucket deleted successfully: " + req.BucketName
	if deleted > 0 {
		message += fmt.Sprintf(" (%d files deleted)", deleted)
	}
	c.Logger().Infof("deleted bucket %s with %d objects", req.BucketName, deleted)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      message,
		"bucketName":   req.BucketName,
		"filesDeleted": deleted,
	})
}

// objectPrefix turns a user-supplied folder into a key prefix ending in "/"
func objectPrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}
