package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/demoapi/models"
	"github.com/padraicbc/demoapi/service"
)

// DemoFormField is the multipart field uploads are read from.
const DemoFormField = "demos"

// UploadDemos accepts a multipart batch of demo files. The batch is checked
// against the upload limits before anything is written; one bad file rejects
// the whole request.
func (h *Handler) UploadDemos(c echo.Context) error {
	claims, err := requester(c)
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "error_validation").SetInternal(err)
	}
	headers := form.File[DemoFormField]

	if err := h.checkUpload(headers); err != nil {
		return err
	}

	var saved []service.UploadedFile
	for _, fh := range headers {
		path, err := h.saveTemp(claims.ID, fh)
		if err != nil {
			h.discardTemp(saved)
			return err
		}
		saved = append(saved, service.UploadedFile{TempPath: path, Filename: filepath.Base(fh.Filename)})
	}

	paths, err := h.demos.Upload(c.Request().Context(), claims.ID, saved)
	if err != nil {
		h.discardTemp(saved)
		return err
	}
	return c.JSON(http.StatusOK, map[string][]string{"paths": paths})
}

// ListDemos returns the demos uploaded by the caller.
func (h *Handler) ListDemos(c echo.Context) error {
	claims, err := requester(c)
	if err != nil {
		return err
	}

	demos, err := h.demos.List(c.Request().Context(), claims.ID)
	if err != nil {
		return err
	}
	if demos == nil {
		demos = []models.Demo{}
	}
	return c.JSON(http.StatusOK, demos)
}

func (h *Handler) checkUpload(headers []*multipart.FileHeader) error {
	if h.limits.MaxFiles > 0 && len(headers) > h.limits.MaxFiles {
		return echo.NewHTTPError(http.StatusBadRequest, "error_too_many_files")
	}
	for _, fh := range headers {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !slices.Contains(h.limits.Extensions, ext) {
			return echo.NewHTTPError(http.StatusBadRequest, "error_file_format_not_accepted")
		}
		if h.limits.MaxFileSize > 0 && fh.Size > h.limits.MaxFileSize {
			return echo.NewHTTPError(http.StatusBadRequest, "error_file_too_large")
		}
	}
	return nil
}

func (h *Handler) saveTemp(userID int64, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload %q: %w: %w", fh.Filename, service.ErrStorage, err)
	}
	defer src.Close()

	path, err := h.temp.SaveTemp(userID, fh.Filename, src)
	if err != nil {
		return "", fmt.Errorf("saving upload %q: %w: %w", fh.Filename, service.ErrStorage, err)
	}
	return path, nil
}

func (h *Handler) discardTemp(files []service.UploadedFile) {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.TempPath)
	}
	_ = h.temp.Discard(paths...)
}
