package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/greekdrop/greekdrop/internal/jobs"
	"github.com/greekdrop/greekdrop/pkg/logger"
)

// CreateJob submits a transcription job for a file already on disk
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path   string `json:"path"`
		Format string `json:"format"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	if req.Format == "" {
		req.Format = h.config.Export.DefaultFormat
	}

	h.submit(w, req.Path, req.Format)
}

// UploadJob accepts a multipart upload from the browser drop zone, saves it
// under the uploads dir, and submits it.
func (h *Handler) UploadJob(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(h.config.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	format := r.FormValue("format")
	if format == "" {
		format = h.config.Export.DefaultFormat
	}

	if err := os.MkdirAll(h.config.Paths.UploadsDir, 0755); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create uploads directory")
		return
	}

	// Timestamp prefix keeps repeated uploads of the same file distinct
	name := fmt.Sprintf("%s_%s", time.Now().Format("20060102_150405"), filepath.Base(header.Filename))
	dest := filepath.Join(h.config.Paths.UploadsDir, name)

	out, err := os.Create(dest)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save upload")
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(dest)
		writeError(w, http.StatusInternalServerError, "failed to save upload")
		return
	}
	out.Close()

	h.logger.Info("Upload saved",
		logger.String("file", dest),
		logger.Int64("bytes", header.Size))

	h.submit(w, dest, format)
}

// GetCurrentJob returns the active (or most recently finished) job
func (h *Handler) GetCurrentJob(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"timestamp": time.Now(),
		"job":       h.manager.Current(),
	})
}

func (h *Handler) submit(w http.ResponseWriter, path, format string) {
	job, err := h.runner.Submit(path, format)
	if err != nil {
		if errors.Is(err, jobs.ErrJobAlreadyRunning) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]any{"job": job})
}

func decodeJSONBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
