package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/EmployeeImport/internal/core"
	"github.com/JonMunkholm/EmployeeImport/internal/jobs"
	"github.com/JonMunkholm/EmployeeImport/internal/logging"
	"github.com/JonMunkholm/EmployeeImport/internal/web/middleware"
)

// ImportScheduledMessage is returned once an upload has been queued.
const ImportScheduledMessage = "The import of employee data will be processed shortly. You will be notified when it is complete."

// allowedExtensions are the accepted upload file types.
var allowedExtensions = map[string]bool{".csv": true, ".txt": true}

// ImportResponse is the body of a 202 answer.
type ImportResponse struct {
	Message  string `json:"message"`
	FilePath string `json:"file_path"`
}

// handleImport stores the uploaded CSV and schedules an import job for the
// authenticated user.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.UserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.maxSize)
	if err := r.ParseMultipartForm(s.maxSize); err != nil {
		if isTooLarge(err) {
			respondError(w, r, fmt.Errorf("%w: limit %d bytes", core.ErrFileTooLarge, s.maxSize), http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("%w: %v", core.ErrNoFile, err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", core.ErrNoFile, err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		respondError(w, r, fmt.Errorf("%w: %q", core.ErrUnsupportedFile, header.Filename), http.StatusUnprocessableEntity)
		return
	}
	if header.Size == 0 {
		respondError(w, r, fmt.Errorf("%w: %q", core.ErrEmptyFile, header.Filename), http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	key := path.Join(core.ImportsDir, uuid.NewString()+".csv")
	if err := s.deps.Uploads.Put(ctx, key, file); err != nil {
		respondError(w, r, fmt.Errorf("store upload: %w", err), http.StatusInternalServerError)
		return
	}

	job := jobs.ImportJob{FilePath: key, OwnerUserID: ownerID}
	if err := s.deps.Dispatcher.Dispatch(ctx, job); err != nil {
		if delErr := s.deps.Uploads.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			logging.FromContext(ctx).Warn("failed to remove unscheduled upload", "file_path", key, "error", delErr)
		}
		respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}

	logging.FromContext(ctx).Info("employee import scheduled",
		"file_path", key,
		"owner_user_id", ownerID,
		"original_name", header.Filename,
		"size", header.Size,
	)

	writeJSONStatus(w, http.StatusAccepted, ImportResponse{Message: ImportScheduledMessage, FilePath: key})
}

// isTooLarge reports whether err comes from the body size limit.
func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}
