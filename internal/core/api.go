package core

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"cdnlocal/internal/urls"
	storageapi "cdnlocal/pkg/storage"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type BucketResponse struct {
	Bucket string `json:"bucket"`
}

type ObjectResponse struct {
	Bucket   string `json:"bucket"`
	Filename string `json:"filename"`
}

type PathResponse struct {
	Bucket   string `json:"bucket"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

type URLResponse struct {
	Scheme string `json:"scheme"`
	URL    string `json:"url"`
}

type SchemesResponse struct {
	Secure  bool               `json:"secure"`
	Schemes []urls.NamedScheme `json:"schemes"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeStorageError maps a storage error kind onto an HTTP status.
func writeStorageError(w http.ResponseWriter, err error) {
	kind := storageapi.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case storageapi.ObjectNotFound:
		status = http.StatusNotFound
	case storageapi.DirectoryNotWritable:
		status = http.StatusForbidden
	case storageapi.BucketDeleteFailed:
		status = http.StatusConflict
	}

	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind.String()})
}
