package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/haasonsaas/tome/internal/extract"
	"github.com/haasonsaas/tome/internal/rag/index"
	"github.com/haasonsaas/tome/pkg/models"
)

// maxUploadBytes bounds multipart upload memory usage.
const maxUploadBytes = 32 << 20

type docsResponse struct {
	DocID      string            `json:"docId"`
	Title      string            `json:"title"`
	Chunks     int               `json:"chunks"`
	SourceType models.SourceType `json:"sourceType"`
}

// handleDocs indexes an uploaded document. Multipart uploads carry a
// file and optional title/text fields; JSON bodies carry title and text
// only.
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, span := s.tracer.Start(r.Context(), "index_document")
	defer span.End()

	req, err := parseDocsRequest(r)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.config.Indexer.Index(ctx, *req)
	if err != nil {
		s.tracer.RecordError(span, err)
		status := indexErrorStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error(ctx, "index document", "error", err)
		}
		// Upload errors carry the pipeline message so the caller can act
		// on them (missing capability, unsupported kind, empty content).
		s.jsonError(w, status, err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, docsResponse{
		DocID:      result.DocID,
		Title:      result.Title,
		Chunks:     result.ChunkCount,
		SourceType: result.SourceType,
	})
}

func parseDocsRequest(r *http.Request) (*index.Request, error) {
	req := &index.Request{
		SourceOverride: models.SourceType(strings.TrimSpace(r.Header.Get("x-source-type"))),
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, errors.New("invalid multipart form")
		}
		req.Title = r.FormValue("title")
		req.Text = r.FormValue("text")

		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()
			data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
			if err != nil {
				return nil, errors.New("failed to read uploaded file")
			}
			req.File = &index.File{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			}
		} else if !errors.Is(err, http.ErrMissingFile) {
			return nil, errors.New("invalid file field")
		}
		return req, nil
	}

	var body struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	req.Title = body.Title
	req.Text = body.Text
	return req, nil
}

// indexErrorStatus maps pipeline failures to HTTP statuses: rejected
// inputs are the client's fault, everything downstream is ours.
func indexErrorStatus(err error) int {
	switch {
	case errors.Is(err, index.ErrEmptyDocument),
		errors.Is(err, index.ErrNoIndexableContent),
		errors.Is(err, extract.ErrUnsupportedMedia),
		errors.Is(err, extract.ErrExtractionEmpty):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
