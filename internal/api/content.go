package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkstash/internal/canonical"
	"github.com/JakeFAU/linkstash/internal/content"
	"github.com/JakeFAU/linkstash/internal/ingest"
	"github.com/JakeFAU/linkstash/internal/listing"
)

// CreateContentRequest is the POST /api/v1/content body.
type CreateContentRequest struct {
	URL    string  `json:"url"`
	Title  *string `json:"title,omitempty"`
	Author *string `json:"author,omitempty"`
	Body   *string `json:"body,omitempty"`
}

// CreateContentResponse carries the id of the stored or matching item.
type CreateContentResponse struct {
	ID int64 `json:"id"`
}

// ContentSummary is a listing entry; it omits the body.
type ContentSummary struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Title     *string   `json:"title"`
	Author    *string   `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// ContentItem is the full representation returned by GET /content/{id}.
type ContentItem struct {
	ContentSummary
	Body *string `json:"body"`
}

// ListContentResponse is one page of summaries.
type ListContentResponse struct {
	Items []ContentSummary `json:"items"`
	Total int64            `json:"total"`
	Limit int              `json:"limit"`
}

func (s *Server) createContent(w http.ResponseWriter, r *http.Request) {
	var req CreateContentRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := s.ingest.Ingest(r.Context(), ingest.Submission{
		URL:    req.URL,
		Title:  req.Title,
		Author: req.Author,
		Body:   req.Body,
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CreateContentResponse{ID: res.ID})
}

func (s *Server) listContent(w http.ResponseWriter, r *http.Request) {
	params, err := listing.ParseParams(r.URL.Query())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	res, err := s.listing.List(r.Context(), params)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	resp := ListContentResponse{
		Items: make([]ContentSummary, 0, len(res.Items)),
		Total: res.Total,
		Limit: res.Limit,
	}
	for _, item := range res.Items {
		resp.Items = append(resp.Items, toSummary(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getContent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid content id")
		return
	}
	if id <= 0 {
		writeError(w, http.StatusNotFound, "content not found")
		return
	}
	item, err := s.store.FindByID(r.Context(), id)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ContentItem{ContentSummary: toSummary(item), Body: item.Body})
}

// handleError maps domain errors onto status codes. Anything unrecognized is
// logged and reported as an opaque 500.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var canonErr *canonical.Error
	var validationErr *content.ValidationError
	requestID := zap.String("request_id", RequestIDFromContext(r.Context()))
	switch {
	case errors.As(err, &canonErr):
		s.logger.Debug("rejected url", requestID, zap.String("kind", string(canonErr.Kind)), zap.Error(err))
		writeError(w, http.StatusBadRequest, canonErr.Error())
	case errors.As(err, &validationErr):
		s.logger.Debug("validation failed", requestID, zap.Error(err))
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, ingest.ErrConflict):
		s.logger.Warn("ingest conflict", requestID, zap.Error(err))
		writeError(w, http.StatusConflict, ingest.ErrConflict.Error())
	case errors.Is(err, content.ErrNotFound):
		writeError(w, http.StatusNotFound, "content not found")
	default:
		s.logger.Error("request failed",
			requestID,
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func toSummary(item content.Item) ContentSummary {
	return ContentSummary{
		ID:        item.ID,
		URL:       item.URL,
		Title:     item.Title,
		Author:    item.Author,
		CreatedAt: item.CreatedAt,
	}
}
