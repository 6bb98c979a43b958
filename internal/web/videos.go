package web

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vectortube/internal/catalog"
	"vectortube/internal/errs"
)

const thumbnailField = "thumbnail"

// maxFormMemory is how much of a multipart body is held in memory; the rest
// spills to temp files that RemoveAll cleans up.
const maxFormMemory = 8 << 20

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.catalog.List(r.Context(), s.origin(r))
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, videos, http.StatusOK)
}

func (s *Server) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	video, err := s.catalog.Get(r.Context(), s.origin(r), chi.URLParam(r, "id"))
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, video, http.StatusOK)
}

func (s *Server) handleCreateVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	memory := int64(maxFormMemory)
	if s.maxUploadBytes < memory {
		memory = s.maxUploadBytes
	}
	err := r.ParseMultipartForm(memory)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.sendError(w, r, err)
			return
		}
		s.sendError(w, r, errs.Validationf("create", "invalid form data: %v", err))
		return
	}

	in := catalog.CreateInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Link:        r.FormValue("link"),
	}

	header, err := thumbnailPart(r.MultipartForm)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	if header != nil {
		file, err := header.Open()
		if err != nil {
			s.sendError(w, r, errs.Wrap(errs.IO, "create", "failed to read thumbnail", err))
			return
		}
		defer file.Close()

		in.Thumbnail = &catalog.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		}
	}

	video, err := s.catalog.Create(r.Context(), s.origin(r), in)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, apiMessageResponse{Message: "Video created successfully", Video: video}, http.StatusCreated)
}

// thumbnailPart returns the single thumbnail file of form, if any. Any other
// file field, or more than one thumbnail, is rejected.
func thumbnailPart(form *multipart.Form) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, nil
	}
	for field := range form.File {
		if field != thumbnailField {
			return nil, errs.Validationf("create", "unexpected file field %q", field)
		}
	}
	headers := form.File[thumbnailField]
	switch len(headers) {
	case 0:
		return nil, nil
	case 1:
		return headers[0], nil
	default:
		return nil, errs.Validationf("create", "only one %s file is allowed", thumbnailField)
	}
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	video, err := s.catalog.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, apiMessageResponse{Message: "Video deleted successfully", Video: video}, http.StatusOK)
}
