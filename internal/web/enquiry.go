package web

import (
	"net/http"

	"vectortube/internal/enquiry"
)

func (s *Server) handleQuickEnquiry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEnquiryBytes)

	sub, err := enquiry.DecodeSubmission(r.Body)
	if err != nil {
		s.sendError(w, r, err)
		return
	}

	if _, err := s.enquiries.Register(r.Context(), sub); err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, apiMessageResponse{Message: "Data inserted successfully"}, http.StatusOK)
}
