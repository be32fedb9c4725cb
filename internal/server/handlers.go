package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/Lllllllleong/payslipflow/internal/models"
	"github.com/Lllllllleong/payslipflow/internal/pdf"
	"github.com/Lllllllleong/payslipflow/internal/services"
)

const (
	healthMessage     = "Payroll PDF System is Running"
	msgMissingPDF     = "Master PDF file is required"
	msgSplitFailed    = "Failed to split PDF page-by-page. Aborting batch."
	msgInternalError  = "Internal Server Error during batch processing"
	msgBadCredentials = "Invalid email or password"
)

// multipart memory kept before spilling parts to disk.
const formMemory = 32 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, healthMessage)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeJSON(w, http.StatusOK, models.SessionResponse{Authenticated: true})
		return
	}

	var req models.LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Bad Request: could not parse JSON")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Email, req.Password = r.PostFormValue("email"), r.PostFormValue("password")
	}

	if !s.sessions.CheckCredentials(req.Email, req.Password) {
		slog.Warn("Rejected login attempt.", "email", req.Email, "remoteAddr", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, msgBadCredentials)
		return
	}
	token, expires, err := s.sessions.Issue(req.Email)
	if err != nil {
		slog.Error("Failed to issue session", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	s.sessions.setCookie(w, r, token, expires)
	writeJSON(w, http.StatusOK, models.SessionResponse{Authenticated: true, Email: req.Email})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	clearCookie(w)
	writeJSON(w, http.StatusOK, models.SessionResponse{Authenticated: false})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		writeJSON(w, http.StatusOK, models.SessionResponse{Authenticated: true})
		return
	}
	email, ok := s.sessions.fromRequest(r)
	writeJSON(w, http.StatusOK, models.SessionResponse{Authenticated: ok, Email: email})
}

// handleUpload accepts a multipart form with the master document in "pdf",
// an optional "mapping" file and an optional "pay_month" label.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	req, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payMonth := s.periods.Resolve(req.PayMonthHint, req.Filename)
	if len(req.MasterDocument) == 0 {
		writeError(w, http.StatusBadRequest, msgMissingPDF)
		return
	}
	logCtx := slog.With("filename", req.Filename, "sizeBytes", len(req.MasterDocument), "payMonth", payMonth)
	if req.MappingFile != nil {
		logCtx = logCtx.With("mappingBytes", len(req.MappingFile))
	}
	logCtx.Info("Processing PDF.")

	result, err := s.dispatcher.Process(r.Context(), req.MasterDocument, payMonth)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, services.ErrNoDocument):
		writeError(w, http.StatusBadRequest, msgMissingPDF)
	case errors.Is(err, pdf.ErrSplit):
		writeError(w, http.StatusInternalServerError, msgSplitFailed)
	default:
		logCtx.Error("Batch processing error", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternalError)
	}
}

func readUpload(r *http.Request) (*models.UploadRequest, error) {
	req := &models.UploadRequest{PayMonthHint: r.FormValue("pay_month")}

	if data, header, err := readPart(r.MultipartForm, "pdf"); err != nil {
		return nil, err
	} else if header != nil {
		req.MasterDocument, req.Filename = data, header.Filename
	}
	if data, header, err := readPart(r.MultipartForm, "mapping"); err != nil {
		return nil, err
	} else if header != nil {
		req.MappingFile = data
	}
	return req, nil
}

// readPart returns the first file uploaded under field, or a nil header when
// there is none.
func readPart(form *multipart.Form, field string) ([]byte, *multipart.FileHeader, error) {
	headers := form.File[field]
	if len(headers) == 0 {
		return nil, nil, nil
	}
	f, err := headers[0].Open()
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, err
	}
	return data, headers[0], nil
}
