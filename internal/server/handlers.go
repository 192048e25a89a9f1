package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-critic/internal/aspect"
	"github.com/fpang/photo-critic/internal/critique"
	"github.com/fpang/photo-critic/internal/imageasset"
	"github.com/fpang/photo-critic/internal/viewer"
	"github.com/fpang/photo-critic/internal/workflow"
)

type assetInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Size     int    `json:"size"`
}

func newAssetInfo(a *imageasset.Asset) *assetInfo {
	if a == nil {
		return nil
	}
	return &assetInfo{
		ID:       a.ID(),
		Name:     a.Name(),
		MIMEType: a.MIMEType(),
		Width:    a.Width(),
		Height:   a.Height(),
		Size:     a.Size(),
	}
}

type viewerResponse struct {
	Pair    viewer.Pair    `json:"pair"`
	Gesture viewer.Gesture `json:"gesture"`
	Layout  viewer.Layout  `json:"layout"`
}

type stateResponse struct {
	SessionID    string                  `json:"sessionId"`
	Phase        workflow.Phase          `json:"phase"`
	Pending      bool                    `json:"pending"`
	Message      string                  `json:"message,omitempty"`
	ErrorKind    workflow.ErrorKind      `json:"errorKind,omitempty"`
	Source       *assetInfo              `json:"source,omitempty"`
	Edited       *assetInfo              `json:"edited,omitempty"`
	Analysis     *critique.PhotoAnalysis `json:"analysis,omitempty"`
	Warnings     []string                `json:"warnings,omitempty"`
	AspectRatio  aspect.Ratio            `json:"aspectRatio,omitempty"`
	CanAnalyze   bool                    `json:"canAnalyze"`
	CanEdit      bool                    `json:"canEdit"`
	CanReanalyze bool                    `json:"canReanalyze"`
	Viewer       viewerResponse          `json:"viewer"`
}

func (s *session) snapshot() stateResponse {
	st := s.present()
	resp := stateResponse{
		SessionID:    s.id,
		Phase:        st.Phase,
		Pending:      st.Pending(),
		Message:      st.Message,
		ErrorKind:    st.ErrKind,
		Source:       newAssetInfo(st.Source),
		Edited:       newAssetInfo(st.Edited),
		Analysis:     st.Analysis,
		AspectRatio:  st.Ratio,
		CanAnalyze:   st.CanAnalyze(),
		CanEdit:      st.CanEdit(),
		CanReanalyze: st.CanReanalyze(),
	}
	if st.Analysis != nil {
		resp.Warnings = st.Analysis.Warnings()
	}
	resp.Viewer = s.viewerSnapshot()
	return resp
}

func (s *session) viewerSnapshot() viewerResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return viewerResponse{
		Pair:    s.view.Pair(),
		Gesture: s.view.Gesture(),
		Layout:  s.view.Layout(),
	}
}

// session looks up the {id} path parameter, writing 404 when it is unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := s.sessions.get(id)
	if !ok {
		httpError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

// GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessions.len(),
	})
}

// POST /api/sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.create(s.newController(), defaultBounds)
	log.Info().Str("session_id", sess.id).Msg("Session created")
	respondJSON(w, http.StatusCreated, sess.snapshot())
}

// GET /api/sessions/{id}/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sess.snapshot())
}

// POST /api/sessions/{id}/image (multipart field "image")
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)
	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		httpError(w, http.StatusBadRequest, "multipart field \"image\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		httpError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if int64(len(data)) > s.maxUpload {
		httpError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("image exceeds %d bytes", s.maxUpload))
		return
	}

	asset, err := imageasset.FromBytes(data, header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		if errors.Is(err, imageasset.ErrNotImage) {
			httpError(w, http.StatusUnsupportedMediaType, err.Error())
			return
		}
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := sess.ctrl.Select(asset); err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess.snapshot())
}

// POST /api/sessions/{id}/analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s.request(w, r, (*workflow.Controller).Analyze)
}

// POST /api/sessions/{id}/edit
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	s.request(w, r, (*workflow.Controller).Edit)
}

// POST /api/sessions/{id}/reanalyze
func (s *Server) handleReanalyze(w http.ResponseWriter, r *http.Request) {
	s.request(w, r, (*workflow.Controller).Reanalyze)
}

// request issues a workflow request. It answers 202 once the request is in
// flight and 409 when the current state does not allow it.
func (s *Server) request(w http.ResponseWriter, r *http.Request, issue func(*workflow.Controller) error) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := issue(sess.ctrl); err != nil {
		var perr *workflow.PreconditionError
		if errors.As(err, &perr) {
			httpError(w, http.StatusConflict, err.Error())
			return
		}
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, sess.snapshot())
}

// POST /api/sessions/{id}/viewer with a viewer.Event body
func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var ev viewer.Event
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&ev); err != nil {
		httpError(w, http.StatusBadRequest, "invalid gesture event")
		return
	}

	sess.present()
	sess.mu.Lock()
	err := sess.view.Apply(ev)
	sess.mu.Unlock()
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess.viewerSnapshot())
}

// GET /api/sessions/{id}/download returns the edited image bytes verbatim.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	edited := sess.ctrl.State().Edited
	if edited == nil {
		httpError(w, http.StatusNotFound, "no edited image")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", edited.FileName("")))
	writeAsset(w, edited)
}

// GET /api/sessions/{id}/images/{which} where which is "original" or "edited"
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	st := sess.ctrl.State()

	var asset *imageasset.Asset
	switch chi.URLParam(r, "which") {
	case "original":
		asset = st.Source
	case "edited":
		asset = st.Edited
	default:
		httpError(w, http.StatusBadRequest, "image must be original or edited")
		return
	}
	if asset == nil {
		httpError(w, http.StatusNotFound, "image not available")
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("ETag", `"`+asset.ID()+`"`)
	writeAsset(w, asset)
}

func writeAsset(w http.ResponseWriter, a *imageasset.Asset) {
	w.Header().Set("Content-Type", a.MIMEType())
	w.Header().Set("Content-Length", fmt.Sprint(a.Size()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	w.Write(a.Bytes())
}
