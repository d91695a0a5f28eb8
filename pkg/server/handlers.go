package server

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/buildinfo"
	"github.com/matzehuels/bandmap/pkg/controller"
	"github.com/matzehuels/bandmap/pkg/errors"
	"github.com/matzehuels/bandmap/pkg/render"
	"github.com/matzehuels/bandmap/pkg/session"
)

// =============================================================================
// Request and response bodies
// =============================================================================

type createRequest struct {
	Width    float64     `json:"width,omitempty"`
	Height   float64     `json:"height,omitempty"`
	Province string      `json:"province,omitempty"`
	Filter   band.Filter `json:"filter"`
}

type sessionResponse struct {
	Session session.State        `json:"session"`
	Layout  *controller.Snapshot `json:"layout"`
}

type zoomRequest struct {
	Delta *float64 `json:"delta,omitempty"`
	Value *float64 `json:"value,omitempty"`
}

type zoomResponse struct {
	Zoom    float64 `json:"zoom"`
	Percent float64 `json:"percent"`
	// Generation is the generation of the layout published so far. A
	// debounced pass for the new zoom will publish a higher one.
	Generation uint64 `json:"generation"`
}

type provinceRequest struct {
	Province string `json:"province"`
	Toggle   bool   `json:"toggle,omitempty"`
}

type viewportRequest struct {
	Width  float64    `json:"width,omitempty"`
	Height float64    `json:"height,omitempty"`
	Center *orb.Point `json:"center,omitempty"`
	Zoom   *float64   `json:"zoom,omitempty"`
	// Pan moves the view by a pixel offset.
	Pan *[2]float64 `json:"pan,omitempty"`
}

type provinceInfo struct {
	band.Province
	Bands int `json:"bands"`
}

// =============================================================================
// Service routes
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

func (s *Server) handleProvinces(w http.ResponseWriter, r *http.Request) {
	counts := band.CountByProvince(s.data.Bands())
	out := make([]provinceInfo, 0, s.data.Atlas.Len())
	for _, p := range s.data.Atlas.Provinces {
		out = append(out, provinceInfo{Province: p, Bands: counts[p.Name]})
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// Session lifecycle
// =============================================================================

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Width < 0 || req.Height < 0 {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "viewport size must not be negative"))
		return
	}

	sess, err := s.newSession(session.State{
		Width:    req.Width,
		Height:   req.Height,
		Selected: req.Province,
		Filter:   req.Filter,
	}, false)
	if err != nil {
		writeError(w, err)
		return
	}
	s.save(r.Context(), sess)
	s.logger.Debug("created session", "id", sess.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{Session: sess.State(), Layout: sess.Controller.Snapshot()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.sessions.Get(r.Context(), id); err != nil && s.persist == nil {
		writeError(w, err)
		return
	}
	_ = s.sessions.Delete(r.Context(), id)
	if s.persist != nil {
		if err := s.persist.Delete(r.Context(), id); err != nil {
			s.logger.Warn("failed to delete persisted session", "id", id, "err", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// newSession builds a live session from st. When restore is set the
// session keeps st's ID and view.
func (s *Server) newSession(st session.State, restore bool) (*session.Session, error) {
	opts := s.opts
	if st.Width > 0 && st.Height > 0 {
		opts.Viewport.Width, opts.Viewport.Height = st.Width, st.Height
	}
	opts.Filter = band.Filter{}
	opts.Controller.Context = context.Background()

	vp, ctrl := s.runner.NewSession(s.data, opts)
	sess := session.New(vp, ctrl, s.sessions.TTL())

	if restore {
		if err := sess.Apply(st); err != nil {
			sess.Close()
			return nil, err
		}
	} else {
		ctrl.SetFilter(st.Filter)
		if st.Selected != "" {
			if err := ctrl.Select(st.Selected); err != nil {
				sess.Close()
				return nil, err
			}
		}
	}
	ctrl.Recompute()

	if err := s.sessions.Put(context.Background(), sess); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

// session returns the session named in the URL, restoring a persisted one
// if it is not live.
func (s *Server) session(r *http.Request) (*session.Session, error) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(r.Context(), id)
	if err == nil || s.persist == nil || !stderrors.Is(err, session.ErrNotFound) {
		return sess, err
	}

	st, err := s.persist.Load(r.Context(), id)
	if err != nil {
		return nil, err
	}
	sess, err = s.newSession(*st, true)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("restored session", "id", id)
	return sess, nil
}

// save persists the session's state when persistence is enabled.
func (s *Server) save(ctx context.Context, sess *session.Session) {
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(ctx, sess.State()); err != nil {
		s.logger.Warn("failed to persist session", "id", sess.ID, "err", err)
	}
}

// =============================================================================
// Layout
// =============================================================================

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	format := render.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		if format, err = render.ParseFormat(f); err != nil {
			writeError(w, err)
			return
		}
	}

	snap := sess.Controller.Snapshot()
	if snap == nil {
		snap = sess.Controller.Recompute()
	}
	if format == render.FormatJSON {
		writeJSON(w, http.StatusOK, snap)
		return
	}

	opts := s.opts
	opts.Formats = []render.Format{format}
	artifacts, err := s.runner.Render(r.Context(), snap, sess.Viewport, s.data, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	_, _ = w.Write(artifacts[format])
}

// =============================================================================
// Map controls
// =============================================================================

func (s *Server) handleZoomBy(w http.ResponseWriter, r *http.Request) {
	s.zoom(w, r, func(c *controller.Controls, req zoomRequest) error {
		if req.Delta == nil {
			return errors.New(errors.ErrCodeInvalidInput, "delta is required")
		}
		if err := errors.ValidateFinite("delta", *req.Delta); err != nil {
			return err
		}
		c.ZoomBy(*req.Delta)
		return nil
	})
}

func (s *Server) handleSetZoom(w http.ResponseWriter, r *http.Request) {
	s.zoom(w, r, func(c *controller.Controls, req zoomRequest) error {
		if req.Value == nil {
			return errors.New(errors.ErrCodeInvalidInput, "value is required")
		}
		if err := errors.ValidateFinite("value", *req.Value); err != nil {
			return err
		}
		c.SetZoom(*req.Value)
		return nil
	})
}

func (s *Server) zoom(w http.ResponseWriter, r *http.Request, apply func(*controller.Controls, zoomRequest) error) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req zoomRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	controls := sess.Controller.Controls()
	if err := apply(controls, req); err != nil {
		writeError(w, err)
		return
	}
	s.save(r.Context(), sess)

	resp := zoomResponse{Zoom: controls.Zoom(), Percent: controls.ZoomPercent()}
	if snap := sess.Controller.Snapshot(); snap != nil {
		resp.Generation = snap.Generation
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(sess *session.Session) error {
		sess.Controller.Controls().ResetView()
		return nil
	})
}

func (s *Server) handleProvince(w http.ResponseWriter, r *http.Request) {
	var req provinceRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.mutate(w, r, func(sess *session.Session) error {
		if req.Toggle {
			return sess.Controller.Toggle(req.Province)
		}
		return sess.Controller.Select(req.Province)
	})
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var f band.Filter
	if err := decode(w, r, &f); err != nil {
		writeError(w, err)
		return
	}
	s.mutate(w, r, func(sess *session.Session) error {
		sess.Controller.SetFilter(f)
		return nil
	})
}

func (s *Server) handleMarkerClick(w http.ResponseWriter, r *http.Request) {
	bandID := chi.URLParam(r, "bandID")
	s.mutate(w, r, func(sess *session.Session) error {
		return sess.Controller.ClickMarker(bandID)
	})
}

// mutate applies fn to the session and responds with the latest layout.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(*session.Session) error) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := fn(sess); err != nil {
		writeError(w, err)
		return
	}
	s.save(r.Context(), sess)
	writeJSON(w, http.StatusOK, sess.Controller.Snapshot())
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req viewportRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	vp := sess.Viewport
	if req.Width > 0 && req.Height > 0 {
		vp.Resize(req.Width, req.Height)
	}
	if req.Center != nil || req.Zoom != nil {
		t := vp.Transform()
		center, zoom := t.Center, t.Zoom
		if req.Center != nil {
			center = *req.Center
		}
		if req.Zoom != nil {
			zoom = *req.Zoom
		}
		vp.SetView(center, zoom)
	}
	if req.Pan != nil {
		vp.Pan(req.Pan[0], req.Pan[1])
	}
	s.save(r.Context(), sess)
	writeJSON(w, http.StatusOK, vp.Transform())
}

func (req viewportRequest) validate() error {
	if (req.Width > 0) != (req.Height > 0) || req.Width < 0 || req.Height < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "width and height must both be positive")
	}
	var values []float64
	if req.Center != nil {
		values = append(values, req.Center[0], req.Center[1])
	}
	if req.Zoom != nil {
		values = append(values, *req.Zoom)
	}
	if req.Pan != nil {
		values = append(values, req.Pan[0], req.Pan[1])
	}
	for _, v := range values {
		if err := errors.ValidateFinite("viewport value", v); err != nil {
			return err
		}
	}
	return nil
}
