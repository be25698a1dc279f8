package server

import (
	"net/http"
	"time"

	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/sirupsen/logrus"
)

// streamPath is where the preview page subscribes for snapshots.
const streamPath = "/preview/stream"

// handlePreview serves the live preview page. It reuses the session's last
// successful render so a failing layout keeps showing the previous preview.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	markup, renderErr := s.session.Markup()
	if renderErr != nil {
		s.logger.WithError(renderErr).Warn("Serving previous preview after render failure")
	}

	page, err := rendering.WrapPage(s.session.Document().Name, markup, rendering.WithLiveReload(streamPath))
	if err != nil {
		s.failure(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

// handlePreviewStream pushes a snapshot event after every mutation until the
// client disconnects. The current state is sent first.
func (s *Server) handlePreviewStream(w http.ResponseWriter, r *http.Request) {
	// Long-lived response; lift any write deadline set on the connection.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	updates, unsubscribe := s.session.Subscribe()
	defer unsubscribe()

	log := s.logger.WithField("remote_addr", r.RemoteAddr)
	log.Debug("Preview stream opened")
	defer log.Debug("Preview stream closed")

	if err := sse.WriteSnapshot(s.session.Snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case snap := <-updates:
			if err := sse.WriteSnapshot(snap); err != nil {
				log.WithError(err).Debug("Preview stream write failed")
				return
			}
		case <-ticker.C:
			if err := sse.WriteComment("keep-alive"); err != nil {
				return
			}
		}
	}
}

// handlePDF prints the current document to an A4 PDF.
func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	doc := s.session.Document()
	page, err := rendering.RenderPage(doc)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	start := time.Now()
	pdf, err := s.pdf(r.Context(), page, s.pdfOptions)
	if err != nil {
		s.logger.WithError(err).Error("PDF export failed")
		s.errorResponse(w, http.StatusInternalServerError, "PDF export failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"template":    doc.Template,
		"bytes":       len(pdf),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("PDF exported")

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="resume.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
