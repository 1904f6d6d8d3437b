package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/keywatch/internal/monitor"
	"github.com/JakeFAU/keywatch/internal/watch"
)

const (
	defaultLinesLimit = 100
	maxLinesLimit     = 1000
)

// startRequest is the body of POST /v1/monitor/start.
type startRequest struct {
	Token     string `json:"token"`
	ChatID    string `json:"chat_id"`
	TargetURL string `json:"target_url"`
	Mode      string `json:"mode"`
	// Keywords is a comma separated manual keyword list.
	Keywords string `json:"keywords"`
}

func (s *Server) startMonitor(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	mode, err := watch.ParseMode(req.Mode)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	target := strings.TrimSpace(req.TargetURL)
	if target == "" {
		target = s.defaultTarget
	}
	cfg := watch.Config{
		NotifierToken:  strings.TrimSpace(req.Token),
		ChatID:         strings.TrimSpace(req.ChatID),
		TargetURL:      target,
		Mode:           mode,
		ManualKeywords: watch.SplitKeywords(req.Keywords),
	}

	if err := s.monitor.Start(cfg); err != nil {
		switch {
		case watch.IsConfigError(err):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, monitor.ErrStopping):
			s.writeError(w, http.StatusConflict, err.Error())
		default:
			s.logger.Error("monitor start failed", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "failed to start monitor")
		}
		return
	}
	s.writeJSON(w, http.StatusAccepted, s.monitor.Status())
}

func (s *Server) stopMonitor(w http.ResponseWriter, _ *http.Request) {
	s.monitor.Stop()
	s.writeJSON(w, http.StatusAccepted, s.monitor.Status())
}

func (s *Server) monitorStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.monitor.Status())
}

func (s *Server) seenTitles(w http.ResponseWriter, _ *http.Request) {
	titles := s.monitor.Seen()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(titles),
		"titles": titles,
	})
}

// recentLines handles GET /v1/monitor/logs?limit=N.
func (s *Server) recentLines(w http.ResponseWriter, r *http.Request) {
	if s.lines == nil {
		s.writeError(w, http.StatusServiceUnavailable, "status log unavailable")
		return
	}
	limit, err := parseLimit(r, defaultLinesLimit, maxLinesLimit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"lines": s.lines.Recent(limit)})
}

func parseLimit(r *http.Request, def, maxLimit int) (int, error) {
	limStr := r.URL.Query().Get("limit")
	if limStr == "" {
		return def, nil
	}
	val, err := strconv.Atoi(limStr)
	if err != nil || val <= 0 {
		return 0, errors.New("invalid limit")
	}
	if val > maxLimit {
		val = maxLimit
	}
	return val, nil
}
