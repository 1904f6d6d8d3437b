package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	defaultHitsLimit = 50
	maxHitsLimit     = 500
)

// listHits handles GET /v1/hits?run_id=&limit=&offset=.
func (s *Server) listHits(w http.ResponseWriter, r *http.Request) {
	if s.hits == nil {
		s.writeError(w, http.StatusServiceUnavailable, "hit history unavailable")
		return
	}
	limit, offset, err := parseLimitOffset(r, defaultHitsLimit, maxHitsLimit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runID := r.URL.Query().Get("run_id")
	hits, err := s.hits.ListHits(r.Context(), runID, limit, offset)
	if err != nil {
		s.logger.Error("list hits failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list hits")
		return
	}

	items := make([]hitResponse, 0, len(hits))
	for _, h := range hits {
		items = append(items, hitResponse{
			RunID:      h.RunID,
			Keyword:    h.Keyword,
			Title:      h.Title,
			Link:       h.Link,
			FoundAt:    h.FoundAt.UTC().Format(timeLayout),
			NotifiedAt: formatTimePtr(h.NotifiedAt),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"limit":  limit,
		"offset": offset,
	})
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	limit, err := parseLimit(r, def, maxLimit)
	if err != nil {
		return 0, 0, err
	}
	offset := 0
	if offStr := r.URL.Query().Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type hitResponse struct {
	RunID      string  `json:"run_id"`
	Keyword    string  `json:"keyword"`
	Title      string  `json:"title"`
	Link       string  `json:"link,omitempty"`
	FoundAt    string  `json:"found_at"`
	NotifiedAt *string `json:"notified_at,omitempty"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(timeLayout)
	return &s
}
