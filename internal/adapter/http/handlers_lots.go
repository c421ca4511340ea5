package adapthttp

import (
	"net/http"

	"parking/internal/domain"
)

func (s *Server) handleListLots(w http.ResponseWriter, r *http.Request) {
	lots, err := s.lots.ListAll(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lots)
}

func (s *Server) handleGetLot(w http.ResponseWriter, r *http.Request) {
	lot, err := s.lots.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lot)
}

func (s *Server) handleCreateLot(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name       string   `json:"name"`
		Location   string   `json:"location"`
		HourlyCost *float64 `json:"hourlyCost"`
		Capacity   *int     `json:"capacity"`
	}
	if err := parseJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.HourlyCost == nil {
		s.fail(w, r, domain.NewValidationError("hourlyCost is required"))
		return
	}
	if body.Capacity == nil {
		s.fail(w, r, domain.NewValidationError("capacity is required"))
		return
	}
	lot, err := s.lots.Create(r.Context(), body.Name, body.Location, *body.HourlyCost, *body.Capacity)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lot)
}

func (s *Server) handleUpdateLot(w http.ResponseWriter, r *http.Request) {
	var body struct {
		HourlyCost *float64 `json:"hourlyCost"`
	}
	if err := parseJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if body.HourlyCost == nil {
		s.fail(w, r, domain.NewValidationError("hourlyCost is required"))
		return
	}
	lot, err := s.lots.UpdateHourlyCost(r.Context(), r.PathValue("id"), *body.HourlyCost)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lot)
}

func (s *Server) handleDeleteLot(w http.ResponseWriter, r *http.Request) {
	lot, err := s.lots.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lot)
}

func (s *Server) handleOccupy(w http.ResponseWriter, r *http.Request) {
	pos, err := pathInt(r, "pos")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	info, err := s.lots.Occupy(r.Context(), r.PathValue("lotId"), pos)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.slots.WithLabelValues("occupy").Inc()
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	pos, err := pathInt(r, "pos")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	info, err := s.lots.Release(r.Context(), r.PathValue("lotId"), pos)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.slots.WithLabelValues("release").Inc()
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	summary, err := s.lots.OccupancySummary(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
