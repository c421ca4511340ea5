package adapthttp

import "net/http"

type sessionRequest struct {
	DriverID     string `json:"driverId"`
	ParkingLotID string `json:"parkingLotId"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.ListAll(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var body sessionRequest
	if err := parseJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.sessions.StartSession(r.Context(), body.DriverID, body.ParkingLotID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.sessions.WithLabelValues("start").Inc()
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var body sessionRequest
	if err := parseJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.sessions.EndSession(r.Context(), body.DriverID, body.ParkingLotID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.sessions.WithLabelValues("end").Inc()
	writeJSON(w, http.StatusOK, session)
}
