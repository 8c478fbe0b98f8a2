package server

import (
	"net/http"

	"nvd-api/internal/models"
)

const indexPage = "<h1> Final results </h1>"

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(indexPage))
}

func (s *Server) helpHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, models.HelpResponse{
		Code: http.StatusOK,
		Data: describeRoutes(Catalog(), s.Logger),
	})
}

func (s *Server) severityDistHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	counts, err := s.DB.SeverityDistribution(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	dist := make([]map[string]int64, 0, len(counts))
	for _, c := range counts {
		dist = append(dist, map[string]int64{c.Severity: c.Count})
	}
	s.writeJSON(w, http.StatusOK, models.SeverityDistributionResponse{SeverityDistribution: dist})
}

func (s *Server) severityYearHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	years, err := s.DB.SeverityByYear(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, models.SeverityYearResponse{SeverityDistribution: years})
}

func (s *Server) worstHandler(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseAffectedKind(r.PathValue("prod_or_plat"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.queryContext(r)
	defer cancel()

	rows, err := s.DB.WorstAffected(ctx, kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, models.WorstResponse{Type: kind, Result: rows})
}

func (s *Server) topVulHandler(w http.ResponseWriter, r *http.Request) {
	ver, err := models.ParseCVSSVersion(r.PathValue("cvss_ver"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	score, err := models.ParseScoreType(r.PathValue("score"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.queryContext(r)
	defer cancel()

	rows, err := s.DB.TopVulnerabilities(ctx, ver, score)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, models.TopVulnerabilitiesResponse{
		CVSSVersion: ver,
		ScoreType:   score,
		Result:      rows,
	})
}

func (s *Server) lookupHandler(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseLookupKind(r.PathValue("cve_or_prod"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.queryContext(r)
	defer cancel()

	// the identifier is matched exactly and bound as a query parameter
	records, err := s.DB.Lookup(ctx, kind, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, models.LookupResponse{Type: kind, Result: records})
}
