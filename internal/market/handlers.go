package market

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the market endpoints on a sub-router.
func Routes(p *Provider) chi.Router {
	r := chi.NewRouter()
	r.Get("/rbi-rate", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, p.RBIRate())
	})
	r.Get("/competitor-offers", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, p.CompetitorOffers())
	})
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
