package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"eradata/internal/models"
	"eradata/internal/storage"
)

// ResultsFinder looks up stored aggregated results
type ResultsFinder interface {
	FindResults(ctx context.Context, filter storage.ResultFilter) ([]models.AggregatedRecord, error)
}

type CountyHandler struct {
	store  ResultsFinder
	logger *zap.Logger
}

func NewCountyHandler(store ResultsFinder, logger *zap.Logger) *CountyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CountyHandler{
		store:  store,
		logger: logger,
	}
}

// Routes registers the handler endpoints on mux
func (h *CountyHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/county-results/{fips}", h.HandleGetCountyResults)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

type countyResult struct {
	Year           int    `json:"year"`
	State          string `json:"state"`
	StatePO        string `json:"state_po"`
	CountyName     string `json:"county_name"`
	CountyFIPS     string `json:"county_fips"`
	FIPS5          string `json:"fips5"`
	Office         string `json:"office"`
	Candidate      string `json:"candidate"`
	Party          string `json:"party"`
	CandidateVotes int    `json:"candidatevotes"`
	TotalVotes     *int   `json:"totalvotes"`
	Version        *int   `json:"version"`
	Mode           string `json:"mode"`
}

// optional maps a missing value to JSON null
func optional(o models.OptionalInt) *int {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

func (h *CountyHandler) HandleGetCountyResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	fips := r.PathValue("fips")
	if fips == "" {
		http.Error(w, "County FIPS is required", http.StatusBadRequest)
		return
	}
	canonical, err := models.CanonicalFIPS(fips)
	if err != nil {
		http.Error(w, "Invalid county FIPS", http.StatusBadRequest)
		return
	}

	filter := storage.ResultFilter{
		CountyFIPS: canonical,
		Office:     r.URL.Query().Get("office"),
	}
	if year := r.URL.Query().Get("year"); year != "" {
		filter.Year, err = strconv.Atoi(year)
		if err != nil {
			http.Error(w, "Invalid year", http.StatusBadRequest)
			return
		}
	}

	records, err := h.store.FindResults(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to fetch results", zap.String("fips", canonical), zap.Error(err))
		http.Error(w, "Error fetching results", http.StatusInternalServerError)
		return
	}

	results := make([]countyResult, len(records))
	for i, rec := range records {
		results[i] = countyResult{
			Year:           rec.Key.Year,
			State:          rec.Key.State,
			StatePO:        rec.Key.StatePO,
			CountyName:     rec.Key.CountyName,
			CountyFIPS:     rec.Key.CountyFIPS,
			FIPS5:          models.PadFIPS(rec.Key.CountyFIPS),
			Office:         rec.Key.Office,
			Candidate:      rec.Key.Candidate,
			Party:          rec.Key.Party,
			CandidateVotes: rec.CandidateVotes,
			TotalVotes:     optional(rec.TotalVotes),
			Version:        optional(rec.Version),
			Mode:           rec.Mode,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"total":   len(results),
		"results": results,
	})
}
