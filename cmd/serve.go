package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gridtools/urlfilters/grid"
	"github.com/gridtools/urlfilters/types"
	"github.com/gridtools/urlfilters/urlsync"
)

var serveCmd = &cobra.Command{
	Use:   "serve [--port PORT]",
	Short: "Serve debug endpoints for inspecting shared filter URLs",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := newManager()
		if err != nil {
			return err
		}
		defer manager.Close()

		router := httprouter.New()
		h := handlers{manager: manager}
		router.Handler(http.MethodPost, "/v1/parse", http.HandlerFunc(h.parse))
		router.Handler(http.MethodPost, "/v1/generate", http.HandlerFunc(h.generate))

		port := viper.GetInt("port")
		logger.Info("debug endpoints started", "port", port)
		return http.ListenAndServe(fmt.Sprintf(":%d", port), router)
	},
}

type handlers struct {
	manager *urlsync.Manager
}

type parseRequest struct {
	URL string `json:"url"`
}

type parseResponse struct {
	Filters types.FilterState `json:"filters"`
}

type generateRequest struct {
	Base    string            `json:"base"`
	Filters types.FilterState `json:"filters"`
}

type generateResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Description string `json:"description"`
}

func (h handlers) parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, err, http.StatusBadRequest)
		return
	}

	state, err := h.manager.DecodeURL(req.URL)
	if err != nil {
		respondWithError(w, err, http.StatusBadRequest)
		return
	}
	respondJSONObjectWithCode(w, http.StatusOK, parseResponse{Filters: state})
}

func (h handlers) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, err, http.StatusBadRequest)
		return
	}

	g := h.manager.Grid().(*grid.FakeGrid)
	grid.ApplyFilterModel(g, req.Filters, h.manager.Config())

	out, err := h.manager.GridToURL(req.Base)
	if err != nil {
		respondWithError(w, err, http.StatusBadRequest)
		return
	}
	respondJSONObjectWithCode(w, http.StatusOK, generateResponse{URL: out})
}

func respondJSONObjectWithCode(w http.ResponseWriter, code int, obj interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	jsonBytes, err := json.Marshal(obj)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(code)
	_, _ = w.Write(jsonBytes)
}

func respondWithError(w http.ResponseWriter, err error, code int) {
	respondJSONObjectWithCode(w, code, errorResponse{Description: err.Error()})
}
