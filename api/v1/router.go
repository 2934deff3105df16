package v1

import (
	"encoding/json"
	"fmt"
	"net/http"

	"cosmossdk.io/math"
	"github.com/armon/go-metrics"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/cellar-network/price-router/config"
	routercore "github.com/cellar-network/price-router/router"
	"github.com/cellar-network/price-router/router/types"
)

const (
	APIPathPrefix = "/api/v1"

	StatusAvailable = "available"
)

// Pricer defines the price router contract the v1 API depends on.
type Pricer interface {
	IsSupported(asset string) bool
	SupportedAssets() []string
	GetPriceInUSD(asset string) (math.Int, error)
	GetValue(asset string, amount math.Int, quote string) (math.Int, error)
	GetExchangeRates(bases []string, quote string) ([]math.Int, error)
	PendingEdits() []routercore.PendingEdit
}

// Router defines a router wrapper used for registering v1 API routes.
type Router struct {
	logger zerolog.Logger
	cfg    config.Config
	pricer Pricer
}

func New(logger zerolog.Logger, cfg config.Config, pricer Pricer) *Router {
	return &Router{
		logger: logger.With().Str("module", "api").Logger(),
		cfg:    cfg,
		pricer: pricer,
	}
}

// RegisterRoutes register v1 API routes on the provided sub-router.
func (r *Router) RegisterRoutes(rtr *mux.Router, prefix string) {
	v1Router := rtr.PathPrefix(prefix).Subrouter()

	mChain := alice.New()
	mChain = mChain.Append(r.requestLogger)

	if len(r.cfg.Server.AllowedOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins: r.cfg.Server.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet},
			Debug:          r.cfg.Server.VerboseCORS,
		})
		mChain = mChain.Append(c.Handler)
	}

	v1Router.Handle(
		"/healthz",
		mChain.ThenFunc(r.handleHealthz()),
	).Methods(http.MethodGet)

	v1Router.Handle(
		"/supported",
		mChain.ThenFunc(r.handleSupported()),
	).Methods(http.MethodGet)

	v1Router.Handle(
		"/price/{asset}",
		mChain.ThenFunc(r.handlePrice()),
	).Methods(http.MethodGet)

	v1Router.Handle(
		"/value",
		mChain.ThenFunc(r.handleValue()),
	).Methods(http.MethodGet)

	v1Router.Handle(
		"/exchange_rates",
		mChain.ThenFunc(r.handleExchangeRates()),
	).Methods(http.MethodGet)

	v1Router.Handle(
		"/pending_edits",
		mChain.ThenFunc(r.handlePendingEdits()),
	).Methods(http.MethodGet)
}

func (r *Router) requestLogger(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		metrics.IncrCounterWithLabels(
			[]string{"api", "request"},
			1,
			[]metrics.Label{{Name: "path", Value: req.URL.Path}},
		)
		r.logger.Debug().Str("path", req.URL.Path).Msg("api request")
		h.ServeHTTP(w, req)
	})
}

func (r *Router) handleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": StatusAvailable})
	}
}

func (r *Router) handleSupported() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"assets": r.pricer.SupportedAssets(),
		})
	}
}

func (r *Router) handlePrice() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		asset := mux.Vars(req)["asset"]

		price, err := r.pricer.GetPriceInUSD(asset)
		if err != nil {
			r.writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"asset":     asset,
			"price_usd": price.String(),
		})
	}
}

func (r *Router) handleValue() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		query := req.URL.Query()
		asset := query.Get("asset")
		quote := query.Get("quote")

		amount, ok := math.NewIntFromString(query.Get("amount"))
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: fmt.Sprintf("invalid amount %q", query.Get("amount")),
			})
			return
		}

		value, err := r.pricer.GetValue(asset, amount, quote)
		if err != nil {
			r.writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"asset":  asset,
			"quote":  quote,
			"amount": amount.String(),
			"value":  value.String(),
		})
	}
}

func (r *Router) handleExchangeRates() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		quote := req.URL.Query().Get("quote")

		bases := r.pricer.SupportedAssets()
		rates, err := r.pricer.GetExchangeRates(bases, quote)
		if err != nil {
			r.writeError(w, err)
			return
		}

		out := make(map[string]string, len(bases))
		for i, base := range bases {
			out[base] = rates[i].String()
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"quote": quote,
			"rates": out,
		})
	}
}

func (r *Router) handlePendingEdits() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"pending_edits": r.pricer.PendingEdits(),
		})
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (r *Router) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if types.ErrUnsupportedAsset.Is(err) {
		status = http.StatusNotFound
	}

	metrics.IncrCounter([]string{"api", "error"}, 1)
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
