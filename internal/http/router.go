package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	CORSOrigins []string
	Gatherer    prometheus.Gatherer
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, accessMiddleware(h.log, h.metrics))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/chat/{provider}", h.Chat).Methods(http.MethodPost)
	api.HandleFunc("/retrieval/retrieve", h.Retrieve).Methods(http.MethodPost)
	api.HandleFunc("/command", h.Command).Methods(http.MethodPost)
	api.HandleFunc("/assistants/openai", h.Assistants).Methods(http.MethodGet)

	return corsMiddleware(opts.CORSOrigins)(r)
}
