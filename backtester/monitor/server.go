package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/thrasher-corp/papertrader/backtester/common"
	"github.com/thrasher-corp/papertrader/log"
)

// NewServer returns a server exposing m
func NewServer(m *Monitor) (*Server, error) {
	if m == nil {
		return nil, common.ErrNilArguments
	}
	return &Server{monitor: m}, nil
}

// RESTLogger logs the requests internally
func RESTLogger(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		inner.ServeHTTP(w, r)
		log.Debugf(common.Monitor, "%s\t%s\t%s\t%s", r.Method, r.RequestURI, name, time.Since(start))
	})
}

// Router returns the monitor's routes
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	routes := []Route{
		{"Status", http.MethodGet, "/status", s.getStatus},
		{"EquityCurve", http.MethodGet, "/equity", s.getEquity},
		{"Alerts", http.MethodGet, "/alerts", s.getAlerts},
		{"Records", http.MethodGet, "/records/{type}", s.getRecords},
	}
	for _, route := range routes {
		router.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(RESTLogger(route.HandlerFunc, route.Name))
	}
	return router
}

// Start serves the monitor on listen until Shutdown
func (s *Server) Start(listen string) error {
	if listen == "" {
		return errNoListen
	}
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	s.server = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Infof(common.Monitor, "monitor server listening on http://%v", ln.Addr())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf(common.Monitor, "monitor server stopped: %v", err)
		}
	}()
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return errNotStarted
	}
	return s.server.Shutdown(ctx)
}

// RESTfulJSONResponse encodes response as the JSON body of a 200 reply
func RESTfulJSONResponse(w http.ResponseWriter, response any) error {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(response)
}

// RESTfulError prints the REST method and error
func RESTfulError(method string, err error) {
	log.Errorf(common.Monitor, "RESTful %s: server failed to send JSON response. Error %s", method, err)
}

type statusResponse struct {
	Summary Summary      `json:"summary"`
	Latest  *CycleReport `json:"latest,omitempty"`
	Dropped int64        `json:"dropped-reports"`
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	err := RESTfulJSONResponse(w, statusResponse{
		Summary: s.monitor.Collector.Summary(),
		Latest:  s.monitor.Collector.Latest(),
		Dropped: s.monitor.Dropped(),
	})
	if err != nil {
		RESTfulError(r.Method, err)
	}
}

func (s *Server) getEquity(w http.ResponseWriter, r *http.Request) {
	if err := RESTfulJSONResponse(w, s.monitor.Collector.EquityCurve()); err != nil {
		RESTfulError(r.Method, err)
	}
}

func (s *Server) getAlerts(w http.ResponseWriter, r *http.Request) {
	level := AlertLevel(r.URL.Query().Get("level"))
	if err := RESTfulJSONResponse(w, s.monitor.Alerts.Get(level)); err != nil {
		RESTfulError(r.Method, err)
	}
}

func (s *Server) getRecords(w http.ResponseWriter, r *http.Request) {
	typ := mux.Vars(r)["type"]
	if err := RESTfulJSONResponse(w, s.monitor.Collector.Records(typ)); err != nil {
		RESTfulError(r.Method, err)
	}
}
