package control

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/krancour/porter/pkg/consumer"
	"github.com/pkg/errors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Controller is an interface for the component whose run is steered by the
// control endpoint. *consumer.Consumer satisfies this interface.
type Controller interface {
	Pause()
	Resume()
	Shutdown()
	State() consumer.State
}

// Server is an interface for the component that exposes a Controller over
// HTTP.
type Server interface {
	// ListenAndServe causes the server to start serving HTTP requests. It will
	// block until the context is canceled or an error occurs.
	ListenAndServe(ctx context.Context) error
	// Handler returns the server's request router.
	Handler() http.Handler
}

type server struct {
	address    string
	controller Controller
	router     *mux.Router
}

// NewServer returns an HTTP control server for the given Controller that
// listens on the given address.
func NewServer(address string, controller Controller) Server {
	router := mux.NewRouter()
	router.StrictSlash(true)

	s := &server{
		address:    address,
		controller: controller,
		router:     router,
	}

	// Health check
	router.HandleFunc("/healthz", s.checkHealth).Methods(http.MethodGet)

	router.HandleFunc("/v1/consumer", s.getState).Methods(http.MethodGet)

	router.HandleFunc(
		"/v1/consumer/pause",
		s.act(controller.Pause),
	).Methods(http.MethodPost)

	router.HandleFunc(
		"/v1/consumer/resume",
		s.act(controller.Resume),
	).Methods(http.MethodPost)

	router.HandleFunc(
		"/v1/consumer/shutdown",
		s.act(controller.Shutdown),
	).Methods(http.MethodPost)

	return s
}

func (s *server) Handler() http.Handler {
	return s.router
}

func (s *server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: h2c.NewHandler(s.router, &http2.Server{}),
	}

	errCh := make(chan error, 1)
	go func() {
		glog.Infof("control server is listening on %s", s.address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrapf(
			err,
			"error serving control endpoint on %s",
			s.address,
		)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Wrap(
		srv.Shutdown(shutdownCtx),
		"error shutting down control server",
	)
}

func (s *server) checkHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeResponse(w, http.StatusOK, struct{}{})
}

func (s *server) getState(w http.ResponseWriter, _ *http.Request) {
	s.writeResponse(w, http.StatusOK, s.controller.State())
}

// act returns a handler that applies the given action to the Controller and
// responds with the resulting state.
func (s *server) act(action func()) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		action()
		s.writeResponse(w, http.StatusAccepted, s.controller.State())
	}
}

func (s *server) writeResponse(
	w http.ResponseWriter,
	statusCode int,
	response interface{},
) {
	responseBody, err := json.Marshal(response)
	if err != nil {
		glog.Error(errors.Wrap(err, "error marshaling response body"))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(responseBody); err != nil {
		glog.Error(errors.Wrap(err, "error writing response body"))
	}
}
