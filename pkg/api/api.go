package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/playnet-public/gorcon-mc/pkg/common"
	"go.uber.org/zap"
)

//Dispatcher is the part of the rcon client exposed over http
type Dispatcher interface {
	Command(ctx context.Context, cmd string, wait bool) (string, error)
	Connect(ctx context.Context) error
	IsClosed() bool
	Connected() bool
	Pending() int
}

//Admin are the account operations exposed over http
type Admin interface {
	WhitelistAdd(ctx context.Context, username string) error
	WhitelistRemove(ctx context.Context, username, reason string) error
	BanAdd(ctx context.Context, username, reason string) error
	BanRemove(ctx context.Context, username string) error
}

//API serves the http admin interface
type API struct {
	log    *zap.Logger
	client Dispatcher
	admin  Admin
	// timeout bounds synchronous commands and reconnects
	timeout time.Duration
}

type response struct {
	Success bool             `json:"success"`
	Err     string           `json:"error,omitempty"`
	Data    *json.RawMessage `json:"data"`
}

type commandRequest struct {
	Command string `json:"command"`
	Wait    bool   `json:"wait"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

//New returns a new API
func New(log *zap.Logger, client Dispatcher, admin Admin, timeout time.Duration) *API {
	return &API{
		log:     log,
		client:  client,
		admin:   admin,
		timeout: timeout,
	}
}

//Handler returns the router serving all endpoints
func (a *API) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(a.requestID)
	r.HandleFunc("/api/test", a.handleTest).Methods(http.MethodGet)
	r.HandleFunc("/api/status", a.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/command", a.handleCommand).Methods(http.MethodPost)
	r.HandleFunc("/api/reconnect", a.handleReconnect).Methods(http.MethodPost)
	r.HandleFunc("/api/whitelist/{username}", a.handleWhitelistAdd).Methods(http.MethodPost)
	r.HandleFunc("/api/whitelist/{username}", a.handleWhitelistRemove).Methods(http.MethodDelete)
	r.HandleFunc("/api/ban/{username}", a.handleBanAdd).Methods(http.MethodPost)
	r.HandleFunc("/api/ban/{username}", a.handleBanRemove).Methods(http.MethodDelete)
	return r
}

//Run the HTTP Server until ctx is done
func (a *API) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		a.log.Info("http api starting", zap.String("addr", addr))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.log.Info("http api stopping")
	return srv.Shutdown(shutdownCtx)
}

type ctxKey struct{}

//requestID tags every request with a uuid which is returned in X-Request-ID and used in logs
func (a *API) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		a.log.Debug("api request", zap.String("id", id), zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func requestLog(log *zap.Logger, r *http.Request) *zap.Logger {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return log.With(zap.String("id", id))
}

//writeResponse builds and sends a JSON message including whether the request was successful, further information about a error which might occurred and another context-specific JSON object with more data from by the API call.
func (a *API) writeResponse(writer http.ResponseWriter, status int, err error, data interface{}) {
	resp := response{
		Success: err == nil,
	}
	if err != nil {
		resp.Err = err.Error()
	}
	if data != nil {
		b, merr := json.Marshal(data)
		if merr != nil {
			a.log.Error("failed to marshal response data", zap.Error(merr))
			status = http.StatusInternalServerError
			resp.Success, resp.Err = false, merr.Error()
		} else {
			raw := json.RawMessage(b)
			resp.Data = &raw
		}
	}
	b, err := json.MarshalIndent(&resp, "", "\t")
	if err != nil {
		a.log.Error(err.Error())
	}
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	writer.Write(b)
}

//statusFor maps dispatcher errors to http status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidUsername):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrClientClosed), errors.Is(err, common.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.Is(err, common.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

//handleTest is used to test if the API responds
func (a *API) handleTest(w http.ResponseWriter, r *http.Request) {
	a.writeResponse(w, http.StatusOK, nil, nil)
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	a.writeResponse(w, http.StatusOK, nil, struct {
		Closed    bool `json:"closed"`
		Connected bool `json:"connected"`
		Pending   int  `json:"pending"`
	}{
		Closed:    a.client.IsClosed(),
		Connected: a.client.Connected(),
		Pending:   a.client.Pending(),
	})
}

func (a *API) handleCommand(w http.ResponseWriter, r *http.Request) {
	log := requestLog(a.log, r)
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Command == "" {
		a.writeResponse(w, http.StatusBadRequest, errors.New("command required"), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()
	res, err := a.client.Command(ctx, req.Command, req.Wait)
	if err != nil {
		log.Error("api command failed", zap.String("cmd", req.Command), zap.Error(err))
		a.writeResponse(w, statusFor(err), err, nil)
		return
	}
	log.Info("api command", zap.String("cmd", req.Command), zap.Bool("wait", req.Wait))
	if !req.Wait {
		a.writeResponse(w, http.StatusAccepted, nil, nil)
		return
	}
	a.writeResponse(w, http.StatusOK, nil, struct {
		Result string `json:"result"`
	}{res})
}

//handleReconnect restarts the connection and the worker
func (a *API) handleReconnect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()
	if err := a.client.Connect(ctx); err != nil {
		requestLog(a.log, r).Error("api reconnect failed", zap.Error(err))
		a.writeResponse(w, statusFor(err), err, nil)
		return
	}
	a.writeResponse(w, http.StatusOK, nil, nil)
}

func (a *API) adminAction(w http.ResponseWriter, r *http.Request, action string, f func(ctx context.Context, username, reason string) error) {
	username := mux.Vars(r)["username"]
	var req reasonRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.writeResponse(w, http.StatusBadRequest, err, nil)
			return
		}
	}
	if err := f(r.Context(), username, req.Reason); err != nil {
		requestLog(a.log, r).Error("api admin action failed", zap.String("action", action), zap.String("username", username), zap.Error(err))
		a.writeResponse(w, statusFor(err), err, nil)
		return
	}
	requestLog(a.log, r).Info("api admin action", zap.String("action", action), zap.String("username", username))
	a.writeResponse(w, http.StatusAccepted, nil, nil)
}

func (a *API) handleWhitelistAdd(w http.ResponseWriter, r *http.Request) {
	a.adminAction(w, r, "whitelist add", func(ctx context.Context, u, _ string) error {
		return a.admin.WhitelistAdd(ctx, u)
	})
}

func (a *API) handleWhitelistRemove(w http.ResponseWriter, r *http.Request) {
	a.adminAction(w, r, "whitelist remove", a.admin.WhitelistRemove)
}

func (a *API) handleBanAdd(w http.ResponseWriter, r *http.Request) {
	a.adminAction(w, r, "ban add", a.admin.BanAdd)
}

func (a *API) handleBanRemove(w http.ResponseWriter, r *http.Request) {
	a.adminAction(w, r, "ban remove", func(ctx context.Context, u, _ string) error {
		return a.admin.BanRemove(ctx, u)
	})
}
