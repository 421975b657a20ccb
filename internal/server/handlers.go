package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Mohsinsiddi/w3burn/internal/app"
	"github.com/Mohsinsiddi/w3burn/internal/connector"
	"github.com/Mohsinsiddi/w3burn/internal/providers"
	"github.com/Mohsinsiddi/w3burn/internal/token"
	"github.com/Mohsinsiddi/w3burn/internal/units"
	"github.com/Mohsinsiddi/w3burn/internal/workflow"
)

const maxBodyBytes = 1 << 16

type errorBody struct {
	Error string `json:"error"`
}

type connectRequest struct {
	// Switch answers the wrong-network prompt.
	Switch bool `json:"switch"`
}

type contractRequest struct {
	Address string `json:"address"`
}

type amountRequest struct {
	Amount string `json:"amount"`
	// Shortcut is "max" or "half" and overrides Amount.
	Shortcut string `json:"shortcut"`
}

type confirmRequest struct {
	// Confirm answers the irreversible-action prompt.
	Confirm bool `json:"confirm"`
}

func (s *Server) getEnv(w http.ResponseWriter, r *http.Request) {
	v := s.session.Environment()
	s.writeJSON(w, http.StatusOK, map[string]string{"environment": v.String()})
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, s.session.State())
}

func (s *Server) postConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if !s.decode(w, r, &req) {
		return
	}
	st, err := s.session.Connect(r.Context(), func(string) bool { return req.Switch })
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeState(w, st)
}

func (s *Server) postDisconnect(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, s.session.Disconnect())
}

func (s *Server) postContract(w http.ResponseWriter, r *http.Request) {
	var req contractRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, err := s.session.LoadToken(r.Context(), req.Address); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeState(w, s.session.State())
}

func (s *Server) postAmount(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !s.decode(w, r, &req) {
		return
	}
	var err error
	switch req.Shortcut {
	case "":
		s.session.SetAmount(req.Amount)
	case "max":
		_, err = s.session.UseMax()
	case "half":
		_, err = s.session.UseHalf()
	default:
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("unknown shortcut %q", req.Shortcut)})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeState(w, s.session.State())
}

func (s *Server) postBurn(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, s.session.Burn)
}

func (s *Server) postRevoke(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, s.session.Revoke)
}

type runFunc func(ctx context.Context, confirm workflow.Confirmer) (workflow.Result, error)

// run executes a workflow. A declined confirmation is not an error: the
// run ends idle and the response says so.
func (s *Server) run(w http.ResponseWriter, r *http.Request, op runFunc) {
	var req confirmRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := op(r.Context(), workflow.ConfirmFunc(func(string) bool { return req.Confirm }))
	if err != nil && res.Stage != workflow.Failed {
		s.writeError(w, err)
		return
	}
	code := http.StatusOK
	if err != nil {
		code = statusCode(err)
	}
	s.writeJSON(w, code, RunView{
		Stage:  res.Stage.String(),
		Status: res.Status,
		Method: res.Method,
		Hash:   hashString(res.Hash),
		State:  NewStateView(s.session.State(), s.networks),
	})
}

func hashString(h common.Hash) string {
	if h == (common.Hash{}) {
		return ""
	}
	return h.Hex()
}

func (s *Server) getTokens(w http.ResponseWriter, r *http.Request) {
	res, err := s.session.Holdings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (s *Server) writeState(w http.ResponseWriter, st app.State) {
	s.writeJSON(w, http.StatusOK, NewStateView(st, s.networks))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusCode(err), errorBody{Error: app.ErrorMessage(err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("writing response", "err", err)
	}
}

// statusCode maps session errors to HTTP statuses.
func statusCode(err error) int {
	var (
		ve *units.ValidationError
		te *token.Error
		ce *connector.Error
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrNotConnected), errors.Is(err, app.ErrNoToken), errors.Is(err, app.ErrStale),
		errors.Is(err, workflow.ErrNotReady), errors.Is(err, workflow.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, providers.ErrUnsupportedChain):
		return http.StatusBadRequest
	case errors.Is(err, providers.ErrNoProviders):
		return http.StatusServiceUnavailable
	case errors.As(err, &te):
		if te.Kind == token.InvalidAddress {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	case errors.As(err, &ce):
		switch ce.Kind {
		case connector.NoProviderFound:
			return http.StatusServiceUnavailable
		case connector.UserRejected:
			return http.StatusForbidden
		case connector.Timeout:
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}
