package simserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"code.rereg.org/golang/internal/observability"
	"code.rereg.org/golang/internal/transport"
	"code.rereg.org/golang/pkg/restore"
)

// serveWaitRestore holds the request until the new device publishes its choice or timeout expires.
func (self *Server) serveWaitRestore(w http.ResponseWriter, r *http.Request) {
	log := observability.GetObservability(r.Context()).Log()
	token := r.PathValue("token")

	timeout := restore.DefaultTimeout
	if raw := r.URL.Query().Get("timeout"); "" != raw {
		secs, err := strconv.Atoi(raw)
		if nil != err {
			http.Error(w, "invalid timeout", http.StatusBadRequest)
			return
		}
		timeout = time.Duration(secs) * time.Second
	}
	if "" == token || timeout < restore.MinTimeout || timeout > restore.MaxTimeout {
		http.Error(w, "invalid token or timeout", http.StatusBadRequest)
		return
	}

	slot, err := self.restoreSlot(token)
	if nil != err {
		log.Info("refused restore token", "error", err)
		http.Error(w, "invalid token", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	method, err := slot.Wait(ctx)
	if nil != err {
		log.Debug("no restore method", "timeout", timeout)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	data, err := transport.JSONSerializer{}.Marshal(restore.MethodBody{Method: method})
	if nil != err {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (self *Server) serveSetRestore(w http.ResponseWriter, r *http.Request) {
	log := observability.GetObservability(r.Context()).Log()
	token := r.PathValue("token")

	data, err := io.ReadAll(io.LimitReader(r.Body, 4096))
	if nil != err {
		http.Error(w, "failed reading body", http.StatusBadRequest)
		return
	}
	var body struct {
		Method string `json:"method"`
	}
	err = transport.JSONSerializer{}.Unmarshal(data, &body)
	method := restore.RestoreMethod(body.Method)
	if nil != err || "" == token || !method.Valid() {
		http.Error(w, "invalid restore method", http.StatusBadRequest)
		return
	}

	err = self.SetRestoreMethod(token, method)
	switch {
	case errors.Is(err, ErrInvalidToken):
		log.Info("refused restore token", "error", err)
		http.Error(w, "invalid token", http.StatusBadRequest)
		return
	case nil != err:
		log.Warn("refused restore method", "error", err)
		http.Error(w, "restore method already set", http.StatusConflict)
		return
	}
	log.Info("restore method set", "method", method)
	w.WriteHeader(http.StatusNoContent)
}
