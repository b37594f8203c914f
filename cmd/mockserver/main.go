package main

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"flag"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/yourneighborhoodchef/nodekeeper/internal/client"
	"github.com/yourneighborhoodchef/nodekeeper/internal/logging"
)

// A stand-in for the session and ping endpoints. Point nodekeeper at it with
// NODEKEEPER_SESSION_URL=http://127.0.0.1:8080/api/auth/session and
// NODEKEEPER_PING_URL=http://127.0.0.1:8080/api/network/ping.
func main() {
	addr := flag.String("addr", ":8080", "listen address")
	failEvery := flag.Int("fail-every", 0, "answer every Nth ping with 503 (0 never fails)")
	flag.Parse()

	log, err := logging.New(logging.Options{})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newMux(log, *failEvery),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("mock upstream listening", zap.String("addr", *addr))
	if err := srv.ListenAndServe(); err != nil {
		log.Error("mock upstream stopped", zap.Error(err))
	}
}

func newMux(log *logging.Logger, failEvery int) *http.ServeMux {
	var pings atomic.Int64
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/session", func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r)
		if r.Method != http.MethodPost || !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "msg": "unauthorized"})
			return
		}
		sum := sha1.Sum([]byte(token))
		id := hex.EncodeToString(sum[:])
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"uid":        id[:12],
				"browser_id": id[12:28],
			},
		})
		log.Info("session issued", zap.String("token", logging.MaskToken(token)))
	})

	mux.HandleFunc("/api/network/ping", func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r)
		if r.Method != http.MethodPost || !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false})
			return
		}
		var p client.Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "msg": err.Error()})
			return
		}
		n := pings.Add(1)
		if failEvery > 0 && n%int64(failEvery) == 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"ip_score": 100}})
		log.Info("ping received",
			zap.String("token", logging.MaskToken(token)),
			zap.String("uid", p.ID),
			zap.String("version", p.Version),
		)
	})

	return mux
}

func bearer(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return token, ok && token != ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
