// mock-shaft is a local probe target that answers with artificial latency. POST
// /shaft/enter makes every reply slow, as if the probing phone were inside an
// elevator shaft, until POST /shaft/exit. Point the http prober at it:
//
//	TELEVATOR_PROBE_KIND=http TELEVATOR_PROBE_TARGET=http://localhost:8089/ televator serve
package main

import (
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	baseLatency  = 20 * time.Millisecond
	jitter       = 10 * time.Millisecond
	shaftLatency = 1500 * time.Millisecond
)

func main() {
	var inShaft atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/shaft/enter", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		inShaft.Store(true)
		writeJSON(w, map[string]any{"inShaft": true})
	})

	mux.HandleFunc("/shaft/exit", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		inShaft.Store(false)
		writeJSON(w, map[string]any{"inShaft": false})
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		delay := baseLatency + time.Duration(rand.Int63n(int64(jitter)))
		if inShaft.Load() {
			delay += shaftLatency
		}
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	logger := log.New(log.Writer(), "shaft-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":8089",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :8089")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
