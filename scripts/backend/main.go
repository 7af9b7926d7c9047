// Backend is a simple test HTTP server to stand in as an upstream while
// exercising the proxy.
//
// Usage:
//
//	go run ./scripts/backend -port 8081 -health-path /
//
// It answers 200 on the health path and echoes request details elsewhere.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
)

type echoResponse struct {
	Method        string `json:"method"`
	Path          string `json:"path"`
	ForwardedFor  string `json:"forwarded_for"`
	ServedByPort  int    `json:"served_by_port"`
	ContentLength int64  `json:"content_length"`
}

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	healthPath := flag.String("health-path", "/", "path that answers health probes")
	flag.Parse()

	mux := http.NewServeMux()

	mux.HandleFunc(*healthPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s forwarded-for=%q", r.Method, r.URL.Path, r.Header.Get("X-Forwarded-For"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(echoResponse{
			Method:        r.Method,
			Path:          r.URL.Path,
			ForwardedFor:  r.Header.Get("X-Forwarded-For"),
			ServedByPort:  *port,
			ContentLength: r.ContentLength,
		})
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("test backend listening on %s (health path %s)", addr, *healthPath)
	log.Fatal(http.ListenAndServe(addr, mux))
}
