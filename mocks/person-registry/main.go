// Mock person registry for local development and e2e tests.
//
// Accepts POST /fhir/Person and answers 201 by default. The response status
// and simulated latency are controlled via environment variables so failure
// modes of the bridge can be exercised without a real registry.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	defaultPort      = "3001"
	defaultStatus    = "201"
	defaultLatencyMs = "50"
)

type PersonRequest struct {
	PersonFirstName string `json:"PersonFirstName"`
	PersonLastName  string `json:"PersonLastName"`
	PersonDOB       string `json:"PersonDOB"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

var (
	status    = getEnvInt("RESPONSE_STATUS", defaultStatus)
	latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)
	received  atomic.Int64
)

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/fhir/Person", handleCreatePerson)

	log.Printf("🧍 Mock Person Registry starting on port %s", port)
	log.Printf("📋 Response status: %d", status)
	log.Printf("⏱️  Simulated latency: %dms", latencyMs)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "healthy",
		"service":  "person-registry",
		"received": received.Load(),
	})
}

func handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "only POST is supported")
		return
	}

	if latencyMs > 0 {
		time.Sleep(time.Duration(latencyMs) * time.Millisecond)
	}

	var req PersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	received.Add(1)
	log.Printf("received person: %s %s (dob %s)", req.PersonFirstName, req.PersonLastName, req.PersonDOB)

	if status != http.StatusCreated {
		writeError(w, status, "rejected", "configured to reject")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "created",
	})
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
		Code:    code,
	})
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key, fallback string) int {
	v := getEnv(key, fallback)
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return n
}
