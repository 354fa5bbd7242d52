package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fhir-bridge/internal/person"
)

func testPayload() person.Payload {
	return person.Payload{
		person.KeyFirstName: "John",
		person.KeyLastName:  "Smith",
		person.KeyDOB:       "21.05.1990",
	}
}

func TestPersonClientSend(t *testing.T) {
	t.Run("201 is success", func(t *testing.T) {
		var gotPath, gotContentType string
		var gotBody person.Payload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotContentType = r.Header.Get("Content-Type")
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				t.Errorf("decoding request body: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		client := NewPersonClient(srv.URL, time.Second)
		if err := client.Send(context.Background(), testPayload()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotPath != "/fhir/Person" {
			t.Fatalf("expected /fhir/Person, got %s", gotPath)
		}
		if gotContentType != "application/json" {
			t.Fatalf("expected application/json, got %s", gotContentType)
		}
		if gotBody[person.KeyDOB] != "21.05.1990" {
			t.Fatalf("payload not forwarded intact: %v", gotBody)
		}
	})

	t.Run("200 is still a rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		client := NewPersonClient(srv.URL, time.Second)
		err := client.Send(context.Background(), testPayload())
		if !errors.Is(err, ErrRejected) {
			t.Fatalf("expected ErrRejected, got %v", err)
		}
	})

	t.Run("409 carries the status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "duplicate person", http.StatusConflict)
		}))
		defer srv.Close()

		client := NewPersonClient(srv.URL, time.Second)
		err := client.Send(context.Background(), testPayload())

		var rejection *RejectionError
		if !errors.As(err, &rejection) {
			t.Fatalf("expected RejectionError, got %v", err)
		}
		if rejection.StatusCode != http.StatusConflict {
			t.Fatalf("expected status 409, got %d", rejection.StatusCode)
		}
		if !errors.Is(err, ErrRejected) {
			t.Fatal("rejection should unwrap to ErrRejected")
		}
	})

	t.Run("transport fault is unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		client := NewPersonClient(srv.URL, time.Second)
		err := client.Send(context.Background(), testPayload())
		if !errors.Is(err, ErrUnreachable) {
			t.Fatalf("expected ErrUnreachable, got %v", err)
		}
	})

	t.Run("single attempt only", func(t *testing.T) {
		attempts := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		client := NewPersonClient(srv.URL, time.Second)
		if err := client.Send(context.Background(), testPayload()); !errors.Is(err, ErrRejected) {
			t.Fatalf("expected ErrRejected, got %v", err)
		}
		if attempts != 1 {
			t.Fatalf("expected exactly one attempt, got %d", attempts)
		}
	})
}
