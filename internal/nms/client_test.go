package nms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testClient(t *testing.T, url string, maxConcurrent int) *Client {
	t.Helper()
	return NewClient(Config{
		URL:                  url,
		Token:                "test-token",
		Timeout:              2 * time.Second,
		PageSize:             100,
		FallbackPageSize:     10,
		MaxConcurrentQueries: maxConcurrent,
	}, zap.NewNop())
}

func TestFetch_DecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Auth-Token"); got != "test-token" {
			t.Errorf("X-Auth-Token = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "100" {
			t.Errorf("limit = %q, want 100", got)
		}
		fmt.Fprint(w, `{"status":"ok","count":2,"devices":[{"device_id":1,"hostname":"a"},{"device_id":2,"hostname":"b"}]}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 4)
	records, err := c.Devices(context.Background(), nil)
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
}

func TestFetch_RetriesOnceWithFallbackPageSize(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if got := r.URL.Query().Get("limit"); got != "10" {
			t.Errorf("retry limit = %q, want fallback 10", got)
		}
		fmt.Fprint(w, `{"status":"ok","ports":[{"port_id":1,"device_id":1}]}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 4)
	records, err := c.PortsForDevice(context.Background(), 1)
	if err != nil {
		t.Fatalf("PortsForDevice: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("backend called %d times, want 2 (one retry)", n)
	}
}

func TestFetch_UnavailableAfterRetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 4)
	_, err := c.Devices(context.Background(), nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestFetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok","devices": not json`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 4)
	_, err := c.Devices(context.Background(), nil)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
}

func TestFetch_ClientErrorIsNotRecovered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":"error","message":"bad token"}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 4)
	_, err := c.Devices(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	// Auth failures are wiring errors, not fallback triggers.
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrTimeout) {
		t.Fatalf("401 should not classify as transport failure, got %v", err)
	}
}

func TestPortsForDevices_PartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID := r.URL.Query().Get("device_id")
		if deviceID == "2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"status":"ok","ports":[{"port_id":%s00,"device_id":%s}]}`, deviceID, deviceID)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 2)
	result, err := c.PortsForDevices(context.Background(), []int{1, 2, 3})
	if err != nil {
		t.Fatalf("PortsForDevices: %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}
	if len(result.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(result.Records))
	}
	// Input device order preserved in output.
	first, _ := recInt(result.Records[0], "port_id")
	second, _ := recInt(result.Records[1], "port_id")
	if first != 100 || second != 300 {
		t.Errorf("records out of order: got %d, %d", first, second)
	}
}

func TestPortsForDevices_AllFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 2)
	result, err := c.PortsForDevices(context.Background(), []int{1, 2})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if result.Failed != 2 {
		t.Errorf("Failed = %d, want 2", result.Failed)
	}
}

func TestPortsForDevices_DeduplicatesByPortID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Both devices report the shared inter-site port 77.
		fmt.Fprint(w, `{"status":"ok","ports":[{"port_id":77,"device_id":1}]}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 2)
	result, err := c.PortsForDevices(context.Background(), []int{1, 2})
	if err != nil {
		t.Fatalf("PortsForDevices: %v", err)
	}
	if len(result.Records) != 1 {
		t.Errorf("got %d records, want 1 after dedup", len(result.Records))
	}
}

func TestPortsForDevices_Empty(t *testing.T) {
	c := testClient(t, "http://127.0.0.1:0", 2)
	result, err := c.PortsForDevices(context.Background(), nil)
	if err != nil {
		t.Fatalf("err = %v, want nil for empty input", err)
	}
	if result.Failed != 0 || len(result.Records) != 0 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestFetch_DeadlineAbortsWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{"status":"ok","devices":[]}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Devices(ctx, nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("backend called %d times, want 1 (no retry after deadline)", n)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/api/v0") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"status":"ok"}`)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL, 4)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
