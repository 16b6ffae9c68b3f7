package main

import (
	"context"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRunFlowsRecoversEveryAccount(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	srv, err := newStub(client, "lt")
	if err != nil {
		t.Fatalf("newStub: %v", err)
	}
	const n = 12
	for i := 0; i < n; i++ {
		if _, err := srv.AddAccount("User "+strconv.Itoa(i), emailFor(i), "Default123"); err != nil {
			t.Fatalf("AddAccount: %v", err)
		}
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	verify, reset := runFlows(context.Background(), ts.URL, n, 4)
	if verify.ops != n || verify.failures != 0 {
		t.Fatalf("verify: ops=%d failures=%d", verify.ops, verify.failures)
	}
	if reset.ops != n || reset.failures != 0 {
		t.Fatalf("reset: ops=%d failures=%d", reset.ops, reset.failures)
	}
}

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(samples, 0); got != 1 {
		t.Fatalf("p0 = %v", got)
	}
	if got := percentile(samples, 50); got != 5 {
		t.Fatalf("p50 = %v", got)
	}
	if got := percentile(samples, 100); got != 10 {
		t.Fatalf("p100 = %v", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty = %v", got)
	}
}
