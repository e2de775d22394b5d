package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestColdStartBlocksUntilFirstRefresh(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	coord := New(func(ctx context.Context) (string, string, error) {
		close(started)
		<-release
		return "first-html", "first-css", nil
	}, time.Hour, "")

	got := make(chan string, 1)
	go func() {
		snap, err := coord.Get(context.Background())
		if err != nil {
			got <- "error: " + err.Error()
			return
		}
		got <- snap.HTML
	}()

	<-started
	select {
	case html := <-got:
		t.Fatalf("Get returned %q before the first refresh completed", html)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case html := <-got:
		if html != "first-html" {
			t.Errorf("Get returned %q, want first-html", html)
		}
	case <-time.After(time.Second):
		t.Fatal("Get did not return after the first refresh completed")
	}
}

func TestSingleFlight(t *testing.T) {
	var runs atomic.Int32
	release := make(chan struct{})
	firstDone := make(chan struct{}, 1)
	coord := New(func(ctx context.Context) (string, string, error) {
		n := runs.Add(1)
		if n > 1 {
			// Later refreshes block so concurrent Gets can race the
			// in-flight one.
			<-release
		} else {
			firstDone <- struct{}{}
		}
		return fmt.Sprintf("html-%d", n), fmt.Sprintf("css-%d", n), nil
	}, 0, "")

	// Initialize; ttl 0 means every later Get sees a stale snapshot.
	if _, err := coord.Get(context.Background()); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	<-firstDone

	// First stale Get claims the refresh, which parks on release.
	if _, err := coord.Get(context.Background()); err != nil {
		t.Fatalf("stale Get: %v", err)
	}
	waitForRuns(t, &runs, 2)

	// Every further attempt must observe the claim and back off.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := coord.Get(context.Background()); err != nil {
				t.Errorf("concurrent Get: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := runs.Load(); got != 2 {
		t.Errorf("refresh ran %d times, want 2 (initial + one in flight)", got)
	}
	close(release)
}

func TestStaleServeDuringRefresh(t *testing.T) {
	release := make(chan struct{})
	var first atomic.Bool
	first.Store(true)
	coord := New(func(ctx context.Context) (string, string, error) {
		if first.CompareAndSwap(true, false) {
			return "old-html", "old-css", nil
		}
		<-release
		return "new-html", "new-css", nil
	}, 0, "")

	if _, err := coord.Get(context.Background()); err != nil {
		t.Fatalf("first Get: %v", err)
	}

	// Every Get during the in-flight refresh serves the old snapshot
	// without blocking.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			snap, err := coord.Get(context.Background())
			if err != nil {
				t.Errorf("Get during refresh: %v", err)
				return
			}
			if snap.HTML != "old-html" || snap.CSS != "old-css" {
				t.Errorf("Get during refresh returned %q/%q, want the old snapshot", snap.HTML, snap.CSS)
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Get blocked during an in-flight refresh")
	}
	close(release)
}

func TestFirstRefreshFailure(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	coord := New(func(ctx context.Context) (string, string, error) {
		if fail.Load() {
			return "", "", errors.New("event source down")
		}
		return "html", "css", nil
	}, time.Hour, "")

	if _, err := coord.Get(context.Background()); err == nil {
		t.Fatal("Get succeeded although the first refresh failed")
	}

	// Recovery: the next Get starts a fresh attempt.
	fail.Store(false)
	snap, err := coord.Get(context.Background())
	if err != nil {
		t.Fatalf("Get after recovery: %v", err)
	}
	if snap.HTML != "html" {
		t.Errorf("snapshot HTML = %q, want html", snap.HTML)
	}
}

func TestSnapshotAtomicity(t *testing.T) {
	var gen atomic.Int32
	coord := New(func(ctx context.Context) (string, string, error) {
		n := gen.Add(1)
		return fmt.Sprintf("html-%d", n), fmt.Sprintf("css-%d", n), nil
	}, 0, "")

	if _, err := coord.Get(context.Background()); err != nil {
		t.Fatalf("first Get: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := coord.Get(context.Background())
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			htmlGen := strings.TrimPrefix(snap.HTML, "html-")
			cssGen := strings.TrimPrefix(snap.CSS, "css-")
			if htmlGen != cssGen {
				t.Errorf("mixed snapshot: html generation %s paired with css generation %s", htmlGen, cssGen)
			}
		}()
	}
	wg.Wait()
}

func TestWarmStartFromBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bin")
	if err := writeBackup(path, "warm-html", "warm-css"); err != nil {
		t.Fatalf("writeBackup: %v", err)
	}

	release := make(chan struct{})
	coord := New(func(ctx context.Context) (string, string, error) {
		<-release
		return "fresh-html", "fresh-css", nil
	}, time.Hour, path)

	// The warm snapshot answers before the slow first refresh finishes.
	snap, err := coord.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if snap.HTML != "warm-html" || snap.CSS != "warm-css" {
		t.Errorf("warm snapshot = %q/%q, want warm-html/warm-css", snap.HTML, snap.CSS)
	}
	if !snap.ProducedAt.IsZero() {
		t.Errorf("warm snapshot ProducedAt = %v, want zero (immediately stale)", snap.ProducedAt)
	}
	close(release)
}

func TestBackupRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.bin")
	if err := writeBackup(path, "<html>page</html>", "body {}"); err != nil {
		t.Fatalf("writeBackup: %v", err)
	}
	html, css, err := readBackup(path)
	if err != nil {
		t.Fatalf("readBackup: %v", err)
	}
	if html != "<html>page</html>" || css != "body {}" {
		t.Errorf("round trip = %q/%q", html, css)
	}
}

func TestBackupFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"bad magic", []byte("NOT-A-CACHE-FILE\xfehtml\xfecss")},
		{"two parts", []byte("ACTIVITY-GRAPH-CACHE-FILE\xfehtml")},
		{"four parts", []byte("ACTIVITY-GRAPH-CACHE-FILE\xfehtml\xfecss\xfeextra")},
		{"invalid text", []byte("ACTIVITY-GRAPH-CACHE-FILE\xfeht\xffml\xfecss")},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cache.bin")
			if err := os.WriteFile(path, tt.data, 0o600); err != nil {
				t.Fatal(err)
			}
			if _, _, err := readBackup(path); err == nil {
				t.Error("readBackup accepted a malformed file")
			}
		})
	}
}

func waitForRuns(t *testing.T, runs *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for runs.Load() < want {
		if time.Now().After(deadline) {
			t.Fatalf("refresh ran %d times, want %d", runs.Load(), want)
		}
		time.Sleep(time.Millisecond)
	}
}
