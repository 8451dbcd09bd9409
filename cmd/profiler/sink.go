package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/meigma/mtzip"
)

// archiveSink receives one archive per iteration.
type archiveSink interface {
	write(ctx context.Context, a *mtzip.Archive, opts ...mtzip.WriteOption) (*mtzip.Stats, error)
	close() error
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func newSink(cfg config, dir string) (archiveSink, error) {
	switch cfg.sink {
	case "discard":
		return &writerSink{w: io.Discard, cfg: cfg}, nil
	case "file":
		return &fileSink{path: filepath.Join(dir, "out.zip")}, nil
	case "http":
		return newHTTPSink(cfg), nil
	default:
		return nil, fmt.Errorf("unknown sink: %s", cfg.sink)
	}
}

type writerSink struct {
	w   io.Writer
	cfg config
}

func (s *writerSink) write(ctx context.Context, a *mtzip.Archive, opts ...mtzip.WriteOption) (*mtzip.Stats, error) {
	return a.Write(ctx, newThrottleWriter(s.w, s.cfg.sinkLatency, s.cfg.sinkBPS), opts...)
}

func (s *writerSink) close() error { return nil }

type fileSink struct {
	path string
}

func (s *fileSink) write(ctx context.Context, a *mtzip.Archive, opts ...mtzip.WriteOption) (*mtzip.Stats, error) {
	return a.WriteFile(ctx, s.path, opts...)
}

func (s *fileSink) close() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// httpSink uploads each archive to a local server as the request body is
// produced, which exercises the streaming strategy against a slow reader.
type httpSink struct {
	server *httptest.Server
	client *nethttp.Client
	cfg    config
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func newHTTPSink(cfg config) *httpSink {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		body := newThrottleReader(r.Body, cfg.sinkBPS)
		if _, err := io.Copy(io.Discard, body); err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusBadRequest)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}))
	return &httpSink{server: server, client: server.Client(), cfg: cfg}
}

func (s *httpSink) write(ctx context.Context, a *mtzip.Archive, opts ...mtzip.WriteOption) (*mtzip.Stats, error) {
	pr, pw := io.Pipe()
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodPut, s.server.URL+"/archive.zip", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/zip")

	type result struct {
		stats *mtzip.Stats
		err   error
	}
	done := make(chan result, 1)
	go func() {
		if s.cfg.sinkLatency > 0 {
			time.Sleep(s.cfg.sinkLatency)
		}
		stats, err := a.Write(ctx, pw, opts...)
		pw.CloseWithError(err)
		done <- result{stats: stats, err: err}
	}()

	resp, err := s.client.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		if res := <-done; res.err != nil {
			return nil, res.err
		}
		return nil, err
	}
	_ = resp.Body.Close()
	res := <-done
	if res.err != nil {
		return nil, res.err
	}
	if resp.StatusCode != nethttp.StatusNoContent {
		return nil, fmt.Errorf("upload: %s", resp.Status)
	}
	return res.stats, nil
}

func (s *httpSink) close() error {
	s.server.Close()
	return nil
}

// throttleWriter delays writes to simulate a slow device.
type throttleWriter struct {
	w              io.Writer
	latency        time.Duration
	bytesPerSecond int64
	start          time.Time
	written        int64
}

func newThrottleWriter(w io.Writer, latency time.Duration, bps int64) io.Writer {
	if latency <= 0 && bps <= 0 {
		return w
	}
	return &throttleWriter{w: w, latency: latency, bytesPerSecond: bps, start: time.Now()}
}

func (tw *throttleWriter) Write(p []byte) (int, error) {
	if tw.latency > 0 {
		time.Sleep(tw.latency)
	}
	n, err := tw.w.Write(p)
	tw.written += int64(n)
	pace(tw.start, tw.written, tw.bytesPerSecond)
	return n, err
}

type throttleReader struct {
	r              io.Reader
	bytesPerSecond int64
	start          time.Time
	read           int64
}

func newThrottleReader(r io.Reader, bps int64) io.Reader {
	if bps <= 0 {
		return r
	}
	return &throttleReader{r: r, bytesPerSecond: bps, start: time.Now()}
}

func (tr *throttleReader) Read(p []byte) (int, error) {
	n, err := tr.r.Read(p)
	tr.read += int64(n)
	pace(tr.start, tr.read, tr.bytesPerSecond)
	return n, err
}

// pace sleeps until done bytes are due at bytesPerSecond since start.
func pace(start time.Time, done, bytesPerSecond int64) {
	if bytesPerSecond <= 0 || done <= 0 {
		return
	}
	expected := time.Duration(float64(done) / float64(bytesPerSecond) * float64(time.Second))
	if elapsed := time.Since(start); expected > elapsed {
		time.Sleep(expected - elapsed)
	}
}

func parseBytesPerSecond(value string) (int64, error) {
	text := strings.TrimSpace(value)
	text = strings.TrimSuffix(text, "Bps")
	text = strings.TrimSuffix(text, "bps")
	text = strings.TrimSuffix(text, "/s")
	text = strings.TrimSpace(text)

	lower := strings.ToLower(text)
	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		mult   int64
	}{
		{"kb", 1 << 10}, {"k", 1 << 10},
		{"mb", 1 << 20}, {"m", 1 << 20},
		{"gb", 1 << 30}, {"g", 1 << 30},
	} {
		if strings.HasSuffix(lower, unit.suffix) {
			multiplier = unit.mult
			text = text[:len(text)-len(unit.suffix)]
			break
		}
	}

	raw, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || raw <= 0 {
		return 0, fmt.Errorf("invalid bytes-per-second %q", value)
	}
	return raw * multiplier, nil
}
