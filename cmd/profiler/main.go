package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/felixge/fgprof"

	"github.com/meigma/mtzip"
)

type config struct {
	mode         string
	files        int
	fileSize     int
	dirCount     int
	pattern      string
	threads      int
	strategy     string
	memoryBudget int64
	level        int
	sink         string
	sinkLatency  time.Duration
	sinkBPS      int64
	fgProfile    string
	duration     time.Duration
	iterations   int
	pprofAddr    string
	cpuProfile   string
	memProfile   string
	traceFile    string
	tempDir      string
	keepTemp     bool
	randomSeed   int64
	verbose      bool
}

//nolint:gocognit,gocyclo // main function complexity is acceptable for CLI tool
func main() {
	cfg := parseFlags()

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	dir, cleanup, err := setupTempDir(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if cleanup != nil {
		defer cleanup() //nolint:errcheck // cleanup errors are non-fatal in profiler
	}

	paths, err := makeFiles(filepath.Join(dir, "src"), cfg.files, cfg.fileSize, cfg.dirCount, cfg.pattern, cfg.randomSeed)
	if err != nil {
		log.Fatal(err) //nolint:gocritic // exitAfterDefer is intentional - cleanup is best-effort
	}

	sink, err := newSink(cfg, dir)
	if err != nil {
		log.Fatal(err)
	}
	defer sink.close() //nolint:errcheck // cleanup errors are non-fatal in profiler

	var stopFG func() error
	if cfg.fgProfile != "" {
		fgFile, fgErr := os.Create(cfg.fgProfile)
		if fgErr != nil {
			log.Fatal(fgErr)
		}
		stopFG = fgprof.Start(fgFile, fgprof.FormatPprof)
		defer func() {
			if err := stopFG(); err != nil {
				log.Printf("fgprof stop error: %v", err)
			}
			_ = fgFile.Close()
		}()
	}

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr)
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr)
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(context.Background(), cfg, sink, filepath.Join(dir, "src"), paths)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	fmt.Printf("mode=%s strategy=%s threads=%d ops=%d bytes_in=%d bytes_out=%d elapsed=%s throughput=%.2f MB/s\n",
		cfg.mode,
		cfg.strategy,
		stats.threads,
		stats.ops,
		stats.bytesIn,
		stats.bytesOut,
		stats.elapsed,
		float64(stats.bytesIn)/(1024*1024)/stats.elapsed.Seconds(),
	)
}

type profileStats struct {
	ops      int
	threads  int
	bytesIn  uint64
	bytesOut uint64
	elapsed  time.Duration
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func runProfile(ctx context.Context, cfg config, sink archiveSink, root string, paths []string) (profileStats, error) {
	strategy, err := parseStrategy(cfg.strategy)
	if err != nil {
		return profileStats{}, err
	}
	writeOpts := []mtzip.WriteOption{
		mtzip.WriteWithThreads(cfg.threads),
		mtzip.WriteWithStrategy(strategy),
		mtzip.WriteWithMemoryBudget(cfg.memoryBudget),
	}

	var logger *slog.Logger
	if cfg.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	newArchive := func() (*mtzip.Archive, error) {
		a := mtzip.New(
			mtzip.WithLogger(logger),
			mtzip.WithCompressionLevel(cfg.level),
			mtzip.WithModTime(time.Unix(0, 0)),
		)
		for _, rel := range paths {
			var err error
			switch cfg.mode {
			case "files":
				err = a.AddFile(filepath.Join(root, filepath.FromSlash(rel)), rel)
			case "bytes":
				var data []byte
				data, err = os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
				if err == nil {
					err = a.AddBytes(data, rel)
				}
			default:
				return nil, fmt.Errorf("unknown mode: %s", cfg.mode)
			}
			if err != nil {
				return nil, err
			}
		}
		return a, nil
	}

	a, err := newArchive()
	if err != nil {
		return profileStats{}, err
	}

	start := time.Now()
	var out profileStats
	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return out.ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}
	for shouldContinue() {
		stats, err := sink.write(ctx, a, writeOpts...)
		if err != nil {
			return profileStats{}, err
		}
		out.ops++
		out.threads = stats.Threads
		out.bytesIn += stats.BytesIn
		out.bytesOut += stats.BytesOut
	}
	out.elapsed = time.Since(start)
	return out, nil
}

func parseFlags() config {
	var cfg config
	var sinkBPS string
	flag.StringVar(&cfg.mode, "mode", "files", "mode: files (read from disk each build) or bytes (memory entries)")
	flag.IntVar(&cfg.files, "files", 512, "number of files")
	flag.IntVar(&cfg.fileSize, "file-size", 16<<10, "file size in bytes")
	flag.IntVar(&cfg.dirCount, "dir-count", 16, "number of directories")
	flag.StringVar(&cfg.pattern, "pattern", "compressible", "pattern: compressible or random")
	flag.IntVar(&cfg.threads, "threads", 0, "compression workers (0 uses GOMAXPROCS)")
	flag.StringVar(&cfg.strategy, "strategy", "buffered", "strategy: buffered or streaming")
	flag.Int64Var(&cfg.memoryBudget, "memory-budget", 0, "streaming memory budget in bytes (0 default, <0 unbounded)")
	flag.IntVar(&cfg.level, "level", mtzip.DefaultLevel, "deflate level 0-9")
	flag.StringVar(&cfg.sink, "sink", "discard", "sink: discard, file or http")
	flag.DurationVar(&cfg.sinkLatency, "sink-latency", 0, "per-write latency for the discard sink, per-upload for http")
	flag.StringVar(&sinkBPS, "sink-bps", "", "bytes/sec throttle for the discard and http sinks (e.g. 10MBps)")
	flag.StringVar(&cfg.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	flag.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	flag.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	flag.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	flag.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flag.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	flag.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	flag.StringVar(&cfg.tempDir, "temp-dir", "", "directory to use for dataset")
	flag.BoolVar(&cfg.keepTemp, "keep-temp", false, "keep temp dir after run")
	flag.Int64Var(&cfg.randomSeed, "seed", 1, "random seed")
	flag.BoolVar(&cfg.verbose, "v", false, "log archive builds to stderr")
	flag.Parse()
	if sinkBPS != "" {
		bps, err := parseBytesPerSecond(sinkBPS)
		if err != nil {
			log.Fatalf("sink-bps: %v", err)
		}
		cfg.sinkBPS = bps
	}
	return cfg
}

func parseStrategy(name string) (mtzip.Strategy, error) {
	switch name {
	case "buffered":
		return mtzip.StrategyBuffered, nil
	case "streaming":
		return mtzip.StrategyStreaming, nil
	default:
		return 0, fmt.Errorf("unknown strategy: %s", name)
	}
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func setupTempDir(cfg config) (string, func() error, error) {
	if cfg.tempDir != "" {
		return cfg.tempDir, nil, os.MkdirAll(cfg.tempDir, 0o755) //nolint:gosec // 0o755 is intentional for profiler temp dirs
	}
	dir, err := os.MkdirTemp("", "mtzip-profiler-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() error {
		if cfg.keepTemp {
			return nil
		}
		return os.RemoveAll(dir)
	}
	return dir, cleanup, nil
}

func makeFiles(dir string, fileCount, fileSize, dirCount int, pattern string, seed int64) ([]string, error) {
	if dirCount <= 0 {
		dirCount = 1
	}
	paths := make([]string, 0, fileCount)
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // intentional use for reproducible benchmarks
	for i := range fileCount {
		relPath := fmt.Sprintf("dir%02d/file%05d.dat", i%dirCount, i)
		fullPath := filepath.Join(dir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil { //nolint:gosec // 0o755 is intentional for profiler
			return nil, err
		}

		var content []byte
		switch pattern {
		case "random":
			content = make([]byte, fileSize)
			if _, err := rng.Read(content); err != nil {
				return nil, err
			}
		default:
			content = compressible(fileSize)
			if len(content) > 0 {
				content[0] = byte(i)
			}
		}

		if err := os.WriteFile(fullPath, content, 0o644); err != nil { //nolint:gosec // 0o644 is intentional for profiler test files
			return nil, err
		}
		paths = append(paths, relPath)
	}
	return paths, nil
}

// compressible returns n bytes of repeated text.
func compressible(n int) []byte {
	const line = "the quick brown fox jumps over the lazy dog\n"
	out := make([]byte, n)
	for i := range out {
		out[i] = line[i%len(line)]
	}
	return out
}
