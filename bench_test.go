package mtzip

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/meigma/mtzip/internal/testutil"
)

type benchPattern string

const (
	benchPatternCompressible benchPattern = "compressible"
	benchPatternRandom       benchPattern = "random"

	benchDirCount = 16
)

func init() {
	if os.Getenv("MTZIP_PROFILE_BLOCK") == "1" {
		runtime.SetBlockProfileRate(1)
	}
	if os.Getenv("MTZIP_PROFILE_MUTEX") == "1" {
		runtime.SetMutexProfileFraction(1)
	}
}

func BenchmarkWrite(b *testing.B) {
	cases := []struct {
		name      string
		fileCount int
		fileSize  int
		threads   int
		strategy  Strategy
		pattern   benchPattern
	}{
		{
			name:      "files=256/size=16k/threads=1/buffered/compressible",
			fileCount: 256,
			fileSize:  16 << 10,
			threads:   1,
			strategy:  StrategyBuffered,
			pattern:   benchPatternCompressible,
		},
		{
			name:      "files=256/size=16k/threads=auto/buffered/compressible",
			fileCount: 256,
			fileSize:  16 << 10,
			strategy:  StrategyBuffered,
			pattern:   benchPatternCompressible,
		},
		{
			name:      "files=256/size=16k/threads=auto/streaming/compressible",
			fileCount: 256,
			fileSize:  16 << 10,
			strategy:  StrategyStreaming,
			pattern:   benchPatternCompressible,
		},
		{
			name:      "files=256/size=16k/threads=auto/buffered/random",
			fileCount: 256,
			fileSize:  16 << 10,
			strategy:  StrategyBuffered,
			pattern:   benchPatternRandom,
		},
		{
			name:      "files=16/size=1m/threads=auto/streaming/compressible",
			fileCount: 16,
			fileSize:  1 << 20,
			strategy:  StrategyStreaming,
			pattern:   benchPatternCompressible,
		},
	}

	for _, bc := range cases {
		b.Run(bc.name, func(b *testing.B) {
			dir := b.TempDir()
			paths := makeBenchFiles(b, dir, bc.fileCount, bc.fileSize, bc.pattern)

			a := New()
			for _, rel := range paths {
				if err := a.AddFile(filepath.Join(dir, filepath.FromSlash(rel)), rel); err != nil {
					b.Fatal(err)
				}
			}
			b.SetBytes(int64(bc.fileCount * bc.fileSize))

			b.ReportAllocs()
			b.ResetTimer()
			for b.Loop() {
				if _, err := a.Write(context.Background(), io.Discard,
					WriteWithThreads(bc.threads), WriteWithStrategy(bc.strategy)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkWriteManySmallEntries(b *testing.B) {
	a := New()
	for i := range 10_000 {
		if err := a.AddBytes(testutil.Compressible(256), fmt.Sprintf("dir%02d/f%05d.txt", i%benchDirCount, i)); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if _, err := a.Write(context.Background(), io.Discard); err != nil {
			b.Fatal(err)
		}
	}
}

func makeBenchFiles(b *testing.B, dir string, count, size int, pattern benchPattern) []string {
	b.Helper()

	paths := make([]string, 0, count)
	files := make(map[string][]byte, count)
	for i := range count {
		rel := fmt.Sprintf("dir%02d/file%05d.dat", i%benchDirCount, i)
		var content []byte
		if pattern == benchPatternRandom {
			content = testutil.Incompressible(size + i)[i:]
		} else {
			content = testutil.Compressible(size)
			if size > 0 {
				content[0] = byte(i)
			}
		}
		files[rel] = content
		paths = append(paths, rel)
	}
	testutil.WriteFiles(b, dir, files)
	return paths
}
