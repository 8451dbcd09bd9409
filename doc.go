// Package mtzip builds ZIP archives, compressing entries in parallel.
//
// Entries are registered on an [Archive] from disk files, memory buffers or
// as directories, and written in insertion order by [Archive.Write]. File
// entries are deflated by a bounded pool of workers; the resulting archive
// is identical byte for byte whatever the number of workers, so long as
// modification times are fixed with [WithModTime] or [WithClock].
//
// # Quick Start
//
//	a := mtzip.New(mtzip.WithCompressionLevel(9))
//	if err := a.AddDirectory("docs/"); err != nil {
//	    return err
//	}
//	if err := a.AddFile("/etc/hosts", "docs/hosts"); err != nil {
//	    return err
//	}
//	if err := a.AddBytes([]byte("hello\n"), "docs/hello.txt"); err != nil {
//	    return err
//	}
//	stats, err := a.WriteFile(ctx, "out.zip", mtzip.WriteWithThreads(8))
//
// # Paths
//
// Archive paths are slash separated and relative. Registration rejects empty
// paths, absolute paths, drive prefixes ("C:" or "C:/..."), backslashes, NUL
// bytes, invalid UTF-8 and empty, "." or ".." segments with
// [ErrInvalidPath]. A colon inside a name, as in "a:notes.txt", is allowed.
// Disk sources
// are not checked until the archive is written. Duplicate paths are kept as
// duplicate entries.
//
// # Strategies
//
// [StrategyBuffered] compresses everything before writing, so failures leave
// the writer untouched. [StrategyStreaming] writes entries as soon as they
// and their predecessors are ready, bounding memory with
// [WriteWithMemoryBudget].
//
// [Archive.Compress] runs the compression phase on its own and keeps the
// results. Later writes reuse them and only compress entries added since.
//
// # Limits
//
// Zip64 is not supported. Archives with more than 65535 entries, or any size
// or offset beyond 4 GiB, fail with [ErrArchiveTooLarge]. Offsets and
// compressed sizes stop one byte short of 4 GiB since readers take
// 0xFFFFFFFF as a Zip64 marker.
package mtzip
