package mtzip

import "context"

// Compress reads and compresses every file entry not compressed yet and
// keeps the results, so that later calls to Write and WriteFile emit them
// without reading their sources again. Entries added afterwards are
// compressed by the next Compress or Write; Write itself does not fill the
// cache.
//
// Only WriteWithThreads and WriteWithProgress apply. On failure the cache is
// left as it was and the failures are returned as for Write.
func (a *Archive) Compress(ctx context.Context, opts ...WriteOption) error {
	wcfg := writeConfig{}
	for _, opt := range opts {
		opt(&wcfg)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b := a.newBuild(wcfg)
	k := len(b.cached)
	if k == len(b.files) {
		return nil
	}
	b.log.Info("compressing entries", "pending", len(b.files)-k, "threads", b.threads)

	fresh, err := b.pending(ctx)
	if err != nil {
		b.log.Warn("compression failed", "error", err)
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	// A concurrent Compress may have extended the cache already.
	if len(a.cache) == k {
		a.cache = append(a.cache, fresh...)
	}
	b.log.Debug("entries compressed", "cached", len(a.cache))
	return nil
}
