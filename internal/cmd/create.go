package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/meigma/mtzip"
)

func newCreateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create -o OUT.zip PATH...",
		Short: "Create an archive from files and directories",
		Long: `Create writes every PATH into a new archive. Directories are added
recursively in lexical order, each under its own base name. The archive is
written to a temporary file and renamed into place once complete.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCreate(cmd.Context(), cmd, args)
		},
	}

	f := cmd.Flags()
	f.StringP("output", "o", "", "archive to create")
	f.IntP("threads", "t", 0, "compression workers (0 uses all cores)")
	f.IntP("level", "l", mtzip.DefaultLevel, "deflate level 0-9")
	f.String("method", "auto", "compression method: auto, deflate or store")
	f.String("strategy", "buffered", "write strategy: buffered or streaming")
	f.Int64("memory-budget", 0, "bytes of content the streaming strategy may hold (0 uses the default)")
	f.String("comment", "", "archive comment")
	f.String("mtime", "", "fixed modification time for every entry (RFC 3339)")
	f.Bool("extended-timestamps", false, "store Unix modification times in an extra field")
	f.Bool("unix-owner", false, "store file owner uid and gid in an extra field")
	f.Bool("digest", false, "print the archive sha256 digest")
	f.String("prefix", "", "directory prefix for every entry")
	f.Int64("skip-compression-below", 0, "store files smaller than this many bytes and already-compressed formats")
	return cmd
}

// createOptions is the resolved configuration of a create run.
type createOptions struct {
	output       string
	prefix       string
	printDigest  bool
	archiveOpts  []mtzip.Option
	writeOpts    []mtzip.WriteOption
	strategyName string
}

func (a *app) createOptions() (*createOptions, error) {
	v := a.v
	opts := &createOptions{
		output:       v.GetString("output"),
		prefix:       v.GetString("prefix"),
		printDigest:  v.GetBool("digest"),
		strategyName: v.GetString("strategy"),
	}
	if opts.output == "" {
		return nil, errors.New("an output archive is required (-o)")
	}

	method, err := parseMethod(v.GetString("method"))
	if err != nil {
		return nil, err
	}
	strategy, err := parseStrategy(opts.strategyName)
	if err != nil {
		return nil, err
	}
	level := v.GetInt("level")
	if level < mtzip.MinLevel || level > mtzip.MaxLevel {
		return nil, fmt.Errorf("%w: %d", mtzip.ErrInvalidLevel, level)
	}

	opts.archiveOpts = []mtzip.Option{
		mtzip.WithLogger(a.logger),
		mtzip.WithCompressionLevel(level),
		mtzip.WithMethod(method),
		mtzip.WithComment(v.GetString("comment")),
		mtzip.WithExtendedTimestamps(v.GetBool("extended-timestamps")),
		mtzip.WithUnixOwner(v.GetBool("unix-owner")),
	}
	if s := v.GetString("mtime"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("parse --mtime: %w", err)
		}
		opts.archiveOpts = append(opts.archiveOpts, mtzip.WithModTime(t))
	}
	if n := v.GetInt64("skip-compression-below"); n > 0 {
		opts.archiveOpts = append(opts.archiveOpts, mtzip.WithSkipCompression(mtzip.DefaultSkipCompression(n)))
	}

	opts.writeOpts = []mtzip.WriteOption{
		mtzip.WriteWithThreads(v.GetInt("threads")),
		mtzip.WriteWithStrategy(strategy),
		mtzip.WriteWithMemoryBudget(v.GetInt64("memory-budget")),
	}
	return opts, nil
}

func (a *app) runCreate(ctx context.Context, cmd *cobra.Command, args []string) error {
	opts, err := a.createOptions()
	if err != nil {
		return err
	}

	archive := mtzip.New(opts.archiveOpts...)
	for _, arg := range args {
		if err := addPath(archive, arg, opts.prefix, a.logger); err != nil {
			return err
		}
	}

	start := time.Now()
	stats, err := archive.WriteFile(ctx, opts.output, opts.writeOpts...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d entries (%d files, %d directories), %d -> %d bytes, %d threads, %s\n",
		opts.output, stats.Entries, stats.Files, stats.Directories,
		stats.BytesIn, stats.BytesOut, stats.Threads, time.Since(start).Round(time.Millisecond))
	if opts.printDigest {
		fmt.Fprintln(out, stats.Digest)
	}
	return nil
}

func parseMethod(s string) (mtzip.MethodPolicy, error) {
	switch s {
	case "auto":
		return mtzip.MethodAuto, nil
	case "deflate":
		return mtzip.MethodDeflate, nil
	case "store":
		return mtzip.MethodStore, nil
	default:
		return 0, fmt.Errorf("unknown method %q (want auto, deflate or store)", s)
	}
}

func parseStrategy(s string) (mtzip.Strategy, error) {
	switch s {
	case "buffered":
		return mtzip.StrategyBuffered, nil
	case "streaming":
		return mtzip.StrategyStreaming, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q (want buffered or streaming)", s)
	}
}
