package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/treesum/pkg/treesum/config"
	"github.com/jamesainslie/treesum/pkg/treesum/digest"
	"github.com/jamesainslie/treesum/pkg/treesum/index"
	"github.com/jamesainslie/treesum/pkg/treesum/logging"
	"github.com/jamesainslie/treesum/pkg/treesum/manifest"
	"github.com/jamesainslie/treesum/pkg/treesum/output"
	"github.com/jamesainslie/treesum/pkg/treesum/reconcile"
	"github.com/jamesainslie/treesum/pkg/treesum/types"
	"github.com/jamesainslie/treesum/pkg/treesum/walker"
)

var logger = logging.Get("cli")

// runScan is the main scan command handler.
func runScan(_ *cobra.Command, _ []string) error {
	v := verbosity()
	if err := initLogging(v); err != nil {
		return err
	}

	root, err := resolveRoot()
	if err != nil {
		return err
	}

	// An explicit report format or a manifest update implies batch mode;
	// the interactive prompt only makes sense on a terminal session.
	batch := viper.GetBool("batch") || viper.GetBool("update")
	outFormat := viper.GetString("output.format")
	if outFormat != "" && outFormat != config.DefaultFormat {
		batch = true
	}

	var formatter output.Formatter
	if batch {
		formatter, err = selectFormatter(outFormat)
		if err != nil {
			return err
		}
	}

	choice, err := selectManifest(root)
	if err != nil {
		return err
	}
	m, err := loadManifest(choice, batch)
	if err != nil {
		return err
	}

	marker := viper.GetString("scan.exclude_marker")
	if marker == "" {
		marker = m.ExcludeMarker
	}

	sess, err := reconcile.NewSession(m, reconcile.OSFilesystem{Root: root}, reconcile.Options{
		FullCheck:    viper.GetBool("scan.full_check"),
		ModifyWindow: viper.GetInt64("scan.modify_window"),
		Restrict:     viper.GetString("scan.restrict"),
	})
	if err != nil {
		return err
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	runID := uuid.NewString()
	slog := logger.With("run", runID[:8])

	modifiedOnly := viper.GetBool("output.modified_only")
	var listings []output.Listing
	visit := func(e reconcile.Entry) {
		if !batch && v >= 2 {
			// Stream the path ahead of the probe so slow hashes name
			// the file they are working on.
			fmt.Fprintf(os.Stdout, "%s ", e.Path)
		}
		res := sess.Classify(e)
		if batch {
			slog.Debug("classified", "path", res.Path, "status", res.Status.String())
			if !res.Status.Unchanged() || v >= 2 {
				listings = append(listings, listingFor(res))
			}
			return
		}
		printProgress(os.Stdout, res, v, modifiedOnly)
	}

	start := time.Now()
	stats, err := walker.Walk(ctx, walker.Options{
		Root:          root,
		Follow:        viper.GetBool("scan.follow_links"),
		ExcludeMarker: marker,
		SkipPaths:     choice.skip,
	}, visit, sess.SkipSubtree)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nScan interrupted.")
			exitCode = 1
			return nil
		}
		return fmt.Errorf("scan failed: %w", err)
	}
	elapsed := time.Since(start)

	if !batch {
		sh := newShell(sess, shellOptions{
			ManifestPath:  choice.path,
			ExcludeMarker: marker,
		})
		// Deleted files are listed unconditionally so they cannot slip
		// past unnoticed.
		sh.listStatus(os.Stdout, types.StatusUnseen)
		fmt.Fprint(os.Stderr, "Scan finished. ")
		return sh.run(os.Stdin, os.Stdout)
	}

	slog.Info("scan finished",
		"files", stats.Files, "dirs", stats.Dirs, "elapsed", elapsed.Round(time.Millisecond))

	written := false
	if viper.GetBool("update") {
		res, werr := manifest.WriteFile(choice.path, sess.Files(), manifest.WriteOptions{
			ExcludeMarker: marker,
		})
		if werr != nil {
			return fmt.Errorf("failed to write manifest: %w", werr)
		}
		written = true
		slog.Info("manifest updated", "file", choice.path, "entries", res.Entries, "bytes", res.Bytes)
	}

	rep := &output.Report{
		RunID:     runID,
		Root:      root,
		Manifest:  choice.path,
		Algorithm: sess.Algorithm().String(),
		Listings:  listings,
		Deleted:   sess.Deleted(),
		Totals:    sess.Totals(),
		Total:     sess.Files().Len(),
		Stats: output.ScanStats{
			Dirs:      stats.Dirs,
			Files:     stats.Files,
			Links:     stats.Links,
			Specials:  stats.Specials,
			Errors:    stats.Errors,
			BytesRead: sess.BytesRead(),
			Duration:  elapsed,
		},
		Clean:   sess.Clean(),
		Written: written,
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, rep); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(buf.String())

	if !rep.Clean {
		exitCode = 1
	}
	return nil
}

// initLogging wires verbosity into the logging backend. A configured
// level pins it; otherwise -v and -q move it.
func initLogging(v int) error {
	level := viper.GetString("logging.level")
	if level == "" {
		level = logging.LevelForVerbosity(v).String()
	}

	var rotation logging.RotationConfig
	if s := viper.GetString("logging.rotation.max_size"); s != "" {
		size, err := humanize.ParseBytes(s)
		if err != nil {
			return fmt.Errorf("parsing logging.rotation.max_size: %w", err)
		}
		rotation.MaxSize = int64(size)
	}
	rotation.MaxAge = viper.GetInt("logging.rotation.max_age")
	rotation.MaxBackups = viper.GetInt("logging.rotation.max_backups")
	rotation.Daily = viper.GetBool("logging.rotation.daily")

	return logging.Init(logging.Config{
		Level:      level,
		Components: viper.GetStringMapString("logging.components"),
		File:       viper.GetString("logging.file"),
		Rotation:   rotation,
	})
}

// resolveRoot expands and validates the directory to scan.
func resolveRoot() (string, error) {
	scanPath := viper.GetString("default_path")
	if scanPath == "" {
		scanPath = "."
	}

	expandedPath, err := config.ExpandPath(scanPath)
	if err != nil {
		return "", fmt.Errorf("failed to expand path: %w", err)
	}

	absPath, err := filepath.Abs(expandedPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path does not exist: %s", absPath)
		}
		return "", fmt.Errorf("cannot access path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", absPath)
	}
	return absPath, nil
}

// selectFormatter resolves the batch report formatter, handling the
// template format which needs the template string.
func selectFormatter(outFormat string) (output.Formatter, error) {
	if outFormat == "" {
		outFormat = config.DefaultFormat
	}
	if outFormat == "template" {
		tmplStr := viper.GetString("output.template")
		if tmplStr == "" {
			return nil, fmt.Errorf("--template is required when using -o template")
		}
		return output.NewTemplateFormatter(tmplStr), nil
	}
	formatter, err := output.Get(outFormat)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", outFormat, output.Available())
	}
	return formatter, nil
}

// manifestChoice is the resolved manifest location for one run.
type manifestChoice struct {
	// path is the filesystem path the manifest is read from and written
	// to.
	path string

	// skip lists root-relative paths the walker must not classify, so
	// the manifest never shows up in its own listing.
	skip []string

	// algo is the digest algorithm demanded by --type, None when the
	// manifest decides.
	algo digest.Algorithm

	// create is set when no manifest exists yet and this run starts one
	// from a full scan.
	create bool
}

// selectManifest resolves --file, --type and the default basenames into
// a concrete manifest location. With neither flag set, exactly one of
// the well-known basenames may exist in the scan root; none at all
// starts a fresh sha1 manifest.
func selectManifest(root string) (manifestChoice, error) {
	var c manifestChoice

	if t := viper.GetString("scan.type"); t != "" {
		algo, err := digest.ParseAlgorithm(t)
		if err != nil || algo == digest.CRC32 {
			return c, fmt.Errorf("unknown digest type %q (use md5, sha1, sha256 or sha512)", t)
		}
		c.algo = algo
	}

	name := viper.GetString("scan.file")
	if name == "" && c.algo != digest.None {
		name = manifest.DefaultName(c.algo)
	}
	if name == "" {
		detected, algo, err := manifest.Detect(root)
		switch {
		case err == nil:
			name, c.algo = detected, algo
		case errors.Is(err, manifest.ErrNoManifest):
			c.algo = digest.SHA1
			name = manifest.DefaultName(c.algo)
			c.create = true
			logger.Warn("no manifest found, creating one from a full scan", "file", name)
		default:
			return c, err
		}
	}

	c.path = name
	if !filepath.IsAbs(c.path) {
		c.path = filepath.Join(root, name)
	}
	if rel, err := filepath.Rel(root, c.path); err == nil && !strings.HasPrefix(rel, "..") {
		c.skip = []string{filepath.ToSlash(rel)}
	}
	return c, nil
}

// loadManifest reads the chosen manifest. A missing file downgrades to
// a full scan when the algorithm is known; without one there is nothing
// to verify against and nothing to create.
func loadManifest(c manifestChoice, batch bool) (*manifest.Manifest, error) {
	if c.create {
		return &manifest.Manifest{Files: index.NewFileIndex(), Algorithm: c.algo}, nil
	}

	opts := manifest.LoadOptions{Algorithm: c.algo}
	if !batch {
		opts.Confirm = confirmOnTerminal
	}

	m, err := manifest.Load(c.path, opts)
	if err != nil {
		if os.IsNotExist(err) {
			if c.algo == digest.None {
				return nil, fmt.Errorf("manifest %s does not exist: specify --type to create one", c.path)
			}
			logger.Warn("manifest missing, performing full scan", "file", c.path)
			return &manifest.Manifest{Files: index.NewFileIndex(), Algorithm: c.algo}, nil
		}
		return nil, err
	}

	if m.Files.Len() == 0 {
		logger.Warn("no entries found in manifest", "file", c.path)
		if m.Algorithm == digest.None {
			return nil, fmt.Errorf("manifest %s carries no digests: specify --type", c.path)
		}
	}
	return m, nil
}

// confirmOnTerminal reports whether the user wants to continue past a
// manifest integrity problem.
func confirmOnTerminal(msg string) bool {
	fmt.Fprintf(os.Stderr, "%s\n", msg)
	fmt.Fprint(os.Stderr, "Continue anyway [y/N]? ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// listingFor converts one classification into a report row.
func listingFor(res reconcile.Result) output.Listing {
	l := output.Listing{
		Path:    res.Path,
		Status:  res.Status.String(),
		OldPath: res.OldPath,
	}
	if res.Err != nil {
		l.Error = res.Err.Error()
	}
	return l
}

// printProgress echoes one classification into the scan stream. At
// verbosity 2 and above the path was already streamed before the probe
// and only the line tail is emitted here; at 1 each outcome is one full
// line, with --modified hiding unchanged files; below that only read
// errors surface.
func printProgress(w io.Writer, res reconcile.Result, v int, modifiedOnly bool) {
	switch {
	case v >= 2:
		if res.Status == types.StatusSkipped {
			fmt.Fprintln(w, "skipped.")
			return
		}
		fmt.Fprint(w, outcomeTail(res))
	case v == 1:
		if res.Status == types.StatusSkipped || (modifiedOnly && res.Status.Unchanged()) {
			return
		}
		fmt.Fprintf(w, "%s %s", res.Path, outcomeTail(res))
	default:
		if res.Status == types.StatusError {
			fmt.Fprintf(w, "%s ERROR. %v\n", res.Path, res.Err)
		}
	}
}

// outcomeTail is the part of a progress line after the path: the status
// word plus any origin or error detail, newline-terminated.
func outcomeTail(res reconcile.Result) string {
	switch res.Status {
	case types.StatusError:
		return fmt.Sprintf("ERROR. %v\n", res.Err)
	case types.StatusCopied, types.StatusRenamed:
		return fmt.Sprintf("%s\n<-- %s\n", progressWord(res.Status), res.OldPath)
	default:
		return progressWord(res.Status) + "\n"
	}
}

// progressWord is the scan-stream verb for a status. Quiet states stay
// lowercase, states that need attention shout.
func progressWord(st types.Status) string {
	switch st {
	case types.StatusSeen:
		return "untouched."
	case types.StatusTouched:
		return "matched."
	case types.StatusChanged:
		return "CHANGED."
	case types.StatusNew:
		return "new."
	case types.StatusCopied:
		return "copied."
	case types.StatusRenamed:
		return "renamed."
	}
	return st.String() + "."
}
