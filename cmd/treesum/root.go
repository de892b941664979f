package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/treesum/pkg/treesum/config"
)

// exitCode is the process exit status for runs that completed without a
// fatal error. A scan that found differences sets it to 1.
var exitCode int

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "treesum",
		Short: "Verify directory trees against digest manifests",
		Long: `Treesum scans a directory tree and reconciles it against a digest
manifest (md5sum.txt, sha1sum.txt, sha256sum.txt or sha512sum.txt),
reporting new, changed, renamed, copied and deleted files. Renames and
copies are recognized by matching content digests, so reorganized trees
do not need to be re-verified file by file.

By default treesum drops into an interactive prompt after the scan.
Use --batch for scripted runs, or --update to rewrite the manifest.

Examples:
  treesum                        # Scan ., review changes interactively
  treesum -d ~/archive           # Scan a specific directory
  treesum -b                     # Batch scan, exit 1 on differences
  treesum -b -u                  # Batch scan and update the manifest
  treesum -t sha256 -b -u        # Create sha256sum.txt on first run
  treesum -b -o json             # Machine-readable report
  treesum config show            # Show configuration`,
		Args: cobra.NoArgs,
	}
)

func init() {
	// Assigned here rather than in the rootCmd literal to avoid an
	// initialization cycle: runScan -> verbosity -> rootCmd.
	rootCmd.RunE = runScan

	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/treesum/config.yaml)")
	rootCmd.PersistentFlags().StringP("directory", "d", "", "directory tree to scan (default: current directory)")
	rootCmd.PersistentFlags().StringP("file", "f", "", "manifest file name (default: auto-detect)")
	rootCmd.PersistentFlags().StringP("type", "t", "", "digest algorithm: md5, sha1, sha256, sha512")
	rootCmd.PersistentFlags().BoolP("batch", "b", false, "run without the interactive prompt")
	rootCmd.PersistentFlags().BoolP("update", "u", false, "rewrite the manifest after a batch scan")
	rootCmd.PersistentFlags().BoolP("full-check", "c", false, "digest every file, ignoring stored mtime and size")
	rootCmd.PersistentFlags().BoolP("links", "l", false, "follow symlinks instead of recording their targets")
	rootCmd.PersistentFlags().BoolP("modified", "m", false, "show only modified files")
	rootCmd.PersistentFlags().CountP("verbose", "v", "increase verbosity (repeatable)")
	rootCmd.PersistentFlags().CountP("quiet", "q", "decrease verbosity (repeatable)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "report format: pretty, plain, json, jsonl, yaml, tsv, csv, markdown, paths, null, template")
	rootCmd.PersistentFlags().String("template", "", "Go template for -o template")
	rootCmd.PersistentFlags().Int64("modify-window", 0, "tolerated mtime difference in seconds")
	rootCmd.PersistentFlags().String("exclude-marker", "", "file name that excludes its directory subtree")
	rootCmd.PersistentFlags().String("restrict", "", "glob pattern limiting the scan (supports **)")

	// Bind flags to viper
	_ = viper.BindPFlag("default_path", rootCmd.PersistentFlags().Lookup("directory"))
	_ = viper.BindPFlag("scan.file", rootCmd.PersistentFlags().Lookup("file"))
	_ = viper.BindPFlag("scan.type", rootCmd.PersistentFlags().Lookup("type"))
	_ = viper.BindPFlag("batch", rootCmd.PersistentFlags().Lookup("batch"))
	_ = viper.BindPFlag("update", rootCmd.PersistentFlags().Lookup("update"))
	_ = viper.BindPFlag("scan.full_check", rootCmd.PersistentFlags().Lookup("full-check"))
	_ = viper.BindPFlag("scan.follow_links", rootCmd.PersistentFlags().Lookup("links"))
	_ = viper.BindPFlag("output.modified_only", rootCmd.PersistentFlags().Lookup("modified"))
	_ = viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("output.template", rootCmd.PersistentFlags().Lookup("template"))
	_ = viper.BindPFlag("scan.modify_window", rootCmd.PersistentFlags().Lookup("modify-window"))
	_ = viper.BindPFlag("scan.exclude_marker", rootCmd.PersistentFlags().Lookup("exclude-marker"))
	_ = viper.BindPFlag("scan.restrict", rootCmd.PersistentFlags().Lookup("restrict"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Set config name and type
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")

		// Add config paths in order of precedence
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			viper.AddConfigPath(filepath.Join(xdgConfigHome, "treesum"))
		}

		homeDir, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(homeDir, ".config", "treesum"))
		}
	}

	// Set environment variable prefix and enable auto env binding
	viper.SetEnvPrefix("TREESUM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Set defaults from config package
	viper.SetDefault("default_path", config.DefaultScanPath)
	viper.SetDefault("verbosity", config.DefaultVerbosity)
	viper.SetDefault("scan.modify_window", config.DefaultModifyWindow)
	viper.SetDefault("scan.exclude_marker", config.DefaultExcludeMarker)
	viper.SetDefault("output.format", config.DefaultFormat)
	viper.SetDefault("logging.level", "")
	viper.SetDefault("logging.file", "")
	viper.SetDefault("logging.rotation.max_size", config.DefaultRotateMaxSize)
	viper.SetDefault("logging.rotation.max_age", config.DefaultRotateMaxAge)
	viper.SetDefault("logging.rotation.max_backups", config.DefaultRotateMaxBackups)
	viper.SetDefault("logging.rotation.daily", false)

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// verbosity computes the effective verbosity for this invocation.
func verbosity() int {
	up, _ := rootCmd.PersistentFlags().GetCount("verbose")
	down, _ := rootCmd.PersistentFlags().GetCount("quiet")
	return computeVerbosity(viper.GetInt("verbosity"), up, down,
		viper.GetBool("batch"), viper.GetBool("output.modified_only"))
}

// computeVerbosity applies the flag arithmetic: the configured base is
// raised by -v and lowered by -q and -b. --modified caps the result at
// 1 so untouched files stay out of the listing.
func computeVerbosity(base, up, down int, batch, modifiedOnly bool) int {
	v := base + up - down
	if batch {
		v--
	}
	if modifiedOnly && v > 1 {
		v = 1
	}
	return v
}

// printInfo prints a message unless verbosity dropped below normal.
func printInfo(format string, args ...interface{}) {
	if verbosity() >= 1 {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
