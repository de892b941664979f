package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/treesum/pkg/treesum/config"
	"github.com/jamesainslie/treesum/pkg/treesum/logging"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage treesum configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/treesum/config.yaml (if set)
  2. ~/.config/treesum/config.yaml

Environment variables can override config file settings using the TREESUM_ prefix:
  TREESUM_SCAN_TYPE=sha256
  TREESUM_SCAN_MODIFY_WINDOW=2
  TREESUM_OUTPUT_FORMAT=json`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError("Failed to load configuration: %v", err)
		// Show defaults anyway
		cfg = &config.Config{
			DefaultPath: config.DefaultScanPath,
			Verbosity:   config.DefaultVerbosity,
		}
		cfg.Scan.ModifyWindow = config.DefaultModifyWindow
		cfg.Output.Format = config.DefaultFormat
	}

	// Show config file being used
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Printf("Config file: %s\n\n", configFile)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	// Display configuration
	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("default_path:          %s\n", cfg.DefaultPath)
	fmt.Printf("verbosity:             %d\n", cfg.Verbosity)
	fmt.Printf("scan.type:             %s\n", orUnset(cfg.Scan.Type))
	fmt.Printf("scan.file:             %s\n", orUnset(cfg.Scan.File))
	fmt.Printf("scan.full_check:       %t\n", cfg.Scan.FullCheck)
	fmt.Printf("scan.follow_links:     %t\n", cfg.Scan.FollowLinks)
	fmt.Printf("scan.modify_window:    %d\n", cfg.Scan.ModifyWindow)
	fmt.Printf("scan.exclude_marker:   %s\n", orUnset(cfg.Scan.ExcludeMarker))
	fmt.Printf("scan.restrict:         %s\n", orUnset(cfg.Scan.Restrict))
	fmt.Printf("output.format:         %s\n", cfg.Output.Format)
	fmt.Printf("output.modified_only:  %t\n", cfg.Output.ModifiedOnly)
	fmt.Printf("logging.level:         %s\n", orUnset(cfg.Logging.Level))
	logFile := cfg.Logging.File
	if logFile == "" {
		logFile = logging.DefaultLogPath()
	}
	fmt.Printf("logging.file:          %s\n", logFile)

	// Show any environment overrides
	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	envVars := []string{
		"TREESUM_DEFAULT_PATH",
		"TREESUM_VERBOSITY",
		"TREESUM_SCAN_TYPE",
		"TREESUM_SCAN_FILE",
		"TREESUM_SCAN_FULL_CHECK",
		"TREESUM_SCAN_FOLLOW_LINKS",
		"TREESUM_SCAN_MODIFY_WINDOW",
		"TREESUM_SCAN_EXCLUDE_MARKER",
		"TREESUM_SCAN_RESTRICT",
		"TREESUM_OUTPUT_FORMAT",
		"TREESUM_OUTPUT_MODIFIED_ONLY",
		"TREESUM_LOGGING_LEVEL",
		"TREESUM_LOGGING_FILE",
	}

	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// orUnset keeps empty settings visible in the listing.
func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	// Ensure config file exists
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	// Get config file path
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	// Determine editor
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	logger.Debug("opening config in editor", "path", configPath, "editor", editor)

	// Open editor
	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'treesum config edit' to modify it.")
		return nil
	}

	// Create default config
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	fmt.Println(configPath)

	return nil
}
