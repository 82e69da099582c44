package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/coursesync/internal/config"
	"github.com/hpungsan/coursesync/internal/db"
	"github.com/hpungsan/coursesync/internal/logger"
	"github.com/hpungsan/coursesync/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"sync": true, "migrate": true, "validate": true,
	"backup": true, "cache": true, "history": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a short usage note when run interactively without args.
func printBanner() {
	fmt.Println(`
  coursesync: course material and documents from Google Drive

  Usage: coursesync <command> [options]
         coursesync --help

  MCP server mode requires piped input.`)
}

func main() {
	os.Exit(run())
}

func run() int {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return 0
	}

	// Handle --help/--version before loading anything
	if isHelpOrVersion() {
		if err := newCLIApp(mcp.Deps{}).Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		return 1
	}
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine working directory: %v\n", err)
		return 1
	}

	cfg, err := config.LoadWithRepo(filepath.Join(homeDir, config.RepoDirName), cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		return 1
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to build logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn("unknown tools in disabled_tools", "tools", unknown, "known", mcp.AllToolNames())
	}

	deps := mcp.Deps{Config: cfg, Logger: log}

	// The journal is optional: without it sync still runs, history reports CONFIG.
	journal, err := db.Init(filepath.Join(cfg.Root, config.RepoDirName))
	if err != nil {
		log.Warn("sync journal unavailable", "error", err)
	} else {
		defer journal.Close()
		deps.Journal = journal
	}

	// CLI mode: known subcommand
	if isCLIMode() {
		if err := newCLIApp(deps).Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'coursesync --help' for usage.\n")
		return 1
	}

	// MCP server mode (default)
	if err := mcp.Run(deps, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
