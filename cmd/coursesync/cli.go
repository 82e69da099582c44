package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/coursesync/internal/drive"
	"github.com/hpungsan/coursesync/internal/errors"
	"github.com/hpungsan/coursesync/internal/logger"
	"github.com/hpungsan/coursesync/internal/mcp"
	"github.com/hpungsan/coursesync/internal/ops"
	"github.com/hpungsan/coursesync/internal/pdfcache"
	"github.com/hpungsan/coursesync/internal/store"
)

// stdout receives command results. Logs go to stderr.
var stdout io.Writer = os.Stdout

// newCLIApp creates the CLI application with all commands.
func newCLIApp(deps mcp.Deps) *cli.App {
	app := &cli.App{
		Name:    "coursesync",
		Usage:   "Sync course material and documents from Google Drive into course records",
		Version: Version,
		Commands: []*cli.Command{
			syncCmd(deps),
			migrateCmd(deps),
			validateCmd(deps),
			backupCmd(deps),
			cacheCmd(deps),
			historyCmd(deps),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// syncCmd creates the sync command.
func syncCmd(deps mcp.Deps) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Refresh material and documents of every course file (or only --course files)",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "course", Aliases: []string{"c"}, Usage: "Course file name, e.g. course_4a.json (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			log := logOf(deps)
			remote := deps.Remote
			if remote == nil {
				client, err := drive.FromConfig(c.Context, deps.Config, log)
				if err != nil {
					return outputError(err)
				}
				remote = client
			}

			syncer := ops.NewSyncer(ops.SyncerOptions{
				Remote:       remote,
				Store:        store.FromConfig(deps.Config),
				Cache:        pdfcache.NewCache(deps.Config.PDFCachePath(), log),
				Journal:      deps.Journal,
				Logger:       log,
				ExtractDelay: deps.Config.ExtractDelay(),
			})
			output, err := syncer.Sync(c.Context, ops.SyncInput{Files: c.StringSlice("course")})
			if err != nil {
				return outputError(err)
			}
			if err := outputJSON(output); err != nil {
				return err
			}
			if output.Failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d courses failed", output.Failed, len(output.Courses)), 1)
			}
			return nil
		},
	}
}

// migrateCmd creates the migrate command.
func migrateCmd(deps mcp.Deps) *cli.Command {
	return &cli.Command{
		Name:      "migrate",
		Usage:     "Convert legacy course files to the material/docs shape in place",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "Report which files would change without writing"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Migrate(ops.MigrateInput{
				Paths:  c.Args().Slice(),
				DryRun: c.Bool("dry-run"),
			}, logOf(deps))
			if err != nil {
				return outputError(err)
			}
			if err := outputJSON(output); err != nil {
				return err
			}
			if output.Failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d files failed to migrate", output.Failed, len(output.Results)), 1)
			}
			return nil
		},
	}
}

// validateCmd creates the validate command.
func validateCmd(deps mcp.Deps) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check course files against the material/docs schema",
		ArgsUsage: "[FILE]",
		Action: func(c *cli.Context) error {
			s := store.FromConfig(deps.Config)

			if c.NArg() > 0 {
				report, err := ops.Validate(s, c.Args().First())
				if err != nil {
					return outputError(err)
				}
				if err := outputJSON(report); err != nil {
					return err
				}
				if !report.Valid {
					return cli.Exit(fmt.Sprintf("%s is invalid", report.File), 1)
				}
				return nil
			}

			output, err := ops.ValidateAll(s)
			if err != nil {
				return outputError(err)
			}
			if err := outputJSON(output); err != nil {
				return err
			}
			if output.Invalid > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d course files are invalid", output.Invalid, len(output.Reports)), 1)
			}
			return nil
		},
	}
}

// backupCmd creates the backup command.
func backupCmd(deps mcp.Deps) *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Snapshot every course file that has no backup yet",
		Action: func(c *cli.Context) error {
			output, err := ops.BackupAll(store.FromConfig(deps.Config), logOf(deps))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// cacheCmd creates the cache command group.
func cacheCmd(deps mcp.Deps) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the PDF text cache",
		Subcommands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show one course's cached text, or a summary of every course without SLUG",
				ArgsUsage: "[SLUG]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Usage: "Material category key"},
					&cli.StringFlag{Name: "file-id", Usage: "Drive file id (requires --category)"},
				},
				Action: func(c *cli.Context) error {
					cache := pdfcache.NewCache(deps.Config.PDFCachePath(), logOf(deps))

					if c.NArg() == 0 {
						output, err := ops.CacheList(cache)
						if err != nil {
							return outputError(err)
						}
						return outputJSON(output)
					}

					output, err := ops.CacheShow(cache, ops.CacheShowInput{
						Slug:     c.Args().First(),
						Category: c.String("category"),
						FileID:   c.String("file-id"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// historyCmd creates the history command.
func historyCmd(deps mcp.Deps) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recent sync runs, or one run's per-entry outcomes",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum runs to return"},
			&cli.StringFlag{Name: "run", Aliases: []string{"r"}, Usage: "Run id"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(deps.Journal, ops.HistoryInput{
				RunID: c.String("run"),
				Limit: c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Helper functions

func logOf(deps mcp.Deps) *logger.Logger {
	if deps.Logger == nil {
		return logger.NewNop()
	}
	return deps.Logger
}

// outputJSON writes result to stdout as indented JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if sErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
