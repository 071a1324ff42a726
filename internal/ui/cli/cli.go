package cli

import (
	"flag"
	"fmt"
)

const versionString = "1.0.0"
const defaultConfigPath = "./codezap.toml"

type cliOptions struct {
	command      string
	path         string
	language     string
	configPath   string
	dryRun       bool
	backup       bool
	aggressive   bool
	removeUnused bool
	watch        bool
	limit        int
	snapshotID   string
	verbose      bool
}

const usageText = `usage: codezap <command> [flags] [path]

commands:
  check    analyze the project and report what would be cleaned
  fix      remove unused imports/variables and dead commented code
  format   format the project with the language's formatter
  deps     cross-reference declared dependencies against usage
  restore  roll the tree back to a retained snapshot
  history  list recorded pipeline runs
  version  print version and exit
`

func parseOptions(args []string) (cliOptions, error) {
	if len(args) == 0 {
		return cliOptions{}, fmt.Errorf("%s", usageText)
	}

	opts := cliOptions{command: args[0], path: ".", language: "auto"}
	fs := flag.NewFlagSet("codezap "+opts.command, flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")

	switch opts.command {
	case "check":
		fs.StringVar(&opts.language, "lang", "auto", "Project language (python, javascript, go, auto)")
		fs.BoolVar(&opts.dryRun, "dry-run", false, "Report what would change without applying it")
		fs.BoolVar(&opts.watch, "watch", false, "Re-run the check when source files change")
	case "fix":
		fs.StringVar(&opts.language, "lang", "auto", "Project language (python, javascript, go, auto)")
		fs.BoolVar(&opts.backup, "backup", false, "Snapshot files before mutating, restore on failure")
		fs.BoolVar(&opts.aggressive, "aggressive", false, "Remove additional heuristically-dead constructs (higher false-positive risk)")
		fs.BoolVar(&opts.dryRun, "dry-run", false, "Report what would change without applying it")
	case "format":
		fs.StringVar(&opts.language, "lang", "auto", "Project language (python, javascript, go, auto)")
	case "deps":
		fs.StringVar(&opts.language, "lang", "auto", "Project language (python, javascript, go, auto)")
		fs.BoolVar(&opts.removeUnused, "remove-unused", false, "Remove confirmed-unused dependencies from the manifest")
		fs.BoolVar(&opts.dryRun, "dry-run", false, "Report what would change without applying it")
	case "restore":
		fs.StringVar(&opts.snapshotID, "snapshot", "", "Snapshot id to restore (default: most recent)")
	case "history":
		fs.IntVar(&opts.limit, "limit", 20, "Maximum number of runs to list")
	case "version":
		return opts, nil
	default:
		return cliOptions{}, fmt.Errorf("unknown command %q\n%s", opts.command, usageText)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return cliOptions{}, err
	}
	if fs.NArg() > 0 {
		opts.path = fs.Arg(0)
	}
	return opts, nil
}
