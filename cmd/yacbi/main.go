// Command yacbi indexes a C/C++ project's compile_commands.json into a
// queryable symbol database (spec §1), and answers definition/
// reference/subtype/include-graph queries against it. Grounded on the
// teacher's cmd/lci/main.go App/Command layout, retargeted from its
// search/server/MCP surface onto the init/update/watch/query commands
// spec §6 calls for.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/kubinux/yacbi-go/internal/config"
	"github.com/kubinux/yacbi-go/internal/debug"
	"github.com/kubinux/yacbi-go/internal/display"
	"github.com/kubinux/yacbi-go/internal/driver"
	"github.com/kubinux/yacbi-go/internal/parser/clangimpl"
	"github.com/kubinux/yacbi-go/internal/project"
	"github.com/kubinux/yacbi-go/internal/store"
	"github.com/kubinux/yacbi-go/internal/version"
	"github.com/kubinux/yacbi-go/internal/watch"
)

func main() {
	app := &cli.App{
		Name:    "yacbi",
		Usage:   "incremental symbol index for C/C++ projects driven by compile_commands.json",
		Version: version.FullInfo(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "project root (defaults to the nearest .yacbi ancestor, or . for init)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "query output format: text or json",
				Value: "text",
			},
		},
		Commands: []*cli.Command{
			initCommand(),
			updateCommand(),
			watchCommand(),
			definitionsCommand(),
			referencesCommand(),
			subtypesCommand(),
			includingCommand(),
			argsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "create a .yacbi directory rooted at --root (default: current directory)",
		Action: func(c *cli.Context) error {
			root, err := filepath.Abs(rootFlag(c, "."))
			if err != nil {
				return err
			}
			return project.Init(root)
		},
	}
}

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:    "update",
		Aliases: []string{"u"},
		Usage:   "run one incremental index update",
		Action: func(c *cli.Context) error {
			root, st, cfg, err := openProject(c)
			if err != nil {
				return err
			}
			defer st.Close()

			p := clangimpl.New()
			defer p.Close()

			return driver.Update(c.Context, root, st, p, cfg)
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "re-run update whenever a file under root changes, until interrupted",
		Action: func(c *cli.Context) error {
			root, st, cfg, err := openProject(c)
			if err != nil {
				return err
			}
			defer st.Close()

			p := clangimpl.New()
			defer p.Close()

			w, err := watch.New(root, 0, func(ctx context.Context) error {
				return driver.Update(ctx, root, st, p, cfg)
			})
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := driver.Update(ctx, root, st, p, cfg); err != nil {
				debug.Warnf("initial update failed: %v", err)
			}
			return w.Run(ctx)
		},
	}
}

func definitionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "defs",
		Usage:     "list the definition sites of a symbol by USR",
		ArgsUsage: "USR",
		Action: func(c *cli.Context) error {
			return queryAndPrint(c, func(st *store.Store, usr string) ([]store.Ref, error) {
				return st.QueryDefinitions(usr)
			})
		},
	}
}

func referencesCommand() *cli.Command {
	return &cli.Command{
		Name:      "refs",
		Usage:     "list every occurrence of a symbol by USR, definitions first",
		ArgsUsage: "USR",
		Action: func(c *cli.Context) error {
			return queryAndPrint(c, func(st *store.Store, usr string) ([]store.Ref, error) {
				return st.QueryReferences(usr)
			})
		},
	}
}

func subtypesCommand() *cli.Command {
	return &cli.Command{
		Name:      "subtypes",
		Usage:     "list base-specifier references naming a symbol by USR",
		ArgsUsage: "USR",
		Action: func(c *cli.Context) error {
			return queryAndPrint(c, func(st *store.Store, usr string) ([]store.Ref, error) {
				return st.QuerySubtypes(usr)
			})
		},
	}
}

func includingCommand() *cli.Command {
	return &cli.Command{
		Name:      "including",
		Usage:     "list files that #include the given path",
		ArgsUsage: "PATH",
		Action: func(c *cli.Context) error {
			root, st, err := openStoreOnly(c)
			if err != nil {
				return err
			}
			defer st.Close()

			if c.NArg() != 1 {
				return fmt.Errorf("including requires exactly one PATH argument")
			}
			path, err := filepath.Abs(c.Args().First())
			if err != nil {
				return err
			}
			files, err := st.QueryIncludingFiles(path)
			if err != nil {
				return err
			}
			return display.WriteIncludingFiles(os.Stdout, files, root, display.Format(c.String("format")))
		},
	}
}

func argsCommand() *cli.Command {
	return &cli.Command{
		Name:      "args",
		Usage:     "print the compile arguments last used to parse a file",
		ArgsUsage: "PATH",
		Action: func(c *cli.Context) error {
			_, st, err := openStoreOnly(c)
			if err != nil {
				return err
			}
			defer st.Close()

			if c.NArg() != 1 {
				return fmt.Errorf("args requires exactly one PATH argument")
			}
			path, err := filepath.Abs(c.Args().First())
			if err != nil {
				return err
			}
			args, err := st.QueryArgs(path)
			if err != nil {
				return err
			}
			return display.WriteArgs(os.Stdout, args, display.Format(c.String("format")))
		},
	}
}

func queryAndPrint(c *cli.Context, query func(*store.Store, string) ([]store.Ref, error)) error {
	root, st, err := openStoreOnly(c)
	if err != nil {
		return err
	}
	defer st.Close()

	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one USR argument")
	}
	refs, err := query(st, c.Args().First())
	if err != nil {
		return err
	}
	return display.WriteRefs(os.Stdout, refs, root, display.Format(c.String("format")))
}

func rootFlag(c *cli.Context, fallback string) string {
	if r := c.String("root"); r != "" {
		return r
	}
	return fallback
}

func resolveRoot(c *cli.Context) (string, error) {
	if r := c.String("root"); r != "" {
		return filepath.Abs(r)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return project.FindRoot(cwd)
}

func openProject(c *cli.Context) (string, *store.Store, *config.Config, error) {
	root, err := resolveRoot(c)
	if err != nil {
		return "", nil, nil, err
	}
	cfg, err := config.Load(project.ConfigPath(root))
	if err != nil {
		return "", nil, nil, err
	}
	st, err := store.Open(project.DBPath(root))
	if err != nil {
		return "", nil, nil, err
	}
	return root, st, cfg, nil
}

func openStoreOnly(c *cli.Context) (string, *store.Store, error) {
	root, err := resolveRoot(c)
	if err != nil {
		return "", nil, err
	}
	st, err := store.Open(project.DBPath(root))
	if err != nil {
		return "", nil, err
	}
	return root, st, nil
}
