package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/fwessels/shaderpp"
	"github.com/fwessels/shaderpp/internal/config"
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "shaderpp"
	app.Usage = "Preprocess a shader and print the resulting token stream"
	app.ArgsUsage = "<file>"
	app.HideHelpCommand = true
	app.DisableSliceFlagSeparator = true

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Configuration file (default: shaderpp.yaml searched upward from the input)",
		},
		&cli.StringSliceFlag{
			Name:    "define",
			Aliases: []string{"D"},
			Usage:   "Predefine a macro, NAME or NAME=VALUE",
		},
		&cli.StringSliceFlag{
			Name:  "type",
			Usage: "Treat an identifier as a type name",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn or error",
		},
		&cli.BoolFlag{
			Name:  "unreachable",
			Usage: "Print the source ranges skipped by conditional directives",
		},
		&cli.BoolFlag{
			Name:  "includes",
			Usage: "Print every file the input included",
		},
	}
	app.Action = runPreprocess
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runPreprocess(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("Usage: shaderpp [options] <file>", 2)
	}
	fname := c.Args().First()

	cfg, err := loadConfig(c, fname)
	if err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetOutput(c.App.ErrWriter)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(cfg.Level())

	res, err := shaderpp.PreprocessFile(context.Background(), fname, shaderpp.Options{
		Defines:           cfg.Defines,
		TypeNames:         cfg.TypeNames,
		IncludeRoot:       cfg.IncludeRoot,
		IncludeCacheSize:  cfg.IncludeCacheSize,
		MaxExpansionDepth: cfg.MaxExpansionDepth,
		Log:               logrus.NewEntry(logger),
	})
	if res == nil {
		return errors.Cause(err)
	}

	w := c.App.Writer
	printTokens(w, res.Tokens)
	if c.Bool("includes") {
		printIncludes(w, res.Includes)
	}
	if c.Bool("unreachable") {
		printUnreachable(w, res.Unreachable)
	}

	if err != nil || res.HasErrors() {
		return cli.Exit("", 1)
	}
	return nil
}

func loadConfig(c *cli.Context, fname string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		dir := "."
		if abs, aerr := filepath.Abs(fname); aerr == nil {
			dir = filepath.Dir(abs)
		}
		cfg, _, err = config.Load(dir)
	}
	if err != nil {
		return nil, err
	}
	return cfg.Merge(config.MergeOptions{
		Defines:   c.StringSlice("define"),
		TypeNames: c.StringSlice("type"),
		LogLevel:  c.String("log-level"),
	})
}

// printTokens writes the token values separated by blanks, starting a new
// line whenever the source line or file of the tokens changes.
func printTokens(w io.Writer, toks []shaderpp.Token) {
	var line strings.Builder
	uri, ln := "", -1
	for _, tok := range toks {
		if line.Len() > 0 && (tok.URI != uri || tok.Range.Start.Line != ln) {
			fmt.Fprintln(w, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(tok.Value)
		uri, ln = tok.URI, tok.Range.Start.Line
	}
	if line.Len() > 0 {
		fmt.Fprintln(w, line.String())
	}
}

func printIncludes(w io.Writer, includes map[string]shaderpp.Range) {
	uris := make([]string, 0, len(includes))
	for uri := range includes {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	for _, uri := range uris {
		fmt.Fprintf(w, "include %s\n", uri)
	}
}

func printUnreachable(w io.Writer, ranges []shaderpp.UnreachableRange) {
	for _, r := range ranges {
		fmt.Fprintf(w, "unreachable %s:%s\n", r.URI, r.Range)
	}
}
