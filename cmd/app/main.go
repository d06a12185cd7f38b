package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/noteprops/internal"
	pkgconfig "github.com/starford/noteprops/pkg/config"
)

var version = "dev"

type entrypoint func(ctx context.Context, opts ...internal.Option) error

// action loads the config and hands it to an entry point.
func action(name string, fn entrypoint) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		configPath := cmd.String("config")

		cfg := internal.NewDefaultConfig()
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if dir := cmd.String("content"); dir != "" {
			cfg.Content.Path = dir
		}
		if dir := cmd.String("output"); dir != "" {
			cfg.Output.Path = dir
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithVersion(version),
		}

		if err := fn(ctx, opts...); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "noteprops",
		Usage:   "Normalise Markdown frontmatter and render note properties panels",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (.yaml or .toml)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "content",
				Usage:   "Override content.path",
				Sources: cli.EnvVars("NOTEPROPS_CONTENT"),
			},
			&cli.StringFlag{
				Name:    "output",
				Usage:   "Override output.path",
				Sources: cli.EnvVars("NOTEPROPS_OUTPUT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Process every document once and write the output tree",
				Action: action("build", internal.Build),
			},
			{
				Name:   "serve",
				Usage:  "Build, index and serve the API and previews, rebuilding on changes",
				Action: action("serve", internal.Run),
			},
			{
				Name:   "mcp",
				Usage:  "Serve document metadata tools over MCP stdio",
				Action: action("mcp", internal.ServeMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
