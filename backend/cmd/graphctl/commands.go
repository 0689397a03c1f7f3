package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lastfm-graph/backend/pkg/config"
	apperrors "lastfm-graph/backend/pkg/errors"
	"lastfm-graph/backend/pkg/logger"
)

// cli carries state shared by every subcommand of one invocation.
type cli struct {
	open    opener
	loadCfg func() (*config.Config, error)
	timeout string

	cfg *config.Config
	app *app
}

func newRootCmd(open opener, load func() (*config.Config, error)) *cobra.Command {
	c := &cli{open: open, loadCfg: load}

	root := &cobra.Command{
		Use:           "graphctl",
		Short:         "Query and maintain the Last.fm follower graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.timeout, "timeout", "", "overall deadline, e.g. 30s (default REQUEST_TIMEOUT)")

	root.AddCommand(
		c.migrateCmd(),
		c.projectCmd(),
		c.neighborsCmd(),
		c.shortestPathCmd(),
		c.allShortestPathsCmd(),
		c.addPathCmd(),
		c.compareCmd(),
		c.reportCmd(),
	)
	return root
}

// connect loads configuration and opens the graph. The returned func
// releases the connection.
func (c *cli) connect(ctx context.Context) (func(), error) {
	cfg, err := c.loadCfg()
	if err != nil {
		return nil, err
	}
	// stdout carries the JSON result; keep the console logger quiet
	if err := logger.Init(cfg.Env, firstNonEmpty(cfg.LogLevel, "warn")); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if c.timeout != "" {
		d, err := time.ParseDuration(c.timeout)
		if err != nil {
			return nil, apperrors.NewInvalidRequest("timeout", err.Error())
		}
		cfg.RequestTimeout = d
	}
	c.cfg = cfg

	a, release, err := c.open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to graph: %w", err)
	}
	c.app = a
	return release, nil
}

// run connects, bounds fn by the configured timeout and prints its result
// as JSON.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context) (any, error)) error {
	ctx := cmd.Context()
	release, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer release()

	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	out, err := fn(ctx)
	if err != nil {
		logger.Get().Debug("Command failed", zap.String("command", cmd.Name()), zap.Error(err))
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (c *cli) projectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "project",
		Short: "Create the in-memory algorithm projection if it is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context) (any, error) {
				created, err := c.app.repo.EnsureProjection(ctx)
				if err != nil {
					return nil, apperrors.NewComputationFailed("projection", err)
				}
				return map[string]any{"projection": c.app.repo.Projection(), "created": created}, nil
			})
		},
	}
}

func (c *cli) migrateCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the user id constraint and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context) (any, error) {
				ran, err := c.app.repo.EnsureSchema(ctx, force)
				if err != nil {
					return nil, apperrors.NewGraphFailure("schema migration", err)
				}
				return map[string]any{"applied": ran}, nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reapply even if already recorded")
	return cmd
}

func (c *cli) neighborsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "neighbors USER_ID",
		Short: "Show a user and every user adjacent to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context) (any, error) {
				return c.app.neighborhood.ConnectedNodes(ctx, ids[0])
			})
		},
	}
}

func (c *cli) shortestPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shortest-path SOURCE TARGET",
		Short: "Find one shortest follow path between two users",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context) (any, error) {
				return c.app.paths.ShortestPath(ctx, ids[0], ids[1])
			})
		},
	}
}

func (c *cli) allShortestPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all-shortest-paths SOURCE TARGET",
		Short: "List every minimum-length follow path between two users",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context) (any, error) {
				return c.app.paths.AllShortestPaths(ctx, ids[0], ids[1])
			})
		},
	}
}

func (c *cli) addPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-path ID ID [ID...]",
		Short: "Create FOLLOWS edges along a sequence of existing users",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context) (any, error) {
				return c.app.paths.AddEdgePath(ctx, ids)
			})
		},
	}
}

func (c *cli) compareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare",
		Short: "Compare the traversal and native all-pairs shortest path strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context) (any, error) {
				return c.app.benchmark.CompareApproaches(ctx)
			})
		},
	}
}

func (c *cli) reportCmd() *cobra.Command {
	reports := map[string]func(ctx context.Context) (any, error){
		"communities": func(ctx context.Context) (any, error) { return c.app.reports.CommunityReport(ctx) },
		"centrality":  func(ctx context.Context) (any, error) { return c.app.reports.CentralityReport(ctx) },
		"ranking":     func(ctx context.Context) (any, error) { return c.app.reports.RankingReport(ctx) },
		"triangles":   func(ctx context.Context) (any, error) { return c.app.reports.TriangleReport(ctx) },
	}
	return &cobra.Command{
		Use:       "report {communities|centrality|ranking|triangles}",
		Short:     "Run a whole-graph report",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"communities", "centrality", "ranking", "triangles"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, reports[args[0]])
		},
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, len(args))
	for i, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, apperrors.NewInvalidRequest("user id", fmt.Sprintf("%q is not an integer", arg))
		}
		ids[i] = id
	}
	return ids, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
