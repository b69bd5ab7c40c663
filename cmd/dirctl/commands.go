package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httpserver "github.com/fyrsmithlabs/directoryd/internal/http"
)

// options are the persistent flags shared by every command.
type options struct {
	server  string
	timeout time.Duration
	json    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "dirctl",
		Short: "CLI for the directoryd HTTP API",
		Long: `dirctl is a command-line interface for the directoryd HTTP API.
It lists collections, shows grouped and filtered views, selects filters and
triggers reloads.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.server, "server", "http://127.0.0.1:9191", "directoryd server URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print the raw JSON response")

	root.AddCommand(
		newHealthCmd(opts),
		newCollectionsCmd(opts),
		newShowCmd(opts),
		newGroupsCmd(opts),
		newEntitiesCmd(opts),
		newStatusCmd(opts),
		newFilterCmd(opts),
		newReloadCmd(opts),
	)
	return root
}

func (o *options) client() *client {
	return newClient(o.server, o.timeout)
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check directoryd server health",
		Long: `Check the health of the directoryd server and the state of every collection.

Examples:
  # Check health
  dirctl health

  # Check health on a different server
  dirctl health --server http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp httpserver.HealthResponse
			raw, err := opts.client().call(cmd.Context(), http.MethodGet, "/health", nil, &resp)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), raw)
			}
			printHealth(cmd.OutOrStdout(), opts.server, resp)
			return nil
		},
	}
}

func newCollectionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "collections",
		Aliases: []string{"ls"},
		Short:   "List configured collections",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp httpserver.CollectionsResponse
			raw, err := opts.client().call(cmd.Context(), http.MethodGet, "/api/v1/collections", nil, &resp)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), raw)
			}
			return printCollections(cmd.OutOrStdout(), resp.Collections)
		},
	}
}

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <kind>",
		Short: "Show the current view of a collection",
		Long: `Show a collection as it would be rendered: status, selected filter,
filter options, and the visible groups or entities.

Examples:
  dirctl show members
  dirctl show projects --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp httpserver.ViewResponse
			raw, err := opts.client().call(cmd.Context(), http.MethodGet, collectionPath(args[0]), nil, &resp)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), raw)
			}
			return printView(cmd.OutOrStdout(), resp)
		},
	}
}

func newGroupsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "groups <kind>",
		Short: "Show the visible groups of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp httpserver.GroupsResponse
			raw, err := opts.client().call(cmd.Context(), http.MethodGet, collectionPath(args[0], "groups"), nil, &resp)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), raw)
			}
			return printGroups(cmd.OutOrStdout(), resp.Groups)
		},
	}
}

func newEntitiesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "entities <kind>",
		Short: "Show the visible entities of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp httpserver.EntitiesResponse
			raw, err := opts.client().call(cmd.Context(), http.MethodGet, collectionPath(args[0], "entities"), nil, &resp)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), raw)
			}
			return printEntities(cmd.OutOrStdout(), resp.Entities)
		},
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status <kind>",
		Short: "Show the load status of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp httpserver.StatusResponse
			raw, err := opts.client().call(cmd.Context(), http.MethodGet, collectionPath(args[0], "status"), nil, &resp)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), raw)
			}
			printStatus(cmd.OutOrStdout(), resp)
			return nil
		},
	}
}

func newFilterCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "filter <kind> <category|all>",
		Short: "Select the filter of a collection",
		Long: `Select the category filter of a collection. "all" shows everything.
Selecting a filter never reloads the collection.

Examples:
  dirctl filter projects wearables
  dirctl filter members all`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := args[1]
			var resp httpserver.ViewResponse
			raw, err := opts.client().call(cmd.Context(), http.MethodPut, collectionPath(args[0], "filter"),
				httpserver.FilterRequest{Filter: &label}, &resp)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), raw)
			}
			return printView(cmd.OutOrStdout(), resp)
		},
	}
}

func newReloadCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reload <kind>",
		Short: "Fetch a collection again and reset its filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp httpserver.ViewResponse
			raw, err := opts.client().call(cmd.Context(), http.MethodPost, collectionPath(args[0], "reload"), nil, &resp)
			if err != nil {
				return err
			}
			if opts.json {
				return writeJSON(cmd.OutOrStdout(), raw)
			}
			printStatus(cmd.OutOrStdout(), resp.Status)
			return nil
		},
	}
}
