package main

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/02loveslollipop/snow-cannon-viewer/services/dashboard/internal/client"
	"github.com/02loveslollipop/snow-cannon-viewer/services/dashboard/internal/config"
	"github.com/02loveslollipop/snow-cannon-viewer/services/dashboard/internal/filter"
	"github.com/02loveslollipop/snow-cannon-viewer/services/dashboard/internal/mapview"
	"github.com/02loveslollipop/snow-cannon-viewer/services/dashboard/internal/state"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/cannon"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/log"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/mapstyle"
)

// dashboard carries the settings shared by every subcommand.
type dashboard struct {
	cfg    config.Config
	logger *zap.SugaredLogger
}

func newRootCmd(cfg config.Config) *cobra.Command {
	d := &dashboard{cfg: cfg, logger: log.Named("dashboard")}

	root := &cobra.Command{
		Use:           "dashboard",
		Short:         "Browse snow-cannon consumption from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&d.cfg.APIBaseURL, "api", cfg.APIBaseURL, "REST API base URL")
	root.PersistentFlags().DurationVar(&d.cfg.APITimeout, "timeout", cfg.APITimeout, "per-request timeout")

	root.AddCommand(d.listCmd(), d.showCmd(), d.statsCmd(), d.mapScriptCmd())
	return root
}

func (d *dashboard) apiClient() *client.Client {
	return client.New(d.cfg.APIBaseURL, &http.Client{Timeout: d.cfg.APITimeout})
}

// loadStore fetches the cannon list into a fresh state store.
func (d *dashboard) loadStore(ctx context.Context) (*state.Store, error) {
	store := state.New(d.apiClient())
	if err := store.LoadCannons(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

type listFlags struct {
	search       string
	types        []string
	sectors      []int
	minObjective string
	maxObjective string
}

func (f listFlags) objectiveRange() *filter.Range {
	if f.minObjective == "" && f.maxObjective == "" {
		return nil
	}
	r := filter.Range{Min: 0, Max: math.MaxFloat64}
	if f.minObjective != "" {
		r, _ = filter.NormalizeRangeInput(r, filter.MinBound, f.minObjective)
	}
	if f.maxObjective != "" {
		r, _ = filter.NormalizeRangeInput(r, filter.MaxBound, f.maxObjective)
	}
	return &r
}

func (f listFlags) cannonTypes() ([]cannon.Type, error) {
	out := make([]cannon.Type, 0, len(f.types))
	for _, raw := range f.types {
		t, ok := cannon.ParseType(raw)
		if !ok {
			return nil, fmt.Errorf("invalid cannon type %q", raw)
		}
		out = append(out, t)
	}
	return out, nil
}

func (d *dashboard) listCmd() *cobra.Command {
	var flags listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cannons with their latest reading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			types, err := flags.cannonTypes()
			if err != nil {
				return err
			}
			store, err := d.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			store.SetSearch(flags.search)
			store.SetFilters(types, flags.sectors, flags.objectiveRange())

			visible := store.Filtered()
			d.logger.Debugw("cannons filtered", "visible", len(visible), "total", store.Stats().Total)
			return renderList(cmd.OutOrStdout(), visible)
		},
	}
	cmd.Flags().StringVarP(&flags.search, "search", "s", "", "case-insensitive piste name search")
	cmd.Flags().StringSliceVarP(&flags.types, "type", "t", nil, "cannon types to keep (lance, autonome, tour)")
	cmd.Flags().IntSliceVar(&flags.sectors, "sector", nil, "sectors to keep")
	cmd.Flags().StringVar(&flags.minObjective, "min-objective", "", "lowest maximum objective, m3")
	cmd.Flags().StringVar(&flags.maxObjective, "max-objective", "", "highest maximum objective, m3")
	return cmd
}

func (d *dashboard) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one cannon card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id < 0 {
				return fmt.Errorf("invalid cannon id %q", args[0])
			}
			found, err := d.apiClient().GetCannon(cmd.Context(), id)
			if err != nil {
				return err
			}
			if found == nil {
				return fmt.Errorf("snow cannon %d not found", id)
			}
			return renderCard(cmd.OutOrStdout(), *found)
		},
	}
}

func (d *dashboard) statsCmd() *cobra.Command {
	var showOptions bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise every cannon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := d.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := renderStats(cmd.OutOrStdout(), store.Stats()); err != nil {
				return err
			}
			if showOptions {
				return renderOptions(cmd.OutOrStdout(), store.Options())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showOptions, "options", false, "also list the types and sectors present")
	return cmd
}

// mapScriptCmd prints the engine commands that draw the cannon layer, as a
// map page would issue them on load.
func (d *dashboard) mapScriptCmd() *cobra.Command {
	var selectID, focusID int
	cmd := &cobra.Command{
		Use:   "map-script",
		Short: "Print the map engine command script as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := d.loadStore(ctx)
			if err != nil {
				return err
			}
			if err := store.LoadLayer(ctx); err != nil {
				return err
			}

			view := mapview.NewDeferred(d.logger.Named("map"))
			ctrl := mapview.NewController(view, store, mapstyle.DefaultConfig(), d.logger.Named("map"))
			ctrl.Mount(store.Snapshot().Layer)

			engine := mapview.NewScriptEngine()
			view.Ready(engine)
			defer ctrl.Close()

			if selectID >= 0 {
				store.SelectCannon(selectID)
			}
			if focusID >= 0 {
				store.SelectCannon(focusID)
				target := store.Selected()
				if target == nil {
					return fmt.Errorf("snow cannon %d not found", focusID)
				}
				ctrl.Focus(*target)
			}

			return engine.WriteJSON(cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&selectID, "select", -1, "highlight this cannon id")
	cmd.Flags().IntVar(&focusID, "focus", -1, "select and ease to this cannon id")
	return cmd
}
