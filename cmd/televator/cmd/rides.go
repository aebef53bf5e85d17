package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/miradorstack/televator/internal/config"
	"github.com/miradorstack/televator/internal/store"
)

var (
	ridesStore string
	ridesLimit int
)

var ridesCmd = &cobra.Command{
	Use:   "rides",
	Short: "List persisted rides, newest first",
	Long:  "Reads the ride database directly. The serve process holds the file lock, so stop it first or use 'mark' against the running API.",
	RunE:  runRides,
}

func init() {
	ridesCmd.Flags().StringVar(&ridesStore, "store", "", "Ride database path (defaults to store.path from config)")
	ridesCmd.Flags().IntVarP(&ridesLimit, "limit", "n", 20, "Maximum rides to print (0 for all)")
}

func runRides(cmd *cobra.Command, args []string) error {
	path := ridesStore
	if path == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		path = cfg.Store.Path
	}
	if path == "" {
		return fmt.Errorf("no ride store configured")
	}

	rides, err := store.Open(path)
	if err != nil {
		return err
	}
	defer rides.Close()

	list, err := rides.ListRides(cmd.Context(), ridesLimit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no rides recorded")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMPLETED\tENTER\tEXIT\tESTIMATED\tFLOORS")
	for _, r := range list {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%.2fs\t%d\n",
			r.ID, r.CompletedAt.Local().Format(time.DateTime), r.Enter, r.Exit, r.EstimatedDuration, r.Floors)
	}
	return tw.Flush()
}
