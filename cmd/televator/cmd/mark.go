package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/televator/internal/api"
	"github.com/miradorstack/televator/internal/config"
)

var markAddr string

var markCmd = &cobra.Command{
	Use:       "mark enter|exit|status",
	Short:     "Send a gesture to a running televator server",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"enter", "exit", "status"},
	RunE:      runMark,
}

func init() {
	markCmd.Flags().StringVar(&markAddr, "addr", "", "gRPC address of the server (defaults to server.address from config)")
}

func runMark(cmd *cobra.Command, args []string) error {
	addr := markAddr
	if addr == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		addr = dialAddress(cfg.Server.Address)
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	client := api.NewClient(conn)

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	var resp *structpb.Struct
	switch args[0] {
	case "enter":
		resp, err = client.MarkEnter(ctx)
	case "exit":
		resp, err = client.MarkExit(ctx)
	default:
		resp, err = client.GetSnapshot(ctx)
	}
	if err != nil {
		return err
	}

	view := resp.AsMap()
	delete(view, "history")
	out, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// dialAddress turns a listen address such as ":50061" into one a client can dial.
func dialAddress(listen string) string {
	if len(listen) > 0 && listen[0] == ':' {
		return "localhost" + listen
	}
	return listen
}
