package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/algomatic/strategy-manager/internal/server"
	"github.com/algomatic/strategy-manager/pkg/types"
)

func newExecCmd() *cobra.Command {
	var (
		addr    string
		caller  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "exec <group> <asset> <amount>",
		Short: "Execute a strategy group on a running server",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, ok := types.ParseAmount(args[2])
			if !ok {
				return fmt.Errorf("invalid amount %q", args[2])
			}

			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("connecting to %s: %w", addr, err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			out, err := server.NewClient(conn).Execute(ctx, caller, args[0], args[1], amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ExecuteStrategy group=%q amount=%s vault=%s\n",
				out.Fields["group_name"].GetStringValue(),
				out.Fields["amount"].GetStringValue(),
				out.Fields["vault"].GetStringValue(),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:50061", "gRPC address of the server")
	cmd.Flags().StringVar(&caller, "caller", "", "address the amount is pulled from")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	_ = cmd.MarkFlagRequired("caller")
	return cmd
}
