package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/algomatic/strategy-manager/internal/directory"
	"github.com/algomatic/strategy-manager/internal/service"
	"github.com/algomatic/strategy-manager/pkg/manager"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <manifest.toml>",
		Short: "Apply a manifest to an in-memory manager and print the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			dir := directory.New()
			svc := service.New(manager.New(logger), dir, logger)
			if err := bootstrap(cmd.Context(), args[0], dir, svc, logger); err != nil {
				return err
			}
			return printRegistry(cmd.OutOrStdout(), svc)
		},
	}
}

func printRegistry(w io.Writer, svc *service.Service) error {
	farms, harvests, collectors, groups := svc.Names()

	var b strings.Builder
	fmt.Fprintln(&b, "Farm strategies:")
	for _, n := range farms {
		addr, _ := svc.FarmStrategy(n)
		fmt.Fprintf(&b, "  %s\t%s\n", n, addr)
	}
	fmt.Fprintln(&b, "Harvest strategies:")
	for _, n := range harvests {
		addr, _ := svc.HarvestStrategy(n)
		fmt.Fprintf(&b, "  %s\t%s\n", n, addr)
	}
	fmt.Fprintln(&b, "Collectors:")
	for _, n := range collectors {
		addr, _ := svc.Collector(n)
		fmt.Fprintf(&b, "  %s\t%s\n", n, addr)
	}
	fmt.Fprintln(&b, "Strategy groups:")
	for _, n := range groups {
		g := svc.StrategiesGroup(n)
		farms := make([]string, 0, len(g.FarmStrategies))
		for _, a := range g.FarmStrategyAddresses() {
			farms = append(farms, a.String())
		}
		fmt.Fprintf(&b, "  %s\tfarms=[%s] harvest=%s collector=%s vault=%s\n",
			n, strings.Join(farms, ","), g.HarvestStrategy.Address(), g.Collector.Address(), g.Vault)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
