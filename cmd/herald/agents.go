package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func agentsCmd(configDir *string) *cobra.Command {
	var availableOnly bool
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List agents and their requirement status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configDir)
			if err != nil {
				return err
			}
			defer a.close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tCATEGORY\tAVAILABLE\tTIMEOUT\tMISSING")
			for _, info := range a.service.ListAgents(availableOnly) {
				missing := "-"
				if len(info.MissingRequirements) > 0 {
					missing = strings.Join(info.MissingRequirements, "; ")
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%ds\t%s\n",
					info.ID, info.Category, yesNo(info.Available), info.TimeoutSeconds, missing)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&availableOnly, "available-only", false, "Only list agents that can run")
	return cmd
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
