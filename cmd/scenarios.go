package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/config"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/pipeline"
)

var (
	scenariosInput string
	scenariosJSON  bool
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List the scenario options in a document",
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := config.LoadPolicy(cfg.Policy.Path)
		if err != nil {
			return err
		}

		doc, err := readDocument(scenariosInput)
		if err != nil {
			return err
		}

		list, err := pipeline.Scenarios(doc, policy.ContainerKey)
		if err != nil {
			return err
		}

		if scenariosJSON {
			return writeJSONOutput("", list)
		}

		formatScenarioList(os.Stdout, list)
		return nil
	},
}

// formatScenarioList prints the numbered options, marking the one the
// document currently uses.
func formatScenarioList(w io.Writer, list *model.ScenarioList) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCURRENT\tSCENARIO")
	for i, s := range list.Scenarios {
		marker := ""
		if s == list.CurrentScenario {
			marker = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i, marker, s)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d options\n", list.Total)
}

func init() {
	scenariosCmd.Flags().StringVarP(&scenariosInput, "input", "i", "", "Path to the input document (JSON)")
	scenariosCmd.Flags().BoolVar(&scenariosJSON, "json", false, "Emit JSON instead of a table")
	_ = scenariosCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(scenariosCmd)
}
