package main

import (
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/pipeline"
)

var (
	transformInput    string
	transformScenario string
	transformOutput   string
	transformLocked   []string
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Re-contextualize a document to a selected scenario",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		env, err := initTransformEnv(st)
		if err != nil {
			return err
		}

		doc, err := readDocument(transformInput)
		if err != nil {
			return err
		}

		req := model.TransformRequest{
			InputJSON:        doc,
			SelectedScenario: model.ParseSelector(transformScenario),
			LockedFields:     transformLocked,
		}

		state := env.ctrl.Run(ctx, req, nil)
		resp := pipeline.Response(state)

		if err := writeJSONOutput(transformOutput, resp); err != nil {
			return err
		}

		usage := env.gen.Stats()
		zap.L().Info("transform finished",
			zap.String("status", string(resp.ValidationReport.FinalStatus)),
			zap.Float64("score", resp.ValidationReport.ScenarioConsistencyScore),
			zap.Int("retries", resp.ValidationReport.Retries),
			zap.Int64("input_tokens", usage.InputTokens),
			zap.Int64("output_tokens", usage.OutputTokens),
			zap.Int64("execution_time_ms", resp.ExecutionTimeMS))

		if resp.ValidationReport.FinalStatus != model.StatusOK {
			return eris.Errorf("transformation failed: %s", failureSummary(state))
		}

		return nil
	},
}

// failureSummary joins the structured pipeline errors into one line for the
// command's exit message.
func failureSummary(state *model.WorkflowState) string {
	if len(state.ValidationErrors) == 0 {
		return "consistency score below threshold"
	}
	msgs := make([]string, 0, len(state.ValidationErrors))
	for _, ve := range state.ValidationErrors {
		msgs = append(msgs, ve.Error)
	}
	return strings.Join(msgs, "; ")
}

func init() {
	transformCmd.Flags().StringVarP(&transformInput, "input", "i", "", "Path to the input document (JSON)")
	transformCmd.Flags().StringVarP(&transformScenario, "scenario", "s", "", "Target scenario: option index or free text")
	transformCmd.Flags().StringVarP(&transformOutput, "output", "o", "", "Output path (default stdout)")
	transformCmd.Flags().StringSliceVar(&transformLocked, "locked", nil, "Locked fields overriding the policy file")
	_ = transformCmd.MarkFlagRequired("input")
	_ = transformCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(transformCmd)
}
