package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/config"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/model"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/pipeline"
)

var (
	validateOriginal    string
	validateTransformed string
	validateLocked      []string
	validateOutput      string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a transformed document against its original offline",
	Long:  "Recomputes locked-field hashes on both documents and reports compliance without calling the generation backend.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("offline"); err != nil {
			return err
		}

		policy, err := config.LoadPolicy(cfg.Policy.Path)
		if err != nil {
			return err
		}

		original, err := readDocument(validateOriginal)
		if err != nil {
			return err
		}
		transformed, err := readDocument(validateTransformed)
		if err != nil {
			return err
		}

		locked := policy.LockedFields
		if len(validateLocked) > 0 {
			locked = validateLocked
		}

		report, err := pipeline.ValidateDocuments(original, transformed, policy.ContainerKey, locked)
		if err != nil {
			return err
		}

		if err := writeJSONOutput(validateOutput, report); err != nil {
			return err
		}

		if report.FinalStatus != model.StatusOK {
			zap.L().Warn("validation failed",
				zap.Bool("locked_fields_compliance", report.LockedFieldsCompliance),
				zap.Int("changed_paths", len(report.ChangedPaths)))
			return eris.New("validation failed: locked fields were modified")
		}

		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateOriginal, "original", "i", "", "Path to the original document (JSON)")
	validateCmd.Flags().StringVarP(&validateTransformed, "transformed", "t", "", "Path to the transformed document (JSON)")
	validateCmd.Flags().StringSliceVar(&validateLocked, "locked", nil, "Locked fields overriding the policy file")
	validateCmd.Flags().StringVarP(&validateOutput, "output", "o", "", "Report output path (default stdout)")
	_ = validateCmd.MarkFlagRequired("original")
	_ = validateCmd.MarkFlagRequired("transformed")
	rootCmd.AddCommand(validateCmd)
}
