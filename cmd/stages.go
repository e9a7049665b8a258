package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/funnel-cli/internal/funnel"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List deal pipeline stages and detected customer stages",
	Long: `Fetches the deal stage catalog and prints it as YAML, together with
the stages whose labels look like customer/won stages.

Detection is a heuristic over stage labels. Review the detected list, then
pass the confirmed ids to fetch via --stages.`,
	RunE: runStages,
}

func init() {
	rootCmd.AddCommand(stagesCmd)
}

// stagesOutput is the YAML checklist printed for human confirmation.
type stagesOutput struct {
	Stages   []funnel.StageInfo `yaml:"stages"`
	Detected []funnel.StageInfo `yaml:"detected_customer_stages"`
}

func runStages(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		return err
	}

	svc, err := newFunnelService()
	if err != nil {
		return err
	}

	catalog := svc.FetchStageCatalog(ctx)
	detected := funnel.DetectCustomerStages(catalog)

	zap.L().Info("stage catalog fetched",
		zap.Int("stages", catalog.Len()),
		zap.Int("detected", len(detected)),
	)

	out := stagesOutput{
		Stages:   catalog.Stages(),
		Detected: detected,
	}
	return yaml.NewEncoder(os.Stdout).Encode(out)
}
