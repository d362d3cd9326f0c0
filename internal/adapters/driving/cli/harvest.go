package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driving"
)

var (
	harvestAll      bool
	harvestSingleID string
	harvestRange    string
	publishAP       string
	unpublishAP     string
	skipProcessing  bool
	syncPolicy      string
)

var harvestCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a harvest against the registry",
	Long: `Runs a harvest using the configured source, filters and processors.

Exactly one selector is required: --all harvests the full source listing,
--single-id harvests one record, --range harvests an inclusive window of
the listing. With --sync, a full harvest is followed by a sweep that finds
published objects the source no longer lists.`,
	RunE: runHarvest,
}

func init() {
	harvestCmd.Flags().BoolVar(&harvestAll, "all", false, "harvest every record the source lists")
	harvestCmd.Flags().StringVar(&harvestSingleID, "single-id", "", "harvest one record by its source reference")
	harvestCmd.Flags().StringVar(&harvestRange, "range", "", "harvest records START-END (inclusive) of the source listing")
	harvestCmd.Flags().StringVar(&publishAP, "publish", "", "force-publish every touched object on this accesspoint")
	harvestCmd.Flags().StringVar(&unpublishAP, "unpublish", "", "force-unpublish every touched object from this accesspoint")
	harvestCmd.Flags().BoolVar(&skipProcessing, "skip-processing", false, "resolve and (un)publish objects without writing metadata or files")
	harvestCmd.Flags().StringVar(&syncPolicy, "sync", "", "after --all, apply a policy to stale objects: dump=FILE, unpublish=ACCESSPOINT")

	rootCmd.AddCommand(harvestCmd)
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	selectors := 0
	for _, set := range []bool{harvestAll, harvestSingleID != "", harvestRange != ""} {
		if set {
			selectors++
		}
	}
	if selectors != 1 {
		return fmt.Errorf("%w: exactly one of --all, --single-id or --range is required", domain.ErrInvalidInput)
	}
	if publishAP != "" && unpublishAP != "" {
		return fmt.Errorf("%w: --publish and --unpublish are mutually exclusive", domain.ErrInvalidInput)
	}
	if syncPolicy != "" && !harvestAll {
		return fmt.Errorf("%w: --sync requires --all", domain.ErrInvalidInput)
	}

	application, err := buildApp(configPath)
	if err != nil {
		return err
	}

	opts := driving.HarvestOptions{
		SkipProcessing:         skipProcessing,
		PublishAccessPointID:   publishAP,
		UnpublishAccessPointID: unpublishAP,
	}

	ctx := context.Background()
	var result *driving.HarvestResult

	switch {
	case harvestAll:
		result, err = application.harvester.HarvestAll(ctx, opts)
	case harvestSingleID != "":
		result, err = application.harvester.HarvestSingle(ctx, harvestSingleID, opts)
	default:
		var start, count int
		start, count, err = parseRange(harvestRange)
		if err != nil {
			return err
		}
		result, err = application.harvester.HarvestRange(ctx, start, count, opts)
	}
	if err != nil {
		return err
	}

	if syncPolicy != "" {
		sweepOpts, err := parseSyncPolicy(syncPolicy, application.config.Sweep.AccessPoint)
		if err != nil {
			return err
		}
		sweep, err := application.sweeper.Sweep(ctx, result.TouchedIDs, sweepOpts)
		if err != nil {
			return err
		}
		cmd.Printf("Sweep: %d published objects, %d stale, %d unpublished\n",
			sweep.Listed, len(sweep.Stale), sweep.Unpublished)
	}

	cmd.Printf("Harvested %d records, %d succeeded, %d failed\n",
		result.Attempted, result.Succeeded(), len(result.Failures))
	if len(result.Failures) > 0 {
		return fmt.Errorf("%w: %d of %d records failed", domain.ErrServiceFailure, len(result.Failures), result.Attempted)
	}
	return nil
}

// parseRange parses START-END into a start index and a count, both ends
// inclusive.
func parseRange(value string) (start, count int, err error) {
	parts := strings.SplitN(value, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: range must be START-END, got %q", domain.ErrInvalidInput, value)
	}
	start, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: range start %q is not a number", domain.ErrInvalidInput, parts[0])
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: range end %q is not a number", domain.ErrInvalidInput, parts[1])
	}
	if start < 0 || end < start {
		return 0, 0, fmt.Errorf("%w: range %q is empty or negative", domain.ErrInvalidInput, value)
	}
	return start, end - start + 1, nil
}

// parseSyncPolicy parses the --sync flag value.
func parseSyncPolicy(value, defaultAccessPoint string) (driving.SweepOptions, error) {
	policy, arg, _ := strings.Cut(value, "=")
	switch driving.SweepPolicy(policy) {
	case driving.SweepDump:
		if arg == "" {
			return driving.SweepOptions{}, fmt.Errorf("%w: --sync=dump needs an output file", domain.ErrInvalidInput)
		}
		return driving.SweepOptions{
			Policy:        driving.SweepDump,
			DumpPath:      arg,
			AccessPointID: defaultAccessPoint,
		}, nil
	case driving.SweepUnpublish:
		if arg == "" {
			arg = defaultAccessPoint
		}
		return driving.SweepOptions{
			Policy:        driving.SweepUnpublish,
			AccessPointID: arg,
		}, nil
	case driving.SweepDelete:
		return driving.SweepOptions{Policy: driving.SweepDelete, AccessPointID: defaultAccessPoint}, nil
	default:
		return driving.SweepOptions{}, fmt.Errorf("%w: unknown sync policy %q", domain.ErrInvalidInput, policy)
	}
}
