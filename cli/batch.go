package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"go.viam.com/latticeplanner/config"
	"go.viam.com/latticeplanner/logging"
	"go.viam.com/latticeplanner/motionplan/xytheta"
)

const histogramBins = 10

// BatchAction replays every context dump given and prints a summary of the searches.
func BatchAction(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return errors.New("expected at least one context file")
	}
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	space, err := cfg.ActionSpace()
	if err != nil {
		return err
	}

	results, err := runBatch(c.Context, cfg, space, c.Args().Slice(), c.Int(flagParallel),
		uint32(c.Uint(flagMaxExpansions)), logger)
	if err != nil {
		return err
	}

	w := c.App.Writer
	failed := 0
	t := table.NewWriter()
	t.AppendHeader(table.Row{"File", "Goal", "Cost", "Actions", "Expansions", "Time", "Error"})
	for _, result := range results {
		if result.Err != "" {
			failed++
			t.AppendRow(table.Row{result.File, "", "", "", result.Expansions, result.Duration, result.Err})
			continue
		}
		t.AppendRow(table.Row{
			result.File,
			result.GoalID,
			fmt.Sprintf("%.4f", result.Cost),
			result.Plan.Size(),
			result.Expansions,
			result.Duration,
			"",
		})
	}
	printf(w, "%s", t.Render())
	summarize(w, results)
	if failed > 0 {
		return errors.Errorf("%d of %d searches failed", failed, len(results))
	}
	return nil
}

// runBatch replays the files with at most `parallel` searches at once. A failed search is recorded
// in its result; only cancellation and unreadable files stop the batch.
func runBatch(
	ctx context.Context,
	cfg *config.Config,
	space *xytheta.ActionSpace,
	files []string,
	parallel int,
	maxExpansions uint32,
	logger logging.Logger,
) ([]*planResult, error) {
	results := make([]*planResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, file := range files {
		g.Go(func() error {
			result, err := replayContext(gctx, cfg, space, file, maxExpansions, logger.Sublogger(file))
			if result == nil {
				return err
			}
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// summarize prints timing and expansion statistics of the successful searches.
func summarize(w io.Writer, results []*planResult) {
	var millis, expansions []float64
	for _, result := range results {
		if result.Err != "" {
			continue
		}
		millis = append(millis, float64(result.Duration.Microseconds())/1000)
		expansions = append(expansions, float64(result.Expansions))
	}
	printf(w, "%d of %d searches found a plan", len(millis), len(results))
	if len(millis) == 0 {
		return
	}

	sort.Float64s(millis)
	sort.Float64s(expansions)
	meanMS, stdMS := stat.MeanStdDev(millis, nil)
	meanExp, stdExp := stat.MeanStdDev(expansions, nil)
	printf(w, "time ms: mean %.2f std %.2f median %.2f max %.2f",
		meanMS, stdMS, stat.Quantile(0.5, stat.Empirical, millis, nil), millis[len(millis)-1])
	printf(w, "expansions: mean %.1f std %.1f median %.0f max %.0f",
		meanExp, stdExp, stat.Quantile(0.5, stat.Empirical, expansions, nil), expansions[len(expansions)-1])

	if millis[0] < millis[len(millis)-1] {
		printf(w, "time ms histogram:")
		if err := histogram.Fprint(w, histogram.Hist(histogramBins, millis), histogram.Linear(40)); err != nil {
			warningf(w, "could not print histogram: %v", err)
		}
	}
}
