package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcscales/internal/logging"
	"mcscales/internal/pdfset"
	"mcscales/internal/scales"
)

var splitByRenScale string

// partitionCmd splits a set by scale choice
var partitionCmd = &cobra.Command{
	Use:   "partition <pdf>",
	Short: "Split an MCscales set into one set per scale choice",
	Long: `Obtains LHAPDF grids from an MCscales PDF set, where the replicas are
split by their scale choices. By default the replicas are split by the
factorisation scale only, giving one set per factorisation multiplier.

With --split-by-ren-scale the replicas are split by the factorisation scale
and the renormalisation scale of the given process, which must be one of the
processes declared by the set (DIS NC, DIS CC, DY, JETS or TOP).

Every destination is checked before the first set is written.`,
	Example: `  mcscales partition mcscales_v1
  mcscales partition mcscales_v1 --split-by-ren-scale TOP`,
	Args: positional(cobra.ExactArgs(1)),
	RunE: runPartition,
}

func init() {
	partitionCmd.Flags().StringVar(&splitByRenScale, "split-by-ren-scale", "",
		"Also split by the renormalisation scale of this process")
}

// plan is one set a command is about to build.
type plan struct {
	name    string
	desc    string
	indexes []int
}

func runPartition(cmd *cobra.Command, args []string) error {
	log := logging.For(logger, logging.CategoryGrouping)

	set, err := openSet(args[0])
	if err != nil {
		return err
	}

	var plans []plan
	if splitByRenScale == "" {
		log.Info("splitting by factorisation scale", zap.String("set", set.Name()))
		groups, err := scales.GroupByFac(set)
		if err != nil {
			return err
		}
		for _, g := range groups {
			plans = append(plans, plan{
				name:    scales.FacSetName(set.Name(), g.Fac),
				desc:    scales.FacDescription(set.Name(), g.Fac),
				indexes: g.Indexes,
			})
		}
	} else {
		process := splitByRenScale
		if err := checkProcess(set, process); err != nil {
			return err
		}
		log.Info("splitting by factorisation and renormalisation scale",
			zap.String("set", set.Name()), zap.String("process", process))
		groups, err := scales.GroupByFacAndRen(set, process)
		if err != nil {
			return err
		}
		for _, g := range groups {
			plans = append(plans, plan{
				name:    scales.FacRenSetName(set.Name(), g.Fac, g.Ren, process),
				desc:    scales.FacRenDescription(set.Name(), g.Fac, g.Ren, process),
				indexes: g.Indexes,
			})
		}
	}

	return buildAll(cmd, set, plans)
}

// buildAll checks that no destination exists, then builds every plan in
// order.
func buildAll(cmd *cobra.Command, set *pdfset.Set, plans []plan) error {
	log := logging.For(logger, logging.CategoryGrouping)

	b, err := newBuilder()
	if err != nil {
		return err
	}
	for _, p := range plans {
		if err := b.DestinationFree(p.name); err != nil {
			return err
		}
		log.Info("found replicas for grid", zap.String("grid", p.name), zap.Int("replicas", len(p.indexes)))
	}

	ctx := commandContext(cmd)
	for _, p := range plans {
		if _, err := b.Build(ctx, set, pdfset.Request{
			Indexes:     p.indexes,
			Name:        p.name,
			Description: &p.desc,
		}); err != nil {
			return err
		}
		log.Info("new grid created", zap.String("grid", p.name), zap.String("path", b.Destination(p.name)))
	}
	return nil
}
