package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcscales/internal/logging"
	"mcscales/internal/pdfset"
	"mcscales/internal/scales"
)

// theoryDrivenCmd filters a set by a point prescription
var theoryDrivenCmd = &cobra.Command{
	Use:   "theory-driven <pdf> <prescription>",
	Short: "Keep only the replicas allowed by a point prescription",
	Long: fmt.Sprintf(`Obtains an LHAPDF grid from an MCscales PDF set, keeping only the replicas
whose scale combinations are allowed by a point prescription. With '7 point',
for example, every replica where one scale multiplier is 2 and another is 0.5
is discarded.

Prescriptions: %s.

The name of the new set is printed on stdout.`, prescriptionList()),
	Example: `  mcscales theory-driven /path/to/mcscales_v1 '3 point'`,
	Args:    positional(cobra.ExactArgs(2)),
	RunE:    runTheoryDriven,
}

func prescriptionList() string {
	var names []string
	for _, p := range scales.Prescriptions() {
		names = append(names, "'"+string(p)+"'")
	}
	return strings.Join(names, ", ")
}

func runTheoryDriven(cmd *cobra.Command, args []string) error {
	log := logging.For(logger, logging.CategoryGrouping)

	pp, err := scales.ParsePrescription(args[1])
	if err != nil {
		return pdfset.Invalid(args[0], "%v", err)
	}

	set, err := openSet(args[0])
	if err != nil {
		return err
	}
	b, err := newBuilder()
	if err != nil {
		return err
	}
	name := scales.PrescriptionSetName(set.Name(), pp)
	if err := b.DestinationFree(name); err != nil {
		return err
	}

	log.Info("finding compatible replicas", zap.String("set", set.Name()), zap.String("prescription", string(pp)))
	banned, err := pp.Banned()
	if err != nil {
		return err
	}
	indexes, err := scales.DropBannedCombinations(set, banned)
	if err != nil {
		return err
	}
	if len(indexes) == 0 {
		return pdfset.Invalid(set.Path(), "No replicas satisfy the constraint")
	}
	log.Info("found replicas satisfying the condition", zap.Int("replicas", len(indexes)))

	desc := scales.PrescriptionDescription(set.Name(), pp)
	if _, err := b.Build(commandContext(cmd), set, pdfset.Request{
		Indexes:     indexes,
		Name:        name,
		Description: &desc,
	}); err != nil {
		return err
	}
	log.Info("new grid created", zap.String("grid", name), zap.String("path", b.Destination(name)))
	fmt.Fprintln(cmd.OutOrStdout(), name)
	return nil
}
