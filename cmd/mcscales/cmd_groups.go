package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mcscales/cmd/mcscales/ui"
	"mcscales/internal/pdfset"
	"mcscales/internal/scales"
)

var (
	groupsRenScale     string
	groupsPrescription string
)

// groupsCmd previews what partition or theory-driven would build
var groupsCmd = &cobra.Command{
	Use:   "groups <pdf>",
	Short: "List the sets partition or theory-driven would build, without writing",
	Example: `  mcscales groups mcscales_v1
  mcscales groups mcscales_v1 --split-by-ren-scale "DIS NC"
  mcscales groups mcscales_v1 --prescription "7 point"`,
	Args: positional(cobra.ExactArgs(1)),
	RunE: runGroups,
}

func init() {
	groupsCmd.Flags().StringVar(&groupsRenScale, "split-by-ren-scale", "",
		"Group by the renormalisation scale of this process as well")
	groupsCmd.Flags().StringVar(&groupsPrescription, "prescription", "",
		"Show the replicas surviving this point prescription")
	groupsCmd.MarkFlagsMutuallyExclusive("split-by-ren-scale", "prescription")
}

func runGroups(cmd *cobra.Command, args []string) error {
	set, err := openSet(args[0])
	if err != nil {
		return err
	}

	var table *ui.Table
	switch {
	case groupsPrescription != "":
		pp, err := scales.ParsePrescription(groupsPrescription)
		if err != nil {
			return pdfset.Invalid(set.Path(), "%v", err)
		}
		banned, err := pp.Banned()
		if err != nil {
			return err
		}
		kept, err := scales.DropBannedCombinations(set, banned)
		if err != nil {
			return err
		}
		bannedText := make([]string, len(banned))
		for i, p := range banned {
			bannedText[i] = p.String()
		}
		table = ui.NewTable(fmt.Sprintf("%s under the %s prescription", set.Name(), pp),
			"Set", "Banned (kF, kR)", "Count", "Replicas")
		table.AddRow(scales.PrescriptionSetName(set.Name(), pp), strings.Join(bannedText, " "),
			strconv.Itoa(len(kept)), joinIndexes(kept))

	case groupsRenScale != "":
		if err := checkProcess(set, groupsRenScale); err != nil {
			return err
		}
		groups, err := scales.GroupByFacAndRen(set, groupsRenScale)
		if err != nil {
			return err
		}
		table = ui.NewTable(fmt.Sprintf("%s by factorisation and %s renormalisation scale", set.Name(), groupsRenScale),
			"Set", "kF", "kR", "Count", "Replicas")
		for _, g := range groups {
			table.AddRow(scales.FacRenSetName(set.Name(), g.Fac, g.Ren, groupsRenScale),
				formatScale(g.Fac), formatScale(g.Ren), strconv.Itoa(len(g.Indexes)), joinIndexes(g.Indexes))
		}

	default:
		groups, err := scales.GroupByFac(set)
		if err != nil {
			return err
		}
		table = ui.NewTable(fmt.Sprintf("%s by factorisation scale", set.Name()),
			"Set", "kF", "Count", "Replicas")
		for _, g := range groups {
			table.AddRow(scales.FacSetName(set.Name(), g.Fac),
				formatScale(g.Fac), strconv.Itoa(len(g.Indexes)), joinIndexes(g.Indexes))
		}
	}

	fmt.Fprint(cmd.OutOrStdout(), table.View(ui.DefaultStyles()))
	return nil
}

func formatScale(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func joinIndexes(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, " ")
}
