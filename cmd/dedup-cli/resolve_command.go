package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	dedupdomain "dedupserver/internal/domain/dedup"
	"dedupserver/normalization"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var file, blocking string
	var mapping mappingFlags

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Group duplicate beneficiaries into clusters",
		Example: `  dedup-cli resolve --file list.xlsx --woman "اسم المرأة" --husband "اسم الزوج" --phone "الهاتف"
  dedup-cli resolve --file list.csv --woman name --village village --blocking village`,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := ctx.openEngine(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer eng.Close()

			info, err := eng.loadSession(cmd.Context(), file, mapping.mapping())
			if err != nil {
				return err
			}

			run, err := eng.service.StartCluster(cmd.Context(), info.ID, dedupdomain.ClusterRequest{
				BlockingField: normalization.MappingField(blocking),
			})
			if err != nil {
				return err
			}

			status, err := await(cmd.Context(), run, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			result, ok := status.Payload.(*dedupdomain.ClusterResult)
			if !ok {
				return fmt.Errorf("unexpected cluster payload %T", status.Payload)
			}

			out := cmd.OutOrStdout()
			if ctx.jsonOut {
				return writeJSON(out, result)
			}
			if len(result.Clusters) == 0 {
				fmt.Fprintf(out, "No duplicates among %d records\n", info.RecordCount)
				return nil
			}

			rows := make([][]string, 0, len(result.Clusters))
			for i, cl := range result.Clusters {
				rows = append(rows, []string{
					fmt.Sprintf("%d", i+1),
					string(cl.Decision),
					fmt.Sprintf("%.3f", cl.Confidence),
					strings.Join(cl.MemberIDs(), ", "),
					strings.Join(cl.Reasons, "; "),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Decision", "Confidence", "Records", "Reasons"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight},
			))

			fmt.Fprintf(out, "%d clusters, %d of %d records\n",
				result.Summary.TotalClusters, result.Summary.RecordsInClusters, info.RecordCount)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Beneficiary list (.xlsx or .csv)")
	cmd.Flags().StringVar(&blocking, "blocking", "", "Mapping field to block candidate pairs by (e.g. village)")
	_ = cmd.MarkFlagRequired("file")
	addMappingFlags(cmd, &mapping)
	return cmd
}
