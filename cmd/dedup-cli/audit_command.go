package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	dedupdomain "dedupserver/internal/domain/dedup"
	"dedupserver/quality"
)

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var file string
	var mapping mappingFlags

	cmd := &cobra.Command{
		Use:     "audit",
		Short:   "Report identity conflicts in a beneficiary list",
		Example: `  dedup-cli audit --file list.xlsx --woman woman --husband husband --id national_id --village village`,
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

			run, err := eng.service.StartAudit(cmd.Context(), info.ID)
			if err != nil {
				return err
			}

			status, err := await(cmd.Context(), run, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			result, ok := status.Payload.(*dedupdomain.AuditResult)
			if !ok {
				return fmt.Errorf("unexpected audit payload %T", status.Payload)
			}

			out := cmd.OutOrStdout()
			if ctx.jsonOut {
				return writeJSON(out, result)
			}
			if len(result.Findings) == 0 {
				fmt.Fprintf(out, "No findings among %d records\n", info.RecordCount)
				return nil
			}

			rows := make([][]string, 0, len(result.Findings))
			for _, f := range result.Findings {
				rows = append(rows, []string{
					string(f.Type),
					string(f.Severity),
					f.Key,
					strings.Join(f.RecordIDs(), ", "),
					f.Description,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Type", "Severity", "Key", "Records", "Description"}, rows, nil))
			fmt.Fprintln(out, formatAuditSummary(result.Summary))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Beneficiary list (.xlsx or .csv)")
	_ = cmd.MarkFlagRequired("file")
	addMappingFlags(cmd, &mapping)
	return cmd
}

func formatAuditSummary(summary quality.AuditSummary) string {
	types := make([]string, 0, len(summary.ByType))
	for t, n := range summary.ByType {
		types = append(types, fmt.Sprintf("%s=%d", t, n))
	}
	sort.Strings(types)
	return fmt.Sprintf("%d findings: %s", summary.Total, strings.Join(types, ", "))
}
