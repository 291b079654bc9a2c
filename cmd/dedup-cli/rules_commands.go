package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dedupserver/dedup"
	dedupdomain "dedupserver/internal/domain/dedup"
)

func newRulesCommand(ctx *commandContext) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and extend the persisted rule set",
	}

	rulesCmd.AddCommand(newRulesListCommand(ctx))
	rulesCmd.AddCommand(newRulesLearnCommand(ctx))

	return rulesCmd
}

func newRulesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show weights, threshold and rules in append order",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := ctx.openEngine(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer eng.Close()

			set, err := eng.service.GetRuleSet(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if ctx.jsonOut {
				return writeJSON(out, set)
			}

			fmt.Fprintf(out, "Match threshold %.2f, weights family=%.2f order_free=%.2f phone=%.2f children=%.2f\n",
				set.MatchThreshold, set.Weights.Family, set.Weights.OrderFree, set.Weights.Phone, set.Weights.Children)
			if len(set.Rules) == 0 {
				fmt.Fprintln(out, "No learned rules")
				return nil
			}

			rows := make([][]string, 0, len(set.Rules))
			for _, r := range set.Rules {
				rows = append(rows, ruleRow(r))
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Name", "Clauses", "Source", "Generated"}, rows, nil))
			return nil
		},
	}
}

func newRulesLearnCommand(ctx *commandContext) *cobra.Command {
	var file, recordA, recordB, name, note string
	var fields []string
	var save bool
	var mapping mappingFlags

	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Derive a rule from two records confirmed as duplicates",
		Long: `Derive a rule from two records confirmed as duplicates.
The rule is only printed unless --save is given; saved rules are never changed or deleted.`,
		Example: `  dedup-cli rules learn --file list.xlsx --woman woman --phone phone --a R1 --b R7
  dedup-cli rules learn --file list.xlsx --woman woman --a R1 --b R7 --fields woman_first,phone --save`,
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

			pattern := dedup.ObservedPattern{Name: name, Note: note}
			for _, f := range fields {
				if f = strings.TrimSpace(f); f != "" {
					pattern.Fields = append(pattern.Fields, dedup.ScoreField(f))
				}
			}

			run, err := eng.service.StartLearn(cmd.Context(), info.ID, dedupdomain.LearnRequest{
				RecordA: recordA,
				RecordB: recordB,
				Pattern: pattern,
			})
			if err != nil {
				return err
			}

			status, err := await(cmd.Context(), run, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			rule, ok := status.Payload.(*dedup.Rule)
			if !ok {
				return fmt.Errorf("unexpected learn payload %T", status.Payload)
			}

			if save {
				if rule, err = eng.service.AppendRule(cmd.Context(), *rule); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if ctx.jsonOut {
				return writeJSON(out, rule)
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Name", "Clauses", "Source", "Generated"}, [][]string{ruleRow(*rule)}, nil))
			if save {
				fmt.Fprintln(out, "Rule saved")
			} else {
				fmt.Fprintln(out, "Rule not saved (use --save to append it)")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Beneficiary list (.xlsx or .csv)")
	cmd.Flags().StringVar(&recordA, "a", "", "First record id (e.g. R1)")
	cmd.Flags().StringVar(&recordB, "b", "", "Second record id")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "Restrict the rule to these score fields")
	cmd.Flags().StringVar(&name, "name", "", "Rule name")
	cmd.Flags().StringVar(&note, "note", "", "Free-form note stored with the rule")
	cmd.Flags().BoolVar(&save, "save", false, "Append the learned rule to the rule store")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("a")
	_ = cmd.MarkFlagRequired("b")
	addMappingFlags(cmd, &mapping)
	return cmd
}

func ruleRow(r dedup.Rule) []string {
	return []string{
		r.ID,
		r.Name,
		r.Preview(),
		r.Source.RecordA + " ~ " + r.Source.RecordB,
		r.GeneratedAt.Format(time.DateTime),
	}
}
