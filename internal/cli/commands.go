package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/evaluation"
	"github.com/Redshadow31/tenf-v2-sub004/internal/domain/member"
	"github.com/Redshadow31/tenf-v2-sub004/pkg/engagement"
	"github.com/spf13/cobra"
)

// maxExportBytes bounds an export read from stdin or a file.
const maxExportBytes = 4 << 20

func (r *runner) importCommand() *cobra.Command {
	var (
		kind   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "import [month] [export-file]",
		Short: "Import a chat activity export into section B",
		Long: `Import a chat activity export into section B of the month.
Use - as the file to read the export from stdin.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := evaluation.ParseMonthKey(args[0])
			if err != nil {
				return err
			}
			var raw []byte
			if args[1] == "-" {
				raw, err = io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxExportBytes))
			} else {
				raw, err = os.ReadFile(args[1])
			}
			if err != nil {
				return fmt.Errorf("read export: %w", err)
			}

			ctx := r.context(cmd)
			app, err := r.app(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			counter := engagement.CounterKind(kind)
			if dryRun {
				res, err := app.Engagement.Preview(ctx, month, counter, string(raw))
				if err != nil {
					return err
				}
				return r.print(res)
			}
			res, err := app.Engagement.Import(ctx, month, counter, string(raw))
			if err != nil {
				return err
			}
			return r.print(res)
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", string(engagement.KindMessages), "counter kind: messages or voice")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report the match without writing")
	return cmd
}

func (r *runner) duplicatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicates",
		Short: "List member groups sharing a display name, login, chat handle or chat ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := r.context(cmd)
			app, err := r.app(ctx)
			if err != nil {
				return err
			}
			defer app.Close()
			groups, err := app.Duplicates.Detect(ctx)
			if err != nil {
				return err
			}
			return r.print(groups)
		},
	}
}

func (r *runner) mergeCommand() *cobra.Command {
	var (
		into    string
		selects []string
	)
	cmd := &cobra.Command{
		Use:   "merge [login] [login...]",
		Short: "Merge duplicate members into one",
		Long: `Merge duplicate members into the login given by --into.
Each --select field=login keeps that member's value for the field.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			selections, err := parseSelections(selects)
			if err != nil {
				return err
			}
			ctx := r.context(cmd)
			app, err := r.app(ctx)
			if err != nil {
				return err
			}
			defer app.Close()
			res, err := app.Duplicates.Merge(ctx, member.MergeInput{Logins: args, MergedLogin: into, Selections: selections})
			if err != nil {
				return err
			}
			return r.print(res)
		},
	}
	cmd.Flags().StringVar(&into, "into", "", "login that survives the merge")
	cmd.Flags().StringArrayVar(&selects, "select", nil, "field=login selection, repeatable")
	return cmd
}

func parseSelections(raw []string) (map[member.Field]string, error) {
	out := make(map[member.Field]string, len(raw))
	for _, item := range raw {
		field, login, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(login) == "" {
			return nil, fmt.Errorf("invalid selection %q, want field=login", item)
		}
		f := member.Field(strings.TrimSpace(field))
		if !member.ValidField(f) {
			return nil, fmt.Errorf("unknown merge field %q", field)
		}
		out[f] = strings.TrimSpace(login)
	}
	return out, nil
}

func (r *runner) reconcileCommand(check bool) *cobra.Command {
	use, short := "reconcile [month...]", "Copy legacy months into the evaluation store"
	if check {
		use, short = "check [month...]", "Report what reconcile would copy without writing"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			months := make([]evaluation.MonthKey, 0, len(args))
			for _, arg := range args {
				m, err := evaluation.ParseMonthKey(arg)
				if err != nil {
					return err
				}
				months = append(months, m)
			}
			ctx := r.context(cmd)
			app, err := r.app(ctx)
			if err != nil {
				return err
			}
			defer app.Close()
			if check {
				report, err := app.Reconciliation.Check(ctx, months...)
				if err != nil {
					return err
				}
				return r.print(report)
			}
			report, err := app.Reconciliation.Reconcile(ctx, months...)
			if err != nil {
				return err
			}
			return r.print(report)
		},
	}
}

func (r *runner) scoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "score [messages] [voice-minutes]",
		Short: "Rate raw activity counters with the configured tier tables",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			messages, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("messages: %w", err)
			}
			voice, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("voice minutes: %w", err)
			}
			ctx := r.context(cmd)
			app, err := r.app(ctx)
			if err != nil {
				return err
			}
			defer app.Close()
			return r.print(app.Scoring.Calculator().Rate(messages, voice))
		},
	}
}
