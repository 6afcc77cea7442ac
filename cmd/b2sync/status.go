package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/store"
)

func newStatusCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent jobs, runs, and per-entity sync state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return printStatus(cmd.Context(), cmd.OutOrStdout(), a.store, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "How many recent rows to show per section")

	return cmd
}

func printStatus(ctx context.Context, out io.Writer, st *store.Store, limit int) error {
	jobs, err := st.ListJobs(ctx, limit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	extracts, err := st.ListExtractLogs(ctx, limit)
	if err != nil {
		return fmt.Errorf("list extract logs: %w", err)
	}
	transforms, err := st.ListTransformLogs(ctx, limit)
	if err != nil {
		return fmt.Errorf("list transform logs: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)

	fmt.Fprintln(w, "JOBS")
	fmt.Fprintln(w, "ID\tTYPE\tENTITY\tSTATUS\tSCHEDULED\tCOMPLETED\tERROR")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			j.ID, j.JobType, j.EntityType, j.Status,
			j.ScheduledAt.Format(time.RFC3339),
			fmtTimePtr(j.CompletedAt),
			fmtStrPtr(j.ErrorMessage))
	}
	if len(jobs) == 0 {
		fmt.Fprintln(w, "(none)")
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "EXTRACT RUNS")
	fmt.Fprintln(w, "SYNC_ID\tENTITY\tSTATUS\tSTARTED\tFETCHED\tAPI_CALLS\tERROR")
	for _, l := range extracts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			l.SyncID, l.EntityType, l.Status,
			l.StartedAt.Format(time.RFC3339),
			l.Counters.Fetched, l.APICallCount,
			fmtStrPtr(l.ErrorMessage))
	}
	if len(extracts) == 0 {
		fmt.Fprintln(w, "(none)")
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "TRANSFORM RUNS")
	fmt.Fprintln(w, "TRANSFORM_ID\tENTITY\tSTATUS\tSTARTED\tPROCESSED\tCREATED\tUPDATED\tFAILED\tERROR")
	for _, l := range transforms {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			l.TransformID, l.EntityType, l.Status,
			l.StartedAt.Format(time.RFC3339),
			l.Counters.Processed, l.Counters.Created, l.Counters.Updated, l.Counters.Failed,
			fmtStrPtr(l.ErrorMessage))
	}
	if len(transforms) == 0 {
		fmt.Fprintln(w, "(none)")
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "SYNC STATE")
	fmt.Fprintln(w, "ENTITY\tLAST_SYNC\tSTATUS")
	for _, entity := range []models.EntityType{models.EntityContacts, models.EntityChats} {
		state, err := st.GetSyncState(ctx, entity)
		switch {
		case errors.Is(err, store.ErrNotFound):
			fmt.Fprintf(w, "%s\tnever\t-\n", entity)
		case err != nil:
			return fmt.Errorf("get sync state for %s: %w", entity, err)
		default:
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				entity, fmtTimePtr(state.LastSyncTimestamp), state.SyncStatus)
		}
	}

	return w.Flush()
}

func fmtTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func fmtStrPtr(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
