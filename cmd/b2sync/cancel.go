package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/models"
	"github.com/PedroPJaramillo/b2chat-analytics-sub000/pkg/store"
)

func newCancelCommand() *cobra.Command {
	var jobID string

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Request cancellation of a queued or running job",
		Long: `Flags a sync job for cancellation. A job still pending is cancelled
immediately; a running job keeps its worker until the next heartbeat
observes the flag and winds the run down cooperatively.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			job, err := a.store.RequestJobCancel(cmd.Context(), jobID)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("job %s not found", jobID)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch job.Status {
			case models.JobStatusCancelled:
				fmt.Fprintf(out, "job %s cancelled\n", job.ID)
			case models.JobStatusCancelling:
				fmt.Fprintf(out, "job %s is running, cancellation requested\n", job.ID)
			default:
				fmt.Fprintf(out, "job %s already %s\n", job.ID, job.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job", "", "Job id to cancel")
	_ = cmd.MarkFlagRequired("job")

	return cmd
}
