package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// TollReportInput is the input for the toll report workflow.
type TollReportInput struct {
	// RequestedBy records what triggered the run ("schedule" or a user id).
	RequestedBy string
}

// TollReportResult is returned to the workflow starter.
type TollReportResult struct {
	ReportID string
	Sessions int
}

// TollReportWorkflow aggregates toll totals across every session's last
// generated route, stores the report, and broadcasts it to subscribers. If
// the broadcast fails, the stored report is deleted (saga compensation) so a
// retry never leaves a report nobody was told about.
func TollReportWorkflow(ctx workflow.Context, input TollReportInput) (*TollReportResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting toll report workflow", "requestedBy", input.RequestedBy)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Collect toll totals from every session's stored route
	var agg TollAggregate
	if err := workflow.ExecuteActivity(ctx, "CollectTollTotals").Get(ctx, &agg); err != nil {
		return nil, err
	}
	if agg.Sessions == 0 {
		logger.Info("No sessions with routes, skipping report")
		return &TollReportResult{}, nil
	}

	// Step 2: Store the report
	var reportID string
	if err := workflow.ExecuteActivity(ctx, "StoreTollReport", agg).Get(ctx, &reportID); err != nil {
		return nil, err
	}

	// Step 3: Broadcast the report to realtime subscribers
	if err := workflow.ExecuteActivity(ctx, "BroadcastTollReport", reportID).Get(ctx, nil); err != nil {
		logger.Warn("broadcast failed, compensating", "error", err)
		// Compensate: delete the stored report
		_ = workflow.ExecuteActivity(ctx, "DeleteTollReport", reportID).Get(ctx, nil)
		return nil, err
	}

	logger.Info("Toll report published", "reportID", reportID, "sessions", agg.Sessions)
	return &TollReportResult{ReportID: reportID, Sessions: agg.Sessions}, nil
}
