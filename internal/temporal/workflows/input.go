package workflows

// BackupWorkflowInput is sent by the schedule (or a manual start) when
// triggering a backup run. The run itself is described by the worker config.
type BackupWorkflowInput struct {
	// Reason is logged and kept in workflow history, e.g. "schedule" or "manual".
	Reason string `json:"reason,omitempty"`
}
