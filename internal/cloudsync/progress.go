package cloudsync

import "context"

// Progress is the optional external collaborator the orchestrator reports
// stage transitions to while a sync cycle runs, so an embedding UI shell
// can show live status. A nil Progress is valid: SyncNow works the same
// with or without a listener.
type Progress interface {
	Report(ctx context.Context, stage, detail string, current, total int)
}

func (o *Orchestrator) report(ctx context.Context, stage, detail string) {
	if o.progress == nil {
		return
	}
	o.progress.Report(ctx, stage, detail, 0, 0)
}
