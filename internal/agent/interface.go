package agent

import "context"

// Agent is a background job run by the Scheduler.
type Agent interface {
	// GetName identifies the agent in logs and RunAgentByName.
	GetName() string

	// GetSchedule returns a cron expression such as "@every 10m" or "0 7,19 * * *".
	// An empty schedule registers the agent for on-demand runs only.
	GetSchedule() string

	Execute(ctx context.Context) error
}
