package command

import "github.com/veridie/veridie/internal/task"

// Adapter is the state machine's view of the manager: issue a command and
// await its code, or fire and forget. Routing to the UI or transport
// invoker follows the command's kind.
type Adapter struct {
	m *Manager
}

// NewAdapter wraps a manager.
func NewAdapter(m *Manager) Adapter { return Adapter{m: m} }

// Command issues c and suspends the calling task until the response code
// arrives.
func (a Adapter) Command(ctx *task.Ctx, c *Command) (Code, error) {
	return a.issue(c).Await(ctx)
}

// FireAndForget issues c without awaiting. The eventual response is
// dropped by the manager as orphaned.
func (a Adapter) FireAndForget(c *Command) {
	a.issue(c)
}

func (a Adapter) issue(c *Command) Future {
	if c.Kind().IsUI() {
		return a.m.IssueUI(c)
	}
	return a.m.IssueBT(c)
}
