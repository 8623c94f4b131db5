package ctrl

import (
	"fmt"

	"github.com/veridie/veridie/internal/command"
	"github.com/veridie/veridie/internal/platform/logging"
	"github.com/veridie/veridie/internal/task"
)

const echoTag = "EchoController"

// echoController is a trivial controller used to smoke-test the host
// bridge: every inbound event is echoed back out as a UI notification and
// the response is verified to be OK.
type echoController struct {
	exec    task.Executor
	manager *command.Manager
}

// NewEcho creates the echo controller.
func NewEcho(exec task.Executor) Controller {
	return &echoController{exec: exec}
}

func (c *echoController) Start(ui, bt command.Invoker) {
	if c.manager != nil {
		return
	}
	c.manager = command.NewManager(ui, bt)
}

func (c *echoController) OnEvent(id int32, args []string) {
	logging.Debugf(echoTag, "Received event id=%d args=%v", id, args)
	if c.manager == nil {
		logging.Errorf(echoTag, "OnEvent: not started")
		return
	}
	future := c.manager.IssueUI(command.NewShowNotification(
		fmt.Sprintf("event %d %v", id, args)))
	t := task.Void(func(tc *task.Ctx) error {
		code, err := future.Await(tc)
		if err != nil {
			return err
		}
		if code != command.OK {
			return fmt.Errorf("echo round-trip for event %d: %v", id, code)
		}
		return nil
	})
	t.Run(c.exec, nil)
}

func (c *echoController) OnCommandResponse(id int32, code command.Code) {
	if c.manager == nil {
		logging.Errorf(echoTag, "OnCommandResponse: not started")
		return
	}
	logging.Debugf(echoTag, "Received response id=%d code=%v", id, code)
	c.manager.SubmitResponse(id, code)
}

func (c *echoController) Close() {
	if c.manager != nil {
		c.manager.Close()
	}
}
