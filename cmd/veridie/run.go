package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/veridie/veridie/internal/command"
	"github.com/veridie/veridie/internal/ctrl"
	"github.com/veridie/veridie/internal/dice"
	"github.com/veridie/veridie/internal/fsm"
	"github.com/veridie/veridie/internal/journal"
	"github.com/veridie/veridie/internal/platform/config"
	"github.com/veridie/veridie/internal/platform/logging"
	"github.com/veridie/veridie/internal/task"
	"github.com/veridie/veridie/internal/timer"
	"github.com/veridie/veridie/internal/wire"
)

var runEcho bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scripted smoke game against a simulated peer",
	Long: `Run drives the controller through a complete lifecycle on a
single-threaded loop: enable the radio, admit a simulated peer,
negotiate a generator, roll once, and stop. With --echo the full
controller is replaced by the echo bridge smoke test.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runEcho, "echo", false, "run the event/command echo bridge instead of the game")
	rootCmd.AddCommand(runCmd)
}

// printingUI answers every UI command with OK after printing it.
type printingUI struct {
	loop *task.Loop
	c    func() ctrl.Controller
}

func (u *printingUI) Invoke(c *command.Command, id int32) bool {
	fmt.Printf("[ui] %s %v\n", c.Name(), c.Args())
	ctl := u.c()
	u.loop.Execute(func() {
		ctl.OnCommandResponse(id, command.OK)
	})
	return true
}

func newParams(cfg config.Config) fsm.Params {
	return fsm.Params{
		UUID:                cfg.UUID,
		ServiceName:         cfg.ServiceName,
		Discoverability:     cfg.DiscoverabilityDuration,
		IgnoreOffers:        cfg.IgnoreOffersDuration,
		RoundsPerGenerator:  cfg.RoundsPerGenerator,
		MaxSendRetries:      cfg.MaxSendRetries,
		RequestAttempts:     cfg.RequestAttempts,
		MaxGameStartRetries: cfg.MaxGameStartRetries,
		MaxDiscoveryRetries: cfg.MaxDiscoveryRetries,
		MaxListeningRetries: cfg.MaxListeningRetries,
		SendRetries:         cfg.SendRetries,
		RetryDelay:          cfg.RetryDelay,
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.SetDebug(cfg.Debug)

	loop := task.NewLoop()
	schedule := func(resume func(), delay time.Duration) {
		time.AfterFunc(delay, func() { loop.Execute(resume) })
	}

	var emitter *journal.Emitter
	if cfg.JournalPath != "" {
		store, err := journal.OpenBolt(cfg.JournalPath)
		if err != nil {
			return err
		}
		defer store.Close()
		emitter = journal.NewEmitter(store)
	}

	var controller ctrl.Controller
	if runEcho {
		controller = ctrl.NewEcho(loop)
	} else {
		controller = ctrl.New(ctrl.Options{
			Engine:     dice.NewUniformEngine(time.Now().UnixNano()),
			Timer:      timer.New(schedule),
			Serializer: wire.NewXMLSerializer(),
			Executor:   loop,
			Params:     newParams(cfg),
			Journal:    emitter,
		})
	}

	ui := &printingUI{loop: loop, c: func() ctrl.Controller { return controller }}
	bt := newSimTransport(loop, controller)

	loop.Execute(func() {
		controller.Start(ui, bt)
	})
	if runEcho {
		loop.Execute(func() {
			controller.OnEvent(fsm.EventNewGameRequested, nil)
		})
	} else {
		loop.Execute(func() {
			controller.OnEvent(fsm.EventNewGameRequested, nil)
		})
		joinScript(loop, controller)
		time.AfterFunc(3*time.Second, func() {
			loop.Execute(func() {
				controller.OnEvent(fsm.EventCastRequestIssued, []string{"D6", "4", "3"})
			})
		})
		time.AfterFunc(6*time.Second, func() {
			loop.Execute(func() {
				controller.OnEvent(fsm.EventGameStopped, nil)
			})
		})
	}

	time.AfterFunc(8*time.Second, func() {
		loop.Execute(func() {
			controller.Close()
		})
		loop.Close()
	})

	loop.Run()
	return nil
}
