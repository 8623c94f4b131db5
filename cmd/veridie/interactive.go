package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
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

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Drive the core interactively against a simulated peer",
	Long: `Interactive presents the UI surface of the core in the terminal.

Keyboard shortcuts:
  n - request a new game
  b - bluetooth on        B - bluetooth off
  r - roll 4d6 (threshold 3)
  R - roll 3d20
  s - stop the game
  q - quit`,
	RunE: runInteractive,
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

type toastMsg struct{ text string }
type statusMsg struct{ text string }
type requestMsg struct{ text string }
type responseMsg struct{ text string }
type fatalMsg struct{ text string }
type tickMsg struct{}

// teaUI renders UI commands as bubbletea messages and answers OK.
type teaUI struct {
	loop *task.Loop
	c    func() ctrl.Controller
	send func(tea.Msg)
}

func (u *teaUI) Invoke(c *command.Command, id int32) bool {
	switch c.Kind() {
	case command.KindShowToast:
		u.send(toastMsg{text: c.ArgAt(0)})
	case command.KindShowNotification:
		u.send(statusMsg{text: c.ArgAt(0)})
	case command.KindNegotiationStart:
		u.send(statusMsg{text: "Negotiating generator..."})
	case command.KindNegotiationStop:
		u.send(statusMsg{text: "Generator: " + c.ArgAt(0)})
	case command.KindShowRequest:
		u.send(requestMsg{text: fmt.Sprintf("%s x%s (threshold %s) from %s",
			c.ArgAt(0), c.ArgAt(1), c.ArgAt(2), c.ArgAt(3))})
	case command.KindShowResponse:
		u.send(responseMsg{text: fmt.Sprintf("%s -> %s (successes %s) from %s",
			c.ArgAt(1), c.ArgAt(0), c.ArgAt(2), c.ArgAt(3))})
	case command.KindShowAndExit:
		u.send(fatalMsg{text: c.ArgAt(0)})
	case command.KindResetGame:
		u.send(statusMsg{text: "Game reset"})
	}
	ctl := u.c()
	u.loop.Execute(func() {
		ctl.OnCommandResponse(id, command.OK)
	})
	return true
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("36"))
	toastStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	responseStyle = lipgloss.NewStyle().Bold(true)
	logStyle      = lipgloss.NewStyle().Faint(true)
	fatalStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

type interactiveModel struct {
	loop     *task.Loop
	c        ctrl.Controller
	logBuf   *logging.Buffer
	status   string
	toast    string
	request  string
	response string
	fatal    string
}

func (m interactiveModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m interactiveModel) post(id int32, args ...string) {
	c := m.c
	m.loop.Execute(func() {
		c.OnEvent(id, args)
	})
}

func (m interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "n":
			m.post(fsm.EventNewGameRequested)
			joinScript(m.loop, m.c)
		case "b":
			m.post(fsm.EventBluetoothOn)
		case "B":
			m.post(fsm.EventBluetoothOff)
		case "r":
			m.post(fsm.EventCastRequestIssued, "D6", "4", "3")
		case "R":
			m.post(fsm.EventCastRequestIssued, "D20", "3")
		case "s":
			m.post(fsm.EventGameStopped)
		}
	case toastMsg:
		m.toast = msg.text
	case statusMsg:
		m.status = msg.text
	case requestMsg:
		m.request = msg.text
	case responseMsg:
		m.response = msg.text
	case fatalMsg:
		m.fatal = msg.text
	case tickMsg:
		return m, tick()
	}
	return m, nil
}

func (m interactiveModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("VeriDie"))
	b.WriteString("\n\n")
	if m.fatal != "" {
		b.WriteString(fatalStyle.Render("FATAL: " + m.fatal))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	if m.toast != "" {
		b.WriteString(toastStyle.Render(m.toast))
		b.WriteString("\n")
	}
	if m.request != "" {
		b.WriteString("Request:  " + m.request + "\n")
	}
	if m.response != "" {
		b.WriteString(responseStyle.Render("Response: " + m.response))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, line := range m.logBuf.Tail(10) {
		b.WriteString(logStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("n new game · b/B bluetooth on/off · r roll 4d6 · R roll 3d20 · s stop · q quit"))
	return b.String()
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logBuf := logging.NewBuffer(200)
	logging.SetOutputs(logBuf)
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

	controller := ctrl.New(ctrl.Options{
		Engine:     dice.NewUniformEngine(time.Now().UnixNano()),
		Timer:      timer.New(schedule),
		Serializer: wire.NewXMLSerializer(),
		Executor:   loop,
		Params:     newParams(cfg),
		Journal:    emitter,
	})

	model := interactiveModel{loop: loop, c: controller, logBuf: logBuf}
	p := tea.NewProgram(model, tea.WithAltScreen())

	ui := &teaUI{
		loop: loop,
		c:    func() ctrl.Controller { return controller },
		send: func(msg tea.Msg) { p.Send(msg) },
	}
	bt := newSimTransport(loop, controller)

	go loop.Run()
	loop.Execute(func() {
		controller.Start(ui, bt)
	})

	_, err = p.Run()
	loop.Execute(func() {
		controller.Close()
	})
	loop.Close()
	return err
}
