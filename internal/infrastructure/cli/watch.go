package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/httpapi"
	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/ws"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
	"github.com/spf13/cobra"
)

const (
	watchHeartbeat = 10 * time.Second
	watchMaxRows   = 200
)

var (
	watchAddr        string
	watchParticipant string
)

var watchCmd = &cobra.Command{
	Use:   "watch <draft:id|plan:id>",
	Short: "Follow a draft or plan live in an interactive TUI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := args[0]
		kind, _, ok := events.ParseTopic(topic)
		if !ok {
			return NewCLIError(fmt.Sprintf("invalid topic %q", topic), "Use draft:<id> or plan:<id>", nil)
		}
		if os.Getenv("COMESOCIAL_SKIP_WATCH_RUN") == "true" {
			return nil
		}

		conn, err := dialTopic(watchAddr, topic, watchParticipant)
		if err != nil {
			return NewCLIError("could not connect", "Is 'comesocial serve' running at --addr?", err)
		}
		defer func() { _ = conn.Close() }()

		incoming := make(chan tea.Msg, 64)
		go readDeltas(conn, incoming)

		m := newWatchModel(topic, incoming)
		if kind == "draft" && watchParticipant != "" {
			m.send = conn.WriteJSON
		}
		p := tea.NewProgram(m)
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("watch run failed: %w", err)
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchAddr, "addr", "localhost:8080", "Address of the running server")
	watchCmd.Flags().StringVar(&watchParticipant, "participant", "", "Join as this participant and send presence heartbeats")
	RootCmd.AddCommand(watchCmd)
}

func dialTopic(addr, topic, participant string) (*websocket.Conn, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws", RawQuery: url.Values{"topic": {topic}}.Encode()}
	header := http.Header{}
	if participant != "" {
		header.Set(httpapi.ParticipantHeader, participant)
	}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// readDeltas forwards every frame from conn until it closes.
func readDeltas(conn *websocket.Conn, out chan<- tea.Msg) {
	defer close(out)
	for {
		var d wireDelta
		if err := conn.ReadJSON(&d); err != nil {
			out <- connClosedMsg{err: err}
			return
		}
		out <- deltaMsg(d)
	}
}

// wireDelta is a delta as received, payload left undecoded.
type wireDelta struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Version   int64           `json:"version"`
	Op        string          `json:"op"`
	Actor     string          `json:"actor"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

type (
	deltaMsg      wireDelta
	connClosedMsg struct{ err error }
	heartbeatMsg  struct{}
)

// Styles
var baseStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.NormalBorder()).
	BorderForeground(lipgloss.Color("240"))

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	PaddingLeft(1).
	PaddingRight(1)

var statusOnline = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
var statusPhase = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
var statusErr = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

type watchModel struct {
	topic    string
	incoming <-chan tea.Msg
	send     func(v any) error

	table   table.Model
	rows    []table.Row
	version int64
	phase   string
	online  map[string]string
	closed  error
}

func newWatchModel(topic string, incoming <-chan tea.Msg) watchModel {
	columns := []table.Column{
		{Title: "Time", Width: 10},
		{Title: "Type", Width: 22},
		{Title: "Op", Width: 18},
		{Title: "Actor", Width: 14},
		{Title: "Version", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240"))

	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229"))

	t.SetStyles(s)

	return watchModel{
		topic:    topic,
		incoming: incoming,
		table:    t,
		online:   make(map[string]string),
	}
}

func (m watchModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForDelta()}
	if m.send != nil {
		m.heartbeat()
		cmds = append(cmds, tickHeartbeat())
	}
	return tea.Batch(cmds...)
}

func (m watchModel) waitForDelta() tea.Cmd {
	if m.incoming == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-m.incoming
		if !ok {
			return connClosedMsg{}
		}
		return msg
	}
}

func tickHeartbeat() tea.Cmd {
	return tea.Tick(watchHeartbeat, func(time.Time) tea.Msg { return heartbeatMsg{} })
}

func (m watchModel) heartbeat() {
	if m.send != nil {
		_ = m.send(ws.Frame{Type: ws.FrameHeartbeat})
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case deltaMsg:
		m = m.apply(wireDelta(msg))
		return m, m.waitForDelta()
	case connClosedMsg:
		m.closed = msg.err
		if m.closed == nil {
			m.closed = fmt.Errorf("connection closed")
		}
		return m, nil
	case heartbeatMsg:
		if m.closed == nil {
			m.heartbeat()
			return m, tickHeartbeat()
		}
		return m, nil
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// apply records d in the table and folds presence and phase into the header.
func (m watchModel) apply(d wireDelta) watchModel {
	if d.Version > m.version {
		m.version = d.Version
	}
	switch d.Type {
	case events.TypePresenceDelta:
		var change struct {
			Entry struct {
				ParticipantID string `json:"participant_id"`
				IsOnline      bool   `json:"is_online"`
				Editing       *struct {
					StopID string `json:"stop_id"`
					Field  string `json:"field"`
				} `json:"editing"`
			} `json:"entry"`
		}
		if json.Unmarshal(d.Payload, &change) == nil && change.Entry.ParticipantID != "" {
			online := make(map[string]string, len(m.online))
			for k, v := range m.online {
				online[k] = v
			}
			e := change.Entry
			switch {
			case !e.IsOnline:
				delete(online, e.ParticipantID)
			case e.Editing != nil:
				online[e.ParticipantID] = fmt.Sprintf("editing %s.%s", e.Editing.StopID, e.Editing.Field)
			default:
				online[e.ParticipantID] = "online"
			}
			m.online = online
		}
	case events.TypePlanDelta:
		var change struct {
			Plan *struct {
				ProgressState    string `json:"progress_state"`
				CurrentStopIndex int    `json:"current_stop_index"`
			} `json:"plan"`
			Phase string `json:"phase"`
		}
		if json.Unmarshal(d.Payload, &change) == nil {
			switch {
			case change.Phase != "":
				m.phase = change.Phase
			case change.Plan != nil:
				m.phase = fmt.Sprintf("%s (stop %d)", change.Plan.ProgressState, change.Plan.CurrentStopIndex+1)
			}
		}
	}

	actor := d.Actor
	if actor == "" {
		actor = "-"
	}
	row := table.Row{d.Timestamp.Local().Format("15:04:05"), d.Type, d.Op, actor, fmt.Sprintf("v%d", d.Version)}
	rows := append([]table.Row{row}, m.rows...)
	if len(rows) > watchMaxRows {
		rows = rows[:watchMaxRows]
	}
	m.rows = rows
	m.table.SetRows(rows)
	return m
}

func (m watchModel) View() string {
	header := headerStyle.Render(fmt.Sprintf("%s  v%d", m.topic, m.version))

	var who []string
	for id, state := range m.online {
		who = append(who, fmt.Sprintf("%s (%s)", id, state))
	}
	sort.Strings(who)
	presence := "Nobody online"
	if len(who) > 0 {
		presence = statusOnline.Render("Online: " + strings.Join(who, ", "))
	}

	lines := []string{header, presence}
	if m.phase != "" {
		lines = append(lines, statusPhase.Render("Phase: "+m.phase))
	}
	lines = append(lines, "\nDeltas:", m.table.View())
	if m.closed != nil {
		lines = append(lines, statusErr.Render(fmt.Sprintf("\nDisconnected: %v", m.closed)))
	}
	lines = append(lines, "\n[q] Quit  [Up/Down] Navigate")

	return baseStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)) + "\n"
}
