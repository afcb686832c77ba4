package sim

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"droneops-engine/internal/config"
	"droneops-engine/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a telemetry log line for the viewport.
type logMsg struct{ line string }

// eventMsg carries a mission event line.
type eventMsg struct{ line string }

// stateMsg carries a fleet summary update.
type stateMsg struct{ telemetry.FleetStateRow }

// adminMsg reports HTTP API status.
type adminMsg struct{ active bool }

type telemetryMsg struct{ telemetry.TelemetryRow }

const (
	maxLogLines         = 1000
	maxSectionHeightPct = 0.2
)

// TUIWriter renders the fleet using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	colors     *missionColors
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. Quitting
// the TUI interrupts the process so the serve command shuts down cleanly.
func NewTUIWriter(cfg *config.Config) *TUIWriter {
	colors := &missionColors{}
	for _, ms := range cfg.Missions {
		colors.get(ms.ID)
	}
	w := &TUIWriter{colors: colors, done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg.ClusterID, colors), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

func (w *TUIWriter) palette() *missionColors {
	if w.colors == nil {
		w.colors = &missionColors{}
	}
	return w.colors
}

// Write implements TelemetryWriter.
func (w *TUIWriter) Write(row telemetry.TelemetryRow) error {
	w.program.Send(logMsg{line: telemetryLine(row, w.palette())})
	w.program.Send(telemetryMsg{row})
	return nil
}

// WriteBatch outputs multiple telemetry rows.
func (w *TUIWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteMissionEvent implements MissionEventWriter.
func (w *TUIWriter) WriteMissionEvent(ev telemetry.MissionEventRow) error {
	w.program.Send(eventMsg{line: eventLine(ev, w.palette())})
	return nil
}

// WriteState implements StateWriter.
func (w *TUIWriter) WriteState(row telemetry.FleetStateRow) error {
	w.program.Send(stateMsg{FleetStateRow: row})
	return nil
}

// SetAdminStatus updates the HTTP API indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	clusterID    string
	table        table.Model
	vp           viewport.Model
	evVP         viewport.Model
	logs         []string
	evLogs       []string
	drones       map[string]telemetry.TelemetryRow
	state        telemetry.FleetStateRow
	colors       *missionColors
	admin        bool
	wrap         bool
	autoscroll   bool
	summary      bool
	help         bool
	header       string
	headerHeight int
	height       int
}

func newTUIModel(clusterID string, colors *missionColors) tuiModel {
	if colors == nil {
		colors = &missionColors{}
	}
	cols := []table.Column{
		{Title: "Drone", Width: 12},
		{Title: "Status", Width: 11},
		{Title: "Batt", Width: 6},
		{Title: "Alt", Width: 6},
		{Title: "Spd", Width: 5},
		{Title: "Mission", Width: 14},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(2))
	return tuiModel{
		clusterID:  clusterID,
		table:      t,
		vp:         viewport.New(0, 0),
		evVP:       viewport.New(0, 0),
		drones:     make(map[string]telemetry.TelemetryRow),
		colors:     colors,
		autoscroll: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.evVP.Width = msg.Width
		m.height = msg.Height
		m.refreshHeader()
		m.updateViewportHeight()
		m.refreshViewport()
		m.refreshEvents()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			m.refreshEvents()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
				m.evVP.GotoBottom()
			}
			return m, nil
		case "t":
			m.summary = !m.summary
			m.updateViewportHeight()
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
				m.evVP.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
				m.evVP.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
				m.evVP.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
				m.evVP.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				m.evVP, _ = m.evVP.Update(msg)
				return m, cmd
			}
		}
		return m, nil
	case logMsg:
		m.logs = appendCapped(m.logs, msg.line)
		m.refreshViewport()
	case eventMsg:
		m.evLogs = appendCapped(m.evLogs, msg.line)
		m.updateViewportHeight()
		m.refreshEvents()
	case telemetryMsg:
		if m.drones == nil {
			m.drones = make(map[string]telemetry.TelemetryRow)
		}
		m.drones[msg.DroneID] = msg.TelemetryRow
		m.refreshTable()
		m.refreshHeader()
		m.updateViewportHeight()
	case stateMsg:
		m.state = msg.FleetStateRow
	case adminMsg:
		m.admin = msg.active
	}
	return m, nil
}

func appendCapped(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
	}
	return lines
}

func (m *tuiModel) refreshTable() {
	ids := make([]string, 0, len(m.drones))
	for id := range m.drones {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	rows := make([]table.Row, 0, len(ids))
	for _, id := range ids {
		r := m.drones[id]
		mission := "-"
		if r.ActiveMissionID != nil {
			mission = *r.ActiveMissionID
		}
		rows = append(rows, table.Row{
			id,
			r.Status,
			fmt.Sprintf("%.0f%%", r.Battery),
			fmt.Sprintf("%.0f", r.Alt),
			fmt.Sprintf("%.1f", r.Speed),
			mission,
		})
	}
	m.table.SetRows(rows)
	m.table.SetHeight(len(rows) + 1)
}

func (m *tuiModel) refreshHeader() {
	m.header = m.renderHeader()
	m.headerHeight = lipgloss.Height(m.header)
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())
	evLines := len(m.evLogs)
	if evLines == 0 {
		evLines = 1
	}
	if limit := m.maxSectionLines(); evLines > limit {
		evLines = limit
	}
	m.evVP.Height = evLines

	h := m.height - m.headerHeight - bottomHeight - (1 + m.evVP.Height) - 3
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
		m.evVP.GotoBottom()
	}
}

func (m *tuiModel) wrapLines(lines []string, width int) string {
	if !m.wrap || width <= 0 {
		return strings.Join(lines, "\n")
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, wordwrap.String(l, width))
	}
	return strings.Join(out, "\n")
}

func (m *tuiModel) refreshViewport() {
	m.vp.SetContent(m.wrapLines(m.logs, m.vp.Width))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshEvents() {
	content := "none"
	if len(m.evLogs) > 0 {
		content = m.wrapLines(m.evLogs, m.evVP.Width)
	}
	m.evVP.SetContent(content)
	if m.autoscroll {
		m.evVP.GotoBottom()
	}
}

func (m tuiModel) maxSectionLines() int {
	h := int(float64(m.height) * maxSectionHeightPct)
	if h < 1 {
		h = 1
	}
	return h
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.header,
		divider,
		m.vp.View(),
		divider,
		"Mission Events:",
		m.evVP.View(),
		divider,
		m.renderBottom(),
	}
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Render("Fleet " + m.clusterID)
	return lipgloss.JoinVertical(lipgloss.Left, title, m.table.View())
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderSummary() string {
	var parts []string
	ids := make([]string, 0, len(m.drones))
	for id := range m.drones {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	low := 0
	for _, id := range ids {
		if m.drones[id].Battery < 25 {
			low++
		}
		if mid := m.drones[id].ActiveMissionID; mid != nil {
			parts = append(parts, fmt.Sprintf("%s%s%s→%s", m.colors.get(*mid), *mid, colorReset, id))
		}
	}
	summary := fmt.Sprintf("%sSUMMARY%s %sseen=%d%s %slow_batt=%d%s", colorBlue, colorReset, colorGreen, len(ids), colorReset, colorRed, low, colorReset)
	if len(parts) > 0 {
		summary += " " + strings.Join(parts, " ")
	}
	return summary
}

func (m tuiModel) renderBottom() string {
	line := fmt.Sprintf("%s | API %s | Wrap %s | Scroll %s | Summary %s | Help %s",
		stateLine(m.state), indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll), indicator(m.summary), indicator(m.help))
	if m.summary {
		return m.renderSummary() + "\n" + line
	}
	return line
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle line wrap",
		" s  toggle auto-scroll",
		" t  toggle summary footer",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
