package main

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/story-rooms/pkg/content"
	"github.com/jwebster45206/story-rooms/pkg/room"
	"github.com/muesli/reflow/wordwrap"
)

const (
	PlaceHolderText = "Type an option number or /help..."
	maxLogLines     = 8
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	ctx     context.Context
	config  *ConsoleConfig
	api     *apiClient
	catalog *ContentResponse

	// Join form
	joining    bool
	joinInputs []textinput.Model
	focus      int

	roomID     string
	playerName string
	snapshot   *room.Snapshot
	player     *room.PlayerView
	log        []string

	sceneViewport viewport.Model
	metaViewport  viewport.Model
	textarea      textarea.Model
	ready         bool
	width         int
	height        int
	err           error
	busy          bool

	events    chan StreamEvent
	streaming bool

	showQuitModal bool
}

type joinedMsg struct {
	snapshot *room.Snapshot
	err      error
}

type roomStateMsg struct {
	snapshot *room.Snapshot
	player   *room.PlayerView
	err      error
}

type voteResultMsg struct {
	resp *VoteResponse
	err  error
}

type skillSpentMsg struct {
	view *room.PlayerView
	err  error
}

type streamEventMsg StreamEvent

type streamClosedMsg struct{ err error }

type pollTickMsg struct{}

type leftMsg struct{ err error }

var (
	scenePanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	disabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Strikethrough(true)

	partialStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	leaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

func NewConsoleUI(ctx context.Context, cfg *ConsoleConfig, api *apiClient, catalog *ContentResponse) ConsoleUI {
	roomInput := textinput.New()
	roomInput.Prompt = "Room:   "
	roomInput.SetValue(cfg.RoomID)
	roomInput.CharLimit = 64
	roomInput.Focus()

	nameInput := textinput.New()
	nameInput.Prompt = "Player: "
	nameInput.SetValue(cfg.PlayerName)
	nameInput.CharLimit = 64

	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	sceneVp := viewport.New(50, 20)
	sceneVp.MouseWheelEnabled = true

	return ConsoleUI{
		ctx:           ctx,
		config:        cfg,
		api:           api,
		catalog:       catalog,
		joining:       true,
		joinInputs:    []textinput.Model{roomInput, nameInput},
		textarea:      ta,
		sceneViewport: sceneVp,
		metaViewport:  viewport.New(20, 20),
		events:        make(chan StreamEvent, 16),
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return textinput.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.resize(size.Width, size.Height)
	}
	if m.joining {
		return m.updateJoinForm(msg)
	}

	var (
		taCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.sceneViewport, vpCmd = m.sceneViewport.Update(msg)
		return m, vpCmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" || m.busy {
				return m, nil
			}
			return m.handleInput(input)
		}

	case roomStateMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.snapshot = msg.snapshot
			m.player = msg.player
		}
		m.render()
		return m, nil

	case voteResultMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.render()
			return m, nil
		}
		m.err = nil
		m.snapshot = &msg.resp.Room
		m.addLog(describeVote(msg.resp))
		m.render()
		return m, m.refresh()

	case skillSpentMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.player = msg.view
			m.addLog("Skill point spent")
		}
		m.render()
		return m, nil

	case streamEventMsg:
		m.addLog(describeEvent(StreamEvent(msg)))
		m.render()
		return m, tea.Batch(m.refresh(), m.waitForEvent())

	case streamClosedMsg:
		m.streaming = false
		if msg.err != nil && m.ctx.Err() == nil {
			m.addLog(fmt.Sprintf("Live updates unavailable, polling instead (%v)", msg.err))
			m.render()
		}
		return m, m.pollTick()

	case pollTickMsg:
		if m.streaming {
			return m, nil
		}
		return m, tea.Batch(m.refresh(), m.pollTick())

	case leftMsg:
		return m, tea.Quit
	}

	m.textarea, taCmd = m.textarea.Update(msg)
	m.sceneViewport, vpCmd = m.sceneViewport.Update(msg)

	return m, tea.Batch(taCmd, vpCmd)
}

func (m *ConsoleUI) resize(width, height int) {
	m.width = width
	m.height = height

	sceneWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - sceneWidth - 6

	m.sceneViewport.Width = sceneWidth - 2
	m.sceneViewport.Height = m.height - 6
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 3
	m.textarea.SetWidth(sceneWidth - 4)
	m.ready = true
	m.render()
}

func (m ConsoleUI) updateJoinForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
			m.joinInputs[m.focus].Blur()
			m.focus = (m.focus + 1) % len(m.joinInputs)
			focus := m.joinInputs[m.focus].Focus()
			return m, focus
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			roomID := strings.TrimSpace(m.joinInputs[0].Value())
			name := strings.TrimSpace(m.joinInputs[1].Value())
			if roomID == "" || name == "" {
				m.err = fmt.Errorf("room and player name are required")
				return m, nil
			}
			m.busy = true
			m.err = nil
			return m, m.join(roomID, name)
		}

	case joinedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.joining = false
		m.err = nil
		m.roomID = msg.snapshot.RoomID
		m.playerName = strings.TrimSpace(m.joinInputs[1].Value())
		m.snapshot = msg.snapshot
		m.streaming = true
		m.addLog(fmt.Sprintf("Joined room %s as %s", m.roomID, m.playerName))
		m.render()
		focus := m.textarea.Focus()
		return m, tea.Batch(focus, m.listen(), m.waitForEvent(), m.refresh())
	}

	var cmd tea.Cmd
	m.joinInputs[m.focus], cmd = m.joinInputs[m.focus].Update(msg)
	return m, cmd
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "l", "L":
				return m, m.leave()
			case "n", "N":
				m.showQuitModal = false
				focus := m.textarea.Focus()
				return m, focus
			}
		}
	}
	return m, nil
}

// handleInput votes on a bare option number, otherwise runs a slash command.
func (m ConsoleUI) handleInput(input string) (tea.Model, tea.Cmd) {
	if id, err := strconv.Atoi(input); err == nil {
		m.busy = true
		return m, m.vote(id)
	}

	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "/help":
		m.addLog("Commands: <n> vote · /skill <key> · /close · /copy · /refresh · /leave")
	case "/skill":
		if len(fields) < 2 {
			m.addLog("Usage: /skill <skill-subskill>, e.g. " + m.exampleSkillKey())
			break
		}
		m.busy = true
		return m, m.spendSkill(fields[1])
	case "/close":
		m.busy = true
		return m, m.closeVoting()
	case "/copy":
		if err := clipboard.WriteAll(m.roomID); err != nil {
			m.addLog("Could not copy room id: " + err.Error())
		} else {
			m.addLog("Room id copied to clipboard")
		}
	case "/refresh":
		return m, m.refresh()
	case "/leave":
		return m, m.leave()
	default:
		m.addLog("Unknown command " + fields[0])
	}
	m.render()
	return m, nil
}

func (m *ConsoleUI) addLog(line string) {
	m.log = append(m.log, time.Now().Format("15:04:05")+" "+line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func (m ConsoleUI) exampleSkillKey() string {
	for _, s := range m.catalog.Skills {
		if len(s.Subskills) > 0 {
			return content.SubskillKey(s.ID, s.Subskills[0].ID)
		}
	}
	return "fisico-fuerza"
}

// render rebuilds both panels for the current width.
func (m *ConsoleUI) render() {
	if !m.ready || m.joining {
		return
	}
	m.sceneViewport.SetContent(writeScene(m.snapshot, m.player, m.log, m.err, m.sceneViewport.Width-4))
	m.metaViewport.SetContent(writeMetadata(m.roomID, m.playerName, m.snapshot, m.player, m.catalog))
}

func writeScene(snap *room.Snapshot, view *room.PlayerView, log []string, err error, width int) string {
	if width < 20 {
		width = 20
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("STORY ROOMS") + "\n\n")

	if snap == nil || snap.Scene == nil {
		b.WriteString("Waiting for the room...\n")
		return b.String()
	}

	b.WriteString(wordwrap.String(snap.Scene.Text, width) + "\n\n")

	switch {
	case snap.Scene.IsEnding:
		b.WriteString(titleStyle.Render("THE END") + "\n\n")
	case view != nil && view.SceneID == snap.Scene.ID:
		for _, o := range view.Options {
			line := wordwrap.String(fmt.Sprintf("%d. %s", o.ID, o.Text), width)
			switch o.Access {
			case content.AccessHidden:
				continue
			case content.AccessDisabled:
				line = disabledStyle.Render(line)
			case content.AccessPartial:
				line = partialStyle.Render(line + " (partial)")
			default:
				line = optionStyle.Render(line)
			}
			if n := snap.Votes[o.ID]; n > 0 {
				line += promptStyle.Render(fmt.Sprintf("  [%d]", n))
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
		if view.Voted {
			b.WriteString(promptStyle.Render("You have voted. Waiting for the others...") + "\n\n")
		}
	default:
		for _, o := range snap.Scene.Options {
			b.WriteString(optionStyle.Render(wordwrap.String(fmt.Sprintf("%d. %s", o.ID, o.Text), width)) + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n")
	for _, line := range log {
		b.WriteString(promptStyle.Render(wordwrap.String(line, width)) + "\n")
	}
	if err != nil {
		b.WriteString(errorStyle.Render(wordwrap.String("Error: "+err.Error(), width)) + "\n")
	}
	return b.String()
}

func writeMetadata(roomID, playerName string, snap *room.Snapshot, view *room.PlayerView, catalog *ContentResponse) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ROOM") + "\n\n")
	b.WriteString(roomID + "\n")
	b.WriteString(promptStyle.Render("/copy to share") + "\n\n")

	if snap != nil {
		b.WriteString("Players:\n")
		for _, p := range snap.Players {
			mark := " "
			if slices.Contains(snap.UserVoted, p.Name) {
				mark = "✓"
			}
			name := p.Name
			if p.Type == room.PlayerLeader {
				name = leaderStyle.Render(name + " ★")
			}
			fmt.Fprintf(&b, "%s %s\n", mark, name)
		}
		b.WriteString("\n")
	}

	if view != nil {
		p := view.Player
		b.WriteString(titleStyle.Render(strings.ToUpper(playerName)) + "\n\n")
		fmt.Fprintf(&b, "Life:   %d\n", p.Life)
		fmt.Fprintf(&b, "Stress: %d / %d\n", p.Stress, catalog.GameConfig.StressThreshold)
		fmt.Fprintf(&b, "XP:     %d / %d\n", p.XP, catalog.GameConfig.XPThreshold)
		fmt.Fprintf(&b, "Points: %d\n\n", p.SkillPoints)

		b.WriteString("Skills:\n")
		for _, s := range catalog.Skills {
			for _, sub := range s.Subskills {
				key := content.SubskillKey(s.ID, sub.ID)
				fmt.Fprintf(&b, "• %s: %d\n", key, p.AssignedPoints[key])
			}
		}

		var visible []string
		for _, a := range catalog.Attributes {
			if v, ok := p.LockedAttributes[a.ID]; ok {
				visible = append(visible, fmt.Sprintf("• %s: %d", a.Name, v))
			}
		}
		if len(visible) > 0 {
			b.WriteString("\nAttributes:\n" + strings.Join(visible, "\n") + "\n")
		}
	}

	b.WriteString("\nCommands:\n")
	b.WriteString("• 1-9: Vote\n")
	b.WriteString("• /skill: Spend point\n")
	b.WriteString("• /close: Close vote\n")
	b.WriteString("• Esc: Quit\n")
	return b.String()
}

func describeVote(resp *VoteResponse) string {
	switch {
	case resp.Ignored:
		return "Vote ignored: " + resp.Reason
	case !resp.Resolved:
		return "Vote recorded"
	case resp.WinningOption == nil:
		return "Voting closed"
	case resp.RollSucceeded == nil:
		return fmt.Sprintf("Option %d wins", *resp.WinningOption)
	case *resp.RollSucceeded:
		return fmt.Sprintf("Option %d wins: the roll succeeded", *resp.WinningOption)
	default:
		return fmt.Sprintf("Option %d wins: the roll failed", *resp.WinningOption)
	}
}

func describeEvent(ev StreamEvent) string {
	switch ev.Type {
	case "sceneUpdate":
		var snap room.Snapshot
		if err := json.Unmarshal(ev.Data, &snap); err == nil && snap.Scene != nil {
			return "Scene changed: " + snap.Scene.ID
		}
		return "Scene changed"
	case "voteUpdate":
		var update room.VoteUpdate
		if err := json.Unmarshal(ev.Data, &update); err == nil {
			return fmt.Sprintf("%d player(s) have voted", len(update.UserVoted))
		}
		return "Votes updated"
	case "leaderSelected":
		var leader struct {
			Leader string `json:"leader"`
		}
		if err := json.Unmarshal(ev.Data, &leader); err == nil && leader.Leader != "" {
			return leader.Leader + " leads the room"
		}
		return "Leader selected"
	default:
		return "Event: " + ev.Type
	}
}

func (m ConsoleUI) join(roomID, name string) tea.Cmd {
	return func() tea.Msg {
		snap, err := m.api.join(m.ctx, roomID, name, m.config.AssignedPoints)
		return joinedMsg{snapshot: snap, err: err}
	}
}

func (m ConsoleUI) refresh() tea.Cmd {
	roomID, name := m.roomID, m.playerName
	return func() tea.Msg {
		snap, err := m.api.snapshot(m.ctx, roomID)
		if err != nil {
			return roomStateMsg{err: err}
		}
		view, err := m.api.player(m.ctx, roomID, name)
		return roomStateMsg{snapshot: snap, player: view, err: err}
	}
}

func (m ConsoleUI) vote(optionID int) tea.Cmd {
	roomID, name := m.roomID, m.playerName
	return func() tea.Msg {
		resp, err := m.api.vote(m.ctx, roomID, name, optionID)
		return voteResultMsg{resp: resp, err: err}
	}
}

func (m ConsoleUI) closeVoting() tea.Cmd {
	roomID := m.roomID
	return func() tea.Msg {
		resp, err := m.api.closeVoting(m.ctx, roomID)
		return voteResultMsg{resp: resp, err: err}
	}
}

func (m ConsoleUI) spendSkill(key string) tea.Cmd {
	roomID, name := m.roomID, m.playerName
	return func() tea.Msg {
		view, err := m.api.spendSkillPoint(m.ctx, roomID, name, key)
		return skillSpentMsg{view: view, err: err}
	}
}

func (m ConsoleUI) leave() tea.Cmd {
	roomID, name := m.roomID, m.playerName
	return func() tea.Msg {
		if roomID == "" {
			return leftMsg{}
		}
		return leftMsg{err: m.api.leave(m.ctx, roomID, name)}
	}
}

// listen streams room events into m.events until the stream ends.
func (m ConsoleUI) listen() tea.Cmd {
	roomID := m.roomID
	return func() tea.Msg {
		err := m.api.listenToRoom(m.ctx, roomID, m.events)
		return streamClosedMsg{err: err}
	}
}

func (m ConsoleUI) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-m.events:
			return streamEventMsg(ev)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m ConsoleUI) pollTick() tea.Cmd {
	return tea.Tick(m.config.PollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(modalTitleStyle.Render("Quit?"))
	b.WriteString("\n\n")
	b.WriteString("Your seat stays in the room unless you leave it.")
	b.WriteString("\n\n")
	b.WriteString(promptStyle.Render("Y to quit, L to leave the room and quit, N to continue"))

	modal := modalStyle.Width(50).Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderJoinForm() string {
	var b strings.Builder
	b.WriteString(modalTitleStyle.Render("Join a Room"))
	b.WriteString("\n\n")
	for _, in := range m.joinInputs {
		b.WriteString(in.View() + "\n")
	}
	b.WriteString("\n")
	if m.busy {
		b.WriteString(partialStyle.Render("Joining...") + "\n\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n\n")
	}
	b.WriteString(promptStyle.Render("Tab to switch fields, Enter to join, Esc to exit"))

	modal := modalStyle.Width(60).Render(b.String())
	if m.width == 0 || m.height == 0 {
		return modal
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.joining {
		return m.renderJoinForm()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	sceneWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - sceneWidth - 6

	scenePanel := scenePanelStyle.Width(sceneWidth).Height(m.height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.sceneViewport.View(),
			separatorStyle.Render(strings.Repeat("─", sceneWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, scenePanel, metaPanel)
}
