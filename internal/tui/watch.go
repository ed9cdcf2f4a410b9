package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/mdns/discover"
	"github.com/muurk/mdns/internal/discovery"
)

// feedSize is the number of recent stream events kept on screen.
const feedSize = 6

// Source is the running discovery the watch screen consumes.
// *discover.Discovery satisfies it.
type Source interface {
	Results() <-chan discover.Result
	Solicit()
}

// Messages for async operations
type resultMsg struct{ result discover.Result }
type streamClosedMsg struct{}

// waitForResult reads one item from the stream.
func waitForResult(results <-chan discover.Result) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-results
		if !ok {
			return streamClosedMsg{}
		}
		return resultMsg{result: res}
	}
}

// watchKeyMap defines key bindings for the watch screen
type watchKeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Details     key.Binding
	Solicit     key.Binding
	ToggleEmpty key.Binding
	Clear       key.Binding
	Quit        key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Details, k.Solicit, k.ToggleEmpty, k.Clear, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Details},
		{k.Solicit, k.ToggleEmpty, k.Clear, k.Quit},
	}
}

func newWatchKeyMap() watchKeyMap {
	return watchKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Details: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "details"),
		),
		Solicit: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "query now"),
		),
		ToggleEmpty: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "show empty"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// deviceItem wraps a Device for use with bubbles/list
type deviceItem struct {
	device *discovery.Device
}

// FilterValue filters by name, instance and address.
func (d deviceItem) FilterValue() string {
	return d.device.Name() + " " + d.device.Instance + " " + d.device.Address()
}

// Title returns the device name for list display
func (d deviceItem) Title() string {
	return d.device.Name()
}

// Description returns device details for list display
func (d deviceItem) Description() string {
	addr := d.device.Address()
	if addr == "" {
		addr = "no address"
	}
	parts := []string{addr, d.device.Instance}
	if d.device.Interface != "" {
		parts = append(parts, "via "+d.device.Interface)
	}
	return strings.Join(parts, " • ")
}

// WatchModel is a live view of one discovery session. Every response is
// folded into a de-duplicated device list; recent stream events are shown
// in a feed below it.
type WatchModel struct {
	Service string

	source    Source
	results   <-chan discover.Result
	collector *discovery.Collector
	now       func() time.Time

	// Stream state
	Responses int
	Empty     int
	Errors    int
	LastErr   error
	Finished  bool
	Started   time.Time
	feed      []string

	// UI state
	ShowEmpty  bool
	ShowDetail bool
	Width      int
	Height     int
	list       list.Model
	spinner    spinner.Model
	help       help.Model
	keys       watchKeyMap
}

// NewWatchModel creates the watch screen for src. Calling it starts the
// discovery.
func NewWatchModel(service string, src Source) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(HighlightColor).BorderForeground(HighlightColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.BorderForeground(HighlightColor)

	devices := list.New([]list.Item{}, delegate, MinTerminalWidth-4, 10)
	devices.Title = "Devices"
	devices.Styles.Title = TitleStyle
	devices.SetShowStatusBar(false)
	devices.SetShowHelp(false)
	devices.SetFilteringEnabled(true)

	return WatchModel{
		Service:   service,
		source:    src,
		results:   src.Results(),
		collector: discovery.NewCollector(),
		now:       time.Now,
		Started:   time.Now(),
		list:      devices,
		spinner:   s,
		help:      help.New(),
		keys:      newWatchKeyMap(),
	}
}

// Init starts reading the stream
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(waitForResult(m.results), m.spinner.Tick)
}

// Update handles messages and updates the model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Solicit):
			m.source.Solicit()
			m.addFeed(SubtitleStyle.Render("query requested"))
			return m, nil
		case key.Matches(msg, m.keys.ToggleEmpty):
			m.ShowEmpty = !m.ShowEmpty
			return m, nil
		case key.Matches(msg, m.keys.Details):
			m.ShowDetail = !m.ShowDetail
			return m, nil
		case key.Matches(msg, m.keys.Clear):
			m.collector.Reset()
			m.feed = nil
			return m, m.list.SetItems(nil)
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.list.SetSize(max(msg.Width-6, 20), max(msg.Height-feedSize-12, 4))
		return m, nil

	case resultMsg:
		cmd = m.handleResult(msg.result)
		return m, tea.Batch(cmd, waitForResult(m.results))

	case streamClosedMsg:
		m.Finished = true
		m.addFeed(SubtitleStyle.Render("discovery finished"))
		return m, nil

	case spinner.TickMsg:
		if m.Finished {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleResult folds one stream item into the model.
func (m *WatchModel) handleResult(res discover.Result) tea.Cmd {
	m.Responses++
	stamp := m.now().Format("15:04:05")

	switch {
	case res.Err != nil:
		m.Errors++
		m.LastErr = res.Err
		m.addFeed(ErrorTextStyle.Render(fmt.Sprintf("%s %s: %v", stamp, res.Interface, res.Err)))
		return nil

	case res.Response == nil || res.Response.IsEmpty():
		m.Empty++
		if m.ShowEmpty {
			m.addFeed(FeedLineStyle.Render(fmt.Sprintf("%s %s: empty response", stamp, res.Interface)))
		}
		return nil
	}

	device := discovery.FromResponse(res.Response, res.Interface, m.now())
	if device == nil {
		m.addFeed(FeedLineStyle.Render(fmt.Sprintf("%s %s: %d records, no instance", stamp, res.Interface, countRecords(res))))
		return nil
	}

	if m.collector.Add(device) {
		m.addFeed(fmt.Sprintf("%s %s: new %s", stamp, res.Interface, device.Name()))
	} else {
		m.addFeed(FeedLineStyle.Render(fmt.Sprintf("%s %s: %s", stamp, res.Interface, device.Name())))
	}
	return m.refreshList()
}

func countRecords(res discover.Result) int {
	r := res.Response
	return len(r.Answers) + len(r.Nameservers) + len(r.Additional)
}

func (m *WatchModel) refreshList() tea.Cmd {
	devices := m.collector.Devices()
	items := make([]list.Item, len(devices))
	for i, d := range devices {
		items[i] = deviceItem{device: d}
	}
	return m.list.SetItems(items)
}

func (m *WatchModel) addFeed(line string) {
	m.feed = append(m.feed, line)
	if len(m.feed) > feedSize {
		m.feed = m.feed[len(m.feed)-feedSize:]
	}
}

// Devices returns the distinct devices seen so far.
func (m WatchModel) Devices() []*discovery.Device {
	return m.collector.Devices()
}

// View renders the watch screen
func (m WatchModel) View() string {
	width := m.Width
	if width == 0 {
		width = MinTerminalWidth
	}
	height := m.Height
	if height == 0 {
		height = 30
	}

	sections := []string{m.statusLine(), m.list.View()}

	if m.ShowDetail {
		if item, ok := m.list.SelectedItem().(deviceItem); ok {
			sections = append(sections, m.renderDetail(item.device, width))
		}
	}

	if len(m.feed) > 0 {
		sections = append(sections, SubtitleStyle.Render("Recent"), strings.Join(m.feed, "\n"))
	}

	return renderContainer(m.Service, lipgloss.JoinVertical(lipgloss.Left, sections...), m.help.View(m.keys), width, height)
}

func (m WatchModel) statusLine() string {
	state := m.spinner.View() + " listening"
	if m.Finished {
		state = "■ finished"
	}
	empty := "hidden"
	if m.ShowEmpty {
		empty = "shown"
	}
	elapsed := m.now().Sub(m.Started).Round(time.Second)
	return StatusBarStyle.Render(fmt.Sprintf("%s  %s  devices %d  responses %d  empty %d (%s)  errors %d",
		state, elapsed, m.collector.Len(), m.Responses, m.Empty, empty, m.Errors))
}

func (m WatchModel) renderDetail(d *discovery.Device, width int) string {
	lines := []string{
		SelectedItemStyle.Render(d.Name()),
		"Instance:  " + d.Instance,
		"Host:      " + d.Hostname,
		"Address:   " + d.Address(),
		"Interface: " + d.Interface,
		"Last seen: " + d.LastSeen.Format("15:04:05"),
	}
	if url := d.BaseURL(); url != "" {
		lines = append(lines, "URL:       "+url)
	}
	for _, k := range sortedMetadataKeys(d.Metadata) {
		lines = append(lines, fmt.Sprintf("  %s=%s", k, d.Metadata[k]))
	}
	return DetailBoxStyle.Width(max(width-8, 20)).Render(strings.Join(lines, "\n"))
}

// Run shows the watch screen until the user quits, the stream ends and the
// user quits, or ctx is cancelled. It returns the devices seen.
func Run(ctx context.Context, service string, src Source, opts ...tea.ProgramOption) ([]*discovery.Device, error) {
	model := NewWatchModel(service, src)
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)

	final, err := tea.NewProgram(model, opts...).Run()
	if final != nil {
		if wm, ok := final.(WatchModel); ok {
			model = wm
		}
	}
	if err != nil && ctx.Err() == nil {
		return model.Devices(), fmt.Errorf("watch screen: %w", err)
	}
	return model.Devices(), nil
}
