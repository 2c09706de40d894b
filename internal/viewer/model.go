// Terminal map and device table over the live snapshot
package viewer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"meshmap-live/internal/device"
	"meshmap-live/internal/stream"
)

const (
	colorReset  = "\x1b[0m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorCyan   = "\x1b[36m"

	detailWidth = 36
	minSpan     = 0.0001
)

var (
	titleStyle      = lipgloss.NewStyle().Bold(true)
	connectingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	connectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	panelStyle      = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Source is the read side of the live engine.
type Source interface {
	View() *device.Snapshot
	Lookup(key string) (device.Record, bool)
	Phase() stream.Phase
	FullyConnected() bool
}

type tickMsg time.Time

type model struct {
	src     Source
	refresh time.Duration
	now     func() time.Time

	table     table.Model
	input     textinput.Model
	searching bool
	help      bool
	showMap   bool

	snap      *device.Snapshot
	phase     stream.Phase
	connected bool
	// selected holds only the key; the record is resolved on every refresh.
	selected string

	width  int
	height int

	mapCenterLat   float64
	mapCenterLon   float64
	mapLatSpan     float64
	mapLonSpan     float64
	mapInitialized bool
}

func newModel(src Source, refresh time.Duration) model {
	if refresh <= 0 {
		refresh = 500 * time.Millisecond
	}
	cols := []table.Column{
		{Title: "Device", Width: 18},
		{Title: "MAC", Width: 18},
		{Title: "Lat", Width: 10},
		{Title: "Lon", Width: 10},
		{Title: "Alt", Width: 8},
		{Title: "Last seen", Width: 16},
	}
	t := table.New(table.WithColumns(cols), table.WithFocused(true), table.WithHeight(10))
	in := textinput.New()
	in.Placeholder = "device MAC"
	in.Prompt = "select: "
	in.CharLimit = 64
	return model{
		src:     src,
		refresh: refresh,
		now:     time.Now,
		table:   t,
		input:   in,
		showMap: true,
		phase:   stream.PhaseConnecting,
	}
}

// Run starts the viewer and blocks until the user quits or ctx is done.
func Run(ctx context.Context, src Source, refresh time.Duration) error {
	p := tea.NewProgram(newModel(src, refresh), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && (ctx.Err() != nil || errors.Is(err, tea.ErrInterrupted)) {
		return nil
	}
	return err
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg { return tickMsg(time.Now()) }
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(m.tableHeight())
		return m, nil
	case tickMsg:
		m.pull()
		return m, m.tick()
	case tea.KeyMsg:
		if m.searching {
			switch msg.Type {
			case tea.KeyEnter:
				if key := strings.TrimSpace(m.input.Value()); key != "" {
					m.selected = key
				}
				m.searching = false
				m.input.Blur()
				m.input.Reset()
			case tea.KeyEsc:
				m.searching = false
				m.input.Blur()
				m.input.Reset()
			default:
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
			case "q", "ctrl+c":
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "?", "h":
			m.help = true
			return m, nil
		case "/":
			m.searching = true
			return m, m.input.Focus()
		case "esc":
			m.selected = ""
			return m, nil
		case "enter":
			if row := m.table.SelectedRow(); len(row) > 1 {
				m.selected = row[1]
			}
			return m, nil
		case "m":
			m.showMap = !m.showMap
			m.table.SetHeight(m.tableHeight())
			return m, nil
		case "f":
			m.fitMap()
			return m, nil
		case "+", "=":
			m.mapLatSpan = math.Max(m.mapLatSpan*0.8, minSpan)
			m.mapLonSpan = math.Max(m.mapLonSpan*0.8, minSpan)
			return m, nil
		case "-":
			m.mapLatSpan *= 1.25
			m.mapLonSpan *= 1.25
			return m, nil
		case "left":
			m.mapCenterLon -= m.mapLonSpan * 0.1
			return m, nil
		case "right":
			m.mapCenterLon += m.mapLonSpan * 0.1
			return m, nil
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

// pull refreshes the model from the engine.
func (m *model) pull() {
	m.snap = m.src.View()
	m.phase = m.src.Phase()
	m.connected = m.src.FullyConnected()

	now := m.now()
	recs := m.snap.Records()
	rows := make([]table.Row, 0, len(recs))
	for _, r := range recs {
		seen := "-"
		if r.LastSeen > 0 {
			seen = TimeAgo(now, r.LastSeen)
		}
		rows = append(rows, table.Row{
			r.Label(),
			r.Key,
			fmt.Sprintf("%.5f", r.Position.Latitude),
			fmt.Sprintf("%.5f", r.Position.Longitude),
			fmt.Sprintf("%.1f", r.Position.Altitude),
			seen,
		})
	}
	m.table.SetRows(rows)
	if !m.mapInitialized && len(recs) > 0 {
		m.fitMap()
	}
}

// fitMap sets the map bounds so every known device is visible.
func (m *model) fitMap() {
	minLat, maxLat := math.Inf(1), math.Inf(-1)
	minLon, maxLon := math.Inf(1), math.Inf(-1)
	m.snap.Range(func(r device.Record) bool {
		minLat = math.Min(minLat, r.Position.Latitude)
		maxLat = math.Max(maxLat, r.Position.Latitude)
		minLon = math.Min(minLon, r.Position.Longitude)
		maxLon = math.Max(maxLon, r.Position.Longitude)
		return true
	})
	if math.IsInf(minLat, 1) {
		minLat, maxLat = -90, 90
		minLon, maxLon = -180, 180
	}
	m.mapCenterLat = (maxLat + minLat) / 2
	m.mapCenterLon = (maxLon + minLon) / 2
	// pad so edge devices are not drawn on the border
	m.mapLatSpan = (maxLat - minLat) * 1.1
	m.mapLonSpan = (maxLon - minLon) * 1.1
	if m.mapLatSpan == 0 {
		m.mapLatSpan = 0.02
	}
	if m.mapLonSpan == 0 {
		m.mapLonSpan = 0.02
	}
	m.mapInitialized = true
}

func (m model) tableHeight() int {
	if m.height == 0 {
		return 10
	}
	h := m.height - 6
	if m.showMap {
		h = m.height / 3
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m model) View() string {
	if m.help {
		return m.renderHelp()
	}
	sections := []string{m.renderBanner()}
	if m.showMap {
		sections = append(sections, m.renderMap())
	}
	body := m.table.View()
	if m.selected != "" {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, " ", m.renderSelection())
	}
	sections = append(sections, body)
	if m.searching {
		sections = append(sections, m.input.View())
	} else {
		sections = append(sections, hintStyle.Render("/ select  enter pick row  esc clear  m map  +/- zoom  ? help  q quit"))
	}
	return strings.Join(sections, "\n")
}

func (m model) renderBanner() string {
	status := connectingStyle.Render("Connecting ...")
	if m.connected {
		status = connectedStyle.Render("Connected!")
	}
	return fmt.Sprintf("%s  phase=%s devices=%d", status, m.phase, m.snap.Len())
}

func (m model) renderSelection() string {
	rec, ok := m.src.Lookup(m.selected)
	if !ok {
		return panelStyle.Render(fmt.Sprintf("ID: %s\nnot seen yet", m.selected))
	}
	return panelStyle.Render(renderDetail(rec, m.now(), detailWidth))
}

func (m model) renderMap() string {
	if m.snap.Len() == 0 {
		return "No position data"
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	height := m.height - m.tableHeight() - 8
	if height < 5 {
		height = 5
	}
	minLat := m.mapCenterLat - m.mapLatSpan/2
	maxLat := m.mapCenterLat + m.mapLatSpan/2
	minLon := m.mapCenterLon - m.mapLonSpan/2
	maxLon := m.mapCenterLon + m.mapLonSpan/2

	grid := make([][]string, height)
	for i := range grid {
		row := make([]string, width)
		for j := range row {
			row[j] = "."
		}
		grid[i] = row
	}
	const divisions = 4
	for i := 1; i < divisions; i++ {
		x := int(float64(width-1) * float64(i) / divisions)
		for y := 0; y < height; y++ {
			grid[y][x] = "|"
		}
		y := int(float64(height-1) * float64(i) / divisions)
		for x2 := 0; x2 < width; x2++ {
			if grid[y][x2] == "|" {
				grid[y][x2] = "+"
			} else {
				grid[y][x2] = "-"
			}
		}
	}
	m.snap.Range(func(r device.Record) bool {
		x := int((r.Position.Longitude - minLon) / (maxLon - minLon) * float64(width-1))
		y := int((maxLat - r.Position.Latitude) / (maxLat - minLat) * float64(height-1))
		if y < 0 || y >= height || x < 0 || x >= width {
			return true
		}
		c := colorCyan
		if r.Key == m.selected {
			c = colorYellow
		} else if r.BroadcastMessage != "" {
			c = colorGreen
		}
		grid[y][x] = c + "●" + colorReset
		return true
	})

	var b strings.Builder
	b.WriteString(fmt.Sprintf("lat %.5f..%.5f lon %.5f..%.5f N↑\n", maxLat, minLat, minLon, maxLon))
	for _, row := range grid {
		b.WriteString(strings.Join(row, ""))
		b.WriteByte('\n')
	}
	midLat := (maxLat + minLat) / 2
	kmPerLon := 111.0 * math.Cos(midLat*math.Pi/180)
	kmPerChar := (maxLon - minLon) * kmPerLon / float64(width)
	barChars := int(math.Min(10, float64(width)/3))
	b.WriteString(fmt.Sprintf("Scale: |%s| %.1fkm  %s●%s=device %s●%s=broadcasting %s●%s=selected",
		strings.Repeat("-", barChars), kmPerChar*float64(barChars),
		colorCyan, colorReset, colorGreen, colorReset, colorYellow, colorReset))
	return b.String()
}

func (m model) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q      quit",
		" /      select a device by MAC",
		" enter  select the highlighted row",
		" esc    clear the selection",
		" ↑↓     move in the device table",
		" ←→     pan map",
		" +/-    zoom map",
		" f      fit map to all devices",
		" m      toggle map view",
		" h/?    toggle this help view",
	}
	return strings.Join(lines, "\n")
}
