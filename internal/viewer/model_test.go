package viewer

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"meshmap-live/internal/device"
	"meshmap-live/internal/stream"
)

type fakeSource struct {
	store     *device.Store
	phase     stream.Phase
	connected bool
}

func (f *fakeSource) View() *device.Snapshot                  { return f.store.View() }
func (f *fakeSource) Lookup(key string) (device.Record, bool) { return f.store.Lookup(key) }
func (f *fakeSource) Phase() stream.Phase                     { return f.phase }
func (f *fakeSource) FullyConnected() bool                    { return f.connected }

func newFakeSource() *fakeSource {
	src := &fakeSource{store: device.NewStore()}
	src.store.Apply([]device.Record{
		{Key: "AA:BB", Position: device.Position{Longitude: 1, Latitude: 2}, LastSeen: 1000},
		{Key: "CC:DD", DisplayName: "relay", Position: device.Position{Longitude: 3, Latitude: 4}, LastSeen: 940},
	})
	return src
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	mi, _ := m.Update(msg)
	return mi.(model)
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testModel(src Source) model {
	m := newModel(src, time.Second)
	m.now = func() time.Time { return time.Unix(1000, 0) }
	return m
}

func TestBannerFollowsDebouncedSignal(t *testing.T) {
	src := newFakeSource()
	m := testModel(src)
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = update(t, m, tickMsg(time.Now()))
	if v := m.View(); !strings.Contains(v, "Connecting ...") || !strings.Contains(v, "devices=2") {
		t.Fatalf("expected connecting banner, got:\n%s", v)
	}

	src.phase = stream.PhaseConnected
	m = update(t, m, tickMsg(time.Now()))
	if !strings.Contains(m.View(), "Connecting ...") {
		t.Fatalf("banner must wait for the debounced signal")
	}

	src.connected = true
	m = update(t, m, tickMsg(time.Now()))
	if v := m.View(); !strings.Contains(v, "Connected!") || !strings.Contains(v, "phase=connected") {
		t.Fatalf("expected connected banner, got:\n%s", v)
	}
}

func TestTickSchedulesNextRefresh(t *testing.T) {
	m := testModel(newFakeSource())
	_, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatalf("expected a follow-up tick")
	}
	if m.Init() == nil {
		t.Fatalf("Init should trigger the first refresh")
	}
}

func TestTableRows(t *testing.T) {
	m := testModel(newFakeSource())
	m = update(t, m, tickMsg(time.Now()))
	rows := m.table.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "AA:BB" || rows[1][0] != "relay" || rows[1][5] != "1 minute ago" {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestSelectionReresolvesOnRefresh(t *testing.T) {
	src := newFakeSource()
	m := testModel(src)
	m = update(t, m, tickMsg(time.Now()))

	m = update(t, m, keys("/"))
	if !m.searching {
		t.Fatalf("search input not opened")
	}
	for _, r := range "AA:BB" {
		m = update(t, m, keys(string(r)))
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.searching || m.selected != "AA:BB" {
		t.Fatalf("selection not applied: searching=%v selected=%q", m.searching, m.selected)
	}
	if v := m.View(); !strings.Contains(v, "Longitude: 1.00°") {
		t.Fatalf("detail panel missing:\n%s", v)
	}

	src.store.Apply([]device.Record{{Key: "AA:BB", DisplayName: "moved", Position: device.Position{Longitude: 9.5, Latitude: 2}, LastSeen: 1000}})
	m = update(t, m, tickMsg(time.Now()))
	v := m.View()
	if !strings.Contains(v, "Longitude: 9.50°") || !strings.Contains(v, "moved") {
		t.Fatalf("detail not refreshed from the latest record:\n%s", v)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.selected != "" {
		t.Fatalf("esc should clear the selection")
	}
}

func TestSelectUnknownDevice(t *testing.T) {
	m := testModel(newFakeSource())
	m.selected = "EE:FF"
	m = update(t, m, tickMsg(time.Now()))
	if !strings.Contains(m.View(), "not seen yet") {
		t.Fatalf("expected placeholder for unknown device")
	}
}

func TestEnterSelectsHighlightedRow(t *testing.T) {
	m := testModel(newFakeSource())
	m = update(t, m, tickMsg(time.Now()))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.selected != "CC:DD" {
		t.Fatalf("selected %q, want CC:DD", m.selected)
	}
}

func TestMapZoomAndPan(t *testing.T) {
	m := testModel(newFakeSource())
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 40})
	m = update(t, m, tickMsg(time.Now()))
	if !m.mapInitialized {
		t.Fatalf("map bounds not fitted")
	}
	if m.mapCenterLat != 3 || m.mapCenterLon != 2 {
		t.Fatalf("unexpected center %.2f,%.2f", m.mapCenterLat, m.mapCenterLon)
	}
	span := m.mapLatSpan
	m = update(t, m, keys("+"))
	if m.mapLatSpan >= span {
		t.Fatalf("zoom in did not shrink span")
	}
	m = update(t, m, keys("-"))
	m = update(t, m, keys("-"))
	if m.mapLatSpan <= span {
		t.Fatalf("zoom out did not grow span")
	}
	lon := m.mapCenterLon
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.mapCenterLon <= lon {
		t.Fatalf("pan right did not move the center")
	}
	if strings.Count(m.View(), "●") < 5 {
		t.Fatalf("devices not drawn on the map:\n%s", m.View())
	}

	m = update(t, m, keys("m"))
	if m.showMap || strings.Contains(m.View(), "Scale:") {
		t.Fatalf("map should be hidden")
	}
}

func TestQuitAndHelp(t *testing.T) {
	m := testModel(newFakeSource())
	m = update(t, m, keys("?"))
	if !strings.Contains(m.View(), "Key Bindings:") {
		t.Fatalf("help not shown")
	}
	m = update(t, m, keys("?"))
	if m.help {
		t.Fatalf("help not closed")
	}
	_, cmd := m.Update(keys("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
