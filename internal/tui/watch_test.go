package tui

import (
	"errors"
	"net/netip"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/mdns/discover"
	"github.com/muurk/mdns/response"
)

type fakeSource struct {
	results  chan discover.Result
	solicits int
}

func (f *fakeSource) Results() <-chan discover.Result { return f.results }
func (f *fakeSource) Solicit()                        { f.solicits++ }

func newTestModel() (WatchModel, *fakeSource) {
	src := &fakeSource{results: make(chan discover.Result, 4)}
	m := NewWatchModel("_http._tcp.local", src)
	m.now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }
	return m, src
}

func announce(instance, ip string) discover.Result {
	return discover.Result{
		Interface: "192.168.1.20",
		Response: &response.Response{
			Answers: []response.Record{{Name: "_http._tcp.local", Kind: response.PTR{Target: instance}}},
			Additional: []response.Record{
				{Name: instance, Kind: response.SRV{Port: 80, Target: "host.local"}},
				{Name: "host.local", Kind: response.A{Addr: netip.MustParseAddr(ip)}},
			},
		},
	}
}

func update(t *testing.T, m WatchModel, msg tea.Msg) WatchModel {
	t.Helper()
	next, _ := m.Update(msg)
	wm, ok := next.(WatchModel)
	if !ok {
		t.Fatalf("Update() returned %T", next)
	}
	return wm
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestWatchModel_CollectsDevices(t *testing.T) {
	m, _ := newTestModel()

	m = update(t, m, resultMsg{announce("a._http._tcp.local", "10.0.0.1")})
	m = update(t, m, resultMsg{announce("a._http._tcp.local", "10.0.0.1")})
	m = update(t, m, resultMsg{announce("b._http._tcp.local", "10.0.0.2")})

	if m.Responses != 3 {
		t.Errorf("Responses = %d, want 3", m.Responses)
	}
	devices := m.Devices()
	if len(devices) != 2 {
		t.Fatalf("Devices() = %d, want 2", len(devices))
	}
	if devices[0].Interface != "192.168.1.20" {
		t.Errorf("device interface = %q, want 192.168.1.20", devices[0].Interface)
	}
	if len(m.list.Items()) != 2 {
		t.Errorf("list items = %d, want 2", len(m.list.Items()))
	}
}

func TestWatchModel_EmptyAndErrors(t *testing.T) {
	m, _ := newTestModel()

	m = update(t, m, resultMsg{discover.Result{Interface: "eth", Response: &response.Response{}}})
	if m.Empty != 1 || len(m.feed) != 0 {
		t.Errorf("hidden empty: Empty = %d, feed = %d; want 1, 0", m.Empty, len(m.feed))
	}

	m = update(t, m, keyPress("e"))
	if !m.ShowEmpty {
		t.Fatal("ShowEmpty should toggle on")
	}
	m = update(t, m, resultMsg{discover.Result{Interface: "eth", Response: &response.Response{}}})
	if m.Empty != 2 || len(m.feed) != 1 {
		t.Errorf("shown empty: Empty = %d, feed = %d; want 2, 1", m.Empty, len(m.feed))
	}

	boom := errors.New("boom")
	m = update(t, m, resultMsg{discover.Result{Interface: "eth", Err: boom}})
	if m.Errors != 1 || !errors.Is(m.LastErr, boom) {
		t.Errorf("Errors = %d, LastErr = %v", m.Errors, m.LastErr)
	}
}

func TestWatchModel_Keys(t *testing.T) {
	m, src := newTestModel()

	m = update(t, m, keyPress("r"))
	if src.solicits != 1 {
		t.Errorf("solicits = %d, want 1", src.solicits)
	}

	m = update(t, m, resultMsg{announce("a._http._tcp.local", "10.0.0.1")})
	m = update(t, m, keyPress("c"))
	if len(m.Devices()) != 0 || len(m.list.Items()) != 0 {
		t.Error("clear should forget every device")
	}

	_, cmd := m.Update(keyPress("q"))
	if cmd == nil {
		t.Fatal("quit key should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit key should quit")
	}
}

func TestWatchModel_FeedBounded(t *testing.T) {
	m, _ := newTestModel()
	for i := 0; i < feedSize+4; i++ {
		m = update(t, m, resultMsg{discover.Result{Interface: "eth", Err: errors.New("x")}})
	}
	if len(m.feed) != feedSize {
		t.Errorf("feed = %d lines, want %d", len(m.feed), feedSize)
	}
}

func TestWatchModel_StreamClosed(t *testing.T) {
	m, src := newTestModel()
	close(src.results)

	msg := waitForResult(src.results)()
	if _, ok := msg.(streamClosedMsg); !ok {
		t.Fatalf("waitForResult() on closed stream = %T", msg)
	}

	m = update(t, m, msg)
	if !m.Finished {
		t.Error("Finished should be set")
	}
	if !strings.Contains(m.View(), "finished") {
		t.Error("View() should show the finished state")
	}
}

func TestWatchModel_View(t *testing.T) {
	m, _ := newTestModel()
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = update(t, m, resultMsg{announce("kitchen._http._tcp.local", "10.0.0.9")})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	view := m.View()
	for _, want := range []string{"_http._tcp.local", "kitchen", "devices 1", "http://10.0.0.9:80"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}
