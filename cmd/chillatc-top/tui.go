package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/satindergrewal/chillatc/internal/playstate"
	"github.com/satindergrewal/chillatc/internal/session"
	"github.com/satindergrewal/chillatc/internal/waveform"
)

const (
	waveRows  = 9
	frameRate = 60 * time.Millisecond
)

type statusMsg struct {
	st  *serverStatus
	err error
}

type frameMsg time.Time

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	onStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	offStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	atcStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	spotifyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("41"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

type model struct {
	src      *statusSource
	interval time.Duration
	start    time.Time
	now      time.Time
	width    int
	status   *serverStatus
	err      error
}

func newModel(src *statusSource, interval time.Duration) model {
	now := time.Now()
	return model{src: src, interval: interval, start: now, now: now}
}

func (m model) poll(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		st, err := m.src.fetch()
		return statusMsg{st: st, err: err}
	})
}

func frameTick() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.poll(0), frameTick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

	case frameMsg:
		m.now = time.Time(msg)
		return m, frameTick()

	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.st
		}
		return m, m.poll(m.interval)
	}
	return m, nil
}

func (m model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("chillatc") + "  " + labelStyle.Render(m.src.url) + "\n\n")

	if m.status == nil {
		if m.err != nil {
			b.WriteString(errStyle.Render("unreachable: "+m.err.Error()) + "\n")
		} else {
			b.WriteString(labelStyle.Render("waiting for status...") + "\n")
		}
		b.WriteString("\n" + labelStyle.Render("q to quit"))
		return b.String()
	}
	st := m.status

	inner := m.width - 4
	if inner < 20 {
		inner = 20
	}
	b.WriteString(boxStyle.Width(inner).Render(m.sourcesView(st)) + "\n")

	t := m.now.Sub(m.start).Seconds()
	b.WriteString(m.waveView(st.Status, inner, t) + "\n")

	b.WriteString(hostLine(st) + "\n")
	if m.err != nil {
		b.WriteString(errStyle.Render("last poll failed: "+m.err.Error()) + "\n")
	}
	b.WriteString(labelStyle.Render("q to quit"))
	return b.String()
}

func (m model) sourcesView(st *serverStatus) string {
	var lines []string

	atc := st.ATC
	atcLine := atcStyle.Render("ATC      ") + playing(atc.Playing) + "  " +
		labelStyle.Render(fmt.Sprintf("vol %3.0f%%", atc.Volume*100))
	if atc.Switching {
		atcLine += "  " + labelStyle.Render("switching")
	}
	lines = append(lines, atcLine)
	if atc.Stream != "" {
		lines = append(lines, labelStyle.Render("         "+atc.Stream))
	}
	lines = append(lines, labelStyle.Render(fmt.Sprintf("         listened %s", fmtSeconds(atc.ListenSeconds))))

	sp := st.Spotify
	spLine := spotifyStyle.Render("Spotify  ") + playing(sp.Playing) + "  " +
		labelStyle.Render(fmt.Sprintf("vol %3.0f%%", sp.Volume*100))
	if !sp.Ready {
		spLine += "  " + offStyle.Render("not ready")
	}
	lines = append(lines, spLine)
	if sp.Track != nil {
		lines = append(lines, "         "+sp.Track.Name+labelStyle.Render(" - "+sp.Track.Artist))
	}
	if sp.Position != nil {
		lines = append(lines, labelStyle.Render(fmt.Sprintf("         track %d of %d", sp.Position.Index, sp.Position.Total)))
	}
	if sp.PlaylistURI != "" {
		lines = append(lines, labelStyle.Render("         "+sp.PlaylistURI))
	}

	lines = append(lines, "")
	lines = append(lines, labelStyle.Render("both playing ")+playing(st.BothPlaying))
	return strings.Join(lines, "\n")
}

// waveView draws both waves as a character grid, scaled from the
// server's canvas to the terminal width.
func (m model) waveView(st session.Status, cols int, t float64) string {
	grid := make([][]string, waveRows)
	for r := range grid {
		grid[r] = make([]string, cols)
		for c := range grid[r] {
			grid[r][c] = " "
		}
	}
	layers := []struct {
		src   playstate.Source
		style lipgloss.Style
	}{
		{playstate.ATC, atcStyle},
		{playstate.Streaming, spotifyStyle},
	}
	for _, l := range layers {
		w, ok := st.Waves[l.src]
		if !ok {
			continue
		}
		peak := w.Params.BaseAmplitude + w.Params.JitterAmplitude
		if peak <= 0 || st.Width <= 0 {
			continue
		}
		// each column stands in for width/cols canvas pixels
		scale := float64(st.Width) / float64(cols)
		ys := waveform.Sample(w.Params, t, w.Amplitude, w.Frequency*scale, w.Volume, cols)
		mark := l.style.Render("•")
		for c, y := range ys {
			row := int(math.Round((y/peak + 1) / 2 * float64(waveRows-1)))
			row = max(0, min(waveRows-1, row))
			grid[row][c] = mark
		}
	}
	lines := make([]string, waveRows)
	for r := range grid {
		lines[r] = strings.Join(grid[r], "")
	}
	return strings.Join(lines, "\n")
}

func hostLine(st *serverStatus) string {
	h := st.Host
	host := offStyle.Render("no host")
	if h.Connected {
		host = onStyle.Render("host " + h.Transport)
	}
	return host + labelStyle.Render(fmt.Sprintf("  webrtc %d  relay %d listeners  %d frames  %d dropped",
		h.WebRTCPeers, h.RelayListeners, h.RelayFrames, h.Dropped))
}

func playing(on bool) string {
	if on {
		return onStyle.Render("▶ playing")
	}
	return offStyle.Render("⏸ paused ")
}

func fmtSeconds(s float64) string {
	d := time.Duration(s) * time.Second
	return fmt.Sprintf("%d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}
