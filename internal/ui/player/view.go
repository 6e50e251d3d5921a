package player

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	playSymbol  = "▶"
	pauseSymbol = "⏸"

	filledBlock = "▓"
	emptyBlock  = "░"
)

var (
	frameStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	titleStyle    = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	currentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	modeOnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("78")).Bold(true)
	modeOffStyle  = dimStyle
	helpTracklist = "↑/↓ select · enter play · space play/pause · n/p next/prev · tab player · q quit"
	helpPlayer    = "space play/pause · n/p next/prev · ←/→ seek · r repeat · s shuffle · tab tracklist · q quit"
)

// View implements tea.Model.
func (m Model) View() string {
	innerWidth := max(m.width-4, 20)

	var body string
	if m.view == ViewPlayer {
		body = m.renderPlayer(innerWidth)
	} else {
		body = m.renderTracklist(innerWidth)
	}

	var footer []string
	if m.err != nil {
		footer = append(footer, errorStyle.Render(m.err.Error()))
	} else if m.notice != "" {
		footer = append(footer, dimStyle.Render(m.notice))
	}
	help := helpTracklist
	if m.view == ViewPlayer {
		help = helpPlayer
	}
	footer = append(footer, dimStyle.Render(help))

	return frameStyle.Width(innerWidth+2).Render(body) + "\n" + strings.Join(footer, "\n")
}

func (m Model) renderPlayer(width int) string {
	st := m.status
	if st.Track == nil {
		return dimStyle.Render("Nothing playing")
	}

	t := st.Track
	lines := []string{
		titleStyle.Render(t.Name),
		t.ArtistLine(),
		dimStyle.Render(t.Album),
		"",
		RenderProgressBar(st.Elapsed, t.Duration, width, !m.paused),
		"",
		m.renderModes(),
	}
	if st.PlaylistName != "" {
		position := "-"
		if st.Index >= 0 {
			position = fmt.Sprintf("%d/%d", st.Index+1, len(st.Tracklist))
		}
		lines = append(lines, dimStyle.Render(fmt.Sprintf("%s · %s", st.PlaylistName, position)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderModes() string {
	mode := func(name string, on bool) string {
		if on {
			return modeOnStyle.Render(name + ": on")
		}
		return modeOffStyle.Render(name + ": off")
	}
	return mode("repeat", m.status.Repeat) + "   " + mode("shuffle", m.status.Shuffle)
}

func (m Model) renderTracklist(width int) string {
	st := m.status
	header := titleStyle.Render(st.PlaylistName)
	if st.PlaylistName == "" {
		header = titleStyle.Render("Tracklist")
	}
	if len(st.Tracklist) == 0 {
		return header + "\n" + dimStyle.Render("No tracks")
	}

	rows := m.visibleRows()
	offset := 0
	if m.cursor >= rows {
		offset = m.cursor - rows + 1
	}
	end := min(offset+rows, len(st.Tracklist))

	lines := []string{header}
	for i := offset; i < end; i++ {
		t := st.Tracklist[i]
		marker := "  "
		if i == st.Index {
			marker = playSymbol + " "
			if m.paused {
				marker = pauseSymbol + " "
			}
		}
		dur := formatDuration(t.Duration)
		label := truncate(fmt.Sprintf("%s - %s", t.Name, t.ArtistLine()), width-lipgloss.Width(marker)-lipgloss.Width(dur)-1)
		pad := max(width-lipgloss.Width(marker)-lipgloss.Width(label)-lipgloss.Width(dur), 1)
		line := marker + label + strings.Repeat(" ", pad) + dur

		switch {
		case i == m.cursor:
			line = cursorStyle.Render(line)
		case i == st.Index:
			line = currentStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// visibleRows is the number of tracklist rows that fit the terminal.
func (m Model) visibleRows() int {
	if m.height <= 0 {
		return 20
	}
	// border, header, footer lines
	return max(m.height-6, 1)
}

// RenderProgressBar renders a block-style progress bar.
// Format: ▶  1:23  ▓▓▓▓▓░░░░░  4:56
func RenderProgressBar(position, duration time.Duration, width int, playing bool) string {
	status := playSymbol
	if !playing {
		status = pauseSymbol
	}

	posStr := formatDuration(position)
	durStr := formatDuration(duration)

	fixedWidth := lipgloss.Width(status) + 2 + lipgloss.Width(posStr) + 2 + 2 + lipgloss.Width(durStr)
	barWidth := width - fixedWidth
	if barWidth < 3 {
		return status + "  " + posStr + " / " + durStr
	}

	var ratio float64
	if duration > 0 {
		ratio = float64(position) / float64(duration)
	}
	filled := min(max(int(float64(barWidth)*ratio), 0), barWidth)

	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, barWidth-filled)
	return status + "  " + posStr + "  " + bar + "  " + durStr
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", m, s)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

