package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zorenko/aircap/internal/core/domain"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	optionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	numStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Menu is the sequential choice-driven interaction surface. It exposes
// exactly two capabilities: pick one of N labeled options, and display
// text.
type Menu struct {
	in  *bufio.Reader
	out io.Writer
}

// NewMenu creates a menu reading choices from in and rendering to out.
func NewMenu(in io.Reader, out io.Writer) *Menu {
	return &Menu{in: bufio.NewReader(in), out: out}
}

// Select renders the labeled options and blocks until the user picks one,
// returning its index. Invalid input reprompts; EOF returns an error.
func (m *Menu) Select(title string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("no options to select from")
	}

	fmt.Fprintln(m.out, titleStyle.Render(title))
	for i, opt := range options {
		fmt.Fprintf(m.out, "  %s %s\n", numStyle.Render(fmt.Sprintf("%d)", i+1)), optionStyle.Render(opt))
	}

	for {
		fmt.Fprint(m.out, dimStyle.Render("> "))
		line, err := m.in.ReadString('\n')
		if err != nil {
			return 0, fmt.Errorf("read selection: %w", err)
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || n < 1 || n > len(options) {
			fmt.Fprintln(m.out, errStyle.Render(fmt.Sprintf("enter a number between 1 and %d", len(options))))
			continue
		}
		return n - 1, nil
	}
}

// Println displays one line of plain text.
func (m *Menu) Println(text string) {
	fmt.Fprintln(m.out, text)
}

// Success displays a highlighted success line.
func (m *Menu) Success(text string) {
	fmt.Fprintln(m.out, okStyle.Render(text))
}

// Error displays a highlighted error line.
func (m *Menu) Error(text string) {
	fmt.Fprintln(m.out, errStyle.Render(text))
}

// APLabel formats an access point as a menu option line.
func APLabel(ap domain.AccessPoint) string {
	return fmt.Sprintf("%-20s ch %-3s %4d dBm  %-12s %s",
		ap.BSSID, ap.Channel, ap.Power, ap.Encryption, ap.DisplayName())
}

// APDetails formats the full AP record for the show-info action.
func APDetails(ap domain.AccessPoint) string {
	var b strings.Builder
	fmt.Fprintf(&b, "BSSID:      %s\n", ap.BSSID)
	fmt.Fprintf(&b, "SSID:       %s\n", ap.DisplayName())
	fmt.Fprintf(&b, "Channel:    %s\n", ap.Channel)
	fmt.Fprintf(&b, "Power:      %d dBm\n", ap.Power)
	fmt.Fprintf(&b, "Encryption: %s\n", ap.Encryption)
	fmt.Fprintf(&b, "First seen: %s", ap.FirstSeen)
	return b.String()
}
