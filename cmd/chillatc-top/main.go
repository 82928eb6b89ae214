// Command chillatc-top shows a running chillatc server's playback state
// in the terminal.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/satindergrewal/chillatc/internal/config"
)

func main() {
	cfg := config.Load()
	addr := flag.String("addr", fmt.Sprintf("http://localhost:%d", cfg.Port), "chillatc server base URL")
	every := flag.Duration("interval", 500*time.Millisecond, "status poll interval")
	flag.Parse()

	src := &statusSource{
		url:    *addr + "/api/status",
		client: &http.Client{Timeout: 2 * time.Second},
	}
	p := tea.NewProgram(newModel(src, *every), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "chillatc-top:", err)
		os.Exit(1)
	}
}
