package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run opens the list browser on backend and blocks until the user quits.
func Run(backend Backend, opts Options) error {
	applyColorProfilePreference()
	_, err := tea.NewProgram(newBrowser(backend, opts), tea.WithAltScreen()).Run()
	return err
}
