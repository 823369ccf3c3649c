package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"todo-tracker/config"
	"todo-tracker/tui"
)

func runTUI(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	status := fmt.Sprintf("Storage: %s (%s)", s.cfg.Storage.Dir, s.cfg.Storage.Backend)
	if s.cfg.Storage.Backend == config.BackendMemory {
		status = "Storage: memory only, nothing is saved"
	}

	p := tea.NewProgram(tui.NewModel(s.svc, status), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
