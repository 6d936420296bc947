package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/htran/glowdesk/internal/app"
	"github.com/htran/glowdesk/internal/credential"
	"github.com/htran/glowdesk/internal/logging"
	"github.com/htran/glowdesk/internal/model"
)

func main() {
	cfgPath := model.DefaultConfigPath()
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "glowdesk: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "glowdesk: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	creds := credential.NewKeyringProvider()

	root := app.New(cfg, cfgPath, creds, logger)
	p := tea.NewProgram(root, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		logger.Error("program exited with error", zap.Error(err))
		fmt.Fprintf(os.Stderr, "glowdesk: %v\n", err)
		os.Exit(1)
	}
}
