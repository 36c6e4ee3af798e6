package main

import (
	"fmt"
	"os"
	"strings"

	constants "pulsepc/config"
	"pulsepc/internal/commands"
	"pulsepc/internal/ui"
)

// VERSION is set during build via ldflags
var VERSION string

// getCurrentVersion retrieves the current version from build flags or version.txt
func getCurrentVersion() string {
	if VERSION != "" {
		return VERSION
	}
	if data, err := os.ReadFile("version.txt"); err == nil {
		if v := strings.TrimSpace(string(data)); v != "" {
			return v
		}
	}
	return constants.VERSION
}

func main() {
	commands.GetCurrentVersion = getCurrentVersion

	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderStatus("error", err.Error()))
		os.Exit(1)
	}
}
