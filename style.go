package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/localreader/narrator/internal/pacing"
)

var (
	keyword   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Render
	paragraph = lipgloss.NewStyle().Width(78).Padding(0, 0, 0, 2).Render

	faint   = lipgloss.NewStyle().Faint(true).Render
	bold    = lipgloss.NewStyle().Bold(true).Render
	warning = lipgloss.NewStyle().Foreground(lipgloss.Color("#F2A93B")).Render
	failure = lipgloss.NewStyle().Foreground(lipgloss.Color("#ED567A")).Render

	kindStyles = map[pacing.Kind]lipgloss.Style{
		pacing.KindHeader:    lipgloss.NewStyle().Foreground(lipgloss.Color("#EE6FF8")).Bold(true),
		pacing.KindDialogue:  lipgloss.NewStyle().Foreground(lipgloss.Color("#6C91BF")),
		pacing.KindNarration: lipgloss.NewStyle().Foreground(lipgloss.Color("#A8A8A8")),
	}
)
