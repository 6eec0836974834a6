package tui

// Package tui documents the terminal surface of cosmicfill.
//
// PromptRequirement asks for the requirement name, using a bubbletea text
// input on a terminal and a plain line read otherwise. Reporter renders the
// engine's stage banners and outcomes with lipgloss styles; it satisfies
// engine.Reporter and is the only place stage progress reaches stdout.
