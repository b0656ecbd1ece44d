package tags

import (
	"slices"

	"github.com/tgienger/stride/internal/models"
)

// Palette is the fixed set of tag group colors, used round-robin
var Palette = []models.Color{
	{Background: "#33467c", Foreground: "#c0caf5"},
	{Background: "#9ece6a", Foreground: "#1a1b26"},
	{Background: "#e0af68", Foreground: "#1a1b26"},
	{Background: "#bb9af7", Foreground: "#1a1b26"},
	{Background: "#7dcfff", Foreground: "#1a1b26"},
	{Background: "#f7768e", Foreground: "#1a1b26"},
	{Background: "#ff9e64", Foreground: "#1a1b26"},
	{Background: "#73daca", Foreground: "#1a1b26"},
}

// NextColor returns the first palette color not in used. Once every color is
// taken, colors are reused in palette order.
func NextColor(used []models.Color) models.Color {
	for _, c := range Palette {
		if !slices.Contains(used, c) {
			return c
		}
	}
	return Palette[len(used)%len(Palette)]
}
