package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs an ASCII art banner for Leadflow.
func PrintBanner() {
	p := termenv.ColorProfile()
	// Teal-to-blue gradient
	s1 := termenv.String("  _                    _  __ _               ").Foreground(p.Color("#2dd4bf"))
	s2 := termenv.String(" | |    ___  __ _  __| |/ _| | _____      __ ").Foreground(p.Color("#22d3ee"))
	s3 := termenv.String(" | |   / _ \\/ _` |/ _` | |_| |/ _ \\ \\ /\\ / / ").Foreground(p.Color("#38bdf8"))
	s4 := termenv.String(" | |__|  __/ (_| | (_| |  _| | (_) \\ V  V /  ").Foreground(p.Color("#60a5fa"))
	s5 := termenv.String(" |_____\\___|\\__,_|\\__,_|_| |_|\\___/ \\_/\\_/   ").Foreground(p.Color("#818cf8"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println()
}
