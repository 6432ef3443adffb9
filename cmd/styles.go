package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorInfo  = lipgloss.Color("10") // bright green
	colorWarn  = lipgloss.Color("11") // bright yellow
	colorError = lipgloss.Color("9")  // bright red
	colorDim   = lipgloss.Color("240")

	styleInfo  = lipgloss.NewStyle().Foreground(colorInfo)
	styleWarn  = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	styleError = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleDim   = lipgloss.NewStyle().Foreground(colorDim)
)

func printInfo(w io.Writer, msg string) {
	fmt.Fprintln(w, styleInfo.Render(msg))
}

func printWarn(w io.Writer, msg string) {
	fmt.Fprintln(w, styleWarn.Render(msg))
}

func printError(w io.Writer, msg string) {
	fmt.Fprintln(w, styleError.Render(msg))
}
