package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	salmonPink = lipgloss.Color("#FFB3BA")
	mintGreen  = lipgloss.Color("#A8E6CF")
	mutedGray  = lipgloss.Color("#6B7280")

	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(mintGreen)

	errorStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Width(14)
)

func printHeader(text string) {
	fmt.Println(headerStyle.Render(text))
}

func printField(label string, value interface{}) {
	fmt.Println(labelStyle.Render(label) + fmt.Sprint(value))
}

func printSuccess(format string, args ...interface{}) {
	fmt.Println(successStyle.Render("✓ " + fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("! " + fmt.Sprintf(format, args...)))
}
