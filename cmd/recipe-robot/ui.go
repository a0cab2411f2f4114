package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/deploymenttheory/macos-recipe-robot/tools/emitter"
	"github.com/deploymenttheory/macos-recipe-robot/tools/recipe"
	"github.com/deploymenttheory/macos-recipe-robot/tools/robot"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	styleTitle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim      = lipgloss.NewStyle().Foreground(colorDim)
	styleValue    = lipgloss.NewStyle().Foreground(colorWhite)
	styleWarning  = lipgloss.NewStyle().Foreground(colorYellow)
	styleReminder = lipgloss.NewStyle().Foreground(colorCyan)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
)

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

func printSuccess(format string, args ...any) {
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + styleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

func printFile(path string) {
	fmt.Println("  " + styleDim.Render(iconArrow) + " " + styleValue.Render(path))
}

func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(24)
	fmt.Println(keyStyle.Render(key) + " " + styleValue.Render(value))
}

// kindStatus renders one row of the kinds table.
func kindStatus(st *recipe.State) string {
	switch {
	case st.Selected:
		return styleIconSuccess.Render("create")
	case st.Buildable:
		return styleDim.Render("skip (not selected)")
	case st.Existing && st.Preferred:
		return styleWarning.Render("exists")
	case st.Existing:
		return styleDim.Render("exists")
	default:
		return styleDim.Render("not preferred")
	}
}

func printKinds(states recipe.States) {
	name := lipgloss.NewStyle().Width(10)
	parent := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	for _, st := range states {
		fmt.Println("  " + name.Render(st.Kind.Name) + parent.Render(st.Kind.ParentName()) + kindStatus(st))
	}
}

// printSummary prints the end-of-run report: kinds, files, warnings and
// reminders, each printed once.
func printSummary(res *robot.Result, written []emitter.Written) {
	fmt.Println()
	fmt.Println(styleTitle.Render(res.Facts.SubjectName) + " " + styleDim.Render("("+res.InputType.String()+")"))
	printKinds(res.States)

	if len(written) > 0 {
		fmt.Println()
		printSuccess("Created %d recipe(s)", len(written))
		for _, w := range written {
			printFile(w.Path)
		}
	}

	if res.Report.Empty() {
		fmt.Println()
		printSuccess("No warnings or reminders")
		return
	}
	if len(res.Report.Warnings) > 0 {
		fmt.Println()
		fmt.Println(styleTitle.Render("Warnings"))
		for _, w := range res.Report.Warnings {
			printWarning("%s", w)
		}
	}
	if len(res.Report.Reminders) > 0 {
		fmt.Println()
		fmt.Println(styleTitle.Render("Reminders"))
		for _, r := range res.Report.Reminders {
			fmt.Println(styleIconInfo.Render(iconInfo) + " " + styleReminder.Render(r))
		}
	}
}

func printRegistry(reg *recipe.Registry) {
	name := lipgloss.NewStyle().Foreground(colorCyan).Width(10)
	parent := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	for _, k := range reg.Walk() {
		p := k.ParentName()
		if p == "" {
			p = "-"
		}
		fmt.Println(name.Render(k.Name) + parent.Render(p) + styleDim.Render(k.Description))
	}
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return styleDim.Render("(all)")
	}
	return strings.Join(values, ", ")
}
