package cmd

import (
	"github.com/pterm/pterm"

	"github.com/oshokin/qidev/internal/controller"
)

// heading prints a section title.
func heading(title string) {
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold).Sprint(title))
}

// bullets renders names as a bullet list, or a dim placeholder when empty.
func bullets(names []string) {
	if len(names) == 0 {
		pterm.Println(pterm.NewStyle(pterm.FgGray).Sprint("  (none)"))

		return
	}

	items := make([]pterm.BulletListItem, 0, len(names))
	for _, name := range names {
		items = append(items, pterm.BulletListItem{Level: 0, Text: name})
	}

	_ = pterm.DefaultBulletList.WithItems(items).Render()
}

// report prints the outcome of a Result-returning operation.
// A refusal is shown as a warning and does not fail the command.
func report(result controller.Result, success, failure string) {
	if result.OK() {
		pterm.Success.Println(success)

		return
	}

	pterm.Warning.Printfln("%s: %v", failure, result.Err)
}

// choose asks the user to pick one of options.
func choose(prompt string, options []string) (string, error) {
	return pterm.DefaultInteractiveSelect.
		WithOptions(options).
		WithDefaultText(prompt).
		Show()
}
