package keymap

import (
	"fmt"
	"strings"
)

// HelpText renders the info dialog listing every bound button.
func HelpText(title string, bindings []Binding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Controller is running as a service.\n\n", title)

	if len(bindings) == 0 {
		b.WriteString("No remote buttons are configured.")
		return b.String()
	}

	b.WriteString("Use your remote control:")
	for _, binding := range bindings {
		label := binding.Label
		if label == "" {
			label = defaultLabel(binding.Action)
		}
		fmt.Fprintf(&b, "\n%s button - %s", strings.ToUpper(binding.Button), label)
	}
	return b.String()
}
