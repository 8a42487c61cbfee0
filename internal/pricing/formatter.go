package pricing

import (
	"fmt"
	"strings"
)

// Formatter renders cost breakdowns for terminal display.
type Formatter struct{}

// NewFormatter creates a new formatter.
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format renders a single breakdown as a boxed table.
func (f *Formatter) Format(b *Breakdown) string {
	var sb strings.Builder

	width := 58

	sb.WriteString(boxTop(width))
	sb.WriteString(boxLine("Accelerator Cost Estimate", width))
	sb.WriteString(boxSep(width))

	sb.WriteString(boxLine(fmt.Sprintf("Machine type: %s", b.Request.MachineType), width))
	if b.Request.Topology != "" {
		sb.WriteString(boxLine(fmt.Sprintf("Topology:     %s", b.Request.Topology), width))
	}
	sb.WriteString(boxLine(fmt.Sprintf("Zone:         %s", b.Request.Zone), width))
	sb.WriteString(boxLine(fmt.Sprintf("Replicas:     %d", b.Request.Replicas), width))
	sb.WriteString(boxSep(width))

	for _, item := range b.Items {
		line := fmt.Sprintf("%-26s %4d x %6.2f  %8.2f/hr",
			item.Description, item.Quantity, item.UnitPerHour, item.PerHour)
		sb.WriteString(boxLine(line, width))
	}

	sb.WriteString(boxSep(width))
	sb.WriteString(boxLine(fmt.Sprintf("%-28s %10.2f %s/hr", "Total", b.PerHour, b.Currency), width))
	sb.WriteString(boxLine(fmt.Sprintf("%-28s %10.2f %s/day", "", b.PerDay, b.Currency), width))
	sb.WriteString(boxLine(fmt.Sprintf("%-28s %10.2f %s/mo", "", b.PerMonth, b.Currency), width))
	sb.WriteString(boxBottom(width))

	sb.WriteString(fmt.Sprintf("\n  Rate table %s, on-demand list prices\n", b.RatesVersion))

	return sb.String()
}

// FormatComparison renders several breakdowns as one compact table, cheapest
// first.
func (f *Formatter) FormatComparison(breakdowns []*Breakdown) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("  %-22s %-10s %10s %12s\n", "MACHINE TYPE", "TOPOLOGY", "PER HOUR", "PER MONTH"))
	sb.WriteString("  " + strings.Repeat("─", 58) + "\n")
	for _, b := range breakdowns {
		topology := b.Request.Topology
		if topology == "" {
			topology = "-"
		}
		sb.WriteString(fmt.Sprintf("  %-22s %-10s %10.2f %12.2f\n",
			b.Request.MachineType, topology, b.PerHour, b.PerMonth))
	}
	return sb.String()
}

func boxTop(width int) string {
	return "┌" + strings.Repeat("─", width) + "┐\n"
}

func boxBottom(width int) string {
	return "└" + strings.Repeat("─", width) + "┘\n"
}

func boxSep(width int) string {
	return "├" + strings.Repeat("─", width) + "┤\n"
}

func boxLine(content string, width int) string {
	if len(content) > width-2 {
		content = content[:width-2]
	}
	return fmt.Sprintf("│ %-*s │\n", width-2, content)
}
