package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gridflow/gridflow/internal/protocol"
)

const maxVectorPreview = 4

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render(fmt.Sprintf("gridflow • %s", m.name)))
	sections = append(sections, m.statusLine())

	if len(m.order) > 0 {
		sections = append(sections, sectionStyle.Render("Values"))
		sections = append(sections, m.renderValues())
	}

	if len(m.diagnostics) > 0 {
		sections = append(sections, sectionStyle.Render("Diagnostics"))
		sections = append(sections, m.renderDiagnostics())
	}

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("engine: %v", m.err)))
	}

	sections = append(sections, dimStyle.Render("press q to quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) statusLine() string {
	if m.engine == nil {
		return fmt.Sprintf("%s waiting for engine", m.spinner.View())
	}
	line := fmt.Sprintf("%s • %d values • %d updates", m.engine.EngineVersion, len(m.values), m.updates)
	if m.partial {
		line += " • " + partialStyle.Render("partial")
	}
	return dimStyle.Render(line)
}

func (m Model) renderValues() string {
	var lines []string
	for _, id := range m.order {
		lines = append(lines, fmt.Sprintf(" %s %s", dimStyle.Render(id), renderValue(m.values[id])))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderDiagnostics() string {
	var lines []string
	for _, diag := range m.diagnostics {
		style := warningStyle
		if diag.Level == protocol.LevelError {
			style = errorStyle
		}
		prefix := diag.NodeID
		if prefix == "" {
			prefix = "graph"
		}
		lines = append(lines, fmt.Sprintf(" %s [%s] %s", dimStyle.Render(prefix), style.Render(diag.Code), diag.Message))
	}
	return strings.Join(lines, "\n")
}

func renderValue(value protocol.Value) string {
	switch value.Kind {
	case protocol.ValueScalar:
		return scalarStyle.Render(fmt.Sprintf("%g", value.Scalar))
	case protocol.ValueVector:
		return vectorStyle.Render(vectorPreview(value.Vector))
	case protocol.ValueTable:
		if value.Table == nil {
			return vectorStyle.Render("table[empty]")
		}
		return vectorStyle.Render(fmt.Sprintf("table[%d cols × %d rows]", len(value.Table.Columns), len(value.Table.Rows)))
	case protocol.ValueError:
		return errorStyle.Render("✗ " + value.Message)
	}
	return dimStyle.Render("?")
}

func vectorPreview(values []float64) string {
	var parts []string
	for i, v := range values {
		if i == maxVectorPreview {
			parts = append(parts, fmt.Sprintf("… +%d", len(values)-maxVectorPreview))
			break
		}
		parts = append(parts, fmt.Sprintf("%g", v))
	}
	return fmt.Sprintf("[%s] (n=%d)", strings.Join(parts, " "), len(values))
}
