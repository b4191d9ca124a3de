package utils

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/spottoai/spotto-tools/model"
)

var panelStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#F4D060")).
	Padding(0, 2)

// DrawCredentialPanel prints the four values the operator pastes into the
// Spotto AI platform. A freshly generated secret gets the one-time-visibility
// warning; a reused one does not, since its value is a placeholder anyway.
func DrawCredentialPanel(w io.Writer, result model.ProvisionResult) {
	lines := []string{
		fmt.Sprintf("Tenant ID:     %s", result.TenantID),
		fmt.Sprintf("Client ID:     %s", result.ClientID),
		fmt.Sprintf("Client secret: %s", result.Secret),
		fmt.Sprintf("Expires:       %s", result.SecretExpires.Format("2006-01-02")),
	}
	fmt.Fprintln(w, panelStyle.Render(strings.Join(lines, "\n")))

	if !result.SecretReused {
		fmt.Fprintf(w, " %s\n", text.FgHiRed.Sprint("⚠ Copy the client secret now. It is shown exactly once and can never be retrieved again."))
	}
}
