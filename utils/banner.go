package utils

import (
	"fmt"
	"io"

	"github.com/common-nighthawk/go-figure"
	"github.com/jedib0t/go-pretty/v6/text"
)

func DrawBanner(w io.Writer) {
	banner := figure.NewFigure("Spotto AI", "", true)
	fmt.Fprintln(w, text.FgHiYellow.Sprint(banner.String()))
	fmt.Fprintln(w, text.FgHiBlue.Sprint(" Azure onboarding · billing, resource and reservation access"))
	fmt.Fprintln(w)
}
