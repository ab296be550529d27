package outwriter

import (
	"os"

	"github.com/huangsam/folio/internal/contract"
	"golang.org/x/term"
)

// defaultTermWidth is used when the terminal size cannot be detected.
const defaultTermWidth = 80

// GetMaxTableDescriptionWidth calculates the widest repository description that
// keeps the top repositories table inside the terminal.
func GetMaxTableDescriptionWidth(cfg *contract.Config) int {
	termWidth := cfg.Width
	if termWidth <= 0 {
		detected, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detected <= 0 {
			termWidth = defaultTermWidth
		} else {
			termWidth = detected
		}
	}

	// Rank + Name + Stars + Language with borders and padding
	available := termWidth - 60
	return min(max(available, 15), 80)
}
