package notify

import (
	"fmt"
	"strings"
	"time"

	"sandwach/internal/models"
)

const Title = "Sandwach Climate Control"

// Render formats a recommendation as notification text. The same text is
// recorded in the notifications table, so it must be stable for a given
// recommendation.
func Render(rec *models.Recommendation, stale bool, loc *time.Location) string {
	var b strings.Builder

	onset := rec.Basis.OnsetTime.In(loc).Format("3pm")
	if rec.Window == models.WindowSleep {
		b.WriteString("Overnight outlook\n")
		fmt.Fprintf(&b, "Low of %.0f° around %s\n", rec.Basis.ExtremalTemp, onset)
	} else {
		b.WriteString("Daytime outlook\n")
		fmt.Fprintf(&b, "High of %.0f° around %s\n", rec.Basis.ExtremalTemp, onset)
	}
	fmt.Fprintf(&b, "Currently %.0f°\n\n", rec.Basis.CurrentTemp)

	switch rec.Action {
	case models.ActionUseAC:
		b.WriteString("Run the AC")
	case models.ActionUseHeat:
		b.WriteString("Turn the heating on")
	case models.ActionOpenWindows:
		b.WriteString("Open the windows")
	default:
		b.WriteString("No action needed")
	}
	if rec.Qualifier != "" {
		fmt.Fprintf(&b, " (%s)", rec.Qualifier)
	}
	b.WriteString("\n")

	if stale {
		b.WriteString("\nForecast data may be out of date.\n")
	}
	return b.String()
}
