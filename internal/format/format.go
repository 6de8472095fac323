// Package format renders destination-specific webhook bodies. Formatting is
// pure: the same event and data always produce the same bytes for a given
// timestamp.
package format

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/allylab/notify/internal/domain"
)

// Payload renders the wire body for a destination type. Unknown destination
// types fall back to the generic body.
func Payload(t domain.DestinationType, event domain.Event, data domain.EventData, now time.Time) ([]byte, error) {
	switch t {
	case domain.TypeSlack:
		return json.Marshal(slackMessage(event, data))
	case domain.TypeTeams:
		return json.Marshal(teamsMessage(event, data))
	default:
		return json.Marshal(genericPayload{
			Event:     string(event),
			Timestamp: now.UTC().Format(time.RFC3339),
			Data:      data,
		})
	}
}

type genericPayload struct {
	Event     string           `json:"event"`
	Timestamp string           `json:"timestamp"`
	Data      domain.EventData `json:"data"`
}

// eventTitle maps an event kind to its human title. Unknown kinds get the
// generic fallback so an extended event set never breaks rendering.
func eventTitle(event domain.Event) string {
	switch event {
	case domain.EventScanCompleted:
		return "✅ Scan Completed"
	case domain.EventScanFailed:
		return "❌ Scan Failed"
	case domain.EventScoreDropped:
		return "📉 Accessibility Score Dropped"
	case domain.EventCriticalFound:
		return "🚨 Critical Issue Found"
	default:
		return "AllyLab Notification"
	}
}

// summaryLine is the one-sentence description shared by Slack and Teams.
func summaryLine(event domain.Event, data domain.EventData) string {
	switch event {
	case domain.EventScanCompleted:
		return fmt.Sprintf("Accessibility scan of %s finished with a score of %d.", data.DisplayURL(), data.Score)
	case domain.EventScanFailed:
		return fmt.Sprintf("Scan of %s failed: %s", data.DisplayURL(), data.DisplayError())
	case domain.EventScoreDropped:
		return fmt.Sprintf("Score for %s dropped from %d to %d.", data.DisplayURL(), data.PreviousScore, data.Score)
	case domain.EventCriticalFound:
		return fmt.Sprintf("%d critical accessibility issues found on %s.", data.Critical, data.DisplayURL())
	default:
		return fmt.Sprintf("Event %s for %s.", event, data.DisplayURL())
	}
}

// Score bands shared by Slack and Teams. 70–89 is the neutral band: the
// original treatment gives it no alarming indicator.
const (
	colorGreen   = "#16a34a"
	colorNeutral = "#64748b"
	colorOrange  = "#ea580c"
	colorRed     = "#dc2626"
)

func scoreColor(score int) string {
	switch {
	case score >= 90:
		return colorGreen
	case score >= 70:
		return colorNeutral
	case score >= 50:
		return colorOrange
	default:
		return colorRed
	}
}

func scoreEmoji(score int) string {
	switch {
	case score >= 90:
		return "🟢"
	case score >= 70:
		return "⚪"
	case score >= 50:
		return "🟠"
	default:
		return "🔴"
	}
}

// scoreText renders the score with its band indicator and, when the score
// improved, the (+N) delta.
func scoreText(data domain.EventData) string {
	text := fmt.Sprintf("%s %d", scoreEmoji(data.Score), data.Score)
	if data.Score > data.PreviousScore {
		text += fmt.Sprintf(" (+%d)", data.Score-data.PreviousScore)
	}
	return text
}
