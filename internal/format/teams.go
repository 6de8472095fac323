package format

import (
	"fmt"

	"github.com/allylab/notify/internal/domain"
)

type teamsPayload struct {
	Type        string            `json:"type"`
	Attachments []teamsAttachment `json:"attachments"`
}

type teamsAttachment struct {
	ContentType string       `json:"contentType"`
	Content     adaptiveCard `json:"content"`
}

type adaptiveCard struct {
	Schema  string        `json:"$schema"`
	Type    string        `json:"type"`
	Version string        `json:"version"`
	Body    []cardElement `json:"body"`
}

type cardElement struct {
	Type     string     `json:"type"`
	Text     string     `json:"text,omitempty"`
	Size     string     `json:"size,omitempty"`
	Weight   string     `json:"weight,omitempty"`
	Color    string     `json:"color,omitempty"`
	Wrap     bool       `json:"wrap,omitempty"`
	IsSubtle bool       `json:"isSubtle,omitempty"`
	Facts    []cardFact `json:"facts,omitempty"`
}

type cardFact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// teamsMessage renders an Adaptive Card carrying the same semantic content
// as the Slack message.
func teamsMessage(event domain.Event, data domain.EventData) teamsPayload {
	title := cardElement{
		Type:   "TextBlock",
		Text:   eventTitle(event),
		Size:   "Large",
		Weight: "Bolder",
		Wrap:   true,
	}
	if event == domain.EventScoreDropped {
		title.Color = "Warning"
	}

	issuesLine := fmt.Sprintf("Total issues: %d", data.TotalIssues)
	if data.PagesScanned != nil {
		issuesLine += fmt.Sprintf(" · %d pages scanned", *data.PagesScanned)
	}

	body := []cardElement{
		title,
		{Type: "TextBlock", Text: summaryLine(event, data), Wrap: true},
		{
			Type: "FactSet",
			Facts: []cardFact{
				{Title: "Score", Value: scoreText(data)},
				{Title: "Critical", Value: fmt.Sprintf("%d", data.Critical)},
				{Title: "Serious", Value: fmt.Sprintf("%d", data.Serious)},
				{Title: "Moderate", Value: fmt.Sprintf("%d", data.Moderate)},
				{Title: "Minor", Value: fmt.Sprintf("%d", data.Minor)},
			},
		},
		{Type: "TextBlock", Text: issuesLine, IsSubtle: true, Wrap: true},
	}

	return teamsPayload{
		Type: "message",
		Attachments: []teamsAttachment{
			{
				ContentType: "application/vnd.microsoft.card.adaptive",
				Content: adaptiveCard{
					Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
					Type:    "AdaptiveCard",
					Version: "1.4",
					Body:    body,
				},
			},
		},
	}
}
