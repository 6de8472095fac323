package format

import (
	"fmt"

	"github.com/allylab/notify/internal/domain"
)

type slackPayload struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color,omitempty"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func mrkdwn(text string) slackText {
	return slackText{Type: "mrkdwn", Text: text}
}

// slackMessage renders a Block Kit message: a colored attachment with a
// title, a summary line, severity fields, and a context line with the page
// count when known.
func slackMessage(event domain.Event, data domain.EventData) slackPayload {
	color := scoreColor(data.Score)
	if event == domain.EventCriticalFound {
		color = colorRed
	}

	summary := mrkdwn(summaryLine(event, data))
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: eventTitle(event)},
		},
		{
			Type: "section",
			Text: &summary,
		},
		{
			Type: "section",
			Fields: []slackText{
				mrkdwn(fmt.Sprintf("*Score:* %s", scoreText(data))),
				mrkdwn(fmt.Sprintf("*Total Issues:* %d", data.TotalIssues)),
				mrkdwn(fmt.Sprintf("*Critical:* %d", data.Critical)),
				mrkdwn(fmt.Sprintf("*Serious:* %d", data.Serious)),
				mrkdwn(fmt.Sprintf("*Moderate:* %d", data.Moderate)),
				mrkdwn(fmt.Sprintf("*Minor:* %d", data.Minor)),
			},
		},
	}

	if data.PagesScanned != nil {
		blocks = append(blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{mrkdwn(fmt.Sprintf("%d pages scanned", *data.PagesScanned))},
		})
	}

	return slackPayload{
		Text: eventTitle(event),
		Attachments: []slackAttachment{
			{Color: color, Blocks: blocks},
		},
	}
}
