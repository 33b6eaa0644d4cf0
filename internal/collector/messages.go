package collector

import (
	"fmt"

	"github.com/hamed0406/linkwatch/internal/domain"
	"github.com/hamed0406/linkwatch/internal/heartbeat"
	"github.com/hamed0406/linkwatch/internal/incident"
	"github.com/hamed0406/linkwatch/internal/notify"
)

func DownMessage(tr heartbeat.Transition) notify.Message {
	return notify.Message{
		Title:    "Home Network DOWN",
		Text:     fmt.Sprintf("No heartbeat received from reporter (%s)", tr.Reason),
		Priority: notify.PriorityHigh,
		Tags:     []string{"warning", "house"},
	}
}

var causeText = map[domain.Cause]string{
	domain.CausePowerCut: "Probable cause: power cut (reporter rebooted)",
	domain.CauseISP:      "Probable cause: ISP issue (reporter stayed up)",
	domain.CauseUnknown:  "Probable cause: unknown",
}

func RestoredMessage(tr heartbeat.Transition) notify.Message {
	return notify.Message{
		Title: "Home Network RESTORED",
		Text: fmt.Sprintf("Connection restored after %s\n%s",
			incident.FormatDuration(tr.DurationDown), causeText[tr.Cause]),
		Priority: notify.PriorityDefault,
		Tags:     []string{"white_check_mark", "house"},
	}
}
