package agent

import (
	"fmt"
	"strings"

	"github.com/hamed0406/linkwatch/internal/domain"
	"github.com/hamed0406/linkwatch/internal/notify"
	"github.com/hamed0406/linkwatch/internal/triage"
)

var (
	tagsSlow = []string{"warning", "speedboat"}
	tagsOK   = []string{"white_check_mark", "speedboat"}
)

// SpeedMessage renders a triage decision. A confirmed reading is labelled
// CONFIRMED SLOW or OK; an unconfirmed one is labelled SLOW when below
// threshold.
func SpeedMessage(d triage.Decision, threshold float64) notify.Message {
	if d.Confirmation != nil {
		c := *d.Confirmation
		msg := notify.Message{
			Text: fmt.Sprintf("Quick test: %.1f Mbps\nAuthoritative download: %.1f Mbps\n%sTrigger: %s",
				d.Quick.DownloadMbps, c.DownloadMbps, uploadLine(c), d.Quick.Trigger),
		}
		if d.Slow {
			msg.Title = fmt.Sprintf("Speed Test: %.1f Mbps (CONFIRMED SLOW)", c.DownloadMbps)
			msg.Priority, msg.Tags = notify.PriorityHigh, tagsSlow
		} else {
			msg.Title = fmt.Sprintf("Speed Test: %.1f Mbps (OK)", c.DownloadMbps)
			msg.Priority, msg.Tags = notify.PriorityDefault, tagsOK
		}
		return msg
	}
	return OutcomeMessage(d.GroundTruth, threshold)
}

func OutcomeMessage(o domain.SpeedTestOutcome, threshold float64) notify.Message {
	msg := notify.Message{
		Text: fmt.Sprintf("Type: %s\nTrigger: %s\nDownload: %.1f Mbps\n%sDuration: %.1fs",
			o.Method, o.Trigger, o.DownloadMbps, uploadLine(o), o.Duration.Seconds()),
	}
	if o.DownloadMbps < threshold {
		msg.Title = fmt.Sprintf("Speed Test: %.1f Mbps (SLOW)", o.DownloadMbps)
		msg.Priority, msg.Tags = notify.PriorityHigh, tagsSlow
	} else {
		msg.Title = fmt.Sprintf("Speed Test: %.1f Mbps", o.DownloadMbps)
		msg.Priority, msg.Tags = notify.PriorityDefault, tagsOK
	}
	return msg
}

// FullMessage is slow when any download reading is below threshold; upload
// has different expectations and is not judged.
func FullMessage(r FullResult, threshold float64) notify.Message {
	lines := []string{"Full Speed Test Results:", ""}
	slow := false
	if r.Quick != nil {
		lines = append(lines, fmt.Sprintf("Quick download: %.1f Mbps", r.Quick.DownloadMbps))
		slow = slow || r.Quick.DownloadMbps < threshold
	}
	if r.Authoritative != nil {
		lines = append(lines, fmt.Sprintf("Authoritative download: %.1f Mbps", r.Authoritative.DownloadMbps))
		if r.Authoritative.UploadMbps != nil {
			lines = append(lines, fmt.Sprintf("Authoritative upload: %.1f Mbps", *r.Authoritative.UploadMbps))
		}
		slow = slow || r.Authoritative.DownloadMbps < threshold
	}
	msg := notify.Message{Text: strings.Join(lines, "\n")}
	if slow {
		msg.Title, msg.Priority, msg.Tags = "Full Speed Test: SLOW", notify.PriorityHigh, tagsSlow
	} else {
		msg.Title, msg.Priority, msg.Tags = "Full Speed Test: OK", notify.PriorityDefault, tagsOK
	}
	return msg
}

func uploadLine(o domain.SpeedTestOutcome) string {
	if o.UploadMbps == nil {
		return ""
	}
	return fmt.Sprintf("Upload: %.1f Mbps\n", *o.UploadMbps)
}
