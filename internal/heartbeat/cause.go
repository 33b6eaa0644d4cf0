package heartbeat

import "github.com/hamed0406/linkwatch/internal/domain"

// ClassifyCause compares the reporter's boot id from before and after an
// outage. A changed id means the reporter rebooted, which on a home link
// almost always means the power went. An unchanged id means only the link
// dropped. Either id missing gives CauseUnknown.
func ClassifyCause(before, after string) domain.Cause {
	if before == "" || after == "" {
		return domain.CauseUnknown
	}
	if before != after {
		return domain.CausePowerCut
	}
	return domain.CauseISP
}
