package app

import (
	"github.com/coreos/go-systemd/v22/daemon"

	logx "nudger/pkg/logx"
)

// sdNotify reports lifecycle state to systemd. Outside a Type=notify unit
// NOTIFY_SOCKET is unset and this does nothing.
func sdNotify(log logx.Logger, states ...string) {
	for _, st := range states {
		sent, err := daemon.SdNotify(false, st)
		if err != nil {
			log.Warn("sd_notify failed", logx.String("state", st), logx.Err(err))
			return
		}
		if !sent {
			return
		}
	}
	log.Debug("sd_notify sent", logx.Strings("states", states))
}

func sdStatus(s string) string { return "STATUS=" + s }
