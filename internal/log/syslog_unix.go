//go:build !windows && !plan9

package log

import (
	"fmt"
	"io"
	"log/syslog"

	"github.com/rs/zerolog"
)

func openSyslog() (io.Writer, io.Closer, error) {
	w, err := syslog.New(syslog.LOG_DAEMON|syslog.LOG_INFO, "netsav")
	if err != nil {
		return nil, nil, fmt.Errorf("connect syslog: %w", err)
	}
	return zerolog.SyslogLevelWriter(w), w, nil
}
