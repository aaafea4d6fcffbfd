//go:build windows || plan9

package log

import (
	"errors"
	"io"
)

func openSyslog() (io.Writer, io.Closer, error) {
	return nil, nil, errors.New("syslog is not supported on this platform")
}
