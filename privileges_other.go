//go:build !unix

package main

import "errors"

func dropPrivileges(userName, groupName string) error {
	if userName == "" && groupName == "" {
		return nil
	}
	return errors.New("changing user or group is not supported on this platform")
}
