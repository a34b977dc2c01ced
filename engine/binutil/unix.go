//go:build !windows
// +build !windows

package binutil

import (
	"os"

	"github.com/sevlyar/go-daemon"
	"github.com/yondr/yondr/engine/gwlog"
)

// Daemonize re-runs the process in the background; the parent exits.
// The child must Release the returned context before exiting.
func Daemonize() *daemon.Context {
	context := new(daemon.Context)
	child, err := context.Reborn()

	if err != nil {
		gwlog.Panicf("daemonize failed: %v", err)
	}

	if child != nil {
		gwlog.Infof("run in daemon mode")
		os.Exit(0)
		return nil
	}
	return context
}
