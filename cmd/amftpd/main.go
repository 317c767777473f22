// Command amftpd runs the amFTPd scene-style FTP/FTPS daemon.
package main

import (
	"fmt"
	"os"

	"github.com/m4mm0n/amFTPd-sub003/cmd/amftpd/commands"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
