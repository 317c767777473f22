package session

import (
	"fmt"
	"strings"

	"github.com/m4mm0n/amFTPd-sub003/pkg/vfs"
)

// resolvePath turns a command argument into an absolute virtual path,
// relative to the session's current working directory when arg doesn't
// already start with "/".
func (s *Session) resolvePath(arg string) string {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return s.cwd
	}
	if strings.HasPrefix(arg, "/") {
		return arg
	}
	joined, err := vfs.Join(s.cwd, arg)
	if err != nil {
		return s.cwd
	}
	return joined
}

func cmdPWD(s *Session, _ string) {
	s.reply.Send(257, fmt.Sprintf("%q is the current directory.", s.cwd))
}

func cmdCWD(s *Session, args string) {
	target := s.resolvePath(args)
	res := s.cfg.Resolver.Resolve(s.ctx, target, s.user)
	if !res.IsOk() {
		s.writeResult(res.Err)
		return
	}
	if !res.Node.Kind.IsDirectory() {
		s.reply.Send(550, "Not a directory.")
		return
	}
	s.cwd = target
	s.reply.Send(250, "Directory changed to "+target+".")
}

func cmdCDUP(s *Session, _ string) {
	cmdCWD(s, vfs.Parent(s.cwd))
}

func cmdMKD(s *Session, args string) {
	target := s.resolvePath(args)
	if err := s.cfg.Resolver.Mkdir(s.ctx, target, s.user); err != nil {
		s.reply.Send(550, "Cannot create directory: "+err.Error())
		return
	}
	s.reply.Send(257, fmt.Sprintf("%q directory created.", target))
}

func cmdRMD(s *Session, args string) {
	target := s.resolvePath(args)
	if err := s.cfg.Resolver.Remove(s.ctx, target, s.user); err != nil {
		s.reply.Send(550, "Cannot remove directory: "+err.Error())
		return
	}
	s.reply.Send(250, "Directory removed.")
}

func cmdDELE(s *Session, args string) {
	target := s.resolvePath(args)
	if err := s.cfg.Resolver.Remove(s.ctx, target, s.user); err != nil {
		s.reply.Send(550, "Cannot delete file: "+err.Error())
		return
	}
	s.reply.Send(250, "File deleted.")
}

func cmdRNFR(s *Session, args string) {
	target := s.resolvePath(args)
	res := s.cfg.Resolver.Resolve(s.ctx, target, s.user)
	if !res.IsOk() {
		s.writeResult(res.Err)
		return
	}
	s.renameFrom = target
	s.reply.Send(350, "Ready for RNTO.")
}

func cmdRNTO(s *Session, args string) {
	if s.renameFrom == "" {
		s.reply.Send(503, "RNFR required first.")
		return
	}
	oldPath := s.renameFrom
	s.renameFrom = ""
	target := s.resolvePath(args)
	if err := s.cfg.Resolver.Rename(s.ctx, oldPath, target, s.user); err != nil {
		s.reply.Send(550, "Cannot rename: "+err.Error())
		return
	}
	s.reply.Send(250, "Rename successful.")
}

func cmdSIZE(s *Session, args string) {
	target := s.resolvePath(args)
	res := s.cfg.Resolver.Resolve(s.ctx, target, s.user)
	if !res.IsOk() {
		s.writeResult(res.Err)
		return
	}
	s.reply.Send(213, fmt.Sprintf("%d", res.Node.Size))
}

func cmdMDTM(s *Session, args string) {
	target := s.resolvePath(args)
	res := s.cfg.Resolver.Resolve(s.ctx, target, s.user)
	if !res.IsOk() {
		s.writeResult(res.Err)
		return
	}
	s.reply.Send(213, res.Node.ModTime.UTC().Format("20060102150405"))
}

func cmdLIST(s *Session, args string) {
	target := s.resolvePath(stripListFlags(args))
	nodes := s.cfg.Resolver.Enumerate(s.ctx, target, s.user)
	lines := make([]string, 0, len(nodes))
	for i := range nodes {
		lines = append(lines, formatUnixListing(&nodes[i]))
	}
	s.sendListing(lines)
}

func cmdNLST(s *Session, args string) {
	target := s.resolvePath(stripListFlags(args))
	nodes := s.cfg.Resolver.Enumerate(s.ctx, target, s.user)
	lines := make([]string, 0, len(nodes))
	for i := range nodes {
		lines = append(lines, nodes[i].Name())
	}
	s.sendListing(lines)
}

func cmdMLSD(s *Session, args string) {
	target := s.resolvePath(args)
	nodes := s.cfg.Resolver.Enumerate(s.ctx, target, s.user)
	lines := make([]string, 0, len(nodes))
	for i := range nodes {
		lines = append(lines, formatMLSTFacts(&nodes[i]))
	}
	s.sendListing(lines)
}

func cmdMLST(s *Session, args string) {
	target := s.resolvePath(args)
	res := s.cfg.Resolver.Resolve(s.ctx, target, s.user)
	if !res.IsOk() {
		s.writeResult(res.Err)
		return
	}
	s.reply.SendMulti(250, []string{
		"Listing " + target,
		formatMLSTFacts(res.Node),
		"End",
	})
}

// stripListFlags discards leading "-a"/"-l"-style flags LIST/NLST
// clients commonly send, keeping only the path argument.
func stripListFlags(args string) string {
	fields := strings.Fields(args)
	for i, f := range fields {
		if !strings.HasPrefix(f, "-") {
			return strings.Join(fields[i:], " ")
		}
	}
	return ""
}

func formatUnixListing(n *vfs.Node) string {
	perm := "-rw-r--r--"
	if n.Kind.IsDirectory() {
		perm = "drwxr-xr-x"
	} else if n.ReadOnly {
		perm = "-r--r--r--"
	}
	return fmt.Sprintf("%s %3d %-8s %-8s %10d %s %s",
		perm, 1, "ftp", "ftp", n.Size, n.ModTime.UTC().Format("Jan 02 15:04"), n.Name())
}

func formatMLSTFacts(n *vfs.Node) string {
	typeFact := "file"
	if n.Kind.IsDirectory() {
		typeFact = "dir"
	}
	perm := "r"
	if !n.ReadOnly {
		perm = "adfrw"
	}
	return fmt.Sprintf("type=%s;size=%d;modify=%s;perm=%s; %s",
		typeFact, n.Size, n.ModTime.UTC().Format("20060102150405"), perm, n.Name())
}
