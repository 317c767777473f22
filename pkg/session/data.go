package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/m4mm0n/amFTPd-sub003/pkg/credit"
	"github.com/m4mm0n/amFTPd-sub003/pkg/datachannel"
	"github.com/m4mm0n/amFTPd-sub003/pkg/events"
	"github.com/m4mm0n/amFTPd-sub003/pkg/ftperr"
	"github.com/m4mm0n/amFTPd-sub003/pkg/fxp"
	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
	"github.com/m4mm0n/amFTPd-sub003/pkg/vfs"
)

func cmdPASV(s *Session, _ string) {
	ep, err := s.openPassive()
	if err != nil {
		s.reply.Send(425, "Cannot open passive connection.")
		return
	}
	text, err := datachannel.FormatPASV(s.cfg.PassiveBindIP, ep.Port())
	if err != nil {
		s.reply.Send(425, "Cannot open passive connection.")
		return
	}
	s.reply.Send(227, "Entering Passive Mode "+text+".")
}

func cmdEPSV(s *Session, _ string) {
	ep, err := s.openPassive()
	if err != nil {
		s.reply.Send(425, "Cannot open passive connection.")
		return
	}
	s.reply.Send(229, "Entering Extended Passive Mode "+datachannel.FormatEPSV(ep.Port())+".")
}

func (s *Session) openPassive() (*datachannel.PassiveListener, error) {
	if s.cfg.PassiveAllocator == nil {
		return nil, fmt.Errorf("session: no passive port allocator configured")
	}
	if s.pending != nil {
		s.pending.Close()
		s.pending = nil
	}
	pl, err := s.cfg.PassiveAllocator.Open()
	if err != nil {
		return nil, err
	}
	s.pending = pl
	s.activeTarget = nil
	return pl, nil
}

func cmdPORT(s *Session, args string) {
	ep, err := datachannel.ParsePORT(args)
	if err != nil {
		s.reply.Send(501, "Malformed PORT argument.")
		return
	}
	s.setActiveTarget(ep)
}

func cmdEPRT(s *Session, args string) {
	ep, err := datachannel.ParseEPRT(args)
	if err != nil {
		s.reply.Send(501, "Malformed EPRT argument.")
		return
	}
	s.setActiveTarget(ep)
}

func (s *Session) setActiveTarget(ep datachannel.Endpoint) {
	if peer := s.peerIP(); peer != nil && !datachannel.FamilyMatches(ep, peer) {
		s.reply.Send(500, "Address family does not match the control connection.")
		return
	}
	if s.pending != nil {
		s.pending.Close()
		s.pending = nil
	}
	s.activeTarget = &ep
	s.reply.Send(200, "PORT command successful.")
}

func cmdREST(s *Session, args string) {
	offset, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil || offset < 0 {
		s.reply.Send(501, "REST requires a non-negative integer.")
		return
	}
	s.restOffset = offset
	s.reply.Send(350, fmt.Sprintf("Restarting at %d. Send STOR or RETR to initiate transfer.", offset))
}

func cmdABOR(s *Session, _ string) {
	s.mu.Lock()
	cancel := s.dataCancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		s.reply.Send(426, "Transfer aborted.")
	}
	s.reply.Send(226, "ABOR command successful.")
}

// openDataChannel establishes the data connection for one transfer,
// honoring whichever of PASV/EPSV or PORT/EPRT the client last issued,
// applying FXP authorization when the data peer differs from the
// control peer, and wrapping TLS when PROT P is in effect.
func (s *Session) openDataChannel(ctx context.Context, direction datachannel.Direction) (net.Conn, *ftperr.Result) {
	var (
		ch  *datachannel.Channel
		err error
)
	switch {
	case s.pending != nil:
		pl := s.pending
		s.pending = nil
		ch, err = datachannel.AcceptPassive(ctx, pl)
	case s.activeTarget != nil:
		target := *s.activeTarget
		s.activeTarget = nil
		ch, err = datachannel.DialActive(ctx, s.cfg.DataDialTimeout, target)
	default:
		return nil, &ftperr.Result{Kind: ftperr.Transfer, Code: 425, Message: "Use PASV, EPSV, PORT, or EPRT first."}
	}
	if err != nil {
		return nil, &ftperr.Result{Kind: ftperr.Transfer, Code: 425, Message: "Cannot establish data connection."}
	}

	controlPeer := s.peerIP()
	if datachannel.IsFXP(ch.Peer, controlPeer) {
		fxpDir := fxp.Outgoing
		if direction == datachannel.Store {
			fxpDir = fxp.Incoming
		}
		req := fxp.Request{
			Username:          s.username,
			IsAdmin:           s.user != nil && s.user.IsAdmin(),
			Direction:         fxpDir,
			RemoteAddr:        ch.Peer.String(),
			ControlPeerIP:     controlPeer.String(),
			ControlTLSActive:  s.controlTLSActive(),
			DataTLSActive:     s.protected,
			ControlTLSVersion: s.controlTLSVersion(),
		}
		if s.user != nil {
			req.UserAllowFXP = s.user.HasCapability(identity.CapFXP)
		}
		decision := fxp.Decide(req, s.cfg.FXPPolicy, s.cfg.FXPGlobal)
		if !decision.Allowed {
			ch.Conn.Close()
			return nil, &ftperr.Result{Kind: ftperr.Policy, Code: 550, Message: "FXP denied: " + decision.Reason}
		}
	}

	conn, err := datachannel.WrapTLS(ctx, ch.Conn, s.cfg.TLSConfig, s.protected, ch.Mode == datachannel.ModePassive)
	if err != nil {
		return nil, &ftperr.Result{Kind: ftperr.Transfer, Code: 425, Message: "Data channel TLS handshake failed."}
	}
	return conn, nil
}

// sendListing streams a pre-rendered directory listing over a freshly
// opened data connection, used by LIST/NLST/MLSD.
func (s *Session) sendListing(lines []string) {
	s.reply.Send(150, "Here comes the directory listing.")

	ctx, cancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	s.dataCancel = cancel
	s.mu.Unlock()
	stopWatch := s.watchAbort(cancel)
	defer func() {
		if leftover, ok := stopWatch(); ok {
			s.stashPendingLine(leftover)
		}
		cancel()
		s.mu.Lock()
		s.dataCancel = nil
		s.mu.Unlock()
	}()

	conn, errResult := s.openDataChannel(ctx, datachannel.Retrieve)
	if errResult != nil {
		s.writeResult(errResult)
		return
	}
	defer conn.Close()
	// io.Copy below has no ctx parameter; closing conn on cancellation is
	// what makes an ABOR received mid-listing actually unblock it.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	payload := strings.Join(lines, "\r\n")
	if len(lines) > 0 {
		payload += "\r\n"
	}
	if _, err := io.Copy(conn, strings.NewReader(payload)); err != nil {
		if s.consumeAbortRequested() {
			s.reply.Send(426, "Transfer aborted.")
			s.reply.Send(226, "ABOR command successful.")
			return
		}
		s.reply.Send(426, "Connection closed; transfer aborted.")
		return
	}
	s.consumeAbortRequested()
	s.reply.Send(226, "Directory send OK.")
}

// transferLimiter picks the per-user rate cap for direction, falling
// back to unlimited when the user has none configured.
func (s *Session) transferLimiter(direction datachannel.Direction) *datachannel.Limiter {
	if s.user == nil {
		return datachannel.NewLimiter(0)
	}
	if direction == datachannel.Retrieve {
		return datachannel.NewLimiter(int(s.user.MaxDownloadRateKiBs))
	}
	return datachannel.NewLimiter(int(s.user.MaxUploadRateKiBs))
}

type sessionCounters struct {
	s         *Session
	uploading bool
}

func (c sessionCounters) AddBytes(n int64) {
	c.s.mu.Lock()
	if c.uploading {
		c.s.uploadedB += n
	} else {
		c.s.downloadedB += n
	}
	c.s.mu.Unlock()
}

// sectionForPath returns the configured Section whose VirtualRoot is
// the longest matching prefix of path, or nil if none matches.
func (s *Session) sectionForPath(path string) *identity.Section {
	sections, err := s.cfg.Stores.ListSections()
	if err != nil {
		return nil
	}
	var best *identity.Section
	bestLen := -1
	for _, sec := range sections {
		if sec.VirtualRoot == "" {
			continue
		}
		if !vfs.HasPrefixFold(path, sec.VirtualRoot) {
			continue
		}
		if len(sec.VirtualRoot) > bestLen {
			best = sec
			bestLen = len(sec.VirtualRoot)
		}
	}
	return best
}

func cmdRETR(s *Session, args string) {
	target := s.resolvePath(args)
	res := s.cfg.Resolver.Resolve(s.ctx, target, s.user)
	if !res.IsOk() {
		s.writeResult(res.Err)
		return
	}
	if res.Node.Kind.IsDirectory() {
		s.reply.Send(550, "Not a plain file.")
		return
	}

	section := s.sectionForPath(target)
	restOffset := s.restOffset
	s.restOffset = 0

	var reader io.Reader
	var file *os.File
	var size int64
	if res.Node.Kind.IsPhysical() {
		f, err := os.Open(res.Node.PhysicalPath)
		if err != nil {
			s.reply.Send(550, "Cannot open file.")
			return
		}
		if err := datachannel.ApplyREST(f, restOffset); err != nil {
			f.Close()
			s.reply.Send(550, "Cannot seek to requested offset.")
			return
		}
		file = f
		reader = f
		size = res.Node.Size - restOffset
		if size < 0 {
			size = 0
		}
	} else {
		content := res.Node.StaticContent
		if restOffset > 0 && restOffset < int64(len(content)) {
			content = content[restOffset:]
		}
		size = int64(len(content))
		reader = bytes.NewReader(content)
	}

	override := s.ratioOverride(section, false)
	if !s.sufficientCredit(section, size, override) {
		if file != nil {
			file.Close()
		}
		s.reply.Send(550, "Not enough credits.")
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	s.dataCancel = cancel
	s.mu.Unlock()
	stopWatch := s.watchAbort(cancel)
	defer func() {
		if leftover, ok := stopWatch(); ok {
			s.stashPendingLine(leftover)
		}
		cancel()
		s.mu.Lock()
		s.dataCancel = nil
		s.mu.Unlock()
		if file != nil {
			file.Close()
		}
	}()

	conn, errResult := s.openDataChannel(ctx, datachannel.Retrieve)
	if errResult != nil {
		s.writeResult(errResult)
		return
	}
	defer conn.Close()

	s.reply.Send(150, "Opening data connection for "+res.Node.Name()+".")
	if s.cfg.Events != nil {
		s.cfg.Events.TransferStarted()
	}
	start := time.Now()
	n, xferErr := datachannel.Transfer(ctx, conn, reader, datachannel.Retrieve, s.transferLimiter(datachannel.Retrieve), sessionCounters{s: s, uploading: false})
	dur := time.Since(start)

	aborted := xferErr != nil
	if s.cfg.Events != nil {
		s.cfg.Events.TransferFinished(false, n, dur, aborted)
	}

	if xferErr != nil {
		if s.consumeAbortRequested() {
			s.reply.Send(426, "Transfer aborted.")
			s.reply.Send(226, "ABOR command successful.")
			return
		}
		s.writeResult(xferErr)
		return
	}
	s.consumeAbortRequested()
	s.chargeDownload(section, n, override)
	s.reply.Send(226, "Transfer complete.")
}

func cmdSTOR(s *Session, args string) { s.storeLike(args, false) }
func cmdAPPE(s *Session, args string) { s.storeLike(args, true) }

func (s *Session) storeLike(args string, appending bool) {
	target := s.resolvePath(args)
	physicalPath, ok := s.physicalPathForUpload(target)
	if !ok {
		s.reply.Send(550, "No writable mount covers this path.")
		return
	}

	flags := os.O_CREATE | os.O_WRONLY
	if appending {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(physicalPath, flags, 0644)
	if err != nil {
		s.reply.Send(550, "Cannot open file for writing.")
		return
	}

	restOffset := s.restOffset
	s.restOffset = 0
	if !appending {
		if err := datachannel.ApplyREST(f, restOffset); err != nil {
			f.Close()
			s.reply.Send(550, "Cannot seek to requested offset.")
			return
		}
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	s.dataCancel = cancel
	s.mu.Unlock()
	stopWatch := s.watchAbort(cancel)
	defer func() {
		if leftover, ok := stopWatch(); ok {
			s.stashPendingLine(leftover)
		}
		cancel()
		s.mu.Lock()
		s.dataCancel = nil
		s.mu.Unlock()
		f.Close()
	}()

	conn, errResult := s.openDataChannel(ctx, datachannel.Store)
	if errResult != nil {
		s.writeResult(errResult)
		return
	}
	defer conn.Close()

	s.reply.Send(150, "Ready to receive data.")
	if s.cfg.Events != nil {
		s.cfg.Events.TransferStarted()
	}
	start := time.Now()
	n, xferErr := datachannel.Transfer(ctx, f, conn, datachannel.Store, s.transferLimiter(datachannel.Store), sessionCounters{s: s, uploading: true})
	dur := time.Since(start)

	aborted := xferErr != nil
	if s.cfg.Events != nil {
		s.cfg.Events.TransferFinished(true, n, dur, aborted)
		s.cfg.Events.Publish(events.Event{Kind: events.UploadComplete, Username: s.username, Fields: map[string]any{"bytes": n, "path": target}})
	}

	if xferErr != nil {
		if s.consumeAbortRequested() {
			s.reply.Send(426, "Transfer aborted.")
			s.reply.Send(226, "ABOR command successful.")
			return
		}
		s.writeResult(xferErr)
		return
	}
	s.consumeAbortRequested()
	uploadSection := s.sectionForPath(target)
	s.awardUpload(uploadSection, n, s.ratioOverride(uploadSection, true))
	s.cfg.Resolver.InvalidateCache(target)
	s.reply.Send(226, "Transfer complete.")
}

// physicalPathForUpload resolves the writable physical path a new or
// overwritten file should live at, by resolving target's parent
// directory (which must already exist) and joining the requested base
// name onto it. This sidesteps PhysicalProvider.Resolve's existence
// check, which would otherwise reject every not-yet-created upload.
func (s *Session) physicalPathForUpload(target string) (string, bool) {
	parent := vfs.Parent(target)
	res := s.cfg.Resolver.Resolve(s.ctx, parent, s.user)
	if !res.IsOk() || !res.Node.Kind.IsPhysical() || !res.Node.Kind.IsDirectory() {
		return "", false
	}
	if res.Node.ReadOnly {
		return "", false
	}
	return filepath.Join(res.Node.PhysicalPath, vfs.Base(target)), true
}

// ratioOverride asks the active script engine for a rule-level ratio
// adjustment for section and maps it onto a credit.RatioOverride. A nil
// section or script holder yields the identity override.
func (s *Session) ratioOverride(section *identity.Section, uploading bool) credit.RatioOverride {
	if s.cfg.Script == nil || section == nil {
		return credit.NoOverride
	}
	adj := s.cfg.Script.Current().EvaluateRatio(s.ctx, s.username, section.Name, uploading)
	return credit.RatioOverride{UploadBonus: adj.CreditMultiplier, CostMultiplier: adj.CostMultiplier}
}

// sufficientCredit reports whether the user's current balance covers
// downloading size bytes from section at the given ratio override,
// without mutating the balance. A nil section is treated as free,
// matching chargeDownload's own no-op for an unmatched section.
func (s *Session) sufficientCredit(section *identity.Section, size int64, override credit.RatioOverride) bool {
	if s.user == nil || section == nil || size <= 0 {
		return true
	}
	group, _ := s.cfg.Stores.GetGroup(s.user.PrimaryGroup)
	cost := credit.DownloadCost(section, group, size, override)
	if cost == 0 {
		return true
	}
	sufficient := false
	s.cfg.Stores.WithUserLock(s.user.Username, func(u *identity.User) error {
		sufficient, _ = credit.TryConsume(u.CreditsKiB, cost)
		return nil
	})
	return sufficient
}

// chargeDownload deducts the KiB cost of a completed download from the
// logged-in user's credit balance under the store's per-user lock.
func (s *Session) chargeDownload(section *identity.Section, bytesMoved int64, override credit.RatioOverride) {
	if s.user == nil || section == nil || bytesMoved <= 0 {
		return
	}
	group, _ := s.cfg.Stores.GetGroup(s.user.PrimaryGroup)
	cost := credit.DownloadCost(section, group, bytesMoved, override)
	if cost == 0 {
		return
	}
	s.cfg.Stores.WithUserLock(s.user.Username, func(u *identity.User) error {
		_, newBalance := credit.TryConsume(u.CreditsKiB, cost)
		u.CreditsKiB = newBalance
		return nil
	})
}

// awardUpload credits the uploading user's balance for a completed
// upload.
func (s *Session) awardUpload(section *identity.Section, bytesMoved int64, override credit.RatioOverride) {
	if s.user == nil || section == nil || bytesMoved <= 0 {
		return
	}
	group, _ := s.cfg.Stores.GetGroup(s.user.PrimaryGroup)
	credits := credit.UploadCredits(s.user, section, group, bytesMoved, override)
	if credits == 0 {
		return
	}
	s.cfg.Stores.WithUserLock(s.user.Username, func(u *identity.User) error {
		u.CreditsKiB = credit.Award(u.CreditsKiB, credits)
		return nil
	})
}
