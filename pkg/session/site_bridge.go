package session

import "github.com/m4mm0n/amFTPd-sub003/pkg/site"

func cmdSITE(s *Session, args string) {
	if s.cfg.Site == nil {
		s.reply.Send(502, "SITE commands are not configured.")
		return
	}
	res := s.cfg.Site.Dispatch(s.ctx, s, args)
	if len(res.Lines) == 0 {
		res.Lines = []string{"OK"}
	}
	s.reply.SendMulti(res.Code, res.Lines)
}

// The methods below make *Session satisfy pkg/site.Session,
// pkg/site.WhoLister, and pkg/site.RatioProvider so SITE VERS/WHO/RATIO
// can operate directly against the live session.

func (s *Session) Username() string { return s.username }

func (s *Session) IsAdmin() bool {
	return s.user != nil && s.user.IsAdmin()
}

func (s *Session) PrimaryGroup() string {
	if s.user == nil {
		return ""
	}
	return s.user.PrimaryGroup
}

func (s *Session) CurrentSection() string {
	sec := s.sectionForPath(s.cwd)
	if sec == nil {
		return ""
	}
	return sec.Name
}

func (s *Session) ActiveUsers() []site.WhoEntry {
	if s.cfg.Registry == nil {
		return nil
	}
	snapshot := s.cfg.Registry.Snapshot()
	out := make([]site.WhoEntry, 0, len(snapshot))
	for _, w := range snapshot {
		out = append(out, site.WhoEntry{
			Username: w.Username,
			Section:  w.Section,
			Idle:     w.Idle.Round(1e9).String(),
		})
	}
	return out
}

func (s *Session) UploadedBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploadedB
}

func (s *Session) DownloadedBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloadedB
}

func (s *Session) Ratio() float64 {
	s.mu.Lock()
	up, down := s.uploadedB, s.downloadedB
	s.mu.Unlock()
	if down == 0 {
		if up == 0 {
			return 0
		}
		return 1<<31 - 1
	}
	return float64(up) / float64(down)
}
