package listener

import (
	"net"
	"sync"
	"time"
)

// banEntry records why and until when a ban applies. A zero ExpiresAt
// means permanent.
type banEntry struct {
	Reason    string
	ExpiresAt time.Time
}

func (e banEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// BanList holds two independent stores: exact IPs and CIDR blocks, each
// v4/v6 agnostic since net.IP/net.IPNet handle both. Entries may be
// permanent or expiring; IsBanned evicts expired entries as it scans
// rather than running a separate sweep, since ban checks already happen
// on every accept.
type BanList struct {
	mu     sync.Mutex
	exact  map[string]banEntry
	ranges []cidrBan
}

type cidrBan struct {
	net   *net.IPNet
	entry banEntry
}

// NewBanList returns an empty ban list.
func NewBanList() *BanList {
	return &BanList{exact: make(map[string]banEntry)}
}

// BanIP bans a single address. A zero duration means permanent.
func (b *BanList) BanIP(ip net.IP, reason string, duration time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var entry banEntry
	entry.Reason = reason
	if duration > 0 {
		entry.ExpiresAt = time.Now().Add(duration)
	}
	b.exact[ip.String()] = entry
}

// BanCIDR bans every address inside a CIDR block. A zero duration means
// permanent.
func (b *BanList) BanCIDR(block *net.IPNet, reason string, duration time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var entry banEntry
	entry.Reason = reason
	if duration > 0 {
		entry.ExpiresAt = time.Now().Add(duration)
	}
	b.ranges = append(b.ranges, cidrBan{net: block, entry: entry})
}

// Unban removes any exact-IP ban on the given address. It does not
// touch CIDR bans, which must be removed with UnbanCIDR.
func (b *BanList) Unban(ip net.IP) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.exact, ip.String())
}

// UnbanCIDR removes a previously added CIDR ban matching the given
// block string exactly.
func (b *BanList) UnbanCIDR(block *net.IPNet) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.ranges[:0]
	for _, r := range b.ranges {
		if r.net.String() != block.String() {
			kept = append(kept, r)
		}
	}
	b.ranges = kept
}

// IsBanned reports whether ip is currently banned and, if so, why.
// Expired entries are evicted opportunistically as they are found.
func (b *BanList) IsBanned(ip net.IP) (bool, string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	key := ip.String()
	if entry, ok := b.exact[key]; ok {
		if entry.expired(now) {
			delete(b.exact, key)
		} else {
			return true, entry.Reason
		}
	}

	kept := b.ranges[:0]
	var reason string
	banned := false
	for _, r := range b.ranges {
		if r.entry.expired(now) {
			continue
		}
		kept = append(kept, r)
		if !banned && r.net.Contains(ip) {
			banned = true
			reason = r.entry.Reason
		}
	}
	b.ranges = kept
	return banned, reason
}
