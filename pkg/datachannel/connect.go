package datachannel

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"
)

// Direction distinguishes which side of the transfer the local server
// plays, matching the sense used by pkg/fxp.Direction.
type Direction int

const (
	// Retrieve means the server is sending (RETR); Store means the
	// server is receiving (STOR/APPE).
	Retrieve Direction = iota
	Store
)

// Mode is how the data connection was established.
type Mode int

const (
	ModePassive Mode = iota
	ModeActive
)

// Channel wraps an established data connection plus the bookkeeping the
// transfer loop and FXP detection need.
type Channel struct {
	Conn   net.Conn
	Mode   Mode
	Peer   net.IP
	PeerPt int
}

// DialActive connects out to an active-mode target (PORT/EPRT), the
// active-mode counterpart to AcceptPassive.
func DialActive(ctx context.Context, dialTimeout time.Duration, target Endpoint) (*Channel, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", target.String())
	if err != nil {
		return nil, err
	}
	return &Channel{Conn: conn, Mode: ModeActive, Peer: target.IP, PeerPt: target.Port}, nil
}

// AcceptPassive waits for the single inbound connection on a previously
// opened PassiveListener, the passive-mode counterpart to DialActive.
func AcceptPassive(ctx context.Context, pl *PassiveListener) (*Channel, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := pl.Accept()
		ch <- result{conn, err}
	}()
	select {
	case <-ctx.Done():
		pl.Close()
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		host, portStr, err := net.SplitHostPort(r.conn.RemoteAddr().String())
		if err != nil {
			r.conn.Close()
			return nil, err
		}
		ip := net.ParseIP(host)
		port, err := strconv.Atoi(portStr)
		if err != nil {
			r.conn.Close()
			return nil, err
		}
		return &Channel{Conn: r.conn, Mode: ModePassive, Peer: ip, PeerPt: port}, nil
	}
}

// IsFXP reports whether a data channel's peer differs from the control
// connection's peer, the defining property of a cross-server (FXP)
// transfer.
func IsFXP(dataPeer, controlPeer net.IP) bool {
	return !dataPeer.Equal(controlPeer)
}

// WrapTLS upgrades conn to TLS using cfg when protected is true (the
// session last saw `PROT P`); otherwise conn is returned unchanged, per
// the "TLS on data" rule. isServer selects handshake role: the
// passive accept side performs a server handshake, the active dial side
// performs a client handshake.
func WrapTLS(ctx context.Context, conn net.Conn, cfg *tls.Config, protected, isServer bool) (net.Conn, error) {
	if !protected {
		return conn, nil
	}
	var tconn *tls.Conn
	if isServer {
		tconn = tls.Server(conn, cfg)
	} else {
		tconn = tls.Client(conn, cfg)
	}
	if err := tconn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tconn, nil
}
