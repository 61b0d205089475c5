// Package ciptest provides an in-process mock EtherNet/IP peer for driving
// end-to-end tests against a real TCP loopback connection, in the same
// spirit as an in-process fake broker: implement just enough of the wire
// protocol to exercise the client under test, nothing more.
package ciptest

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
)

// RegisterSession, SendRRData, and SendUnitData command codes, duplicated
// here (rather than imported) since the real eip package keeps its encap
// struct fields unexported.
const (
	CmdRegisterSession uint16 = 0x65
	CmdSendRRData      uint16 = 0x6F
	CmdSendUnitData    uint16 = 0x70
)

// Peer is a minimal EtherNet/IP server: it accepts a single TCP connection,
// replies to RegisterSession automatically with SessionHandle, and hands
// every other encapsulated command's data payload to Handler, writing
// back whatever bytes it returns as that command's reply payload.
type Peer struct {
	SessionHandle uint32

	// Handler is invoked for every command other than RegisterSession,
	// with the command code and the raw data segment of the incoming
	// encapsulation message. It returns the data segment for the reply.
	Handler func(cmd uint16, data []byte) []byte

	listener net.Listener
	wg       sync.WaitGroup
	mu       sync.Mutex
	lastErr  error
}

// Listen starts the peer on an OS-assigned loopback port and returns its
// address (host:port), suitable for passing straight to eip.NewEipClient.
func Listen() (*Peer, string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", err
	}
	p := &Peer{SessionHandle: 0x11223344, listener: l}
	p.wg.Add(1)
	go p.acceptLoop()
	return p, l.Addr().String(), nil
}

// Close stops the peer and releases its listener.
func (p *Peer) Close() {
	p.listener.Close()
	p.wg.Wait()
}

// LastErr returns the last error encountered while serving the connection,
// if any (useful for test diagnostics).
func (p *Peer) LastErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *Peer) setErr(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}

func (p *Peer) acceptLoop() {
	defer p.wg.Done()
	conn, err := p.listener.Accept()
	if err != nil {
		return // listener closed
	}
	defer conn.Close()

	for {
		header := make([]byte, 24)
		if _, err := io.ReadFull(conn, header); err != nil {
			if err != io.EOF {
				p.setErr(fmt.Errorf("read header: %w", err))
			}
			return
		}

		// Layout: command(2) length(2) sessionHandle(4) status(4) context(8) options(4).
		cmd := binary.LittleEndian.Uint16(header[0:2])
		length := binary.LittleEndian.Uint16(header[2:4])
		session := binary.LittleEndian.Uint32(header[4:8])
		context := append([]byte{}, header[12:20]...)

		data := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(conn, data); err != nil {
				p.setErr(fmt.Errorf("read body: %w", err))
				return
			}
		}

		var replyData []byte
		replySession := session
		switch cmd {
		case CmdRegisterSession:
			replySession = p.SessionHandle
			replyData = []byte{1, 0, 0, 0}
		default:
			if p.Handler != nil {
				replyData = p.Handler(cmd, data)
			}
		}

		reply := make([]byte, 0, 24+len(replyData))
		reply = binary.LittleEndian.AppendUint16(reply, cmd)
		reply = binary.LittleEndian.AppendUint16(reply, uint16(len(replyData)))
		reply = binary.LittleEndian.AppendUint32(reply, replySession)
		reply = binary.LittleEndian.AppendUint32(reply, 0) // status
		reply = append(reply, context...)
		reply = binary.LittleEndian.AppendUint32(reply, 0) // options
		reply = append(reply, replyData...)

		if _, err := conn.Write(reply); err != nil {
			p.setErr(fmt.Errorf("write reply: %w", err))
			return
		}
	}
}
