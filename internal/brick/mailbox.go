package brick

import (
	"fmt"

	"github.com/nxtd-project/nxtd/internal/protocol"
)

// Mailbox limits. Inboxes 0-9 are the program-visible mailboxes;
// 10-19 are their remote counterparts.
const (
	MaxMessageLen = 58
	MaxInboxID    = 19
)

// MessageWrite posts a message to a mailbox of the running program. The
// wire form carries the message NUL terminated, with the length byte
// counting the terminator.
func (b *Brick) MessageWrite(inbox uint8, message []byte) error {
	if inbox > MaxInboxID {
		return fmt.Errorf("brick: invalid mailbox id %d", inbox)
	}
	if len(message) > MaxMessageLen {
		return fmt.Errorf("brick: message too long (%d bytes, max %d)", len(message), MaxMessageLen)
	}
	pkt := protocol.New(protocol.OpMessageWrite)
	pkt.PushU8(inbox)
	pkt.PushU8(uint8(len(message)) + 1)
	pkt.PushBytes(message)
	pkt.PushU8(0)
	return b.send(pkt, true)
}

// MessageRead fetches a message from a remote mailbox, optionally
// removing it from the queue.
func (b *Brick) MessageRead(remoteInbox, localInbox uint8, remove bool) ([]byte, error) {
	pkt := protocol.New(protocol.OpMessageRead)
	pkt.PushU8(remoteInbox)
	pkt.PushU8(localInbox)
	pkt.PushBool(remove)
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return nil, err
	}
	if err := reply.CheckStatus(); err != nil {
		return nil, err
	}
	if _, err := reply.ReadU8(); err != nil { // echoed local inbox
		return nil, err
	}
	n, err := reply.ReadU8()
	if err != nil {
		return nil, err
	}
	return reply.ReadBytes(int(n))
}
