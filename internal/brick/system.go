package brick

import (
	"errors"
	"fmt"

	"github.com/nxtd-project/nxtd/internal/protocol"
)

// MaxNameLen bounds the brick name and the name field of DeviceInfo.
const MaxNameLen = 15

// sambaBootString must accompany a boot command; anything else is
// rejected by the firmware.
const sambaBootString = "Let's dance: SAMBA\x00"

// FileHandle is an open file on the brick. It stays valid until
// explicitly closed or the connection drops.
type FileHandle struct {
	handle uint8
	// Len is the file size for reads, or the declared capacity for
	// writes.
	Len uint32
}

// FindFileHandle is one step of a file search. Each FindNext call
// consumes the previous handle and yields a fresh one.
type FindFileHandle struct {
	handle uint8
	Name   string
	Len    uint32
}

// ModuleHandle is one step of a firmware module search.
type ModuleHandle struct {
	handle   uint8
	Name     string
	ID       uint32
	Len      uint32
	IOMapLen uint16
}

// FwVersion holds the protocol and firmware versions as (major, minor)
// pairs.
type FwVersion struct {
	Protocol [2]uint8
	Firmware [2]uint8
}

func (v FwVersion) String() string {
	return fmt.Sprintf("protocol %d.%d, firmware %d.%d",
		v.Protocol[0], v.Protocol[1], v.Firmware[0], v.Firmware[1])
}

// DeviceInfo is the brick's identity block.
type DeviceInfo struct {
	Name           string
	BtAddr         [6]uint8
	SignalStrength [4]uint8
	FreeFlash      uint32
}

// BufType selects which poll buffer a poll command targets.
type BufType uint8

const (
	BufUSB       BufType = 0x00
	BufHighSpeed BufType = 0x01
)

// GetFirmwareVersion reads the protocol and firmware versions. The wire
// order is minor before major.
func (b *Brick) GetFirmwareVersion() (*FwVersion, error) {
	reply, err := b.sendRecv(protocol.New(protocol.OpSysVersions))
	if err != nil {
		return nil, err
	}
	if err := reply.CheckStatus(); err != nil {
		return nil, err
	}
	var v FwVersion
	if v.Protocol[1], err = reply.ReadU8(); err != nil {
		return nil, err
	}
	if v.Protocol[0], err = reply.ReadU8(); err != nil {
		return nil, err
	}
	if v.Firmware[1], err = reply.ReadU8(); err != nil {
		return nil, err
	}
	if v.Firmware[0], err = reply.ReadU8(); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetDeviceInfo reads the brick's name, Bluetooth address, signal
// strength and free flash space.
func (b *Brick) GetDeviceInfo() (*DeviceInfo, error) {
	reply, err := b.sendRecv(protocol.New(protocol.OpSysDeviceInfo))
	if err != nil {
		return nil, err
	}
	if err := reply.CheckStatus(); err != nil {
		return nil, err
	}
	var info DeviceInfo
	if info.Name, err = reply.ReadString(MaxNameLen); err != nil {
		return nil, err
	}
	addr, err := reply.ReadBytes(6)
	if err != nil {
		return nil, err
	}
	copy(info.BtAddr[:], addr)
	// one padding byte between the address and the signal block
	if _, err := reply.ReadU8(); err != nil {
		return nil, err
	}
	sig, err := reply.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	copy(info.SignalStrength[:], sig)
	if info.FreeFlash, err = reply.ReadU32(); err != nil {
		return nil, err
	}
	return &info, nil
}

// SetBrickName renames the brick. Names longer than MaxNameLen bytes
// are rejected locally.
func (b *Brick) SetBrickName(name string) error {
	pkt := protocol.New(protocol.OpSysSetBrickName)
	if err := pkt.PushString(name, MaxNameLen); err != nil {
		return err
	}
	return b.send(pkt, true)
}

// FileOpenRead opens a file for reading and returns its handle and
// size.
func (b *Brick) FileOpenRead(name string) (*FileHandle, error) {
	pkt := protocol.New(protocol.OpSysOpenRead)
	if err := pkt.PushFilename(name); err != nil {
		return nil, err
	}
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return nil, err
	}
	if err := reply.CheckStatus(); err != nil {
		return nil, err
	}
	var fh FileHandle
	if fh.handle, err = reply.ReadU8(); err != nil {
		return nil, err
	}
	if fh.Len, err = reply.ReadU32(); err != nil {
		return nil, err
	}
	return &fh, nil
}

// FileOpenWrite creates a file of the given size and opens it for
// writing.
func (b *Brick) FileOpenWrite(name string, size uint32) (*FileHandle, error) {
	return b.fileOpenForWrite(protocol.OpSysOpenWrite, name, size)
}

// FileOpenWriteLinear creates a contiguous-flash file, required for
// executable programs.
func (b *Brick) FileOpenWriteLinear(name string, size uint32) (*FileHandle, error) {
	return b.fileOpenForWrite(protocol.OpSysOpenWriteLinear, name, size)
}

// FileOpenWriteData creates a data file of the given size.
func (b *Brick) FileOpenWriteData(name string, size uint32) (*FileHandle, error) {
	return b.fileOpenForWrite(protocol.OpSysOpenWriteData, name, size)
}

func (b *Brick) fileOpenForWrite(op protocol.Opcode, name string, size uint32) (*FileHandle, error) {
	pkt := protocol.New(op)
	if err := pkt.PushFilename(name); err != nil {
		return nil, err
	}
	pkt.PushU32(size)
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return nil, err
	}
	if err := reply.CheckStatus(); err != nil {
		return nil, err
	}
	h, err := reply.ReadU8()
	if err != nil {
		return nil, err
	}
	return &FileHandle{handle: h, Len: size}, nil
}

// FileOpenAppendData opens an existing data file for appending and
// returns the remaining capacity.
func (b *Brick) FileOpenAppendData(name string) (*FileHandle, error) {
	pkt := protocol.New(protocol.OpSysOpenAppendData)
	if err := pkt.PushFilename(name); err != nil {
		return nil, err
	}
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return nil, err
	}
	if err := reply.CheckStatus(); err != nil {
		return nil, err
	}
	var fh FileHandle
	if fh.handle, err = reply.ReadU8(); err != nil {
		return nil, err
	}
	if fh.Len, err = reply.ReadU32(); err != nil {
		return nil, err
	}
	return &fh, nil
}

// FileRead reads up to count bytes from an open file. The brick may
// return fewer bytes near end of file.
func (b *Brick) FileRead(fh *FileHandle, count uint16) ([]byte, error) {
	pkt := protocol.New(protocol.OpSysRead)
	pkt.PushU8(fh.handle)
	pkt.PushU16(count)
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return nil, err
	}
	if err := reply.CheckStatus(); err != nil {
		return nil, err
	}
	if _, err := reply.ReadU8(); err != nil { // echoed handle
		return nil, err
	}
	n, err := reply.ReadU16()
	if err != nil {
		return nil, err
	}
	return reply.ReadBytes(int(n))
}

// FileWrite writes data to an open file and returns the number of bytes
// the brick accepted.
func (b *Brick) FileWrite(fh *FileHandle, data []byte) (uint32, error) {
	pkt := protocol.New(protocol.OpSysWrite)
	pkt.PushU8(fh.handle)
	pkt.PushBytes(data)
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return 0, err
	}
	if err := reply.CheckStatus(); err != nil {
		return 0, err
	}
	if _, err := reply.ReadU8(); err != nil { // echoed handle
		return 0, err
	}
	return reply.ReadU32()
}

// FileClose releases an open file handle.
func (b *Brick) FileClose(fh *FileHandle) error {
	pkt := protocol.New(protocol.OpSysClose)
	pkt.PushU8(fh.handle)
	return b.send(pkt, true)
}

// FileDelete removes a file from the brick's flash.
func (b *Brick) FileDelete(name string) error {
	pkt := protocol.New(protocol.OpSysDelete)
	if err := pkt.PushFilename(name); err != nil {
		return err
	}
	return b.send(pkt, true)
}

// FileFindFirst starts a file search. The pattern supports the brick's
// wildcard forms such as "*.*" and "*.rxe". When the search has further
// matches, FileFindNext continues it; the iteration ends when a call
// fails with a device error, which is the normal termination and not a
// connection fault.
func (b *Brick) FileFindFirst(pattern string) (*FindFileHandle, error) {
	pkt := protocol.New(protocol.OpSysFindFirst)
	if err := pkt.PushFilename(pattern); err != nil {
		return nil, err
	}
	return b.readFindReply(pkt)
}

// FileFindNext advances a file search. The previous handle is consumed.
func (b *Brick) FileFindNext(fh *FindFileHandle) (*FindFileHandle, error) {
	pkt := protocol.New(protocol.OpSysFindNext)
	pkt.PushU8(fh.handle)
	return b.readFindReply(pkt)
}

func (b *Brick) readFindReply(pkt *protocol.Packet) (*FindFileHandle, error) {
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return nil, err
	}
	if err := reply.CheckStatus(); err != nil {
		return nil, err
	}
	var fh FindFileHandle
	if fh.handle, err = reply.ReadU8(); err != nil {
		return nil, err
	}
	if fh.Name, err = reply.ReadFilename(); err != nil {
		return nil, err
	}
	if fh.Len, err = reply.ReadU32(); err != nil {
		return nil, err
	}
	return &fh, nil
}

// ListFiles runs a complete file search and collects every match. A
// not-found error on the first step yields an empty list.
func (b *Brick) ListFiles(pattern string) ([]FindFileHandle, error) {
	var files []FindFileHandle
	fh, err := b.FileFindFirst(pattern)
	for err == nil {
		files = append(files, *fh)
		fh, err = b.FileFindNext(fh)
	}
	var devErr *protocol.DeviceError
	if errors.As(err, &devErr) {
		return files, nil
	}
	return files, err
}

// ModuleFindFirst starts a firmware module search. Iteration follows
// the same termination rule as file searches.
func (b *Brick) ModuleFindFirst(pattern string) (*ModuleHandle, error) {
	pkt := protocol.New(protocol.OpSysFindFirstModule)
	if err := pkt.PushFilename(pattern); err != nil {
		return nil, err
	}
	return b.readModuleReply(pkt)
}

// ModuleFindNext advances a module search.
func (b *Brick) ModuleFindNext(mh *ModuleHandle) (*ModuleHandle, error) {
	pkt := protocol.New(protocol.OpSysFindNextModule)
	pkt.PushU8(mh.handle)
	return b.readModuleReply(pkt)
}

func (b *Brick) readModuleReply(pkt *protocol.Packet) (*ModuleHandle, error) {
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return nil, err
	}
	if err := reply.CheckStatus(); err != nil {
		return nil, err
	}
	var mh ModuleHandle
	if mh.handle, err = reply.ReadU8(); err != nil {
		return nil, err
	}
	if mh.Name, err = reply.ReadFilename(); err != nil {
		return nil, err
	}
	if mh.ID, err = reply.ReadU32(); err != nil {
		return nil, err
	}
	if mh.Len, err = reply.ReadU32(); err != nil {
		return nil, err
	}
	if mh.IOMapLen, err = reply.ReadU16(); err != nil {
		return nil, err
	}
	return &mh, nil
}

// ModuleClose releases a module search handle.
func (b *Brick) ModuleClose(mh *ModuleHandle) error {
	pkt := protocol.New(protocol.OpSysCloseModuleHandle)
	pkt.PushU8(mh.handle)
	return b.send(pkt, true)
}

// ReadIOMap reads count bytes from a firmware module's IO map.
func (b *Brick) ReadIOMap(modID uint32, offset, count uint16) ([]byte, error) {
	pkt := protocol.New(protocol.OpSysIOMapRead)
	pkt.PushU32(modID)
	pkt.PushU16(offset)
	pkt.PushU16(count)
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return nil, err
	}
	if err := reply.CheckStatus(); err != nil {
		return nil, err
	}
	if _, err := reply.ReadU32(); err != nil { // echoed module id
		return nil, err
	}
	n, err := reply.ReadU16()
	if err != nil {
		return nil, err
	}
	return reply.ReadBytes(int(n))
}

// WriteIOMap writes data into a firmware module's IO map and returns
// the number of bytes written.
func (b *Brick) WriteIOMap(modID uint32, offset uint16, data []byte) (uint16, error) {
	if len(data) > 0xFFFF {
		return 0, fmt.Errorf("brick: io map write too long (%d bytes)", len(data))
	}
	pkt := protocol.New(protocol.OpSysIOMapWrite)
	pkt.PushU32(modID)
	pkt.PushU16(offset)
	pkt.PushU16(uint16(len(data)))
	pkt.PushBytes(data)
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return 0, err
	}
	if err := reply.CheckStatus(); err != nil {
		return 0, err
	}
	if _, err := reply.ReadU32(); err != nil { // echoed module id
		return 0, err
	}
	return reply.ReadU16()
}

// Boot reboots the brick into the SAMBA firmware loader. This wipes the
// firmware and is not recoverable over this protocol, so the caller
// must pass sure=true explicitly.
func (b *Brick) Boot(sure bool) ([]byte, error) {
	if !sure {
		return nil, fmt.Errorf("brick: boot into firmware loader requires explicit confirmation")
	}
	pkt := protocol.New(protocol.OpSysBootCmd)
	pkt.PushBytes([]byte(sambaBootString))
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return nil, err
	}
	if err := reply.CheckStatus(); err != nil {
		return nil, err
	}
	return reply.ReadBytes(4)
}

// DeleteUserFlash erases every user file on the brick.
func (b *Brick) DeleteUserFlash() error {
	return b.send(protocol.New(protocol.OpSysDeleteUserFlash), true)
}

// PollCommandLength returns the number of bytes pending in a poll
// buffer.
func (b *Brick) PollCommandLength(buf BufType) (uint8, error) {
	pkt := protocol.New(protocol.OpSysPollCmdLen)
	pkt.PushU8(uint8(buf))
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return 0, err
	}
	if err := reply.CheckStatus(); err != nil {
		return 0, err
	}
	if _, err := reply.ReadU8(); err != nil { // echoed buffer number
		return 0, err
	}
	return reply.ReadU8()
}

// PollCommand drains up to n bytes from a poll buffer.
func (b *Brick) PollCommand(buf BufType, n uint8) ([]byte, error) {
	pkt := protocol.New(protocol.OpSysPollCmd)
	pkt.PushU8(uint8(buf))
	pkt.PushU8(n)
	reply, err := b.sendRecv(pkt)
	if err != nil {
		return nil, err
	}
	if err := reply.CheckStatus(); err != nil {
		return nil, err
	}
	if _, err := reply.ReadU8(); err != nil { // echoed buffer number
		return nil, err
	}
	got, err := reply.ReadU8()
	if err != nil {
		return nil, err
	}
	return reply.ReadBytes(int(got))
}

// BluetoothFactoryReset resets the brick's Bluetooth settings. Only
// honored over USB; the brick refuses it over Bluetooth.
func (b *Brick) BluetoothFactoryReset() error {
	return b.send(protocol.New(protocol.OpSysBtFactoryReset), true)
}
