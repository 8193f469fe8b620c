package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nxtd-project/nxtd/internal/brick"
	"github.com/nxtd-project/nxtd/internal/config"
	"github.com/nxtd-project/nxtd/internal/datalog"
	"github.com/nxtd-project/nxtd/internal/protocol"
)

type scriptedTransport struct {
	replies [][]byte
}

func (s *scriptedTransport) Send(data []byte) (int, error) {
	return len(data), nil
}

func (s *scriptedTransport) Recv(buf []byte) ([]byte, error) {
	if len(s.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	frame := s.replies[0]
	s.replies = s.replies[1:]
	n := copy(buf, frame)
	return buf[:n], nil
}

func (s *scriptedTransport) Close() error { return nil }

func reply(op protocol.Opcode, status protocol.Status, payload ...byte) []byte {
	frame := []byte{0x02, byte(op), byte(status)}
	return append(frame, payload...)
}

func datalogConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nxtd.db")
	cfg := config.DefaultConfig()
	cfg.Daemon.Datalog.Enabled = true
	cfg.Daemon.Datalog.Path = dbPath
	return cfg, dbPath
}

func TestDownloadRecordsTransfer(t *testing.T) {
	cfg, dbPath := datalogConfig(t)
	st := &scriptedTransport{replies: [][]byte{
		reply(protocol.OpSysOpenRead, protocol.StatusSuccess, 0x01, 0x03, 0x00, 0x00, 0x00),
		reply(protocol.OpSysRead, protocol.StatusSuccess, 0x01, 0x03, 0x00, 'a', 'b', 'c'),
		reply(protocol.OpSysClose, protocol.StatusSuccess),
	}}
	b := brick.New(st)
	dest := filepath.Join(t.TempDir(), "data.log")

	if err := cmdDownload(cfg, b, []string{"data.log", dest}); err != nil {
		t.Fatalf("cmdDownload: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if !bytes.Equal(got, []byte("abc")) {
		t.Errorf("downloaded content = %q, want %q", got, "abc")
	}

	store, err := datalog.NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()
	files, err := store.RecentFiles(10)
	if err != nil {
		t.Fatalf("RecentFiles: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d file records, want 1", len(files))
	}
	if files[0].Name != "data.log" || files[0].Size != 3 || files[0].Direction != "download" {
		t.Errorf("file record = %+v", files[0])
	}
}

func TestUploadRecordsTransfer(t *testing.T) {
	cfg, dbPath := datalogConfig(t)
	src := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(src, []byte("hello"), 0644); err != nil {
		t.Fatalf("write src: %v", err)
	}
	st := &scriptedTransport{replies: [][]byte{
		reply(protocol.OpSysOpenWrite, protocol.StatusSuccess, 0x02),
		reply(protocol.OpSysWrite, protocol.StatusSuccess, 0x02, 0x05, 0x00, 0x00, 0x00),
		reply(protocol.OpSysClose, protocol.StatusSuccess),
	}}
	b := brick.New(st)

	if err := cmdUpload(cfg, b, []string{src}); err != nil {
		t.Fatalf("cmdUpload: %v", err)
	}

	store, err := datalog.NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()
	files, err := store.RecentFiles(10)
	if err != nil {
		t.Fatalf("RecentFiles: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d file records, want 1", len(files))
	}
	if files[0].Name != "notes.txt" || files[0].Size != 5 || files[0].Direction != "upload" {
		t.Errorf("file record = %+v", files[0])
	}
}

func TestDownloadSkipsRecordingWhenDatalogDisabled(t *testing.T) {
	cfg, dbPath := datalogConfig(t)
	cfg.Daemon.Datalog.Enabled = false
	st := &scriptedTransport{replies: [][]byte{
		reply(protocol.OpSysOpenRead, protocol.StatusSuccess, 0x01, 0x01, 0x00, 0x00, 0x00),
		reply(protocol.OpSysRead, protocol.StatusSuccess, 0x01, 0x01, 0x00, 'x'),
		reply(protocol.OpSysClose, protocol.StatusSuccess),
	}}
	b := brick.New(st)
	dest := filepath.Join(t.TempDir(), "one.bin")

	if err := cmdDownload(cfg, b, []string{"one.bin", dest}); err != nil {
		t.Fatalf("cmdDownload: %v", err)
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Errorf("datalog created despite being disabled")
	}
}
