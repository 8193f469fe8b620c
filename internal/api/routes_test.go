package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/nxtd-project/nxtd/internal/brick"
	"github.com/nxtd-project/nxtd/internal/config"
	"github.com/nxtd-project/nxtd/internal/datalog"
	"github.com/nxtd-project/nxtd/internal/protocol"
)

type fakeBrick struct {
	battery uint16
	files   []brick.FindFileHandle
	dead    bool
}

func (f *fakeBrick) GetBatteryLevel() (uint16, error) {
	if f.dead {
		return 0, &protocol.DeviceError{Code: protocol.StatusBusError}
	}
	return f.battery, nil
}

func (f *fakeBrick) GetFirmwareVersion() (*brick.FwVersion, error) {
	return &brick.FwVersion{Protocol: [2]uint8{1, 124}, Firmware: [2]uint8{1, 31}}, nil
}

func (f *fakeBrick) GetDeviceInfo() (*brick.DeviceInfo, error) {
	return &brick.DeviceInfo{
		Name:      "NXT",
		BtAddr:    [6]uint8{0x00, 0x16, 0x53, 0x01, 0x02, 0x03},
		FreeFlash: 81920,
	}, nil
}

func (f *fakeBrick) GetInputValues(port brick.InPort) (*brick.InputValues, error) {
	return &brick.InputValues{Port: port, Valid: true, Raw: 100}, nil
}

func (f *fakeBrick) ListFiles(pattern string) ([]brick.FindFileHandle, error) {
	return f.files, nil
}

func newTestRouter(fb *fakeBrick) http.Handler {
	cfg := config.DefaultConfig()
	srv := NewServer(cfg, fb, nil)
	return srv.buildRouter()
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body := map[string]interface{}{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON from %s: %v", path, err)
	}
	return rec, body
}

func TestBatteryRoute(t *testing.T) {
	h := newTestRouter(&fakeBrick{battery: 8250})

	rec, body := get(t, h, "/api/battery")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["millivolts"].(float64) != 8250 {
		t.Errorf("millivolts = %v", body["millivolts"])
	}
}

func TestBatteryRouteReportsBrickFailure(t *testing.T) {
	h := newTestRouter(&fakeBrick{dead: true})

	rec, body := get(t, h, "/api/battery")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if body["error"] == nil {
		t.Error("missing error field")
	}
}

func TestInfoRoute(t *testing.T) {
	h := newTestRouter(&fakeBrick{})

	rec, body := get(t, h, "/api/info")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["name"] != "NXT" {
		t.Errorf("name = %v", body["name"])
	}
	if body["bluetooth_addr"] != "00:16:53:01:02:03" {
		t.Errorf("bluetooth_addr = %v", body["bluetooth_addr"])
	}
	if body["firmware_version"] != "1.31" {
		t.Errorf("firmware_version = %v", body["firmware_version"])
	}
}

func TestFilesRoute(t *testing.T) {
	h := newTestRouter(&fakeBrick{files: []brick.FindFileHandle{
		{Name: "demo.rxe", Len: 2048},
	}})

	rec, body := get(t, h, "/api/files")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["total"].(float64) != 1 {
		t.Errorf("total = %v", body["total"])
	}
}

func TestSamplesRouteWithoutStore(t *testing.T) {
	h := newTestRouter(&fakeBrick{})

	rec, _ := get(t, h, "/api/samples/recent")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestRecentFilesRoute(t *testing.T) {
	store, err := datalog.NewStore(filepath.Join(t.TempDir(), "nxtd.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.RecordFile("demo.rxe", 2048, "upload"); err != nil {
		t.Fatalf("RecordFile: %v", err)
	}

	srv := NewServer(config.DefaultConfig(), &fakeBrick{}, store)
	h := srv.buildRouter()

	rec, body := get(t, h, "/api/files/recent")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["count"].(float64) != 1 {
		t.Errorf("count = %v", body["count"])
	}
	files := body["files"].([]interface{})
	first := files[0].(map[string]interface{})
	if first["name"] != "demo.rxe" || first["direction"] != "upload" {
		t.Errorf("file record = %v", first)
	}
}

func TestRecentFilesRouteWithoutStore(t *testing.T) {
	h := newTestRouter(&fakeBrick{})

	rec, _ := get(t, h, "/api/files/recent")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newTestRouter(&fakeBrick{})

	rec, _ := get(t, h, "/api/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
