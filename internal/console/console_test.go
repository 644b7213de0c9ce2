package console

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/udplink/internal/device"
)

// TestStatsStream connects an observer and verifies that frames describing
// the device arrive.
func TestStatsStream(t *testing.T) {
	dev, err := device.Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer dev.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := NewServer(dev)
	port, err := srv.Start(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("console Start failed: %v", err)
	}
	defer srv.Close()

	url := fmt.Sprintf("ws://127.0.0.1:%d/stats", port)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("observer dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("reading stats frame failed: %v", err)
	}

	if f.Local != dev.LocalAddr().String() {
		t.Errorf("frame local mismatch: got %q, want %q", f.Local, dev.LocalAddr())
	}
	if f.Connected {
		t.Error("unconnected device reported as connected")
	}
}
