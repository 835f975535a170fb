package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"
)

// fakeServer is an in-process stand-in for a language server: it reads
// encoded frames the correlator writes, and lets the test script
// arbitrary response/notification frames back on a separate pipe. This
// plays the role childproc.Process plays in production, without spawning
// a real process.
type fakeServer struct {
	toServer   *io.PipeReader
	fromServer *io.PipeWriter
	mu         sync.Mutex
	received   []Request
}

func newFakeServer() (*fakeServer, io.ReadWriter) {
	toServerR, toServerW := io.Pipe()
	fromServerR, fromServerW := io.Pipe()

	fs := &fakeServer{toServer: toServerR, fromServer: fromServerW}

	go fs.drainRequests()

	return fs, &pipeDuo{Reader: fromServerR, Writer: toServerW}
}

type pipeDuo struct {
	io.Reader
	io.Writer
}

func (fs *fakeServer) drainRequests() {
	r := bufio.NewReader(fs.toServer)
	for {
		raw, err := Decode(r)
		if err != nil {
			return
		}
		var req Request
		if err := json.Unmarshal(raw, &req); err == nil && req.Method != "" {
			fs.mu.Lock()
			fs.received = append(fs.received, req)
			fs.mu.Unlock()
		}
	}
}

func (fs *fakeServer) sendResponse(id string, result json.RawMessage, respErr *ResponseError) {
	Encode(fs.fromServer, Response{Jsonrpc: Version, ID: id, Result: result, Error: respErr})
}

func (fs *fakeServer) sendNotification(method string, params json.RawMessage) {
	Encode(fs.fromServer, Notification{Jsonrpc: Version, Method: method, Params: params})
}

func (fs *fakeServer) close() {
	fs.fromServer.Close()
}

// TestCorrelatorMatchesByID covers property 4: N requests, replies in a
// permuted order, each future resolves to its own id's response.
func TestCorrelatorMatchesByID(t *testing.T) {
	fs, conn := newFakeServer()
	defer fs.close()

	correlator := NewCorrelator(conn)
	pump := NewPump(bufio.NewReader(conn), nil)
	go pump.Run()
	go func() {
		for resp := range pump.Responses() {
			correlator.Deliver(resp, nil)
		}
	}()

	ids := []string{"A", "B", "C"}
	results := make(chan string, len(ids))
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			resp, err := correlator.Call(context.Background(), id, "noop", nil)
			if err != nil {
				t.Errorf("Call(%s): %v", id, err)
				return
			}
			results <- id + "=" + string(resp.Result)
		}(id)
	}

	// Give the calls a moment to register their slots, then reply in a
	// permuted order: C, A, B.
	time.Sleep(20 * time.Millisecond)
	fs.sendResponse("C", json.RawMessage(`"c"`), nil)
	fs.sendResponse("A", json.RawMessage(`"a"`), nil)
	fs.sendResponse("B", json.RawMessage(`"b"`), nil)

	wg.Wait()
	close(results)

	got := make(map[string]bool)
	for r := range results {
		got[r] = true
	}
	for _, want := range []string{`A="a"`, `B="b"`, `C="c"`} {
		if !got[want] {
			t.Errorf("missing result %s", want)
		}
	}
}

// TestOutOfOrderCompletion covers scenario S3: client issues A then B,
// server replies B then A; each resolves to its own payload regardless of
// reply order.
func TestOutOfOrderCompletion(t *testing.T) {
	fs, conn := newFakeServer()
	defer fs.close()

	correlator := NewCorrelator(conn)
	pump := NewPump(bufio.NewReader(conn), nil)
	go pump.Run()
	go func() {
		for resp := range pump.Responses() {
			correlator.Deliver(resp, nil)
		}
	}()

	aDone := make(chan Response, 1)
	bDone := make(chan Response, 1)
	go func() {
		resp, err := correlator.Call(context.Background(), "A", "m", nil)
		if err != nil {
			t.Errorf("Call(A): %v", err)
		}
		aDone <- resp
	}()
	time.Sleep(5 * time.Millisecond) // A must be submitted first, per S3
	go func() {
		resp, err := correlator.Call(context.Background(), "B", "m", nil)
		if err != nil {
			t.Errorf("Call(B): %v", err)
		}
		bDone <- resp
	}()

	time.Sleep(10 * time.Millisecond)
	fs.sendResponse("B", json.RawMessage(`"b-result"`), nil)
	fs.sendResponse("A", json.RawMessage(`"a-result"`), nil)

	select {
	case resp := <-bDone:
		if string(resp.Result) != `"b-result"` {
			t.Errorf("B result = %s", resp.Result)
		}
	case <-time.After(time.Second):
		t.Fatal("B's call never completed")
	}

	select {
	case resp := <-aDone:
		if string(resp.Result) != `"a-result"` {
			t.Errorf("A result = %s", resp.Result)
		}
	case <-time.After(time.Second):
		t.Fatal("A's call never completed")
	}
}

// TestResponseErrorIsMethodError covers scenario S2: a well-formed error
// response resolves the call (no transport error) carrying the error.
func TestResponseErrorIsMethodError(t *testing.T) {
	fs, conn := newFakeServer()
	defer fs.close()

	correlator := NewCorrelator(conn)
	pump := NewPump(bufio.NewReader(conn), nil)
	go pump.Run()
	go func() {
		for resp := range pump.Responses() {
			correlator.Deliver(resp, nil)
		}
	}()

	done := make(chan Response, 1)
	go func() {
		resp, _ := correlator.Call(context.Background(), "1", "unknown/method", nil)
		done <- resp
	}()

	time.Sleep(10 * time.Millisecond)
	fs.sendResponse("1", nil, &ResponseError{Code: CodeMethodNotFound, Message: "unknown"})

	resp := <-done
	if resp.Error == nil {
		t.Fatal("expected a response-level error")
	}
	if resp.Error.Code != CodeMethodNotFound {
		t.Errorf("code = %d, want %d", resp.Error.Code, CodeMethodNotFound)
	}
}

// TestTransportClosePropagates covers property 7 / scenario-style close
// behavior: once the stream ends, any pending and future call fails with
// ErrTransportClosed.
func TestTransportClosePropagates(t *testing.T) {
	fs, conn := newFakeServer()

	correlator := NewCorrelator(conn)
	pump := NewPump(bufio.NewReader(conn), nil)

	pumpDone := make(chan error, 1)
	go func() { pumpDone <- pump.Run() }()
	go func() {
		for resp := range pump.Responses() {
			correlator.Deliver(resp, nil)
		}
	}()

	firstDone := make(chan error, 1)
	go func() {
		_, err := correlator.Call(context.Background(), "1", "m", nil)
		firstDone <- err
	}()

	time.Sleep(10 * time.Millisecond)
	fs.sendResponse("1", json.RawMessage(`"ok"`), nil)
	if err := <-firstDone; err != nil {
		t.Fatalf("first call: %v", err)
	}

	// Close the server's write side: stdout EOF from the pump's point of
	// view.
	fs.close()
	select {
	case <-pumpDone:
	case <-time.After(time.Second):
		t.Fatal("pump did not terminate on EOF")
	}
	correlator.Close(ErrTransportClosed)

	_, err := correlator.Call(context.Background(), "2", "m", nil)
	if err == nil {
		t.Fatal("expected TransportClosed after pump termination")
	}
}

func TestNotificationStreamOrdering(t *testing.T) {
	fs, conn := newFakeServer()
	defer fs.close()

	pump := NewPump(bufio.NewReader(conn), nil)
	go pump.Run()

	fs.sendNotification("n1", nil)
	fs.sendNotification("n2", nil)
	fs.sendNotification("n3", nil)

	var got []string
	for i := 0; i < 3; i++ {
		select {
		case n := <-pump.Notifications():
			got = append(got, n.Method)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for notification")
		}
	}

	want := []string{"n1", "n2", "n3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("notification order = %v, want %v", got, want)
		}
	}
}

func TestBatchFansOutInOrder(t *testing.T) {
	fs, conn := newFakeServer()
	defer fs.close()

	correlator := NewCorrelator(conn)
	pump := NewPump(bufio.NewReader(conn), nil)
	go pump.Run()
	go func() {
		for resp := range pump.Responses() {
			correlator.Deliver(resp, nil)
		}
	}()

	done := make(chan Response, 1)
	go func() {
		resp, err := correlator.Call(context.Background(), "A", "m", nil)
		if err != nil {
			t.Errorf("Call: %v", err)
		}
		done <- resp
	}()

	time.Sleep(10 * time.Millisecond)
	const batch = `[{"jsonrpc":"2.0","id":"A","result":"ok"},{"jsonrpc":"2.0","method":"evt","params":{}}]`
	Encode(fs.fromServer, json.RawMessage(batch))

	select {
	case resp := <-done:
		if string(resp.Result) != `"ok"` {
			t.Errorf("result = %s", resp.Result)
		}
	case <-time.After(time.Second):
		t.Fatal("batch response never delivered")
	}

	select {
	case n := <-pump.Notifications():
		if n.Method != "evt" {
			t.Errorf("notification method = %s", n.Method)
		}
	case <-time.After(time.Second):
		t.Fatal("batch notification never delivered")
	}
}
