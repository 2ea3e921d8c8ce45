// File: device/device_test.go
// Author: momentics <momentics@gmail.com>

package device

import (
	"context"
	"testing"
	"time"

	"github.com/momentics/zio/api"
	"github.com/momentics/zio/control"
	"github.com/momentics/zio/trigger"
)

func sampleCtrl(seq uint32) control.Control {
	c := control.New()
	c.SeqNum = seq
	return *c
}

func inputSpec(name string) Spec {
	return Spec{
		Name: name,
		CSets: []CSetSpec{{
			Name:      "ai",
			Direction: api.DirInput,
			NChans:    2,
			SSize:     2,
			SBits:     12,
			Buffer:    BufferSpec{Type: "list", MaxLen: 8},
			Trigger:   TriggerSpec{Type: "user", NSamples: 4},
			RawIO:     fillRamp,
		}},
	}
}

// fillRamp writes a ramp into every staged input block.
func fillRamp(chans []api.ChannelLink) error {
	for _, ch := range chans {
		blk := ch.ActiveBlock()
		if blk == nil {
			continue
		}
		for i := range blk.Data {
			blk.Data[i] = byte(i)
		}
	}
	return nil
}

func TestDeviceBuildAndLookup(t *testing.T) {
	dev, err := New(inputSpec("adc-build"))
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	if dev.CSets() != 1 {
		t.Fatalf("expected 1 cset, got %d", dev.CSets())
	}
	got, ok := Lookup(dev.Handle())
	if !ok || got != dev {
		t.Fatal("registered device not found by handle")
	}

	cs, err := dev.CSet(0)
	if err != nil {
		t.Fatal(err)
	}
	if cs.NChans() != 2 {
		t.Fatalf("expected 2 channels, got %d", cs.NChans())
	}
	ch, err := cs.Chan(0)
	if err != nil {
		t.Fatal(err)
	}
	snap := ch.Snapshot()
	if snap.DevName != "adc-build" || snap.TrigName != "user" {
		t.Fatalf("control identity not stamped: %+v", snap)
	}
	if snap.SSize != 2 || snap.SBits != 12 {
		t.Fatalf("sample geometry not stamped: %+v", snap)
	}

	if _, err := dev.CSet(5); err == nil {
		t.Fatal("expected error for unknown cset index")
	}
}

func TestDeviceCloseUnregisters(t *testing.T) {
	dev, err := New(inputSpec("adc-close"))
	if err != nil {
		t.Fatal(err)
	}
	h := dev.Handle()
	dev.Close()
	if _, ok := Lookup(h); ok {
		t.Fatal("handle still resolves after close")
	}
}

func TestDeviceRejectsUnknownTypes(t *testing.T) {
	spec := inputSpec("adc-bad")
	spec.CSets[0].Buffer.Type = "no-such-store"
	if _, err := New(spec); err == nil {
		t.Fatal("expected unknown buffer type to fail")
	}

	spec = inputSpec("adc-bad2")
	spec.CSets[0].Trigger.Type = "no-such-trigger"
	if _, err := New(spec); err == nil {
		t.Fatal("expected unknown trigger type to fail")
	}
}

func TestInputReadRoundtrip(t *testing.T) {
	dev, err := New(inputSpec("adc-read"))
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()
	cs, _ := dev.CSet(0)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// a waiting reader pulls the user trigger, which produces at once
	blk, err := cs.ReadBlock(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if blk.Ctrl().SeqNum != 1 {
		t.Fatalf("seq = %d, want 1", blk.Ctrl().SeqNum)
	}
	if blk.Size != 8 { // ssize 2 * nsamples 4
		t.Fatalf("block size = %d, want 8", blk.Size)
	}
	if blk.Data[3] != 3 {
		t.Fatalf("payload not filled by raw io")
	}
	if err := cs.ReleaseBlock(0, blk); err != nil {
		t.Fatal(err)
	}

	// wrong direction is refused outright
	if err := cs.TryWriteBlock(0, make([]byte, 8)); err != api.ErrBadDirection {
		t.Fatalf("expected ErrBadDirection, got %v", err)
	}
}

func TestOutputWriteRoundtrip(t *testing.T) {
	var sent [][]byte
	dev, err := New(Spec{
		Name: "dac-write",
		CSets: []CSetSpec{{
			Name:      "ao",
			Direction: api.DirOutput,
			NChans:    1,
			SSize:     2,
			Buffer:    BufferSpec{Type: "list", MaxLen: 4},
			Trigger:   TriggerSpec{Type: "user"},
			RawIO: func(chans []api.ChannelLink) error {
				blk := chans[0].ActiveBlock()
				if blk != nil {
					sent = append(sent, append([]byte(nil), blk.Data...))
				}
				return nil
			},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()
	cs, _ := dev.CSet(0)

	payload := []byte{1, 2, 3, 4}
	if err := cs.TryWriteBlock(0, payload); err != nil {
		t.Fatal(err)
	}
	// the user trigger fires on push: the write is consumed already
	if len(sent) != 1 {
		t.Fatalf("raw io saw %d blocks, want 1", len(sent))
	}
	if string(sent[0]) != string(payload) {
		t.Fatalf("payload mismatch: %v", sent[0])
	}

	// odd payloads are not whole samples
	if err := cs.TryWriteBlock(0, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected partial-sample payload to fail")
	}
	if _, err := cs.TryReadBlock(0); err != api.ErrBadDirection {
		t.Fatalf("expected ErrBadDirection, got %v", err)
	}
}

func TestPollReflectsQueueState(t *testing.T) {
	dev, err := New(inputSpec("adc-poll"))
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()
	cs, _ := dev.CSet(0)

	readable, writable, err := cs.Poll(0)
	if err != nil {
		t.Fatal(err)
	}
	if readable {
		t.Fatal("nothing queued yet")
	}
	if !writable {
		t.Fatal("fresh buffer must have space")
	}

	cs.Trigger().Fire()
	readable, _, err = cs.Poll(0)
	if err != nil {
		t.Fatal(err)
	}
	if !readable {
		t.Fatal("block queued after fire, poll must see it")
	}
}

func TestChannelDisableSkipsTransfer(t *testing.T) {
	dev, err := New(inputSpec("adc-chdis"))
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()
	cs, _ := dev.CSet(0)

	ch1, _ := cs.Chan(1)
	ch1.SetEnabled(false)
	cs.Trigger().Fire()

	if _, err := cs.TryReadBlock(0); err != nil {
		t.Fatalf("enabled channel must have data: %v", err)
	}
	if _, err := cs.TryReadBlock(1); err != api.ErrWouldBlock {
		t.Fatalf("disabled channel must stay empty, got %v", err)
	}
	if ch1.Snapshot().SeqNum != 0 {
		t.Fatal("disabled channel sequence must not advance")
	}
}

func TestCSetDisableAbortsTrigger(t *testing.T) {
	dev, err := New(inputSpec("adc-csdis"))
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()
	cs, _ := dev.CSet(0)

	cs.Disable()
	if cs.Trigger().Status() != trigger.StateDisabled {
		t.Fatal("trigger must be disabled")
	}
	cs.Trigger().Fire()
	if _, err := cs.TryReadBlock(0); err != api.ErrWouldBlock {
		t.Fatal("disabled cset must not produce data")
	}

	cs.Enable()
	cs.Trigger().Fire()
	if _, err := cs.TryReadBlock(0); err != nil {
		t.Fatalf("re-enabled cset must produce data: %v", err)
	}
}

func TestSnifferTapsCompletedControls(t *testing.T) {
	spec := inputSpec("adc-sniff")
	spec.SniffDepth = 4
	dev, err := New(spec)
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()
	cs, _ := dev.CSet(0)

	cs.Trigger().Fire()

	// two enabled channels completed: two tapped copies
	for i := 0; i < 2; i++ {
		select {
		case c := <-dev.Sniffer().Controls():
			if c.SeqNum != 1 {
				t.Fatalf("tapped seq = %d, want 1", c.SeqNum)
			}
		case <-time.After(time.Second):
			t.Fatal("sniffer delivered nothing")
		}
	}
}

func TestSnifferDropSetsAlarm(t *testing.T) {
	s := NewSniffer(1)
	s.Tap(sampleCtrl(1))
	s.Tap(sampleCtrl(2)) // channel full: dropped
	if s.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", s.Dropped())
	}

	<-s.Controls()
	s.Tap(sampleCtrl(3))
	got := <-s.Controls()
	if got.Alarms&control.AlarmLostSniff == 0 {
		t.Fatal("control after a drop must carry the lost-sniff alarm")
	}
}
