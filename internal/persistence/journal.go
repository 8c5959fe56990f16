package persistence

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/radiowar/internal/engine"
)

// EncodeJournal writes events as zstd-compressed JSON lines.
func EncodeJournal(events []engine.Event) ([]byte, error) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(enc)
	for _, e := range events {
		b, err := json.Marshal(e)
		if err != nil {
			_ = enc.Close()
			return nil, err
		}
		if _, err := w.Write(b); err != nil {
			_ = enc.Close()
			return nil, err
		}
		if err := w.WriteByte('\n'); err != nil {
			_ = enc.Close()
			return nil, err
		}
	}
	if err := w.Flush(); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeJournal reverses EncodeJournal. An empty blob is an empty journal.
func DecodeJournal(blob []byte) ([]engine.Event, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	dec, err := zstd.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var events []engine.Event
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for line := 1; sc.Scan(); line++ {
		var e engine.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("journal line %d: %w", line, err)
		}
		events = append(events, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
