package store

import (
	"bytes"
	"errors"
	"log"
	"reflect"
	"strings"
	"testing"
)

type sample struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

type failingKV struct {
	getErr error
	setErr error
}

func (f failingKV) Get(string) ([]byte, error) { return nil, f.getErr }
func (f failingKV) Set(string, []byte) error   { return f.setErr }

func newTestLogger() (*log.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return log.New(&buf, "", 0), &buf
}

func TestLoadMissingKeyReturnsDefault(t *testing.T) {
	logger, logs := newTestLogger()
	kv := NewMemoryKV()

	got := Load(kv, ListKey, []sample{{ID: "default"}}, logger)
	want := []sample{{ID: "default"}}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("unexpected value for missing key\nwant=%+v\ngot=%+v", want, got)
	}
	if logs.Len() != 0 {
		t.Fatalf("missing key should not be logged, got %q", logs.String())
	}
}

func TestSaveThenLoad(t *testing.T) {
	kv := NewMemoryKV()
	want := []sample{{ID: "a", Order: 1}, {ID: "b", Order: 2}}

	if err := Save(kv, ListKey, want, nil); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got := Load[[]sample](kv, ListKey, nil, nil)
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("save/load mismatch\nwant=%+v\ngot=%+v", want, got)
	}
}

func TestLoadMalformedValueFallsBackAndLogs(t *testing.T) {
	logger, logs := newTestLogger()
	kv := NewMemoryKV()
	if err := kv.Set(ListKey, []byte("{not json")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	got := Load(kv, ListKey, []sample{}, logger)
	if len(got) != 0 {
		t.Fatalf("expected default empty slice, got %+v", got)
	}
	if !strings.Contains(logs.String(), "malformed") {
		t.Fatalf("expected malformed value to be logged, got %q", logs.String())
	}
}

func TestLoadWrongShapeFallsBack(t *testing.T) {
	kv := NewMemoryKV()
	if err := kv.Set(ListKey, []byte(`{"id":"not-a-list"}`)); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	got := Load(kv, ListKey, []sample{{ID: "fallback"}}, nil)
	if len(got) != 1 || got[0].ID != "fallback" {
		t.Fatalf("expected fallback value, got %+v", got)
	}
}

func TestLoadReadErrorFallsBack(t *testing.T) {
	logger, logs := newTestLogger()
	kv := failingKV{getErr: errors.New("disk on fire")}

	got := Load(kv, ListKey, 7, logger)
	if got != 7 {
		t.Fatalf("expected default 7, got %d", got)
	}
	if !strings.Contains(logs.String(), "disk on fire") {
		t.Fatalf("expected read error to be logged, got %q", logs.String())
	}
}

func TestSaveFailureIsLoggedAndReturned(t *testing.T) {
	logger, logs := newTestLogger()
	quota := errors.New("quota exceeded")
	kv := failingKV{setErr: quota}

	err := Save(kv, ListKey, []sample{{ID: "a"}}, logger)
	if !errors.Is(err, quota) {
		t.Fatalf("expected quota error, got %v", err)
	}
	if !strings.Contains(logs.String(), "quota exceeded") {
		t.Fatalf("expected save failure to be logged, got %q", logs.String())
	}
}

func TestSaveEncodeFailure(t *testing.T) {
	logger, logs := newTestLogger()
	kv := NewMemoryKV()

	err := Save(kv, ListKey, make(chan int), logger)
	if err == nil {
		t.Fatalf("expected encode error")
	}
	if _, getErr := kv.Get(ListKey); !errors.Is(getErr, ErrNotFound) {
		t.Fatalf("nothing should be written on encode failure, got %v", getErr)
	}
	if logs.Len() == 0 {
		t.Fatalf("expected encode failure to be logged")
	}
}

func TestNilKVIsInert(t *testing.T) {
	if err := Save[[]sample](nil, ListKey, nil, nil); err != nil {
		t.Fatalf("save on nil kv failed: %v", err)
	}
	if got := Load(nil, ListKey, 3, nil); got != 3 {
		t.Fatalf("expected default from nil kv, got %d", got)
	}
}

func TestMemoryKVCopiesValues(t *testing.T) {
	kv := NewMemoryKV()
	value := []byte(`[1]`)
	if err := kv.Set("k", value); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value[1] = '2'

	got, err := kv.Get("k")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != "[1]" {
		t.Fatalf("stored value was aliased: %s", got)
	}
}
