package store

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/armdeck/internal/deck"
	"github.com/danmuck/armdeck/internal/nvs"
	"github.com/danmuck/armdeck/internal/testutil/testlog"
)

// flakyBlobs wraps a memory store and fails writes or reads on demand.
type flakyBlobs struct {
	*nvs.Memory
	failSet bool
	failGet error
	sets    int
}

var errFlash = errors.New("flash write failed")

func (f *flakyBlobs) Get(namespace, key string) ([]byte, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}
	return f.Memory.Get(namespace, key)
}

func (f *flakyBlobs) Set(namespace, key string, data []byte) error {
	f.sets++
	if f.failSet {
		return errFlash
	}
	return f.Memory.Set(namespace, key, data)
}

func newFlaky() *flakyBlobs {
	return &flakyBlobs{Memory: nvs.NewMemory()}
}

func persisted(t *testing.T, blobs nvs.BlobStore) []byte {
	t.Helper()
	raw, err := blobs.Get(DefaultNamespace, DefaultKey)
	if err != nil {
		t.Fatalf("read persisted blob: %v", err)
	}
	return raw
}

func initialized(t *testing.T) (*Store, *flakyBlobs) {
	t.Helper()
	blobs := newFlaky()
	s := New(blobs)
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s, blobs
}

func TestInitFreshDevicePersistsDefaults(t *testing.T) {
	testlog.Start(t)

	s, blobs := initialized(t)
	cfg, err := s.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg != deck.Default() {
		t.Fatalf("expected compiled-in defaults")
	}
	if cfg.NumButtons != deck.MaxButtons {
		t.Fatalf("expected %d buttons, got %d", deck.MaxButtons, cfg.NumButtons)
	}
	if cfg.Checksum != deck.Checksum(cfg) || !Validate(cfg) {
		t.Fatalf("default checksum must validate independently")
	}
	want, _ := deck.Default().MarshalBinary()
	if !bytes.Equal(persisted(t, blobs), want) {
		t.Fatalf("defaults were not persisted")
	}
}

func TestInitLoadsExistingBlob(t *testing.T) {
	testlog.Start(t)

	custom := deck.Default()
	custom.Buttons[2].Label = deck.NewLabel("Back")
	custom = custom.Seal()
	raw, _ := custom.MarshalBinary()

	blobs := newFlaky()
	_ = blobs.Memory.Set(DefaultNamespace, DefaultKey, raw)
	s := New(blobs)
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	got, _ := s.Config()
	if got != custom {
		t.Fatalf("expected the persisted configuration")
	}
	if blobs.sets != 0 {
		t.Fatalf("loading must not write, got %d sets", blobs.sets)
	}
}

func TestInitPropagatesCorruptAndReadErrors(t *testing.T) {
	testlog.Start(t)

	good, _ := deck.Default().MarshalBinary()
	flipped := append([]byte(nil), good...)
	flipped[20] ^= 0x01

	tests := []struct {
		name    string
		blob    []byte
		failGet error
		want    error
	}{
		{name: "short blob", blob: good[:len(good)-1], want: ErrCorrupt},
		{name: "long blob", blob: append(append([]byte(nil), good...), 0), want: ErrCorrupt},
		{name: "flipped byte", blob: flipped, want: deck.ErrChecksumMismatch},
		{name: "read error", failGet: errFlash, want: errFlash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blobs := newFlaky()
			if tt.blob != nil {
				_ = blobs.Memory.Set(DefaultNamespace, DefaultKey, tt.blob)
			}
			blobs.failGet = tt.failGet
			s := New(blobs)

			err := s.Init()
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if errors.Is(err, ErrNotFound) {
				t.Fatalf("corrupt or unreadable data must not look like a fresh device")
			}
			if s.Initialized() {
				t.Fatalf("store must stay uninitialized")
			}
			if blobs.sets != 0 {
				t.Fatalf("corrupt blob must not be repaired, got %d sets", blobs.sets)
			}
			if _, err := s.Config(); !errors.Is(err, ErrNotInitialized) {
				t.Fatalf("expected ErrNotInitialized, got %v", err)
			}
		})
	}
}

func TestLoadReportsNotFound(t *testing.T) {
	testlog.Start(t)

	s := New(nvs.NewMemory())
	if err := s.Load(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestButtonBoundaries(t *testing.T) {
	testlog.Start(t)

	s, _ := initialized(t)
	if _, err := s.Button(deck.MaxButtons - 1); err != nil {
		t.Fatalf("last button must be readable: %v", err)
	}
	if _, err := s.Button(deck.MaxButtons); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam, got %v", err)
	}
	b := deck.DefaultButton(0)
	b.ID = deck.MaxButtons
	if err := s.SetButton(deck.MaxButtons, b); !errors.Is(err, ErrInvalidParam) {
		t.Fatalf("expected ErrInvalidParam, got %v", err)
	}
}

func TestSetButtonPersists(t *testing.T) {
	testlog.Start(t)

	s, blobs := initialized(t)
	b := deck.DefaultButton(3)
	b.Action = deck.KeyAction(0x04, deck.ModLeftCtrl)
	b.Label = deck.NewLabel("Ctrl-A")

	if err := s.SetButton(3, b); err != nil {
		t.Fatalf("set button: %v", err)
	}
	got, _ := s.Button(3)
	if got != b {
		t.Fatalf("expected new button, got %+v", got)
	}
	cfg, _ := s.Config()
	if !Validate(cfg) {
		t.Fatalf("config must stay valid after a mutation")
	}
	onDisk, err := deck.DecodeConfig(persisted(t, blobs))
	if err != nil {
		t.Fatalf("decode persisted: %v", err)
	}
	if onDisk != cfg {
		t.Fatalf("persisted blob must match memory")
	}
}

func TestSetButtonRejectsInvalidWithoutMutation(t *testing.T) {
	testlog.Start(t)

	unterminated := deck.DefaultButton(1)
	copy(unterminated.Label[:], "ABCDEFGH")
	badAction := deck.DefaultButton(1)
	badAction.Action.Kind = deck.ActionKind(9)

	tests := []struct {
		name string
		id   uint8
		b    deck.Button
		want error
	}{
		{name: "id mismatch", id: 1, b: deck.DefaultButton(2), want: ErrInvalidParam},
		{name: "unterminated label", id: 1, b: unterminated, want: deck.ErrUnterminatedLabel},
		{name: "unknown action kind", id: 1, b: badAction, want: deck.ErrInvalidAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, blobs := initialized(t)
			before, _ := s.Config()
			setsBefore := blobs.sets

			err := s.SetButton(tt.id, tt.b)
			if !errors.Is(err, tt.want) || !errors.Is(err, ErrInvalidParam) {
				t.Fatalf("expected %v as invalid param, got %v", tt.want, err)
			}
			after, _ := s.Config()
			if after != before {
				t.Fatalf("rejected mutation changed memory")
			}
			if blobs.sets != setsBefore {
				t.Fatalf("rejected mutation reached the durable store")
			}
		})
	}
}

func TestPersistFailureKeepsNewStateInMemory(t *testing.T) {
	testlog.Start(t)

	s, blobs := initialized(t)
	onDiskBefore := persisted(t, blobs)
	blobs.failSet = true

	b := deck.DefaultButton(5)
	b.Label = deck.NewLabel("Mic")
	err := s.SetButton(5, b)
	if !errors.Is(err, ErrPersist) || !errors.Is(err, errFlash) {
		t.Fatalf("expected ErrPersist wrapping the flash error, got %v", err)
	}
	got, _ := s.Button(5)
	if got != b {
		t.Fatalf("accepted value must stay live in memory after a failed write")
	}
	if !bytes.Equal(persisted(t, blobs), onDiskBefore) {
		t.Fatalf("durable blob must be unchanged")
	}
}

func TestSetConfigRequiresValidChecksum(t *testing.T) {
	testlog.Start(t)

	s, blobs := initialized(t)
	next := deck.Default()
	next.Buttons[0].Label = deck.NewLabel("Pause")
	stale := next
	setsBefore := blobs.sets

	if err := s.SetConfig(stale); !errors.Is(err, deck.ErrChecksumMismatch) {
		t.Fatalf("expected checksum mismatch, got %v", err)
	}
	if blobs.sets != setsBefore {
		t.Fatalf("invalid config must not be persisted")
	}
	if err := s.SetConfig(next.Seal()); err != nil {
		t.Fatalf("set config: %v", err)
	}
	got, _ := s.Config()
	if got.Buttons[0].Label.String() != "Pause" {
		t.Fatalf("expected new config live")
	}
}

func TestResetIsStagedUntilSave(t *testing.T) {
	testlog.Start(t)

	s, blobs := initialized(t)
	b := deck.DefaultButton(0)
	b.Label = deck.NewLabel("Custom")
	if err := s.SetButton(0, b); err != nil {
		t.Fatalf("set button: %v", err)
	}
	customOnDisk := persisted(t, blobs)

	s.ResetToDefault()
	cfg, _ := s.Config()
	if cfg != deck.Default() {
		t.Fatalf("reset must restore defaults in memory")
	}
	if !bytes.Equal(persisted(t, blobs), customOnDisk) {
		t.Fatalf("reset alone must not persist")
	}

	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	want, _ := deck.Default().MarshalBinary()
	if !bytes.Equal(persisted(t, blobs), want) {
		t.Fatalf("save must persist the staged defaults")
	}
}

func TestResetAndSaveCommits(t *testing.T) {
	testlog.Start(t)

	s, blobs := initialized(t)
	b := deck.DefaultButton(4)
	b.Color = deck.RGB{R: 1}
	_ = s.SetButton(4, b)

	if err := s.ResetAndSave(); err != nil {
		t.Fatalf("reset and save: %v", err)
	}
	want, _ := deck.Default().MarshalBinary()
	if !bytes.Equal(persisted(t, blobs), want) {
		t.Fatalf("expected defaults on disk")
	}
}

func TestSaveBeforeInit(t *testing.T) {
	testlog.Start(t)

	if err := New(nvs.NewMemory()).Save(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestCustomLocation(t *testing.T) {
	testlog.Start(t)

	blobs := nvs.NewMemory()
	s := New(blobs, WithLocation("bench", "layout"))
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := blobs.Get("bench", "layout"); err != nil {
		t.Fatalf("expected blob at custom location: %v", err)
	}
	if _, err := blobs.Get(DefaultNamespace, DefaultKey); !errors.Is(err, nvs.ErrNotFound) {
		t.Fatalf("default location must stay empty, got %v", err)
	}
}
