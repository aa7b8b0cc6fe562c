package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/armdeck/internal/deck"
	"github.com/danmuck/armdeck/internal/nvs"
	"github.com/danmuck/armdeck/internal/observability"
)

const (
	DefaultNamespace = "armdeck_cfg"
	DefaultKey       = "buttons"
)

// Store is the single owner of the live DeviceConfig. One mutex covers
// validate and persist so readers never observe a torn table.
type Store struct {
	mu          sync.Mutex
	blobs       nvs.BlobStore
	namespace   string
	key         string
	cfg         deck.DeviceConfig
	initialized bool
}

type Option func(*Store)

// WithLocation overrides the namespace/key pair the blob lives under.
func WithLocation(namespace, key string) Option {
	return func(s *Store) {
		if namespace != "" {
			s.namespace = namespace
		}
		if key != "" {
			s.key = key
		}
	}
}

func New(blobs nvs.BlobStore, opts ...Option) *Store {
	s := &Store{
		blobs:     blobs,
		namespace: DefaultNamespace,
		key:       DefaultKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init loads the persisted configuration. Only a missing blob is answered
// by installing and persisting the compiled-in defaults; every other load
// failure is returned and leaves the store uninitialized.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.readLocked()
	switch {
	case err == nil:
		s.install(cfg)
		log.Info().Msgf("store.Store.Init source=durable namespace=%s key=%s", s.namespace, s.key)
		return nil
	case errors.Is(err, ErrNotFound):
		s.install(deck.Default())
		log.Info().Msgf("store.Store.Init source=defaults namespace=%s key=%s", s.namespace, s.key)
		return s.persistLocked(s.cfg)
	default:
		log.Error().Err(err).Msgf("store.Store.Init namespace=%s key=%s", s.namespace, s.key)
		return err
	}
}

// Load reads and validates the persisted blob and installs it on success.
// On failure the in-memory state is left untouched.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.readLocked()
	if err != nil {
		return err
	}
	s.install(cfg)
	return nil
}

func (s *Store) readLocked() (deck.DeviceConfig, error) {
	raw, err := s.blobs.Get(s.namespace, s.key)
	if err != nil {
		if errors.Is(err, nvs.ErrNotFound) {
			return deck.DeviceConfig{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return deck.DeviceConfig{}, fmt.Errorf("store: read %s/%s: %w", s.namespace, s.key, err)
	}
	if len(raw) != deck.ConfigSize {
		return deck.DeviceConfig{}, fmt.Errorf("%w: blob is %d bytes, want %d", ErrCorrupt, len(raw), deck.ConfigSize)
	}
	cfg, err := deck.DecodeConfig(raw)
	if err != nil {
		return deck.DeviceConfig{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if err := deck.Validate(cfg); err != nil {
		return deck.DeviceConfig{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return cfg, nil
}

func (s *Store) install(cfg deck.DeviceConfig) {
	s.cfg = cfg
	s.initialized = true
}

// Save reseals the checksum, validates, then writes the full blob.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	next := s.cfg.Seal()
	if err := deck.Validate(next); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParam, err)
	}
	s.cfg = next
	return s.persistLocked(next)
}

// ResetToDefault stages the compiled-in defaults in memory. Nothing is
// written until Save.
func (s *Store) ResetToDefault() {
	s.mu.Lock()
	s.install(deck.Default())
	s.mu.Unlock()
	log.Info().Msg("store.Store.ResetToDefault staged=true")
}

func (s *Store) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Config returns a copy of the live configuration.
func (s *Store) Config() (deck.DeviceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return deck.DeviceConfig{}, ErrNotInitialized
	}
	return s.cfg, nil
}

// Button returns a copy of one entry.
func (s *Store) Button(id uint8) (deck.Button, error) {
	if int(id) >= deck.MaxButtons {
		return deck.Button{}, fmt.Errorf("%w: button %d out of range [0,%d)", ErrInvalidParam, id, deck.MaxButtons)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return deck.Button{}, ErrNotInitialized
	}
	return s.cfg.Buttons[id], nil
}

// SetButton replaces entry id and persists. b.ID must equal id. A
// validation failure leaves the store unchanged; an ErrPersist failure
// leaves the new value live in memory.
func (s *Store) SetButton(id uint8, b deck.Button) error {
	if int(id) >= deck.MaxButtons {
		return fmt.Errorf("%w: button %d out of range [0,%d)", ErrInvalidParam, id, deck.MaxButtons)
	}
	if b.ID != id {
		return fmt.Errorf("%w: button id %d does not match slot %d", ErrInvalidParam, b.ID, id)
	}
	if err := deck.ValidateButton(b); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParam, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	next := s.cfg
	next.Buttons[id] = b
	next = next.Seal()
	if err := deck.Validate(next); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParam, err)
	}
	s.cfg = next
	log.Info().Msgf("store.Store.SetButton id=%d action=%s label=%q", id, b.Action, b.Label)
	return s.persistLocked(next)
}

// SetConfig replaces the whole table and persists. cfg must validate as
// given, checksum included.
func (s *Store) SetConfig(cfg deck.DeviceConfig) error {
	if err := deck.Validate(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParam, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.install(cfg)
	log.Info().Msgf("store.Store.SetConfig checksum=0x%08x", cfg.Checksum)
	return s.persistLocked(cfg)
}

// ResetAndSave stages the defaults and saves them in one critical section.
func (s *Store) ResetAndSave() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.install(deck.Default())
	log.Info().Msg("store.Store.ResetAndSave source=defaults")
	return s.persistLocked(s.cfg)
}

func (s *Store) persistLocked(cfg deck.DeviceConfig) error {
	raw, err := cfg.MarshalBinary()
	if err == nil {
		err = s.blobs.Set(s.namespace, s.key, raw)
	}
	observability.RecordPersist(err == nil)
	if err != nil {
		log.Error().Err(err).Msgf("store.Store.persist namespace=%s key=%s", s.namespace, s.key)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	log.Debug().Msgf("store.Store.persist namespace=%s key=%s bytes=%d", s.namespace, s.key, len(raw))
	return nil
}

// Validate reports whether cfg satisfies every table invariant. It never
// touches store state.
func Validate(cfg deck.DeviceConfig) bool {
	return deck.Validate(cfg) == nil
}
