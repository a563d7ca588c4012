package client

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
)

// Artifact keys in the local store. One file per key.
const (
	KeySession = "session"
	KeyGallery = "gallery"
	KeyTheme   = "theme"
)

// legacyKeys maps current keys to their pre-rename names. Loading falls back
// to the legacy file when the current one is missing; that is the only
// migration logic the store has.
var legacyKeys = map[string]string{
	KeySession: "user_session",
	KeyGallery: "vibe_gallery",
	KeyTheme:   "theme_preference",
}

// LocalStore is the client-local counterpart of browser storage: small JSON
// artifacts, zstd-compressed, one file per key, written atomically. Clearing
// the directory resets the user completely.
type LocalStore struct {
	dir     string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	log     zerolog.Logger
}

func NewLocalStore(dir string, log zerolog.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &LocalStore{dir: dir, encoder: encoder, decoder: decoder, log: log}, nil
}

// DefaultStateDir is where the CLI keeps its state.
func DefaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "unsaid")
	}
	return ".unsaid"
}

// Save writes one artifact atomically: marshal, compress, tmp file, fsync,
// rename.
func (s *LocalStore) Save(key string, v any) error {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data := s.encoder.EncodeAll(jsonData, make([]byte, 0, len(jsonData)/2))

	fileName := s.path(key)
	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}
	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}
	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

// Load reads one artifact into v. A missing key is not an error: Load
// reports found=false. When the current key is absent the legacy name is
// tried before giving up.
func (s *LocalStore) Load(key string, v any) (bool, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		legacy, ok := legacyKeys[key]
		if !ok {
			return false, nil
		}
		data, err = os.ReadFile(s.path(legacy))
		if os.IsNotExist(err) {
			return false, nil
		}
		if err == nil {
			s.log.Info().Str("key", key).Str("legacy", legacy).Msg("loaded artifact from legacy key")
		}
	}
	if err != nil {
		return false, err
	}

	jsonData, err := s.decoder.DecodeAll(data, nil)
	if err != nil {
		return false, fmt.Errorf("decompress %s: %w", key, err)
	}
	if err := json.Unmarshal(jsonData, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Delete removes an artifact. Deleting a missing key is a no-op.
func (s *LocalStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *LocalStore) Close() {
	s.encoder.Close()
	s.decoder.Close()
}

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.dir, key+".zst")
}
