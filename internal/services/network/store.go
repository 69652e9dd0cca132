package network

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"CandleNet/internal/domain/models"
	"CandleNet/internal/domain/service"
)

const (
	networkFile = "network.json"
	metaFile    = "meta.json"
)

// Meta describes a saved model.
type Meta struct {
	Identity   models.Identity `json:"identity"`
	Variant    string          `json:"variant"`
	Profile    string          `json:"profile"`
	InputShape []int           `json:"input_shape"`
	Flatten    bool            `json:"flatten"`
	CreatedAt  time.Time       `json:"created_at"`

	Dir string `json:"-"`
}

// Store saves and loads models under root/<symbol>/<partition>/<horizon>/model.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Dir is the model directory for id.
func (s *Store) Dir(id models.Identity) string {
	return filepath.Join(s.root, id.Path(), "model")
}

// Save replaces any model at the identity's path. The old directory is
// removed before the new one is written, so a crash can leave nothing behind.
func (s *Store) Save(id models.Identity, net service.Network, profile Profile) (string, error) {
	body, err := net.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("encode network: %w", err)
	}
	meta, err := json.MarshalIndent(Meta{
		Identity:   id,
		Variant:    net.Variant(),
		Profile:    profile.Name,
		InputShape: net.InputShape(),
		Flatten:    profile.Flatten,
		CreatedAt:  time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode meta: %w", err)
	}

	dir := s.Dir(id)
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("remove old model: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, networkFile), body, 0o644); err != nil {
		return "", fmt.Errorf("write network: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), meta, 0o644); err != nil {
		return "", fmt.Errorf("write meta: %w", err)
	}
	return dir, nil
}

// Load reads the model saved for id. A missing directory is ErrModelNotFound.
func (s *Store) Load(id models.Identity) (service.Network, *Meta, error) {
	return LoadDir(s.Dir(id))
}

// LoadDir reads a model directory written by Save.
func LoadDir(dir string) (service.Network, *Meta, error) {
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %w", models.ErrModelNotFound, err)
		}
		return nil, nil, fmt.Errorf("stat model: %w", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return nil, nil, fmt.Errorf("read meta: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, nil, fmt.Errorf("decode meta: %w", err)
	}
	meta.Dir = dir

	body, err := os.ReadFile(filepath.Join(dir, networkFile))
	if err != nil {
		return nil, nil, fmt.Errorf("read network: %w", err)
	}

	var net service.Network
	switch meta.Variant {
	case VariantDense:
		net, err = UnmarshalDense(body, meta.InputShape)
	case VariantLSTM, VariantBiLSTM:
		net, err = UnmarshalRecurrent(body)
	case VariantForest:
		net, err = UnmarshalForest(body)
	default:
		err = fmt.Errorf("unknown variant %q", meta.Variant)
	}
	if err != nil {
		return nil, nil, err
	}
	return net, &meta, nil
}
