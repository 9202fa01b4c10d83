package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"gopkg.in/yaml.v3"
)

// DeckFile is the on-disk form of a deck: JSON, or YAML when the file name
// ends in .yaml or .yml.
type DeckFile struct {
	DeckID uuid.UUID     `json:"deck_id" yaml:"deck_id"`
	Cards  []domain.Card `json:"cards"   yaml:"cards"`
}

// Card returns the card with the given id.
func (d *DeckFile) Card(id uuid.UUID) (domain.Card, int, bool) {
	for i, c := range d.Cards {
		if c.ID == id {
			return c, i, true
		}
	}
	return domain.Card{}, -1, false
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// LoadDeckFile reads and decodes a deck file.
func LoadDeckFile(path string) (*DeckFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deck file: %w", err)
	}

	var d DeckFile
	if isYAML(path) {
		err = yaml.Unmarshal(raw, &d)
	} else {
		err = json.Unmarshal(raw, &d)
	}
	if err != nil {
		return nil, fmt.Errorf("decode deck file %s: %w", filepath.Base(path), err)
	}
	if d.DeckID == uuid.Nil {
		return nil, errors.New("deck file has no deck_id")
	}
	for i := range d.Cards {
		if d.Cards[i].DeckID == uuid.Nil {
			d.Cards[i].DeckID = d.DeckID
		}
	}
	return &d, nil
}

// SaveDeckFile encodes d and replaces path atomically.
func SaveDeckFile(path string, d *DeckFile) error {
	var (
		raw []byte
		err error
	)
	if isYAML(path) {
		raw, err = yaml.Marshal(d)
	} else {
		raw, err = json.MarshalIndent(d, "", "  ")
		raw = append(raw, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode deck file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".deck-*")
	if err != nil {
		return fmt.Errorf("write deck file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write deck file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write deck file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write deck file: %w", err)
	}
	return nil
}
