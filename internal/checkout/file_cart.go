package checkout

import (
	"encoding/json"
	"errors"
	"os"
)

// FileCart keeps the cart as a JSON array of items on disk.
type FileCart struct {
	Path string
}

func (c FileCart) Items() ([]CartItem, error) {
	raw, err := os.ReadFile(c.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c FileCart) Clear() error {
	return os.WriteFile(c.Path, []byte("[]\n"), 0o644)
}
