// Package roster loads the member list into the store.
//
// The roster originates from a legacy members.json file: a single JSON object
// mapping member id to display name, whose key order is the roster order.
// encoding/json maps do not preserve key order, so the file is walked with a
// token decoder instead.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/ayazawa/kintore/internal/models"
)

// Store is the storage surface roster loading needs.
type Store interface {
	ImportMembers(ctx context.Context, members []models.Member) (int, error)
}

// EnsureLoaded imports members from the JSON file at path if the stored
// roster is empty. An empty path is a no-op. Duplicate display names are
// rejected: they would make name-based progress queries ambiguous.
func EnsureLoaded(ctx context.Context, store Store, path string) error {
	if path == "" {
		return nil
	}

	members, err := ParseFile(path)
	if err != nil {
		return err
	}

	n, err := store.ImportMembers(ctx, members)
	if err != nil {
		return fmt.Errorf("failed to import roster: %w", err)
	}
	if n > 0 {
		slog.Info("Roster imported", "path", path, "members", n)
	}
	return nil
}

// ParseFile reads an ordered id→displayName JSON object from path.
func ParseFile(path string) ([]models.Member, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster file: %w", err)
	}
	defer f.Close()

	return parse(json.NewDecoder(f))
}

func parse(dec *json.Decoder) ([]models.Member, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("roster must be a JSON object, got %v", tok)
	}

	var members []models.Member
	seen := make(map[string]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read roster key: %w", err)
		}
		id, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("roster key is not a string: %v", keyTok)
		}

		var name string
		if err := dec.Decode(&name); err != nil {
			return nil, fmt.Errorf("failed to read display name for %s: %w", id, err)
		}

		if other, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate display name %q (members %s and %s)", name, other, id)
		}
		seen[name] = id

		members = append(members, models.Member{
			ID:          id,
			DisplayName: name,
			Position:    len(members),
		})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read roster end: %w", err)
	}

	return members, nil
}
