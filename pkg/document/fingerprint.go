package document

import (
	"encoding/json"
	"fmt"

	"github.com/zeebo/xxh3"
)

// Fingerprint returns a stable hash of the tree rooted at n. Two captures of
// an unchanged directory have the same fingerprint; so does a document and
// its reparsed copy, whatever format it was stored in.
func Fingerprint(n Node) (string, error) {
	if err := Validate(n); err != nil {
		return "", err
	}
	data, err := json.Marshal(toWire(n))
	if err != nil {
		return "", fmt.Errorf("encode fingerprint input: %w", err)
	}
	return fmt.Sprintf("%x", xxh3.Hash128(data).Bytes()), nil
}
