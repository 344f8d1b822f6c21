package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/YuminosukeSato/bodyperf/pkg/errors"
)

// FileHash returns the hex SHA-256 of the file at path.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewMissingDatasetError(path)
		}
		return "", errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "hash dataset %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
