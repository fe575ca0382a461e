package generator

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/blimu-dev/elmgen/pkg/errors"
)

// ErrOutOfDate is returned in check mode when a module on disk differs from
// the generated text.
var ErrOutOfDate = errors.New("generated module is out of date")

// writeModule writes data to path through a temporary file and a rename, so
// readers never see a partial module. It reports whether the file changed.
// In check mode nothing is written and any difference is an error.
func writeModule(path string, data []byte, check bool) (bool, error) {
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if bytes.Equal(existing, data) {
			return false, nil
		}
	case !os.IsNotExist(err):
		return false, errors.IOFailure(err)
	}

	if check {
		return false, errors.WithHint(errors.Wrapf(ErrOutOfDate, "%s", path), "run elmgen generate")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, errors.IOFailure(err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return false, errors.IOFailure(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return false, errors.IOFailure(err)
	}
	return true, nil
}
