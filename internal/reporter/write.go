package reporter

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"wms-sap-sync/pkg/errors"
)

// reportMode is the permission of a newly created report
const reportMode os.FileMode = 0o644

// writeAtomically runs write against a temporary file next to path and
// renames it into place only when every step succeeded. A replaced report
// keeps its permissions.
func writeAtomically(path string, write func(w io.Writer) error) (err error) {
	mode := reportMode
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return wrapWriteError(path, err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	buffered := bufio.NewWriter(tmp)
	if err = write(buffered); err != nil {
		return wrapWriteError(path, err)
	}
	if err = buffered.Flush(); err != nil {
		return wrapWriteError(path, err)
	}
	if err = tmp.Chmod(mode); err != nil {
		return wrapWriteError(path, err)
	}
	if err = tmp.Sync(); err != nil {
		return wrapWriteError(path, err)
	}
	if err = tmp.Close(); err != nil {
		return wrapWriteError(path, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return wrapWriteError(path, err)
	}
	return nil
}

func wrapWriteError(path string, err error) error {
	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return reconcilerErr
	}
	if os.IsPermission(err) {
		return errors.FileError(errors.CodeFilePermission, path, err)
	}
	return errors.FileError(errors.CodeWriteFailed, path, err)
}
