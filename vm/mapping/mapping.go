// Package mapping implements the OS section / shared-memory object
// that a mapped view is later created against: file-backed or
// anonymous, sized, access-controlled, and (on Windows) named.
package mapping

import (
	"fmt"
	"os"

	"github.com/joshuapare/vmkit/vm/flags"
)

func openFlags(policy flags.ConstructionPolicy, access flags.ObjectAccess) (int, error) {
	base := os.O_RDWR
	if access == flags.Read || access == flags.MetaRead {
		base = os.O_RDONLY
	}
	switch policy {
	case flags.CreateNew:
		return base | os.O_CREATE | os.O_EXCL, nil
	case flags.CreateNewOrTruncateExisting:
		return base | os.O_CREATE | os.O_TRUNC, nil
	case flags.OpenExisting:
		return base, nil
	case flags.OpenOrCreate:
		return base | os.O_CREATE, nil
	case flags.OpenAndTruncateExisting:
		return base | os.O_TRUNC, nil
	default:
		return 0, fmt.Errorf("mapping: unknown construction policy %d", policy)
	}
}

// CreateFile opens or creates path per policy, honoring the requested
// access. Share mode and OS-level hints are applied by the caller
// through platform-specific file flags where the standard library
// exposes them; vmkit does not reimplement sharing semantics the
// runtime already provides via os.OpenFile.
func CreateFile(path string, policy flags.ConstructionPolicy, access flags.ObjectAccess) (*os.File, error) {
	osFlag, err := openFlags(policy, access)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, osFlag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mapping: create file %q: %w", path, err)
	}
	return f, nil
}
