//go:build !linux

package vmguard

// Touch is a no-op outside Linux: MADV_POPULATE_READ has no portable
// equivalent, and debug.SetPanicOnFault's SIGBUS-to-panic conversion is
// not available on every platform vmkit supports.
func Touch(data []byte) error {
	return nil
}
