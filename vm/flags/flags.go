// Package flags holds the small opaque enums that parameterize mapping
// and file creation: access rights, sharing mode, child-process
// inheritance, and the five-way named-object construction policy.
package flags

// ObjectAccess is the access a mapping or view requests from the OS.
type ObjectAccess int

const (
	Read ObjectAccess = iota
	Write
	Execute
	ReadWrite
	All
	MetaRead
)

// ShareMode selects whether writes through a view are visible to other
// mappings of the same file (Shared) or kept process-private
// (CopyOnWrite).
type ShareMode int

const (
	Shared ShareMode = iota
	CopyOnWrite
)

// ChildProcess controls whether a handle is inheritable by a child
// process created after the mapping exists. Only meaningful on
// Windows; POSIX file descriptors ignore it unless FD_CLOEXEC is
// explicitly requested by the caller via os.File semantics.
type ChildProcess int

const (
	NoInherit ChildProcess = iota
	Inherit
)

// ConstructionPolicy is the five-way disposition used both by file
// creation (create_file's "opening" parameter) and by named mapping
// creation on Windows.
type ConstructionPolicy int

const (
	// CreateNew fails if the object already exists.
	CreateNew ConstructionPolicy = iota
	// CreateNewOrTruncateExisting creates the object, truncating it to
	// empty if it already exists.
	CreateNewOrTruncateExisting
	// OpenExisting fails if the object does not already exist.
	OpenExisting
	// OpenOrCreate opens the object if present, otherwise creates it.
	OpenOrCreate
	// OpenAndTruncateExisting fails if the object does not exist,
	// truncating it to empty on success.
	OpenAndTruncateExisting
)

// SystemHints is a bitset forwarded to the OS without interpretation
// by vmkit itself (e.g. sequential/random access advice).
type SystemHints uint32

const HintNone SystemHints = 0

const (
	HintSequential SystemHints = 1 << iota
	HintRandom
	HintWillNeed
)
