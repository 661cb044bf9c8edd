//go:build windows

package mapping

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/joshuapare/vmkit/vm/flags"
	"github.com/joshuapare/vmkit/vm/vmerr"
)

// Platform constants for the Windows mapping backend.
const (
	SupportsZeroSizedMappings     = false
	ViewsDownsizeable             = false
	CreateMappingCanSetSourceSize = true
)

// MaxAnonPFSize is the ceiling placed on anonymous (pagefile-backed)
// Windows mappings.
const MaxAnonPFSize = uint64(1<<31 - 1)

// Mapping is a Windows section object, optionally named, optionally
// backed by a duplicated file handle. Windows retains the backing file
// handle for file-backed sections so the section can be recreated
// with the same rights after a shrink.
type Mapping struct {
	section   windows.Handle
	file      windows.Handle
	access    flags.ObjectAccess
	share     flags.ShareMode
	size      uint64
	anonymous bool
	named     bool
	closed    bool
}

func accessToProtect(access flags.ObjectAccess, share flags.ShareMode) uint32 {
	if share == flags.CopyOnWrite {
		return windows.PAGE_WRITECOPY
	}
	switch access {
	case flags.Read, flags.MetaRead:
		return windows.PAGE_READONLY
	case flags.Execute:
		return windows.PAGE_EXECUTE_READ
	default:
		return windows.PAGE_READWRITE
	}
}

func sizeHighLow(size uint64) (uint32, uint32) {
	return uint32(size >> 32), uint32(size & 0xffffffff)
}

// CreateMapping creates an anonymous or file-backed section of size
// bytes. On Windows this is a real OS object: CreateFileMapping
// extends the backing file to size when file is non-nil
// (CreateMappingCanSetSourceSize == true).
func CreateMapping(file *os.File, access flags.ObjectAccess, share flags.ShareMode, size uint64) (*Mapping, error) {
	protect := accessToProtect(access, share)

	var fileHandle windows.Handle = windows.InvalidHandle
	anonymous := file == nil
	if !anonymous {
		if size > 0 {
			if err := file.Truncate(int64(size)); err != nil {
				return nil, fmt.Errorf("mapping: extend backing file: %w", err)
			}
		}
		proc := windows.CurrentProcess()
		if err := windows.DuplicateHandle(
			proc, windows.Handle(file.Fd()), proc, &fileHandle,
			0, true, windows.DUPLICATE_SAME_ACCESS,
		); err != nil {
			return nil, fmt.Errorf("mapping: duplicate file handle: %w", err)
		}
	} else if size > MaxAnonPFSize {
		return nil, vmerr.ErrSectionNotExtended
	}

	high, low := sizeHighLow(size)
	section, err := windows.CreateFileMapping(fileHandle, nil, protect, high, low, nil)
	if err != nil {
		if fileHandle != windows.InvalidHandle {
			_ = windows.CloseHandle(fileHandle)
		}
		return nil, fmt.Errorf("mapping: %w: %w", vmerr.ErrAlloc, err)
	}
	return &Mapping{section: section, file: fileHandle, access: access, share: share, size: size, anonymous: anonymous}, nil
}

// CreateNamedMapping creates (or opens) a named section honoring the
// five-way construction policy. Windows identifies named kernel
// objects by name and reference-counts them: the truncate-on-open
// dispositions close and recreate the object, which races against any
// other process racing to open the same name (documented in the
// design notes' recovery-policy discussion, not hidden).
func CreateNamedMapping(file *os.File, access flags.ObjectAccess, share flags.ShareMode, maxSize uint64, name string, policy flags.ConstructionPolicy) (*Mapping, error) {
	encodedName, err := flags.EncodeName(name)
	if err != nil {
		return nil, fmt.Errorf("mapping: encode name: %w", err)
	}
	wideName := &encodedName[0]
	protect := accessToProtect(access, share)
	high, low := sizeHighLow(maxSize)

	var fileHandle windows.Handle = windows.InvalidHandle
	if file != nil {
		proc := windows.CurrentProcess()
		if err := windows.DuplicateHandle(
			proc, windows.Handle(file.Fd()), proc, &fileHandle,
			0, true, windows.DUPLICATE_SAME_ACCESS,
		); err != nil {
			return nil, fmt.Errorf("mapping: duplicate file handle: %w", err)
		}
	}

	switch policy {
	case flags.OpenExisting:
		section, err := windows.OpenFileMapping(uint32(protectToMapAccess(protect)), false, wideName)
		if err != nil {
			return nil, fmt.Errorf("mapping: open named section %q: %w", name, err)
		}
		return &Mapping{section: section, file: fileHandle, access: access, share: share, size: maxSize, named: true}, nil

	case flags.CreateNewOrTruncateExisting, flags.OpenAndTruncateExisting:
		if existing, err := windows.OpenFileMapping(uint32(protectToMapAccess(protect)), false, wideName); err == nil {
			_ = windows.CloseHandle(existing)
		} else if policy == flags.OpenAndTruncateExisting {
			return nil, fmt.Errorf("mapping: named section %q does not exist: %w", name, err)
		}
		fallthrough

	case flags.CreateNew, flags.OpenOrCreate:
		section, err := windows.CreateFileMapping(fileHandle, nil, protect, high, low, wideName)
		alreadyExisted := errors.Is(err, windows.ERROR_ALREADY_EXISTS)
		if err != nil && !alreadyExisted {
			return nil, fmt.Errorf("mapping: %w: %w", vmerr.ErrAlloc, err)
		}
		if section == windows.InvalidHandle {
			return nil, fmt.Errorf("mapping: %w: %w", vmerr.ErrAlloc, err)
		}
		if policy == flags.CreateNew && alreadyExisted {
			_ = windows.CloseHandle(section)
			return nil, fmt.Errorf("mapping: named section %q already exists", name)
		}
		return &Mapping{section: section, file: fileHandle, access: access, share: share, size: maxSize, named: true}, nil

	default:
		return nil, fmt.Errorf("mapping: unknown construction policy %d", policy)
	}
}

func protectToMapAccess(protect uint32) uint32 {
	switch protect {
	case windows.PAGE_READONLY:
		return windows.FILE_MAP_READ
	case windows.PAGE_WRITECOPY:
		return windows.FILE_MAP_COPY
	default:
		return windows.FILE_MAP_WRITE
	}
}

// Section returns the underlying section handle, for use by vm/view's
// MapViewOfFile call.
func (m *Mapping) Section() windows.Handle { return m.section }

// FileHandle returns the duplicated backing file handle, or
// windows.InvalidHandle for an anonymous mapping. Used by vm/view's
// FlushFileBuffers call to guarantee durability past the view cache.
func (m *Mapping) FileHandle() windows.Handle { return m.file }

// Access reports the mapping's configured access rights.
func (m *Mapping) Access() flags.ObjectAccess { return m.access }

// Share reports the mapping's configured share mode.
func (m *Mapping) Share() flags.ShareMode { return m.share }

// Anonymous reports whether the mapping has no backing file.
func (m *Mapping) Anonymous() bool { return m.anonymous }

// GetSize calls NtQuerySection to read the section's current size.
// Returns 0 for a closed handle.
func (m *Mapping) GetSize() uint64 {
	if m == nil || m.closed {
		return 0
	}
	size, err := ntQuerySectionSize(m.section)
	if err != nil {
		return m.size
	}
	return size
}

// SetSize implements the Windows file-backed shrink sequence: first
// try NtExtendSection; if the kernel's rounded-up
// size still exceeds the requested one (a downsize), close the
// section, SetEndOfFile the backing file, and recreate the section
// with the mapping's original access rights. There is no strong
// exception guarantee across that window (see DESIGN.md).
func (m *Mapping) SetSize(newSize uint64) error {
	if m.closed {
		return vmerr.ErrClosed
	}
	if m.anonymous {
		if newSize > MaxAnonPFSize {
			return vmerr.ErrSectionNotExtended
		}
		if err := ntExtendSection(m.section, newSize); err != nil {
			return fmt.Errorf("mapping: %w: %w", vmerr.ErrSectionNotExtended, err)
		}
		m.size = newSize
		return nil
	}

	if err := ntExtendSection(m.section, newSize); err == nil {
		if got, gerr := ntQuerySectionSize(m.section); gerr == nil && got <= newSize {
			m.size = newSize
			return nil
		}
	}

	// Downsize path: close the section, resize the file, recreate.
	if err := windows.CloseHandle(m.section); err != nil {
		return fmt.Errorf("mapping: close section before shrink: %w", err)
	}
	m.section = windows.InvalidHandle

	if err := setEndOfFile(m.file, newSize); err != nil {
		return fmt.Errorf("mapping: SetEndOfFile: %w", err)
	}

	protect := accessToProtect(m.access, m.share)
	high, low := sizeHighLow(newSize)
	section, err := windows.CreateFileMapping(m.file, nil, protect, high, low, nil)
	if err != nil {
		return fmt.Errorf("mapping: recreate section after shrink: %w", err)
	}
	m.section = section
	m.size = newSize
	return nil
}

func setEndOfFile(fileHandle windows.Handle, size uint64) error {
	if fileHandle == windows.InvalidHandle {
		return nil
	}
	var newPos int64
	if err := windows.SetFilePointerEx(fileHandle, int64(size), &newPos, windows.FILE_BEGIN); err != nil {
		return err
	}
	return windows.SetEndOfFile(fileHandle)
}

// Close releases the section and, if present, the duplicated file
// handle.
func (m *Mapping) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	var err error
	if m.section != windows.InvalidHandle {
		err = windows.CloseHandle(m.section)
	}
	if m.file != windows.InvalidHandle {
		if ferr := windows.CloseHandle(m.file); err == nil {
			err = ferr
		}
	}
	return err
}

// ntdll exposes NtExtendSection/NtQuerySection but x/sys/windows does
// not wrap either; bind them lazily the same way rawvm binds
// VirtualAlloc2.
var (
	modntdll            = windows.NewLazySystemDLL("ntdll.dll")
	procNtExtendSection = modntdll.NewProc("NtExtendSection")
	procNtQuerySection  = modntdll.NewProc("NtQuerySection")
)

type sectionBasicInformation struct {
	BaseAddress          uintptr
	AllocationAttributes uint32
	MaximumSize          uint64
}

func ntExtendSection(section windows.Handle, newSize uint64) error {
	if err := procNtExtendSection.Find(); err != nil {
		return err
	}
	size := newSize
	status, _, _ := procNtExtendSection.Call(uintptr(section), uintptr(unsafe.Pointer(&size)))
	if status != 0 {
		return fmt.Errorf("NtExtendSection: status 0x%x", status)
	}
	return nil
}

func ntQuerySectionSize(section windows.Handle) (uint64, error) {
	if err := procNtQuerySection.Find(); err != nil {
		return 0, err
	}
	var info sectionBasicInformation
	var returned uint32
	status, _, _ := procNtQuerySection.Call(
		uintptr(section), 0, uintptr(unsafe.Pointer(&info)),
		unsafe.Sizeof(info), uintptr(unsafe.Pointer(&returned)),
	)
	if status != 0 {
		return 0, fmt.Errorf("NtQuerySection: status 0x%x", status)
	}
	return info.MaximumSize, nil
}
