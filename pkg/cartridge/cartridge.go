package cartridge

import (
	"os"

	"github.com/pkg/errors"

	"dmgcpu/pkg/memory"
)

const (
	// BootROMSize is the exact size of a boot ROM image.
	BootROMSize = 0x100
	// MinSize covers the header at 0x0100-0x014F.
	MinSize = 0x150
	// BankSize is the size of one switchable ROM bank.
	BankSize = 0x4000
	// mappedSize is what fits in 0x0000-0x7FFF without a bank controller.
	mappedSize = 2 * BankSize
)

var (
	ErrBootROMSize       = errors.New("boot ROM must be 256 bytes")
	ErrCartridgeTooSmall = errors.New("cartridge image too small for a header")
	ErrUnknownROMSize    = errors.New("unknown ROM size code")
)

// LoadBootROM reads a 256-byte boot ROM image.
func LoadBootROM(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read boot ROM %s", path)
	}
	if len(data) != BootROMSize {
		return nil, errors.Wrapf(ErrBootROMSize, "%s is %d bytes", path, len(data))
	}
	return data, nil
}

// Cartridge is a loaded ROM image with its parsed header.
type Cartridge struct {
	Data   []byte
	Header Header
}

// New wraps a ROM image. The image must at least hold the header.
func New(data []byte) (*Cartridge, error) {
	if len(data) < MinSize {
		return nil, errors.Wrapf(ErrCartridgeTooSmall, "%d bytes", len(data))
	}
	return &Cartridge{Data: data, Header: ParseHeader(data)}, nil
}

// LoadFile reads a ROM image from disk.
func LoadFile(path string) (*Cartridge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read cartridge %s", path)
	}
	c, err := New(data)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return c, nil
}

// Bank0 returns the fixed first 16 KiB bank.
func (c *Cartridge) Bank0() []byte {
	return c.Data[:min(len(c.Data), BankSize)]
}

// Vector returns a copy of the first 256 bytes, the region the boot ROM
// shadows until it is unmapped.
func (c *Cartridge) Vector() []byte {
	v := make([]byte, BootROMSize)
	copy(v, c.Data)
	return v
}

// MapInto copies banks 0 and 1 into mem and, when boot is non-nil, overlays
// the boot ROM on 0x0000-0x00FF.
func (c *Cartridge) MapInto(mem *memory.Map, boot []byte) {
	copy(mem[:mappedSize], c.Data)
	if boot != nil {
		copy(mem[:BootROMSize], boot)
	}
}
