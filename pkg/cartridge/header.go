package cartridge

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Header field offsets.
const (
	titleStart    = 0x0134
	titleEnd      = 0x0144
	typeOffset    = 0x0147
	romSizeOffset = 0x0148
	ramSizeOffset = 0x0149
	checksumStart = 0x0134
	checksumEnd   = 0x014D
)

// Header is the cartridge metadata at 0x0134-0x014D.
type Header struct {
	Title          string
	CartridgeType  byte
	ROMSizeCode    byte
	RAMSizeCode    byte
	HeaderChecksum byte
	// computed is the checksum recalculated from the image.
	computed byte
}

// ParseHeader reads the header fields. data must be at least MinSize long.
func ParseHeader(data []byte) Header {
	title := strings.TrimRight(string(data[titleStart:titleEnd]), "\x00")
	var sum byte
	for _, b := range data[checksumStart:checksumEnd] {
		sum = sum - b - 1
	}
	return Header{
		Title:          title,
		CartridgeType:  data[typeOffset],
		ROMSizeCode:    data[romSizeOffset],
		RAMSizeCode:    data[ramSizeOffset],
		HeaderChecksum: data[checksumEnd],
		computed:       sum,
	}
}

var cartridgeTypes = map[byte]string{
	0x00: "ROM ONLY",
	0x01: "MBC1",
	0x02: "MBC1+RAM",
	0x03: "MBC1+RAM+BATTERY",
	0x05: "MBC2",
	0x06: "MBC2+BATTERY",
	0x08: "ROM+RAM",
	0x09: "ROM+RAM+BATTERY",
	0x0B: "MMM01",
	0x0C: "MMM01+RAM",
	0x0D: "MMM01+RAM+BATTERY",
	0x0F: "MBC3+TIMER+BATTERY",
	0x10: "MBC3+TIMER+RAM+BATTERY",
	0x11: "MBC3",
	0x12: "MBC3+RAM",
	0x13: "MBC3+RAM+BATTERY",
	0x19: "MBC5",
	0x1A: "MBC5+RAM",
	0x1B: "MBC5+RAM+BATTERY",
	0x1C: "MBC5+RUMBLE",
	0x1D: "MBC5+RUMBLE+RAM",
	0x1E: "MBC5+RUMBLE+RAM+BATTERY",
	0x1F: "POCKET CAMERA",
	0xFD: "BANDAI TAMA5",
	0xFE: "HuC3",
	0xFF: "HuC1+RAM+BATTERY",
}

// TypeName names the memory bank controller and extras.
func (h Header) TypeName() string {
	if name, ok := cartridgeTypes[h.CartridgeType]; ok {
		return name
	}
	return "UNKNOWN"
}

// ROMSize returns the image size and number of 16 KiB banks the header
// declares.
func (h Header) ROMSize() (bytes, banks int, err error) {
	switch code := h.ROMSizeCode; {
	case code <= 0x08:
		banks = 2 << code
	case code == 0x52:
		banks = 72
	case code == 0x53:
		banks = 80
	case code == 0x54:
		banks = 96
	default:
		return 0, 0, errors.Wrapf(ErrUnknownROMSize, "0x%02X", code)
	}
	return banks * BankSize, banks, nil
}

// RAMSize returns the external RAM size and number of 8 KiB banks.
func (h Header) RAMSize() (bytes, banks int) {
	switch h.RAMSizeCode {
	case 0x01:
		return 2 * 1024, 1
	case 0x02:
		return 8 * 1024, 1
	case 0x03:
		return 32 * 1024, 4
	case 0x04:
		return 128 * 1024, 16
	case 0x05:
		return 64 * 1024, 8
	}
	return 0, 0
}

// ChecksumValid reports whether the stored header checksum matches.
func (h Header) ChecksumValid() bool {
	return h.HeaderChecksum == h.computed
}

func (h Header) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %q\n", h.Title)
	fmt.Fprintf(&b, "ROM TYPE: %s\n", h.TypeName())
	if bytes, banks, err := h.ROMSize(); err == nil {
		fmt.Fprintf(&b, "ROM SIZE: %d KB %d banks\n", bytes/1024, banks)
	} else {
		fmt.Fprintf(&b, "ROM SIZE: %v\n", err)
	}
	if bytes, banks := h.RAMSize(); bytes > 0 {
		fmt.Fprintf(&b, "CARTRIDGE RAM: %d KB %d banks\n", bytes/1024, banks)
	} else {
		b.WriteString("CARTRIDGE RAM: None\n")
	}
	fmt.Fprintf(&b, "HEADER CHECKSUM: %02X (valid: %t)", h.HeaderChecksum, h.ChecksumValid())
	return b.String()
}
