package cpu

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"dmgcpu/pkg/memory"
)

// CoreDumpName is the file the full memory image is written to on a fatal
// fault or termination signal.
const CoreDumpName = "core-GameboyEmulator.dmp"

// humanReadableState is the JSON-serializable snapshot of CPU control state.
type humanReadableState struct {
	A      byte   `json:"a"`
	F      byte   `json:"f"`
	B      byte   `json:"b"`
	C      byte   `json:"c"`
	D      byte   `json:"d"`
	E      byte   `json:"e"`
	H      byte   `json:"h"`
	L      byte   `json:"l"`
	PC     uint16 `json:"pc"`
	SP     uint16 `json:"sp"`
	IME    bool   `json:"ime"`
	Halted bool   `json:"halted"`
}

// CoreDump writes the raw 65536-byte memory image to w.
func CoreDump(w io.Writer, mem *memory.Map) error {
	_, err := w.Write(mem[:])
	return err
}

// WriteCoreDump writes the memory image to path, or CoreDumpName when path
// is empty.
func WriteCoreDump(path string, mem *memory.Map) error {
	if path == "" {
		path = CoreDumpName
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create core dump: %w", err)
	}
	if err := CoreDump(f, mem); err != nil {
		f.Close()
		return fmt.Errorf("write core dump: %w", err)
	}
	return f.Close()
}

// Hibernate serialises registers and memory into an in-memory ZIP archive
// holding cpu_state.json and memory.bin.
func (c *CPU) Hibernate() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := humanReadableState{
		A: c.Regs.A, F: c.Regs.F,
		B: c.Regs.B, C: c.Regs.C,
		D: c.Regs.D, E: c.Regs.E,
		H: c.Regs.H, L: c.Regs.L,
		PC:     c.PC,
		SP:     c.SP,
		IME:    c.IME,
		Halted: c.Halted,
	}
	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal cpu_state: %w", err)
	}
	if err := writeZipEntry(zw, "cpu_state.json", jsonData); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "memory.bin", c.Memory[:]); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore applies an archive produced by Hibernate.
func (c *CPU) Restore(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, "cpu_state.json")
	if err != nil {
		return err
	}
	var state humanReadableState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return fmt.Errorf("unmarshal cpu_state: %w", err)
	}
	memData, err := readZipEntry(fileMap, "memory.bin")
	if err != nil {
		return err
	}
	if len(memData) != memory.Size {
		return fmt.Errorf("memory.bin holds %d bytes, want %d", len(memData), memory.Size)
	}

	c.Regs = Registers{
		A: state.A, F: state.F & flagMask,
		B: state.B, C: state.C,
		D: state.D, E: state.E,
		H: state.H, L: state.L,
	}
	c.PC = state.PC
	c.SP = state.SP
	c.IME = state.IME
	c.Halted = state.Halted
	copy(c.Memory[:], memData)
	return nil
}

// HibernateToFile writes the hibernation archive to path.
func (c *CPU) HibernateToFile(path string) error {
	data, err := c.Hibernate()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RestoreFromFile reads a hibernation archive from path.
func (c *CPU) RestoreFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.Restore(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
