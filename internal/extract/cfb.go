package extract

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf16"
)

// Sector chain markers from the compound file FAT.
const (
	secFree       = 0xFFFFFFFF
	secEndOfChain = 0xFFFFFFFE
	secFAT        = 0xFFFFFFFD
	secDIFAT      = 0xFFFFFFFC
)

var cfbSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// compoundFile is a minimal reader for the OLE2 structured-storage container
// that wraps legacy Office documents. It covers exactly what text extraction
// needs: locating a named stream and following its FAT or mini-FAT chain.
type compoundFile struct {
	data       []byte
	sectorSize int
	miniCutoff uint32
	fat        []uint32
	miniFAT    []uint32
	dirs       []cfbDirEntry
	miniStream []byte
}

type cfbDirEntry struct {
	name        string
	objectType  byte
	startSector uint32
	size        uint64
}

func openCompoundFile(data []byte) (*compoundFile, error) {
	if len(data) < 512 || !bytes.Equal(data[:8], cfbSignature) {
		return nil, errors.New("not a compound file")
	}
	sectorShift := binary.LittleEndian.Uint16(data[0x1E:0x20])
	if sectorShift != 9 && sectorShift != 12 {
		return nil, fmt.Errorf("unsupported sector size shift %d", sectorShift)
	}
	cf := &compoundFile{
		data:       data,
		sectorSize: 1 << sectorShift,
		miniCutoff: binary.LittleEndian.Uint32(data[0x38:0x3C]),
	}
	if cf.miniCutoff == 0 {
		cf.miniCutoff = 4096
	}
	if err := cf.readFAT(); err != nil {
		return nil, err
	}
	if err := cf.readDirectory(); err != nil {
		return nil, err
	}
	if err := cf.readMiniFAT(); err != nil {
		return nil, err
	}
	return cf, nil
}

// stream returns the contents of a named stream, whichever allocation table
// holds it.
func (cf *compoundFile) stream(name string) ([]byte, error) {
	for _, d := range cf.dirs {
		if d.objectType == 2 && d.name == name {
			if d.size < uint64(cf.miniCutoff) {
				return cf.readMiniChain(d.startSector, d.size)
			}
			return cf.readChain(d.startSector, d.size)
		}
	}
	return nil, fmt.Errorf("stream %q not found", name)
}

func (cf *compoundFile) sector(n uint32) ([]byte, error) {
	off := (int64(n) + 1) * int64(cf.sectorSize)
	if off < 0 || off+int64(cf.sectorSize) > int64(len(cf.data)) {
		return nil, fmt.Errorf("sector %d out of bounds", n)
	}
	return cf.data[off : off+int64(cf.sectorSize)], nil
}

// maxSectors bounds chain walks so a cyclic FAT cannot loop forever.
func (cf *compoundFile) maxSectors() int {
	return len(cf.data)/cf.sectorSize + 16
}

func (cf *compoundFile) readFAT() error {
	// FAT sector numbers live in the header DIFAT (109 slots) and then in
	// chained DIFAT sectors.
	var fatSectors []uint32
	for i := 0; i < 109; i++ {
		s := binary.LittleEndian.Uint32(cf.data[0x4C+4*i : 0x50+4*i])
		if s == secFree || s == secEndOfChain {
			continue
		}
		fatSectors = append(fatSectors, s)
	}
	difat := binary.LittleEndian.Uint32(cf.data[0x44:0x48])
	perSector := cf.sectorSize/4 - 1
	for n := 0; difat != secEndOfChain && difat != secFree; n++ {
		if n > cf.maxSectors() {
			return errors.New("DIFAT chain cycle")
		}
		sec, err := cf.sector(difat)
		if err != nil {
			return err
		}
		for i := 0; i < perSector; i++ {
			s := binary.LittleEndian.Uint32(sec[4*i : 4*i+4])
			if s != secFree && s != secEndOfChain {
				fatSectors = append(fatSectors, s)
			}
		}
		difat = binary.LittleEndian.Uint32(sec[len(sec)-4:])
	}

	for _, fs := range fatSectors {
		sec, err := cf.sector(fs)
		if err != nil {
			return err
		}
		for i := 0; i+4 <= len(sec); i += 4 {
			cf.fat = append(cf.fat, binary.LittleEndian.Uint32(sec[i:i+4]))
		}
	}
	if len(cf.fat) == 0 {
		return errors.New("empty FAT")
	}
	return nil
}

func (cf *compoundFile) readDirectory() error {
	start := binary.LittleEndian.Uint32(cf.data[0x30:0x34])
	raw, err := cf.readChain(start, 0)
	if err != nil {
		return err
	}
	for off := 0; off+128 <= len(raw); off += 128 {
		entry := raw[off : off+128]
		nameLen := int(binary.LittleEndian.Uint16(entry[0x40:0x42]))
		if nameLen < 2 || nameLen > 64 {
			continue
		}
		units := make([]uint16, 0, nameLen/2-1)
		for i := 0; i < nameLen-2; i += 2 {
			units = append(units, binary.LittleEndian.Uint16(entry[i:i+2]))
		}
		cf.dirs = append(cf.dirs, cfbDirEntry{
			name:        string(utf16.Decode(units)),
			objectType:  entry[0x42],
			startSector: binary.LittleEndian.Uint32(entry[0x74:0x78]),
			size:        binary.LittleEndian.Uint64(entry[0x78:0x80]),
		})
	}
	if len(cf.dirs) == 0 {
		return errors.New("empty directory")
	}
	return nil
}

func (cf *compoundFile) readMiniFAT() error {
	start := binary.LittleEndian.Uint32(cf.data[0x3C:0x40])
	if start == secEndOfChain || start == secFree {
		return nil
	}
	raw, err := cf.readChain(start, 0)
	if err != nil {
		return err
	}
	for i := 0; i+4 <= len(raw); i += 4 {
		cf.miniFAT = append(cf.miniFAT, binary.LittleEndian.Uint32(raw[i:i+4]))
	}
	// The mini stream itself is the root entry's regular chain.
	for _, d := range cf.dirs {
		if d.objectType == 5 {
			ms, err := cf.readChain(d.startSector, d.size)
			if err != nil {
				return err
			}
			cf.miniStream = ms
			break
		}
	}
	return nil
}

// readChain follows a regular FAT chain. A size of zero reads whole sectors
// until the chain ends.
func (cf *compoundFile) readChain(start uint32, size uint64) ([]byte, error) {
	var out []byte
	s := start
	for n := 0; s != secEndOfChain && s != secFree; n++ {
		if n > cf.maxSectors() {
			return nil, errors.New("FAT chain cycle")
		}
		sec, err := cf.sector(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sec...)
		if int(s) >= len(cf.fat) {
			return nil, fmt.Errorf("sector %d missing from FAT", s)
		}
		s = cf.fat[s]
	}
	if size > 0 && uint64(len(out)) > size {
		out = out[:size]
	}
	return out, nil
}

// readMiniChain follows a mini-FAT chain through the 64-byte mini sectors of
// the root mini stream.
func (cf *compoundFile) readMiniChain(start uint32, size uint64) ([]byte, error) {
	const miniSector = 64
	var out []byte
	s := start
	for n := 0; s != secEndOfChain && s != secFree; n++ {
		if n > len(cf.miniFAT)+16 {
			return nil, errors.New("mini-FAT chain cycle")
		}
		off := int(s) * miniSector
		if off+miniSector > len(cf.miniStream) {
			return nil, fmt.Errorf("mini sector %d out of bounds", s)
		}
		out = append(out, cf.miniStream[off:off+miniSector]...)
		if int(s) >= len(cf.miniFAT) {
			return nil, fmt.Errorf("mini sector %d missing from mini FAT", s)
		}
		s = cf.miniFAT[s]
	}
	if uint64(len(out)) > size {
		out = out[:size]
	}
	return out, nil
}
