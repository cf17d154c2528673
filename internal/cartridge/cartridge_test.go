package cartridge

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildINESHeader(prgBanks, chrBanks, mapper uint8, flags6, flags7 uint8) []byte {
	header := make([]byte, headerSize)
	copy(header[0:4], "NES\x1A")
	header[4] = prgBanks
	header[5] = chrBanks
	header[6] = (mapper << 4) | (flags6 & 0x0F)
	header[7] = (mapper & 0xF0) | flags7
	return header
}

func buildROM(prgBanks, chrBanks, mapper uint8, flags6, flags7 uint8) []byte {
	buf := buildINESHeader(prgBanks, chrBanks, mapper, flags6, flags7)
	prg := make([]byte, int(prgBanks)*prgBankUnit)
	for i := range prg {
		prg[i] = byte(i)
	}
	buf = append(buf, prg...)
	if chrBanks > 0 {
		chr := make([]byte, int(chrBanks)*chrBankUnit)
		for i := range chr {
			chr[i] = byte(i + 1)
		}
		buf = append(buf, chr...)
	}
	return buf
}

func TestLoad_BadMagic(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("ROM\x1A0000000000000")))
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestLoad_NROM32K(t *testing.T) {
	rom := buildROM(2, 1, 0, 0, 0)
	cart, err := Load(bytes.NewReader(rom))
	require.NoError(t, err)
	require.Equal(t, uint16(0), cart.MapperID)
	require.Len(t, cart.PRGROM, 32*1024)
	require.Len(t, cart.CHR, 8192)
	require.False(t, cart.CHRIsRAM)
	require.Equal(t, MirrorHorizontal, cart.Mirroring)
}

func TestLoad_VerticalMirroring(t *testing.T) {
	rom := buildROM(1, 1, 0, 0x01, 0)
	cart, err := Load(bytes.NewReader(rom))
	require.NoError(t, err)
	require.Equal(t, MirrorVertical, cart.Mirroring)
}

func TestLoad_FourScreenOverridesMirrorBit(t *testing.T) {
	rom := buildROM(1, 1, 0, 0x09, 0)
	cart, err := Load(bytes.NewReader(rom))
	require.NoError(t, err)
	require.Equal(t, MirrorFourScreen, cart.Mirroring)
}

func TestLoad_BatteryBacked(t *testing.T) {
	rom := buildROM(1, 1, 1, 0x02, 0)
	cart, err := Load(bytes.NewReader(rom))
	require.NoError(t, err)
	require.True(t, cart.BatteryBacked)
}

func TestLoad_ZeroCHRGetsDefaultRAM(t *testing.T) {
	rom := buildROM(1, 0, 0, 0, 0)
	cart, err := Load(bytes.NewReader(rom))
	require.NoError(t, err)
	require.True(t, cart.CHRIsRAM)
	require.Len(t, cart.CHR, 8192)
}

func TestLoad_ZeroPRGIsError(t *testing.T) {
	rom := buildROM(0, 1, 0, 0, 0)
	_, err := Load(bytes.NewReader(rom))
	require.Error(t, err)
}

func TestLoad_UnsupportedMapper(t *testing.T) {
	rom := buildROM(1, 1, 5, 0, 0)
	_, err := Load(bytes.NewReader(rom))
	require.ErrorContains(t, err, "Mapper #5 not supported")
}

func TestLoad_TrailerTolerated(t *testing.T) {
	rom := buildROM(1, 1, 0, 0, 0)
	rom = append(rom, []byte("trailing junk")...)
	cart, err := Load(bytes.NewReader(rom))
	require.NoError(t, err)
	require.EqualValues(t, len("trailing junk"), cart.TrailingBytes)
}

func TestLoad_NES20MapperHighNibbleAndSubmapper(t *testing.T) {
	header := buildINESHeader(1, 1, 4, 0, 0)
	header[7] |= 0x08 // NES 2.0 identifier in flags7 bits 2-3
	header[8] = 0x10  // mapper bits 8-11 = 0, submapper = 1
	rom := append([]byte{}, header...)
	prg := make([]byte, prgBankUnit)
	chr := make([]byte, chrBankUnit)
	rom = append(rom, prg...)
	rom = append(rom, chr...)

	cart, err := Load(bytes.NewReader(rom))
	require.NoError(t, err)
	require.True(t, cart.IsNES20)
	require.EqualValues(t, 4, cart.MapperID)
	require.EqualValues(t, 1, cart.SubmapperID)

	// A nonzero low nibble of byte 8 extends the mapper number: 0x104 = 260,
	// which is not a supported mapper.
	rom[8] = 0x11
	_, err = Load(bytes.NewReader(rom))
	require.ErrorContains(t, err, "Mapper #260 not supported")
}

func TestLoad_NES20PRGRAMSize(t *testing.T) {
	header := buildINESHeader(1, 1, 0, 0, 0)
	header[7] |= 0x08
	header[10] = 0x02 // 64 << 2 = 256 bytes PRG RAM
	rom := append([]byte{}, header...)
	rom = append(rom, make([]byte, prgBankUnit)...)
	rom = append(rom, make([]byte, chrBankUnit)...)

	cart, err := Load(bytes.NewReader(rom))
	require.NoError(t, err)
	require.Equal(t, 256, cart.PRGRAMSize)
}
