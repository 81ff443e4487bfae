package whitelist

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectConfigFilePicksLexicographicallyGreatest(t *testing.T) {
	entries := []string{"sps_1_1.zip", "sps_2_1.zip", "sps_10_1.zip", "notes.txt"}
	require.Equal(t, "sps_2_1.zip", selectConfigFile(entries))
}

func TestSelectConfigFileAcceptsLoxCCExtension(t *testing.T) {
	entries := []string{"sps_1_1.LoxCC"}
	require.Equal(t, "sps_1_1.LoxCC", selectConfigFile(entries))
}

func TestSelectConfigFileNoMatchReturnsEmpty(t *testing.T) {
	require.Equal(t, "", selectConfigFile([]string{"readme.txt", "sps_abc_1.zip"}))
}

// buildSps0 constructs a valid sps0.LoxCC body: header + literal-only
// legacy-compressed payload, matching the real file format's framing.
func buildSps0(t *testing.T, xmlDoc []byte) []byte {
	t.Helper()
	compressed := encodeLiteralOnly(t, xmlDoc)

	var header bytes.Buffer
	writeU32 := func(v uint32) {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, v)
		header.Write(b)
	}
	writeU32(fileHeaderMagic)
	writeU32(uint32(len(compressed)))
	writeU32(uint32(len(xmlDoc)))
	writeU32(crc32.ChecksumIEEE(xmlDoc))

	return append(header.Bytes(), compressed...)
}

func buildZipWithSps0(t *testing.T, sps0 []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("sps0.LoxCC")
	require.NoError(t, err)
	_, err = w.Write(sps0)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractConfigXMLRoundTrip(t *testing.T) {
	xmlDoc := []byte(`<Root><C Type="VirtualInCaption"><C Title="Input1"/></C></Root>`)
	archive := buildZipWithSps0(t, buildSps0(t, xmlDoc))

	got, err := extractConfigXML(archive)
	require.NoError(t, err)
	require.Equal(t, xmlDoc, got)
}

func TestExtractConfigXMLBadMagicFails(t *testing.T) {
	sps0 := buildSps0(t, []byte("x"))
	sps0[0] = 0x00 // corrupt the magic
	archive := buildZipWithSps0(t, sps0)

	_, err := extractConfigXML(archive)
	require.Error(t, err)
}

func TestExtractConfigXMLChecksumMismatchFails(t *testing.T) {
	xmlDoc := []byte(`<Root/>`)
	sps0 := buildSps0(t, xmlDoc)
	// Flip a byte in the checksum field (bytes 12-16).
	sps0[12] ^= 0xff
	archive := buildZipWithSps0(t, sps0)

	_, err := extractConfigXML(archive)
	require.Error(t, err)
}

func TestExtractConfigXMLMissingEntryFails(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("other.txt")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = extractConfigXML(buf.Bytes())
	require.Error(t, err)
}
