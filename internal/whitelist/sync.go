package whitelist

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"regexp"
	"sort"
	"time"

	goftp "github.com/jlaffaye/ftp"

	"github.com/user/loxrelay"
	"github.com/user/loxrelay/internal/metrics"
)

const fileHeaderMagic = 0xAABBCCEE

var configFilePattern = regexp.MustCompile(`^sps_\d+_\d+\.(zip|LoxCC)$`)

// Syncer performs C9 against one controller. It holds no connection state
// between calls: every Sync dials fresh, matching the original's
// connect-fetch-quit shape in load_miniserver_config.
type Syncer struct {
	Host     string
	Port     int
	User     string
	Password string
	Timeout  time.Duration
	Log      loxrelay.Logger
}

// Sync fetches the controller's active configuration and returns the
// extracted whitelist titles. On any failure the caller is expected to
// keep its previous whitelist (spec §4.9's stated failure policy) — Sync
// itself never mutates anything, it only returns an error.
func (s *Syncer) Sync() (titles []string, err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		metrics.WhitelistSyncResult.WithLabelValues(outcome).Inc()
	}()

	addr := s.Host
	if s.Port != 0 {
		addr = fmt.Sprintf("%s:%d", s.Host, s.Port)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	conn, err := goftp.Dial(addr, goftp.DialWithTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("whitelist: ftp dial %s: %w", addr, err)
	}
	defer conn.Quit()

	if err := conn.Login(s.User, s.Password); err != nil {
		return nil, fmt.Errorf("whitelist: ftp login: %w", err)
	}

	if err := conn.ChangeDir("prog"); err != nil {
		return nil, fmt.Errorf("whitelist: ftp cwd prog: %w", err)
	}

	entries, err := conn.NameList("")
	if err != nil {
		return nil, fmt.Errorf("whitelist: ftp nlst: %w", err)
	}

	filename := selectConfigFile(entries)
	if filename == "" {
		return nil, fmt.Errorf("whitelist: no configuration file matching sps_<digits>_<digits>.(zip|LoxCC) found")
	}
	if s.Log != nil {
		s.Log.Info("whitelist: selected configuration file", "filename", filename)
	}

	resp, err := conn.Retr(filename)
	if err != nil {
		return nil, fmt.Errorf("whitelist: ftp retr %s: %w", filename, err)
	}
	buf, err := io.ReadAll(resp)
	resp.Close()
	if err != nil {
		return nil, fmt.Errorf("whitelist: reading %s: %w", filename, err)
	}

	doc, err := extractConfigXML(buf)
	if err != nil {
		return nil, err
	}

	titles, err = extractTitles(doc)
	if err != nil {
		return nil, err
	}
	return titles, nil
}

// selectConfigFile returns the lexicographically greatest entry matching
// sps_<digits>_<digits>.(zip|LoxCC), or "" if none match.
func selectConfigFile(entries []string) string {
	var matches []string
	for _, e := range entries {
		if configFilePattern.MatchString(e) {
			matches = append(matches, e)
		}
	}
	if len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[len(matches)-1]
}

// extractConfigXML treats raw as a ZIP archive, opens entry sps0.LoxCC,
// parses its fixed header, decompresses the payload, and verifies it
// against the header's checksum and uncompressed size (spec §4.9 steps
// 4-8).
func extractConfigXML(raw []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("whitelist: not a zip archive: %w", err)
	}

	f, err := zr.Open("sps0.LoxCC")
	if err != nil {
		return nil, fmt.Errorf("whitelist: sps0.LoxCC not found in archive: %w", err)
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("whitelist: reading sps0.LoxCC: %w", err)
	}

	if len(body) < 16 {
		return nil, fmt.Errorf("whitelist: sps0.LoxCC too short for header: %d bytes", len(body))
	}

	magic := binary.LittleEndian.Uint32(body[0:4])
	if magic != fileHeaderMagic {
		return nil, fmt.Errorf("whitelist: bad file header magic %#x", magic)
	}
	compressedSize := binary.LittleEndian.Uint32(body[4:8])
	uncompressedSize := binary.LittleEndian.Uint32(body[8:12])
	checksum := binary.LittleEndian.Uint32(body[12:16])

	if uint32(len(body)-16) < compressedSize {
		return nil, fmt.Errorf("whitelist: only %d bytes available, header declares compressed_size %d", len(body)-16, compressedSize)
	}
	payload := body[16 : 16+int(compressedSize)]

	decompressed, err := decompress(payload, uncompressedSize)
	if err != nil {
		return nil, err
	}

	if crc32.ChecksumIEEE(decompressed) != checksum {
		return nil, fmt.Errorf("whitelist: checksum verification failed")
	}

	return decompressed, nil
}
