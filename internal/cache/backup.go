package cache

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"
)

// The backup file is: magic, splitter, html, splitter, css. The
// splitter byte never occurs in valid UTF-8 text, so it can safely
// delimit the two payloads.
const backupMagic = "ACTIVITY-GRAPH-CACHE-FILE"
const backupSplitter byte = 0xFE

func writeBackup(path, html, css string) error {
	var buf bytes.Buffer
	buf.WriteString(backupMagic)
	buf.WriteByte(backupSplitter)
	buf.WriteString(html)
	buf.WriteByte(backupSplitter)
	buf.WriteString(css)
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

// readBackup loads a persisted snapshot. It fails closed: any mismatch
// in magic, part count or text encoding rejects the whole file.
func readBackup(path string) (html, css string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}

	parts := bytes.Split(data, []byte{backupSplitter})
	if len(parts) != 3 {
		return "", "", fmt.Errorf("malformed cache backup: %d parts, want 3", len(parts))
	}
	if string(parts[0]) != backupMagic {
		return "", "", errors.New("malformed cache backup: bad magic")
	}
	if !utf8.Valid(parts[1]) || !utf8.Valid(parts[2]) {
		return "", "", errors.New("malformed cache backup: payload is not valid text")
	}
	return string(parts[1]), string(parts[2]), nil
}
