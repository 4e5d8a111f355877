package fantamarket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// MarshalJSON writes the audit with a stable field order, omitting empty texts.
func (a ImportAudit) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("id", a.ID)
	w.Append("at", a.At.UTC().Format(time.RFC3339))
	w.Optional("filename", a.Filename)
	w.Optional("user", a.User)
	w.Append("inserted", a.Inserted)
	w.Append("updated", a.Updated)
	w.Append("aliasesCreated", a.AliasesCreated)
	w.Append("skipped", a.Skipped)
	w.Append("success", a.Success)
	w.Optional("message", a.Message)
	return w.MarshalJSON()
}

// EncodeAudits writes audits as JSON lines, one audit per line.
func EncodeAudits(w io.Writer, audits []ImportAudit) error {
	bw := bufio.NewWriter(w)
	for _, a := range audits {
		b, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("could not encode audit %d: %w", a.ID, err)
		}
		bw.Write(b)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// DecodeAudits reads audits written by EncodeAudits. Blank lines are ignored.
func DecodeAudits(r io.Reader) ([]ImportAudit, error) {
	// the alias drops the custom marshaler, not the field tags.
	type jaudit ImportAudit
	var audits []ImportAudit
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var a jaudit
		if err := json.Unmarshal([]byte(text), &a); err != nil {
			return nil, fmt.Errorf("format error on line %d: %w", line, err)
		}
		audits = append(audits, ImportAudit(a))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return audits, nil
}
