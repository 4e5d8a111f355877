package fantamarket

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeAudits(t *testing.T) {
	at := time.Date(2025, 8, 30, 21, 0, 0, 0, time.UTC)
	audits := []ImportAudit{
		{ID: 1, At: at, Filename: "rose.json", User: "admin", Inserted: 200, AliasesCreated: 2, Success: true},
		{ID: 2, At: at, Updated: 3, Skipped: 1, Message: "invalid role"},
	}
	var buf bytes.Buffer
	if err := EncodeAudits(&buf, audits); err != nil {
		t.Fatalf("EncodeAudits() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("EncodeAudits() wrote %d lines, want 2", len(lines))
	}
	want := `{"id":1,"at":"2025-08-30T21:00:00Z","filename":"rose.json","user":"admin","inserted":200,"updated":0,"aliasesCreated":2,"skipped":0,"success":true}`
	if lines[0] != want {
		t.Errorf("line 1 = %s\nwant     %s", lines[0], want)
	}

	decoded, err := DecodeAudits(strings.NewReader(buf.String() + "\n\n"))
	if err != nil {
		t.Fatalf("DecodeAudits() error = %v", err)
	}
	if diff := cmp.Diff(audits, decoded); diff != "" {
		t.Errorf("DecodeAudits() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeAudits_Invalid(t *testing.T) {
	if _, err := DecodeAudits(strings.NewReader("{\"id\":1}\nnope\n")); err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("DecodeAudits() error = %v, want a line 2 format error", err)
	}
}
