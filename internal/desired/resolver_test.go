package desired

import (
	"errors"
	"strings"
	"testing"

	"github.com/freestar-tools/g2persist/internal/gwconfig"
	"github.com/freestar-tools/g2persist/internal/module"
)

func parseConfig(t *testing.T, content string) gwconfig.Map {
	t.Helper()
	m, err := gwconfig.ParseReader(strings.NewReader(content))
	if err != nil {
		t.Fatalf("parsing config: %v", err)
	}
	return m
}

func TestParseSpec(t *testing.T) {
	tests := []struct {
		value   string
		want    Link
		wantErr bool
	}{
		{"AN0HAPC", Link{LocalModule: "A", Callsign: "N0HAP", RemoteModule: "C"}, false},
		{"BXRF721C", Link{LocalModule: "B", Callsign: "XRF721", RemoteModule: "C"}, false},
		{"AC", Link{LocalModule: "A", Callsign: "", RemoteModule: "C"}, false},
		{"A", Link{}, true},
		{"", Link{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseSpec("LINK_AT_STARTUP_A", tt.value)
			if tt.wantErr {
				var specErr *SpecError
				if !errors.As(err, &specErr) {
					t.Fatalf("expected *SpecError for %q, got %v", tt.value, err)
				}
				if !errors.Is(err, ErrMalformedLink) {
					t.Errorf("expected error to wrap ErrMalformedLink")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSpec(%q) = %+v, want %+v", tt.value, got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	cfg := parseConfig(t, `LINK_AT_STARTUP_A=AN0HAPC
LINK_AT_STARTUP_B=
LINK_AT_STARTUP_D=DREF001A
`)

	links, err := Resolve(cfg, module.Set{"A", "B", "C"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(links) != 1 {
		t.Fatalf("expected 1 desired link, got %d: %+v", len(links), links)
	}
	want := Link{LocalModule: "A", Callsign: "N0HAP", RemoteModule: "C"}
	if links["A"] != want {
		t.Errorf("links[A] = %+v, want %+v", links["A"], want)
	}
	if _, ok := links["D"]; ok {
		t.Error("module D is outside the module set and must be ignored")
	}
}

func TestResolve_MalformedValue(t *testing.T) {
	cfg := parseConfig(t, "LINK_AT_STARTUP_A=AN0HAPC\nLINK_AT_STARTUP_C=C\n")

	_, err := Resolve(cfg, module.Set{"A", "B", "C"})
	var specErr *SpecError
	if !errors.As(err, &specErr) {
		t.Fatalf("expected *SpecError, got %v", err)
	}
	if specErr.Key != "LINK_AT_STARTUP_C" {
		t.Errorf("expected key LINK_AT_STARTUP_C, got %s", specErr.Key)
	}
}

func TestResolve_RepeatedKey(t *testing.T) {
	cfg := parseConfig(t, "LINK_AT_STARTUP_A=AN0HAPC\nLINK_AT_STARTUP_A=AREF001C\n")

	_, err := Resolve(cfg, module.Set{"A"})
	if !errors.Is(err, gwconfig.ErrRepeatedKey) {
		t.Fatalf("expected ErrRepeatedKey, got %v", err)
	}
}

func TestKey(t *testing.T) {
	if got := Key("B"); got != "LINK_AT_STARTUP_B" {
		t.Errorf("Key(B) = %s", got)
	}
}
