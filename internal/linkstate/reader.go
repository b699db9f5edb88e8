package linkstate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/freestar-tools/g2persist/internal/module"
)

// Record is one active link as reported by g2_link.
type Record struct {
	Module       module.ID
	Remote       string // reflector or gateway callsign, e.g. "XRF721"
	RemoteModule string
	IP           string
	Date         string
	Time         string
}

// Table maps each linked module to its link record. Modules that are not
// linked have no entry.
type Table map[module.ID]Record

// Get returns the record for id, if the module is linked.
func (t Table) Get(id module.ID) (Record, bool) {
	r, ok := t[id]
	return r, ok
}

// Modules returns the linked modules in lexical order.
func (t Table) Modules() []module.ID {
	return module.Sorted(t)
}

// Read parses the status file at path. An empty file yields an empty table.
func Read(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening status file %s: %w", path, err)
	}
	defer f.Close()

	table, err := ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("reading status file %s: %w", path, err)
	}
	return table, nil
}

// ReadFrom parses status records from r. Each line is
// module,remote,remoteModule,ip,date,time. All fields but the module key are
// trimmed of surrounding whitespace; the key is used exactly as written.
// A later line for the same module replaces an earlier one. A malformed
// quoted field is an error rather than a guess at where the record ends.
func ReadFrom(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	table := make(Table)
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue
		}
		rec := recordFromFields(fields)
		table[rec.Module] = rec
	}
	return table, nil
}

// recordFromFields maps CSV fields onto a Record. Missing trailing fields
// are left empty.
func recordFromFields(fields []string) Record {
	field := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}
	return Record{
		Module:       module.ID(fields[0]),
		Remote:       field(1),
		RemoteModule: field(2),
		IP:           field(3),
		Date:         field(4),
		Time:         field(5),
	}
}
