package whitelist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	questdomain "github.com/Black-And-White-Club/quest-bot/app/modules/quest/domain"
	"github.com/Black-And-White-Club/quest-bot/app/shared/observability/attr"
)

// Stats describes the currently loaded snapshot.
type Stats struct {
	Path     string    `json:"path"`
	Loaded   bool      `json:"loaded"`
	Rows     int       `json:"rows"`
	Entries  int       `json:"entries"`
	Skipped  int       `json:"skipped"`
	LoadedAt time.Time `json:"loaded_at"`
}

type snapshot struct {
	entries map[string]questdomain.WhitelistEntry
	stats   Stats
}

// Store is the participant whitelist. It starts empty; Load and Reload swap
// in a new snapshot atomically. Lookup never fails: an unloaded store, an
// empty path or an unknown phone are all misses.
type Store struct {
	path    string
	factory *Factory
	logger  *slog.Logger

	snap atomic.Pointer[snapshot]
}

// NewStore creates a store for the file at path. An empty path yields a store
// whose loads succeed with no entries.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, factory: NewFactory(), logger: logger}
}

// Load reads the configured file and replaces the snapshot. A failed load
// keeps the previous snapshot.
func (s *Store) Load(ctx context.Context) error {
	if s.path == "" {
		s.swap(&snapshot{entries: map[string]questdomain.WhitelistEntry{}, stats: Stats{Loaded: true, LoadedAt: time.Now().UTC()}})
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read whitelist %q: %w", s.path, err)
	}
	return s.LoadBytes(ctx, s.path, data)
}

// Reload is Load under the name admin surfaces use.
func (s *Store) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

// LoadBytes parses data as the whitelist file name and replaces the snapshot.
func (s *Store) LoadBytes(ctx context.Context, name string, data []byte) error {
	parser, err := s.factory.GetParser(name)
	if err != nil {
		return err
	}
	rows, err := parser.Parse(data)
	if err != nil {
		return err
	}

	entries, skipped := buildEntries(rows)
	snap := &snapshot{
		entries: entries,
		stats: Stats{
			Path:     name,
			Loaded:   true,
			Rows:     len(rows),
			Entries:  len(entries),
			Skipped:  skipped,
			LoadedAt: time.Now().UTC(),
		},
	}
	s.swap(snap)
	s.logger.InfoContext(ctx, "Whitelist loaded",
		attr.String("path", name),
		attr.Int("entries", len(entries)),
		attr.Int("skipped", skipped),
	)
	return nil
}

func (s *Store) swap(snap *snapshot) {
	s.snap.Store(snap)
}

// Lookup finds a participant by phone in any accepted form.
func (s *Store) Lookup(_ context.Context, phone string) (questdomain.WhitelistEntry, bool) {
	snap := s.snap.Load()
	if snap == nil {
		return questdomain.WhitelistEntry{}, false
	}
	p, ok := questdomain.StrictPhone(phone)
	if !ok {
		return questdomain.WhitelistEntry{}, false
	}
	e, ok := snap.entries[p]
	return e, ok
}

// Stats reports the current snapshot. Before the first load Loaded is false.
func (s *Store) Stats() Stats {
	snap := s.snap.Load()
	if snap == nil {
		return Stats{Path: s.path}
	}
	return snap.stats
}

type column int

const (
	colPhone column = iota
	colFirstName
	colLastName
	colTeam
	numColumns
)

var headerAliases = map[string]column{
	"phone":          colPhone,
	"phone_number":   colPhone,
	"tel":            colPhone,
	"телефон":        colPhone,
	"номер телефона": colPhone,
	"first_name":     colFirstName,
	"firstname":      colFirstName,
	"name":           colFirstName,
	"имя":            colFirstName,
	"last_name":      colLastName,
	"lastname":       colLastName,
	"surname":        colLastName,
	"фамилия":        colLastName,
	"team_number":    colTeam,
	"team":           colTeam,
	"team_id":        colTeam,
	"номер команды":  colTeam,
	"команда":        colTeam,
}

var errNoHeader = errors.New("no recognizable header")

// headerIndex maps known header names to column positions.
func headerIndex(row []string) ([numColumns]int, error) {
	var idx [numColumns]int
	for i := range idx {
		idx[i] = -1
	}
	found := false
	for i, cell := range row {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")))
		if c, ok := headerAliases[key]; ok && idx[c] < 0 {
			idx[c] = i
			found = true
		}
	}
	if !found || idx[colPhone] < 0 {
		return idx, errNoHeader
	}
	return idx, nil
}

// buildEntries maps rows to entries keyed by strict phone. Without a header
// the columns are read as phone, first name, last name, team number. Rows
// whose phone does not normalize are skipped; later rows win on duplicates.
func buildEntries(rows [][]string) (map[string]questdomain.WhitelistEntry, int) {
	entries := make(map[string]questdomain.WhitelistEntry)
	if len(rows) == 0 {
		return entries, 0
	}

	idx, err := headerIndex(rows[0])
	data := rows[1:]
	if err != nil {
		idx = [numColumns]int{0, 1, 2, 3}
		data = rows
	}

	skipped := 0
	for _, row := range data {
		if blank(row) {
			continue
		}
		phone, ok := questdomain.StrictPhone(cell(row, idx[colPhone]))
		if !ok {
			skipped++
			continue
		}
		entries[phone] = questdomain.WhitelistEntry{
			Phone:      phone,
			FirstName:  cell(row, idx[colFirstName]),
			LastName:   cell(row, idx[colLastName]),
			TeamNumber: teamNumber(cell(row, idx[colTeam])),
		}
	}
	return entries, skipped
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// teamNumber returns the first run of digits in s, or 0.
func teamNumber(s string) int {
	start := strings.IndexAny(s, "0123456789")
	if start < 0 {
		return 0
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil {
		return 0
	}
	return n
}
