// Package anki reads Anki .apkg files so their notes can be imported as cards.
package anki

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// maxEntrySize caps a single extracted file.
const maxEntrySize = 256 << 20

// Package represents an opened Anki .apkg file.
type Package struct {
	path    string
	tempDir string
	db      *sql.DB
	media   map[string]string // file name -> extracted entry name
	Models  map[int64]*Model
	Decks   map[int64]*Deck
	Notes   []*Note
}

// Model represents an Anki note type.
type Model struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Fields []Field `json:"flds"`
}

// Field represents a field in a note type.
type Field struct {
	Name string `json:"name"`
	Ord  int    `json:"ord"`
}

// Deck represents an Anki deck.
type Deck struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc"`
}

// Note represents an Anki note.
type Note struct {
	ID      int64
	ModelID int64
	Tags    string
	Fields  []string // Parsed from flds
}

// OpenPackage extracts an .apkg file and loads its notes.
func OpenPackage(path string) (*Package, error) {
	pkg := &Package{
		path:   path,
		media:  make(map[string]string),
		Models: make(map[int64]*Model),
		Decks:  make(map[int64]*Deck),
	}

	tempDir, err := os.MkdirTemp("", "shinkei-apkg-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	pkg.tempDir = tempDir

	if err := pkg.extract(); err != nil {
		pkg.Close()
		return nil, err
	}

	dbPath := filepath.Join(tempDir, "collection.anki21")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = filepath.Join(tempDir, "collection.anki2")
	}
	if _, err := os.Stat(dbPath); err != nil {
		pkg.Close()
		return nil, fmt.Errorf("no collection in %s", filepath.Base(path))
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		pkg.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	pkg.db = db

	if err := pkg.loadCollection(); err != nil {
		pkg.Close()
		return nil, err
	}
	if err := pkg.loadNotes(); err != nil {
		pkg.Close()
		return nil, err
	}
	if err := pkg.loadMedia(); err != nil {
		pkg.Close()
		return nil, err
	}
	return pkg, nil
}

// extract unzips the .apkg file.
func (p *Package) extract() error {
	r, err := zip.OpenReader(p.path)
	if err != nil {
		return fmt.Errorf("opening zip: %w", err)
	}
	defer r.Close()

	root := filepath.Clean(p.tempDir) + string(os.PathSeparator)
	for _, f := range r.File {
		fpath := filepath.Join(p.tempDir, f.Name)

		// Prevent zip slip
		if !strings.HasPrefix(fpath, root) {
			return fmt.Errorf("illegal file path: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, fpath); err != nil {
			return fmt.Errorf("extracting %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer out.Close()

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	if _, err := io.Copy(out, io.LimitReader(rc, maxEntrySize)); err != nil {
		return err
	}
	return out.Close()
}

// loadCollection loads models and decks from the col table.
func (p *Package) loadCollection() error {
	var models, decks string

	row := p.db.QueryRow("SELECT models, decks FROM col")
	if err := row.Scan(&models, &decks); err != nil {
		return fmt.Errorf("reading collection: %w", err)
	}

	var modelsMap map[string]json.RawMessage
	if err := json.Unmarshal([]byte(models), &modelsMap); err != nil {
		return fmt.Errorf("parsing models: %w", err)
	}
	for _, raw := range modelsMap {
		var model Model
		if err := json.Unmarshal(raw, &model); err != nil {
			continue // Skip malformed models
		}
		p.Models[model.ID] = &model
	}

	var decksMap map[string]json.RawMessage
	if err := json.Unmarshal([]byte(decks), &decksMap); err != nil {
		return fmt.Errorf("parsing decks: %w", err)
	}
	for _, raw := range decksMap {
		var deck Deck
		if err := json.Unmarshal(raw, &deck); err != nil {
			continue
		}
		p.Decks[deck.ID] = &deck
	}
	return nil
}

// loadNotes loads all notes in creation order.
func (p *Package) loadNotes() error {
	rows, err := p.db.Query(`SELECT id, mid, tags, flds FROM notes ORDER BY id`)
	if err != nil {
		return fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var note Note
		var flds string
		if err := rows.Scan(&note.ID, &note.ModelID, &note.Tags, &flds); err != nil {
			return fmt.Errorf("scanning note: %w", err)
		}
		// Fields are separated by ASCII 31
		note.Fields = strings.Split(flds, "\x1f")
		p.Notes = append(p.Notes, &note)
	}
	return rows.Err()
}

// loadMedia reads the media index, which maps numbered zip entries to the
// file names referenced from note fields.
func (p *Package) loadMedia() error {
	data, err := os.ReadFile(filepath.Join(p.tempDir, "media"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading media index: %w", err)
	}

	var index map[string]string
	if err := json.Unmarshal(data, &index); err != nil {
		// Newer packages store a compressed protobuf index that we do not read.
		return nil
	}
	for entry, name := range index {
		p.media[name] = entry
	}
	return nil
}

// Media returns the contents of a media file referenced by name.
func (p *Package) Media(name string) ([]byte, error) {
	entry, ok := p.media[name]
	if !ok {
		return nil, fmt.Errorf("media %q not in package", name)
	}
	path := filepath.Join(p.tempDir, entry)
	if !strings.HasPrefix(path, filepath.Clean(p.tempDir)+string(os.PathSeparator)) {
		return nil, fmt.Errorf("illegal media entry: %s", entry)
	}
	return os.ReadFile(path)
}

// Model returns the model for a note.
func (p *Package) Model(note *Note) *Model {
	return p.Models[note.ModelID]
}

// FieldNames returns the field names of a note's model in field order.
func (p *Package) FieldNames(note *Note) []string {
	model := p.Model(note)
	if model == nil {
		return nil
	}
	names := make([]string, len(note.Fields))
	for _, field := range model.Fields {
		if field.Ord < len(names) {
			names[field.Ord] = field.Name
		}
	}
	return names
}

// Close removes the extracted files.
func (p *Package) Close() error {
	if p.db != nil {
		p.db.Close()
	}
	if p.tempDir != "" {
		return os.RemoveAll(p.tempDir)
	}
	return nil
}

// Summary returns a summary of the package contents.
func (p *Package) Summary() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Anki Package: %s\n", filepath.Base(p.path))
	fmt.Fprintf(&sb, "  Decks: %d\n", len(p.Decks))
	for _, deck := range p.Decks {
		fmt.Fprintf(&sb, "    - %s\n", deck.Name)
	}
	fmt.Fprintf(&sb, "  Note types: %d\n", len(p.Models))
	for _, model := range p.Models {
		fmt.Fprintf(&sb, "    - %s (%d fields)\n", model.Name, len(model.Fields))
	}
	fmt.Fprintf(&sb, "  Notes: %d\n", len(p.Notes))
	fmt.Fprintf(&sb, "  Media files: %d\n", len(p.media))
	return sb.String()
}
