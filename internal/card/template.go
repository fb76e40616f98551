package card

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// CardTemplate is a named card layout with fixed slot definitions and
// declared output dimensions. Templates are loaded once at startup and are
// read-only afterward.
type CardTemplate struct {
	ID      string
	Version string
	Width   int64
	Height  int64
	Slots   []string

	tmpl *template.Template
}

// CardData is the value set bound into a template's slots. All formatting
// happens before binding so templates stay purely presentational.
type CardData struct {
	Nickname    string
	Country     string
	CountryFlag string
	Elo         int
	SkillLevel  int

	Matches      int
	WinRate      string
	KDRatio      string
	AvgKills     string
	Streak       string
	Insufficient bool
}

// Bind executes the template with the given data and returns the document.
func (t *CardTemplate) Bind(data *CardData) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("binding template %s: %w", t.ID, err)
	}
	return buf.String(), nil
}

type manifest struct {
	Templates []manifestEntry `json:"templates"`
}

type manifestEntry struct {
	ID      string   `json:"id"`
	Version string   `json:"version"`
	File    string   `json:"file"`
	Width   int64    `json:"width"`
	Height  int64    `json:"height"`
	Slots   []string `json:"slots"`
}

// Store is the read-only registry of card templates. There is no write path
// after NewStore returns.
type Store struct {
	templates map[string]*CardTemplate
}

// NewStore loads every template declared in <dir>/manifest.json, parses its
// markup, and verifies that each declared slot actually appears in the
// document. A defective template fails startup rather than the first render.
func NewStore(dir string, logger zerolog.Logger) (*Store, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("reading template manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing template manifest: %w", err)
	}
	if len(m.Templates) == 0 {
		return nil, fmt.Errorf("template manifest declares no templates")
	}

	store := &Store{templates: make(map[string]*CardTemplate, len(m.Templates))}
	for _, entry := range m.Templates {
		if _, exists := store.templates[entry.ID]; exists {
			return nil, fmt.Errorf("duplicate template id %q", entry.ID)
		}
		if entry.Width <= 0 || entry.Height <= 0 {
			return nil, fmt.Errorf("template %q declares invalid dimensions %dx%d", entry.ID, entry.Width, entry.Height)
		}

		markup, err := os.ReadFile(filepath.Join(dir, entry.File))
		if err != nil {
			return nil, fmt.Errorf("reading template %q: %w", entry.ID, err)
		}

		if err := validateSlots(string(markup), entry.Slots); err != nil {
			return nil, fmt.Errorf("template %q: %w", entry.ID, err)
		}

		tmpl, err := template.New(entry.ID).Parse(string(markup))
		if err != nil {
			return nil, fmt.Errorf("parsing template %q: %w", entry.ID, err)
		}

		store.templates[entry.ID] = &CardTemplate{
			ID:      entry.ID,
			Version: entry.Version,
			Width:   entry.Width,
			Height:  entry.Height,
			Slots:   entry.Slots,
			tmpl:    tmpl,
		}

		logger.Info().
			Str("template", entry.ID).
			Str("version", entry.Version).
			Int64("width", entry.Width).
			Int64("height", entry.Height).
			Msg("template loaded")
	}

	return store, nil
}

// validateSlots checks that every declared slot has a matching data-slot
// element in the markup.
func validateSlots(markup string, slots []string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("parsing markup: %w", err)
	}

	var missing []string
	for _, slot := range slots {
		if doc.Find(fmt.Sprintf(`[data-slot=%q]`, slot)).Length() == 0 {
			missing = append(missing, slot)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("markup is missing declared slots: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Get returns the template for id.
func (s *Store) Get(id string) (*CardTemplate, error) {
	tmpl, ok := s.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
	}
	return tmpl, nil
}

// IDs lists the registered template ids.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.templates))
	for id := range s.templates {
		ids = append(ids, id)
	}
	return ids
}
