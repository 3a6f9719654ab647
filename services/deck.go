package services

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"league-run-system/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DeckParser resolves SWUDB deck exports against the local card database.
// Card files map "SET_NUMBER" ids to display names; leaders keep their
// subtitle, bases drop it.
type DeckParser struct {
	leaderPath string
	basePath   string

	mu      sync.RWMutex
	leaders map[string]string
	bases   map[string]string
}

type cardFile struct {
	Data []struct {
		Set      string `json:"Set"`
		Number   string `json:"Number"`
		Name     string `json:"Name"`
		Subtitle string `json:"Subtitle"`
	} `json:"data"`
}

// NewDeckParser loads the leader and base card databases. Missing files are
// not fatal: every lookup then falls back to the raw card id.
func NewDeckParser(leaderPath, basePath string) *DeckParser {
	p := &DeckParser{leaderPath: leaderPath, basePath: basePath}
	p.Reload()
	return p
}

// Reload re-reads both card files. Called at startup and by the card sync
// worker after it refreshes the files on disk.
func (p *DeckParser) Reload() {
	leaders := loadCardMap(p.leaderPath, true)
	bases := loadCardMap(p.basePath, false)
	p.mu.Lock()
	p.leaders = leaders
	p.bases = bases
	p.mu.Unlock()
}

func loadCardMap(path string, withSubtitle bool) map[string]string {
	cardMap := make(map[string]string)
	data, err := os.ReadFile(path)
	if err != nil {
		return cardMap
	}
	var file cardFile
	if err := json.Unmarshal(data, &file); err != nil {
		return cardMap
	}
	titler := cases.Title(language.English, cases.NoLower)
	for _, card := range file.Data {
		id := fmt.Sprintf("%s_%s", card.Set, card.Number)
		name := titler.String(card.Name)
		if withSubtitle && card.Subtitle != "" {
			name = fmt.Sprintf("%s - %s", name, card.Subtitle)
		}
		cardMap[id] = name
	}
	return cardMap
}

type deckExport struct {
	Leader struct {
		ID string `json:"id"`
	} `json:"leader"`
	Base struct {
		ID string `json:"id"`
	} `json:"base"`
}

// Parse extracts the leader and base names from a pasted SWUDB JSON export.
// Anything unparseable comes back as the private sentinels, which register
// the run without deck stats.
func (p *DeckParser) Parse(raw string) (leader, base string) {
	var deck deckExport
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &deck); err != nil {
		return models.PrivateLeader, models.PrivateBase
	}
	if deck.Leader.ID == "" || deck.Base.ID == "" {
		return models.PrivateLeader, models.PrivateBase
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	leader, ok := p.leaders[deck.Leader.ID]
	if !ok {
		leader = fmt.Sprintf("Unknown Leader (%s)", deck.Leader.ID)
	}
	base, ok = p.bases[deck.Base.ID]
	if !ok {
		base = fmt.Sprintf("Unknown Base (%s)", deck.Base.ID)
	}
	return leader, base
}
