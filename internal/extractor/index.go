package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/user/election-scraper/internal/entity"
	"github.com/user/election-scraper/pkg/config"
	"github.com/user/election-scraper/pkg/utils"
)

// IndexRules describes how municipality tables are recognised on an index page.
type IndexRules struct {
	// TableIDPrefix selects tables by their id attribute.
	TableIDPrefix string
	// CodeTerms and NameTerms are matched against the folded header text when
	// no table carries a matching id.
	CodeTerms []string
	NameTerms []string
	// LinkFragments are the path fragments a detail link must contain.
	LinkFragments []string
	// BaseURL resolves relative detail links.
	BaseURL string
}

// DefaultIndexRules returns the rules for the volby.cz municipality listings.
func DefaultIndexRules() IndexRules {
	return IndexRules{
		TableIDPrefix: "ps311_t",
		CodeTerms:     []string{"cislo"},
		NameTerms:     []string{"nazev"},
		LinkFragments: []string{"ps311", "xvyber"},
		BaseURL:       config.DefaultBaseURL,
	}
}

// tableStrategy picks candidate tables out of a document.
type tableStrategy struct {
	name     string
	selectFn func(doc Document) []Table
}

// IndexParser extracts municipality references from an index page.
type IndexParser struct {
	rules      IndexRules
	base       *url.URL
	strategies []tableStrategy
	logger     *zap.Logger
}

// NewIndexParser creates an IndexParser. A nil logger disables logging.
func NewIndexParser(rules IndexRules, logger *zap.Logger) (*IndexParser, error) {
	base, err := url.Parse(rules.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", rules.BaseURL, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &IndexParser{rules: rules, base: base, logger: logger}
	p.strategies = []tableStrategy{
		{name: "table_id", selectFn: p.byTableID},
		{name: "header_terms", selectFn: p.byHeaderTerms},
	}
	return p, nil
}

// Parse returns the municipalities listed on the page, in scan order and
// unique by code. A page without qualifying rows yields an empty slice.
func (p *IndexParser) Parse(htmlContent string) []entity.EntityRef {
	doc, err := ParseHTML(htmlContent)
	if err != nil {
		p.logger.Warn("index page could not be parsed", zap.Error(err))
		return []entity.EntityRef{}
	}
	return p.ParseDocument(doc)
}

// ParseDocument is Parse for an already parsed document.
func (p *IndexParser) ParseDocument(doc Document) []entity.EntityRef {
	tables := p.selectTables(doc)

	refs := []entity.EntityRef{}
	seen := make(map[string]struct{})
	for _, t := range tables {
		rows := t.Rows()
		if len(rows) == 0 {
			continue
		}
		for _, row := range rows[1:] {
			ref, ok := p.refFromRow(row)
			if !ok {
				continue
			}
			if _, dup := seen[ref.Code]; dup {
				continue
			}
			seen[ref.Code] = struct{}{}
			refs = append(refs, ref)
		}
	}
	return refs
}

// selectTables runs the strategies in order; the first non-empty result wins.
func (p *IndexParser) selectTables(doc Document) []Table {
	for _, s := range p.strategies {
		if tables := s.selectFn(doc); len(tables) > 0 {
			p.logger.Debug("index tables selected", zap.String("strategy", s.name), zap.Int("tables", len(tables)))
			return tables
		}
	}
	return nil
}

func (p *IndexParser) byTableID(doc Document) []Table {
	if p.rules.TableIDPrefix == "" {
		return nil
	}
	var out []Table
	for _, t := range doc.Tables() {
		if strings.HasPrefix(t.ID(), p.rules.TableIDPrefix) {
			out = append(out, t)
		}
	}
	return out
}

func (p *IndexParser) byHeaderTerms(doc Document) []Table {
	var out []Table
	for _, t := range doc.Tables() {
		head := t.HeaderText()
		if utils.ContainsFolded(head, p.rules.CodeTerms) && utils.ContainsFolded(head, p.rules.NameTerms) {
			out = append(out, t)
		}
	}
	return out
}

func (p *IndexParser) refFromRow(row Row) (entity.EntityRef, bool) {
	cells := row.Cells()
	if len(cells) < 2 {
		return entity.EntityRef{}, false
	}

	href, ok := cells[0].Link()
	if !ok {
		href, ok = cells[len(cells)-1].Link()
	}
	if !ok || href == "" {
		// aggregate rows carry no link
		return entity.EntityRef{}, false
	}

	detailURL, err := utils.ToAbsoluteURL(p.base, href)
	if err != nil || !utils.ContainsAny(detailURL, p.rules.LinkFragments) {
		return entity.EntityRef{}, false
	}

	return entity.EntityRef{
		Code:      strings.ReplaceAll(cells[0].Text(), "\u00a0", " "),
		Name:      cells[1].Text(),
		DetailURL: detailURL,
	}, true
}
