package extractor

import (
	"go.uber.org/zap"

	"github.com/user/election-scraper/internal/entity"
	"github.com/user/election-scraper/pkg/utils"
)

// Summary row layout of the turnout table (0-indexed).
const (
	summaryMinCells = 7
	registeredCol   = 3
	issuedCol       = 4
	validCol        = 6
)

// DetailRules describes how party tables are recognised on a detail page.
type DetailRules struct {
	// PartyTerms and ValidVotesTerms must both occur in the folded header text.
	PartyTerms      []string
	ValidVotesTerms []string
}

// DefaultDetailRules returns the rules for the volby.cz municipality result pages.
func DefaultDetailRules() DetailRules {
	return DetailRules{
		PartyTerms:      []string{"strana"},
		ValidVotesTerms: []string{"platne"},
	}
}

// DetailParser extracts turnout and party results from a detail page.
// Malformed rows are skipped; parsing never fails.
type DetailParser struct {
	rules  DetailRules
	logger *zap.Logger
}

// NewDetailParser creates a DetailParser. A nil logger disables logging.
func NewDetailParser(rules DetailRules, logger *zap.Logger) *DetailParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DetailParser{rules: rules, logger: logger}
}

// Parse extracts the page. Unparsable input yields a zero summary and an
// empty tally.
func (p *DetailParser) Parse(htmlContent string) entity.DetailPage {
	doc, err := ParseHTML(htmlContent)
	if err != nil {
		p.logger.Warn("detail page could not be parsed", zap.Error(err))
		return entity.DetailPage{Tally: entity.NewCategoryTally()}
	}
	return p.ParseDocument(doc)
}

// ParseDocument is Parse for an already parsed document.
func (p *DetailParser) ParseDocument(doc Document) entity.DetailPage {
	tables := doc.Tables()
	page := entity.DetailPage{Tally: entity.NewCategoryTally()}
	if len(tables) > 0 {
		page.Summary = summaryFromTable(tables[0])
	}

	for _, t := range tables {
		head := t.HeaderText()
		if !utils.ContainsFolded(head, p.rules.PartyTerms) || !utils.ContainsFolded(head, p.rules.ValidVotesTerms) {
			continue
		}
		for _, row := range t.Rows() {
			name, count, ok := categoryFromRow(row)
			if ok {
				page.Tally.Set(name, count)
			}
		}
	}
	return page
}

// summaryFromTable reads the first row that looks like a numbered turnout line.
func summaryFromTable(t Table) entity.EntitySummary {
	for _, row := range t.Rows() {
		cells := cellTexts(row.Cells())
		if len(cells) < summaryMinCells || !utils.IsDigits(cells[0]) {
			continue
		}
		return entity.EntitySummary{
			Registered: utils.ParseInt(cells[registeredCol], 0),
			Issued:     utils.ParseInt(cells[issuedCol], 0),
			Valid:      utils.ParseInt(cells[validCol], 0),
		}
	}
	return entity.EntitySummary{}
}

// categoryFromRow accepts rows shaped as (ordinal, party name, votes, ...).
func categoryFromRow(row Row) (string, int, bool) {
	cells := cellTexts(row.Cells())
	if len(cells) < 3 {
		return "", 0, false
	}
	ordinal, name := cells[0], cells[1]
	votes := utils.StripSeparators(cells[2])
	if !utils.IsDigits(ordinal) || !utils.HasLetter(name) || !utils.IsDigits(votes) {
		return "", 0, false
	}
	return name, utils.ParseInt(votes, 0), true
}
