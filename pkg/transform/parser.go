package transform

import (
	"fmt"
	"strings"

	"github.com/vstructure/vstructure/internal/model"
)

// DefaultCompoundEntities are entity identifiers that themselves
// contain an underscore, produced by the upstream schema exporter.
// They must be recognized before the generic entity_field split.
func DefaultCompoundEntities() []string {
	return []string{
		"homeAddress_home",
		"homeAddress_fiscal",
		"workPermitInfo_RFC",
		"workPermitInfo_IMMS",
		"globalInfo",
		"biographicalInfoLoc",
	}
}

// DefaultCountryCodes is the known ISO country table. A 2-3 letter
// uppercase prefix outside this table is still treated as a country
// scope, but the parser records it so callers can flag it.
func DefaultCountryCodes() []string {
	return []string{
		"MEX", "USA", "CAN", "BRA", "ARG", "CHL", "COL", "PER", "ESP", "FRA",
		"DEU", "GBR", "ITA", "JPN", "CHN", "IND", "AUS", "NZL",
	}
}

// Parser decomposes composite Golden Record column identifiers.
// Identifiers take the form entity_field, COUNTRY_entity_field, or the
// compound-entity variants of either.
type Parser struct {
	compounds map[string]bool
	countries map[string]bool

	// UnknownCountries collects scoped prefixes not present in the
	// country table, keyed by code.
	UnknownCountries map[string]bool
}

// NewParser builds a parser with the default compound-entity and
// country tables.
func NewParser() *Parser {
	return NewParserWith(DefaultCompoundEntities(), DefaultCountryCodes())
}

// NewParserWith builds a parser with caller-supplied tables.
func NewParserWith(compounds, countries []string) *Parser {
	p := &Parser{
		compounds:        make(map[string]bool, len(compounds)),
		countries:        make(map[string]bool, len(countries)),
		UnknownCountries: make(map[string]bool),
	}
	for _, c := range compounds {
		p.compounds[c] = true
	}
	for _, c := range countries {
		p.countries[c] = true
	}
	return p
}

// Parse decomposes a single column identifier.
func (p *Parser) Parse(name string) (ParsedColumn, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ParsedColumn{}, fmt.Errorf("empty column name")
	}
	if !strings.Contains(name, "_") {
		return ParsedColumn{}, fmt.Errorf("identifier %q has no underscore separator", name)
	}

	parts := strings.Split(name, "_")

	if len(parts) >= 3 && p.looksLikeCountry(parts[0]) {
		return p.parseScoped(name, parts)
	}
	return p.parseUnscoped(name, parts)
}

// parseScoped handles COUNTRY_entity_field identifiers. The entity id
// never keeps the country prefix.
func (p *Parser) parseScoped(name string, parts []string) (ParsedColumn, error) {
	country := parts[0]
	if !p.countries[country] {
		p.UnknownCountries[country] = true
	}

	col := ParsedColumn{
		OriginalName:      name,
		CountryCode:       country,
		IsCountrySpecific: true,
	}

	if len(parts) >= 4 {
		if compound := parts[1] + "_" + parts[2]; p.compounds[compound] {
			col.EntityID = compound
			col.FieldID = strings.Join(parts[3:], "_")
		} else {
			col.EntityID = parts[1]
			col.FieldID = strings.Join(parts[2:], "_")
		}
	} else {
		col.EntityID = parts[1]
		col.FieldID = parts[2]
	}

	if col.EntityID == "" || col.FieldID == "" {
		return ParsedColumn{}, fmt.Errorf("scoped identifier %q has empty segments", name)
	}
	return col, nil
}

func (p *Parser) parseUnscoped(name string, parts []string) (ParsedColumn, error) {
	col := ParsedColumn{OriginalName: name}

	if compound := parts[0] + "_" + parts[1]; p.compounds[compound] && len(parts) >= 3 {
		col.EntityID = compound
		col.FieldID = strings.Join(parts[2:], "_")
	} else {
		col.EntityID = parts[0]
		col.FieldID = strings.Join(parts[1:], "_")
	}

	if col.EntityID == "" || col.FieldID == "" {
		return ParsedColumn{}, fmt.Errorf("identifier %q has empty segments", name)
	}
	return col, nil
}

// looksLikeCountry applies the heuristic for a country prefix: two or
// three uppercase letters.
func (p *Parser) looksLikeCountry(code string) bool {
	if len(code) < 2 || len(code) > 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// ParseAll parses every header. A column that fails to parse becomes a
// placeholder entity so indices stay aligned, and the failure is
// recorded as a finding. Unknown country prefixes are reported once
// per code.
func (p *Parser) ParseAll(headers []string) ([]ParsedColumn, []model.ValidationError) {
	cols := make([]ParsedColumn, 0, len(headers))
	var errs []model.ValidationError

	for i, name := range headers {
		col, err := p.Parse(name)
		if err != nil {
			errs = append(errs, model.ValidationError{
				Code:       "INVALID_COLUMN_COMPOSITION",
				Severity:   model.SeverityError,
				Message:    "invalid column identifier: " + err.Error(),
				Scope:      model.ScopeGlobal,
				ColumnName: name,
			})
			cols = append(cols, ParsedColumn{
				OriginalName: name,
				EntityID:     fmt.Sprintf("ERROR_%d", i),
				FieldID:      name,
			})
			continue
		}
		cols = append(cols, col)
	}

	for code := range p.UnknownCountries {
		errs = append(errs, model.ValidationError{
			Code:     "UNKNOWN_COUNTRY_CODE",
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("country prefix %q is not in the configured country table", code),
			Scope:    model.ScopeGlobal,
		})
	}

	return cols, errs
}
