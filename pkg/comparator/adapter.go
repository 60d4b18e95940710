package comparator

import (
	"strconv"
	"strings"

	"github.com/vstructure/vstructure/internal/model"
	"github.com/vstructure/vstructure/pkg/metadata"
)

// Adapt flattens a metadata snapshot into the lookup structures the
// rules need. Country scoped entities (data-origin "csf" with a
// concrete data-country) get their fields registered twice: once under
// the plain entity_field path and once under the country-prefixed
// spelling used by the CSV headers, together with a synthesized
// COUNTRY_entity entity so both lookups resolve directly.
func Adapt(snap *metadata.Snapshot) *MetadataContext {
	mc := &MetadataContext{
		SourceInstance:  snap.InstanceID,
		SourceVersion:   snap.Version,
		Entities:        make(map[string]*EntityMetadata),
		FieldByFullPath: make(map[string]*FieldMetadata),
	}

	snap.Walk(func(n *metadata.Node, parent string) string {
		tag := strings.ToLower(n.Tag)

		switch {
		case strings.Contains(tag, "hris-element"):
			elementID := n.ID()
			if elementID == "" {
				return parent
			}
			if _, ok := mc.Entities[elementID]; !ok {
				country := n.Attr("data-country")
				if country == "UNKNOWN" {
					country = ""
				}
				scoped := n.Attr("data-origin") == "csf" && country != ""
				if !scoped {
					country = ""
				}
				entity := newEntityMetadata(elementID)
				entity.IsCountrySpecific = scoped
				entity.CountryCode = country
				mc.Entities[elementID] = entity
			}
			return elementID

		case strings.Contains(tag, "hris-field"):
			if parent == "" {
				return parent
			}
			fieldID := n.ID()
			if fieldID == "" {
				return parent
			}
			mc.addField(parent, fieldID, n)
			return parent

		case n.Kind == metadata.KindElement && n.TechnicalID != "":
			// Compound sub-elements appear without the hris-element
			// tag but still own their fields.
			if strings.HasPrefix(n.TechnicalID, "workPermitInfo_") ||
				strings.HasPrefix(n.TechnicalID, "homeAddress_") {
				if _, ok := mc.Entities[n.TechnicalID]; !ok {
					mc.Entities[n.TechnicalID] = newEntityMetadata(n.TechnicalID)
				}
			}
			return n.TechnicalID
		}

		return parent
	})

	return mc
}

func (mc *MetadataContext) addField(parent, fieldID string, n *metadata.Node) {
	required := strings.ToLower(n.Attr("required")) == "true"
	dataType := n.Attr("type")
	maxLength, hasMax := parseMaxLength(n.Attr("max-length"))
	pattern := n.Attr("pattern")

	entity := mc.Entities[parent]

	if entity != nil && entity.IsCountrySpecific && entity.CountryCode != "" {
		internalPath := parent + "_" + fieldID
		csvPath := entity.CountryCode + "_" + internalPath

		internal := &FieldMetadata{
			ElementID:         parent,
			FieldID:           fieldID,
			FullPath:          internalPath,
			IsRequired:        required,
			DataType:          dataType,
			MaxLength:         maxLength,
			HasMax:            hasMax,
			Pattern:           pattern,
			IsCountrySpecific: true,
			CountryCode:       entity.CountryCode,
			Attributes:        n.Attributes,
		}
		csv := &FieldMetadata{
			ElementID:         entity.CountryCode + "_" + parent,
			FieldID:           fieldID,
			FullPath:          csvPath,
			IsRequired:        required,
			DataType:          dataType,
			MaxLength:         maxLength,
			HasMax:            hasMax,
			Pattern:           pattern,
			IsCountrySpecific: true,
			CountryCode:       entity.CountryCode,
			Attributes:        n.Attributes,
		}

		mc.FieldByFullPath[internalPath] = internal
		mc.FieldByFullPath[csvPath] = csv

		countryEntityID := entity.CountryCode + "_" + parent
		countryEntity, ok := mc.Entities[countryEntityID]
		if !ok {
			countryEntity = newEntityMetadata(countryEntityID)
			countryEntity.IsCountrySpecific = true
			countryEntity.CountryCode = entity.CountryCode
			mc.Entities[countryEntityID] = countryEntity
		}

		entity.Fields[fieldID] = internal
		countryEntity.Fields[fieldID] = csv
		if required {
			entity.RequiredFields[fieldID] = true
			countryEntity.RequiredFields[fieldID] = true
		}
		return
	}

	fullPath := parent + "_" + fieldID
	prefix, scoped := countryPrefix(parent)
	fm := &FieldMetadata{
		ElementID:         parent,
		FieldID:           fieldID,
		FullPath:          fullPath,
		IsRequired:        required,
		DataType:          dataType,
		MaxLength:         maxLength,
		HasMax:            hasMax,
		Pattern:           pattern,
		IsCountrySpecific: scoped,
		CountryCode:       prefix,
		Attributes:        n.Attributes,
	}

	mc.FieldByFullPath[fullPath] = fm
	if entity != nil {
		entity.Fields[fieldID] = fm
		if required {
			entity.RequiredFields[fieldID] = true
		}
	}
}

// countryPrefix reports whether entityID carries a country prefix and
// returns it. The prefix heuristic matches the column parser: the
// segment before the first underscore, 2 or 3 uppercase letters.
func countryPrefix(entityID string) (string, bool) {
	i := strings.IndexByte(entityID, '_')
	if i < 2 || i > 3 {
		return "", false
	}
	for _, r := range entityID[:i] {
		if r < 'A' || r > 'Z' {
			return "", false
		}
	}
	return entityID[:i], true
}

func parseMaxLength(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MetadataAdaptationFailed is the fatal finding emitted when a
// snapshot cannot be loaded or adapted.
func MetadataAdaptationFailed(details string) model.ValidationError {
	return metadataAdaptationFailed(details)
}
