package pnl

import (
	"sort"
	"strings"
)

// OtherGroupLabel is used when an entity ends up with an empty tag set.
// The district-label fallback makes this unreachable in practice, but the
// partition must still be total.
const OtherGroupLabel = "Other"

const tagJoinSeparator = " - "

// TaggedEntity pairs an entity with the normalised tag set derived from its
// parent district.
type TaggedEntity struct {
	Entity Entity
	Tags   []string
}

// BuildDistrictMembership maps each district label to the entities whose
// ParentDistrictID matches that district. Entities referencing an unknown
// district are omitted; member order follows input order.
func BuildDistrictMembership(entities []Entity, districts []District) map[string][]Entity {
	labelByID := make(map[string]string, len(districts))
	for _, d := range districts {
		labelByID[d.ID] = d.Label
	}
	membership := make(map[string][]Entity)
	for _, e := range entities {
		label, ok := labelByID[e.ParentDistrictID]
		if !ok {
			continue
		}
		membership[label] = append(membership[label], e)
	}
	return membership
}

// DistrictTags returns the district's tags sorted into a stable order, or the
// district label as a singleton fallback when no tags are configured. Every
// entity therefore gets a deterministic grouping key.
func DistrictTags(d District) []string {
	if len(d.Tags) == 0 {
		return []string{d.Label}
	}
	tags := append([]string(nil), d.Tags...)
	sort.Strings(tags)
	return tags
}

// TagEntities resolves each entity's tag set from its parent district.
// Entities whose parent district is unknown carry an empty tag set and fall
// into the "Other" group downstream.
func TagEntities(entities []Entity, districts []District) []TaggedEntity {
	byID := make(map[string]District, len(districts))
	for _, d := range districts {
		byID[d.ID] = d
	}
	tagged := make([]TaggedEntity, 0, len(entities))
	for _, e := range entities {
		var tags []string
		if district, ok := byID[e.ParentDistrictID]; ok {
			tags = DistrictTags(district)
		}
		tagged = append(tagged, TaggedEntity{Entity: e, Tags: tags})
	}
	return tagged
}

// GroupByTags partitions tagged entities by their joined sorted-tag key.
// Districts whose tag sets normalise to the same key merge into one group,
// which is how independent districts surface as a single consolidated line.
// Group order follows first encounter of each key.
func GroupByTags(tagged []TaggedEntity) []TagGroup {
	byKey := make(map[string]int)
	groups := make([]TagGroup, 0)
	for _, te := range tagged {
		key := strings.Join(te.Tags, tagJoinSeparator)
		idx, ok := byKey[key]
		if !ok {
			idx = len(groups)
			byKey[key] = idx
			groups = append(groups, TagGroup{Key: key, Label: tagGroupLabel(te.Tags)})
		}
		groups[idx].Members = append(groups[idx].Members, te.Entity)
	}
	return groups
}

// GroupCustomersByDistrictTags derives tag sets from parent districts and
// partitions the entities into tag groups. A district's ReportingExcluded
// flag has no effect here: it only suppresses the district's own standalone
// report, a decision made by the caller.
func GroupCustomersByDistrictTags(entities []Entity, districts []District) []TagGroup {
	return GroupByTags(TagEntities(entities, districts))
}

func tagGroupLabel(tags []string) string {
	switch len(tags) {
	case 0:
		return OtherGroupLabel
	case 1:
		return tags[0]
	default:
		return strings.Join(tags, tagJoinSeparator)
	}
}
