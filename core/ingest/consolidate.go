package ingest

import (
	"sort"

	"github.com/anuj67851/graph-rag-metadata/model"
)

// ConsolidateEntities merges the per-chunk extractions of a document into
// one record per canonical name. The entity type of the first extraction
// wins; mentions and contexts become sorted sets. Entities without a
// canonical name are dropped.
func ConsolidateEntities(results []*model.ExtractionResult) []model.ConsolidatedEntity {
	byName := map[string]*model.ConsolidatedEntity{}
	mentions := map[string]map[string]bool{}
	contexts := map[string]map[string]bool{}
	var order []string

	for _, result := range results {
		if result == nil {
			continue
		}
		for _, entity := range result.Entities {
			name := entity.CanonicalName
			if name == "" {
				continue
			}

			consolidated, exists := byName[name]
			if !exists {
				consolidated = &model.ConsolidatedEntity{
					CanonicalName: name,
					EntityType:    entity.EntityType,
				}
				byName[name] = consolidated
				mentions[name] = map[string]bool{}
				contexts[name] = map[string]bool{}
				order = append(order, name)
			}

			if entity.OriginalMention != "" {
				mentions[name][entity.OriginalMention] = true
			}
			for _, context := range entity.Contexts {
				if context != "" {
					contexts[name][context] = true
				}
			}
		}
	}

	consolidated := make([]model.ConsolidatedEntity, 0, len(order))
	for _, name := range order {
		entity := byName[name]
		entity.OriginalMentions = sortedSet(mentions[name])
		entity.Contexts = sortedSet(contexts[name])
		consolidated = append(consolidated, *entity)
	}
	return consolidated
}

// ConsolidateRelationships merges the per-chunk extractions into one record
// per (source, type, target) key with a sorted context set. Relationships
// with an endpoint missing from entityTypes are dropped, the graph cannot
// resolve them.
func ConsolidateRelationships(results []*model.ExtractionResult, entityTypes map[string]string) []model.ConsolidatedRelationship {
	byKey := map[model.RelationshipKey]*model.ConsolidatedRelationship{}
	contexts := map[model.RelationshipKey]map[string]bool{}
	var order []model.RelationshipKey

	for _, result := range results {
		if result == nil {
			continue
		}
		for _, relationship := range result.Relationships {
			if relationship.SourceCanonicalName == "" || relationship.TargetCanonicalName == "" || relationship.RelationshipType == "" {
				continue
			}
			if _, known := entityTypes[relationship.SourceCanonicalName]; !known {
				continue
			}
			if _, known := entityTypes[relationship.TargetCanonicalName]; !known {
				continue
			}

			key := model.RelationshipKey{
				Source: relationship.SourceCanonicalName,
				Type:   relationship.RelationshipType,
				Target: relationship.TargetCanonicalName,
			}

			consolidated, exists := byKey[key]
			if !exists {
				consolidated = &model.ConsolidatedRelationship{
					SourceCanonicalName: key.Source,
					RelationshipType:    key.Type,
					TargetCanonicalName: key.Target,
				}
				byKey[key] = consolidated
				contexts[key] = map[string]bool{}
				order = append(order, key)
			}

			for _, context := range relationship.Contexts {
				if context != "" {
					contexts[key][context] = true
				}
			}
		}
	}

	consolidated := make([]model.ConsolidatedRelationship, 0, len(order))
	for _, key := range order {
		relationship := byKey[key]
		relationship.Contexts = sortedSet(contexts[key])
		consolidated = append(consolidated, *relationship)
	}
	return consolidated
}

// EntityTypeIndex maps canonical names to their consolidated entity types.
func EntityTypeIndex(entities []model.ConsolidatedEntity) map[string]string {
	index := make(map[string]string, len(entities))
	for _, entity := range entities {
		index[entity.CanonicalName] = entity.EntityType
	}
	return index
}

func sortedSet(set map[string]bool) []string {
	values := make([]string, 0, len(set))
	for value := range set {
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}
