package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/webmemo/schemad"
	"github.com/webmemo/schemad/internal/domain"
)

const schemaContext = "https://schema.org"

// Builder turns extracted content objects into candidate schema records.
// Every candidate carries a serializable structured document before it is
// submitted.
type Builder struct {
	siteURL     string
	publisherID string
}

func NewBuilder(siteURL, publisherID string) *Builder {
	return &Builder{
		siteURL:     strings.TrimRight(siteURL, "/"),
		publisherID: publisherID,
	}
}

// PersonSchema builds Schema.org Person markup for a CMS user.
func (b *Builder) PersonSchema(user User) map[string]any {
	authorURL := b.siteURL + "/author/" + user.Slug

	return map[string]any{
		"@context":    schemaContext,
		"@type":       "Person",
		"@id":         authorURL,
		"name":        user.Name,
		"url":         authorURL,
		"description": user.Description,
	}
}

// ArticleSchema builds Schema.org Article markup for a post.
func (b *Builder) ArticleSchema(post Post) map[string]any {
	schema := map[string]any{
		"@context":      schemaContext,
		"@type":         "Article",
		"headline":      post.Title.Rendered,
		"datePublished": post.Date,
		"dateModified":  post.Modified,
		"url":           post.Link,
		"mainEntityOfPage": map[string]any{
			"@type": "WebPage",
			"@id":   post.Link,
		},
	}

	if b.publisherID != "" {
		schema["publisher"] = map[string]any{"@id": b.publisherID}
	}

	if post.Embedded != nil {
		if len(post.Embedded.Author) > 0 {
			schema["author"] = map[string]any{
				"@type": "Person",
				"@id":   b.siteURL + "/author/" + post.Embedded.Author[0].Slug,
			}
		}

		if post.FeaturedMedia > 0 && len(post.Embedded.FeaturedMedia) > 0 {
			media := post.Embedded.FeaturedMedia[0]
			if media.SourceURL != "" {
				image := map[string]any{
					"@type":  "ImageObject",
					"url":    media.SourceURL,
					"width":  media.Width,
					"height": media.Height,
				}
				if media.Width == 0 {
					image["width"] = 1200
				}
				if media.Height == 0 {
					image["height"] = 630
				}
				schema["image"] = image
			}
		}

		// Categories and tags become keywords.
		var keywords []string
		for _, terms := range post.Embedded.Terms {
			for _, term := range terms {
				keywords = append(keywords, term.Name)
			}
		}
		if len(keywords) > 0 {
			schema["keywords"] = strings.Join(keywords, ", ")
		}
	}

	return schema
}

// WebPageSchema builds Schema.org WebPage markup for a static page.
func (b *Builder) WebPageSchema(page Post) map[string]any {
	return map[string]any{
		"@context":      schemaContext,
		"@type":         "WebPage",
		"name":          page.Title.Rendered,
		"url":           page.Link,
		"datePublished": page.Date,
		"dateModified":  page.Modified,
	}
}

// BuildCandidates maps extracted content to upsert requests. Marshalling
// cannot realistically fail for these map payloads, but a failure drops only
// the affected candidate.
func (b *Builder) BuildCandidates(posts []Post, pages []Post, users []User) []schemad.UpsertRequest {
	candidates := make([]schemad.UpsertRequest, 0, len(posts)+len(pages)+len(users))

	for _, user := range users {
		if req, ok := candidate(user.ID, domain.SubjectKindUser, "Person", b.PersonSchema(user)); ok {
			candidates = append(candidates, req)
		}
	}
	for _, post := range posts {
		if req, ok := candidate(post.ID, "post", "Article", b.ArticleSchema(post)); ok {
			candidates = append(candidates, req)
		}
	}
	for _, page := range pages {
		if req, ok := candidate(page.ID, "page", "WebPage", b.WebPageSchema(page)); ok {
			candidates = append(candidates, req)
		}
	}

	return candidates
}

func candidate(subjectID int64, subjectKind, schemaKind string, payload map[string]any) (schemad.UpsertRequest, bool) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return schemad.UpsertRequest{}, false
	}
	id := subjectID
	return schemad.UpsertRequest{
		SubjectID:   &id,
		SubjectKind: subjectKind,
		SchemaKind:  schemaKind,
		Payload:     string(encoded),
	}, true
}
