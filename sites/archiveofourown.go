package sites

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/ffscrape/standardize"
	"github.com/pevans/ffscrape/story"
)

const ao3DateLayout = "2006-01-02"

// ArchiveOfOurOwn scrapes works from archiveofourown.org, where all metadata
// is expressed as tags.
type ArchiveOfOurOwn struct {
	base
}

var _ Site = (*ArchiveOfOurOwn)(nil)

// NewArchiveOfOurOwn creates the archiveofourown.org site.
func NewArchiveOfOurOwn(opts Options) *ArchiveOfOurOwn {
	return &ArchiveOfOurOwn{base: newBase(opts, "Archive of Our Own")}
}

func (a *ArchiveOfOurOwn) Name() string { return "Archive of Our Own" }

func (a *ArchiveOfOurOwn) SetDomain(st *story.Story) {
	st.Domain = a.Name()
}

func (a *ArchiveOfOurOwn) CanHandle(url string) bool {
	return strings.Contains(strings.ToLower(url), "archiveofourown.org/")
}

// CorrectURL maps a work or any of its chapters to the full-work view,
// https://archiveofourown.org/works/<id>?view_full_work=true.
func (a *ArchiveOfOurOwn) CorrectURL(rawURL string) (string, error) {
	fixed := prepareURL(rawURL, "https")

	parts := strings.Split(fixed, "/")
	if len(parts) < 5 || parts[3] != "works" {
		return "", urlError(rawURL, ReasonUnknownFormat)
	}

	id := stripQuery(parts[4])
	if id == "" {
		return "", urlError(rawURL, ReasonMissingStoryID)
	}

	return "https://" + strings.ToLower(parts[2]) + "/works/" + id + "?view_full_work=true", nil
}

func (a *ArchiveOfOurOwn) CheckStoryExists(doc *goquery.Document) bool {
	notFound := doc.Find("#main.error-404").Length() > 0 ||
		doc.Find("h2.heading").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(s.Text(), "Error 404")
		}).Length() > 0
	if notFound {
		a.logger.Warn("story doesn't exist")
		return false
	}
	return true
}

func (a *ArchiveOfOurOwn) RecordStoryMetadata(doc *goquery.Document, st *story.Story, pageURL string) ([]ChapterRef, error) {
	meta := doc.Find("dl.work.meta").First()
	if meta.Length() == 0 {
		// Mature, Explicit and Not Rated works ask for confirmation first
		if doc.Find("p.caution").Length() > 0 {
			return nil, fmt.Errorf("%w: %w", ErrLayout, ErrAdultContent)
		}
		return nil, fmt.Errorf("%w: no work metadata", ErrLayout)
	}
	st.RawIndexPage = documentHTML(doc)

	tags := func(class string) []string {
		var out []string
		meta.Find("dd." + class + " a.tag").Each(func(_ int, s *goquery.Selection) {
			out = append(out, strings.TrimSpace(s.Text()))
		})
		return out
	}

	if ratings := tags("rating"); len(ratings) > 0 {
		st.Rating = standardize.Rating(ratings[0])
	}
	for _, warning := range tags("warning") {
		st.AddWarning(standardize.Warning(warning))
	}
	for _, category := range tags("category") {
		st.AddCategory(standardize.Category(category))
	}
	for _, fandom := range tags("fandom") {
		st.AddUniverse(standardize.Universe(fandom))
	}
	// "A/B" is romantic and "A & B" platonic; both are pairings here
	for _, relationship := range tags("relationship") {
		sep := " & "
		if strings.Contains(relationship, "/") {
			sep = "/"
		}
		var pairing []string
		for _, name := range strings.Split(relationship, sep) {
			pairing = append(pairing, standardize.Character(name))
		}
		st.AddPairing(pairing)
	}
	for _, character := range tags("character") {
		st.AddCharacter(standardize.Character(character))
	}
	for _, freeform := range tags("freeform") {
		st.AddGenre(standardize.Genre(freeform))
	}

	a.recordStats(meta.Find("dl.stats").First(), st)

	preface := doc.Find("#workskin > div.preface").First()
	st.Title = strings.TrimSpace(preface.Find("h2.title").First().Text())

	byline := preface.Find("h3.byline").First()
	if author := byline.Find(`a[rel="author"]`).First(); author.Length() > 0 {
		href, _ := author.Attr("href")
		authorURL, _ := resolve(pageURL, href)
		st.SetAuthor(strings.TrimSpace(author.Text()), authorURL)
	} else {
		// Anonymous and orphaned works have no profile link
		st.SetAuthor(strings.TrimSpace(byline.Text()), "")
	}

	st.Summary = strings.TrimSpace(preface.Find("div.summary blockquote.userstuff").First().Text())

	var chapters []ChapterRef
	doc.Find("#chapters > div.chapter").Each(func(_ int, s *goquery.Selection) {
		heading := s.Find("h3.title").First()
		link, _ := heading.Find("a").First().Attr("href")
		chapters = append(chapters, ChapterRef{
			Name: strings.Join(strings.Fields(heading.Text()), " "),
			Link: link,
		})
	})
	// Single chapter works show the text directly under #chapters
	if len(chapters) == 0 {
		chapters = append(chapters, ChapterRef{Name: st.Title, Link: pageURL})
	}

	return chapters, nil
}

// recordStats reads dates and completion from the stats list. A finished
// multi-chapter work labels its last date "Completed:", an unfinished one
// "Updated:", and a one-shot has no second date at all.
func (a *ArchiveOfOurOwn) recordStats(stats *goquery.Selection, st *story.Story) {
	var stamps []time.Time
	for _, class := range []string{"published", "status"} {
		raw := strings.TrimSpace(stats.Find("dd." + class).First().Text())
		if raw == "" {
			continue
		}
		t, err := time.Parse(ao3DateLayout, raw)
		if err != nil {
			a.logger.Debug("unparseable date", "value", raw)
			continue
		}
		stamps = append(stamps, t)
	}
	if len(stamps) > 0 {
		published := slices.MinFunc(stamps, time.Time.Compare)
		updated := slices.MaxFunc(stamps, time.Time.Compare)
		st.Published = &published
		st.Updated = &updated
	}

	label := strings.TrimSuffix(strings.TrimSpace(stats.Find("dt.status").First().Text()), ":")
	if label != "" {
		st.Status = standardize.Status(label)
		return
	}

	// "3/3" is finished, "3/?" or "3/5" is not
	posted, total, _ := strings.Cut(strings.TrimSpace(stats.Find("dd.chapters").First().Text()), "/")
	if posted != "" && posted == total {
		st.Status = standardize.Status("Complete")
	} else {
		st.Status = standardize.Status("WIP")
	}
}

func (a *ArchiveOfOurOwn) RecordStoryChapters(ctx context.Context, load PageLoader, st *story.Story, pageURL string, chapters []ChapterRef) error {
	for _, chapter := range chapters {
		a.wait()
		a.logger.Debug("downloading chapter", "chapter", chapter.Name)

		chapterURL, err := resolve(pageURL, chapter.Link)
		if err != nil {
			return fmt.Errorf("failed to build chapter URL: %w", err)
		}

		doc, err := load.Load(ctx, chapterURL)
		if err != nil {
			return fmt.Errorf("failed to load chapter %s: %w", chapter.Name, err)
		}

		body := doc.Find(`#chapters div.userstuff[role="article"]`).First()
		if body.Length() == 0 {
			body = doc.Find("#chapters div.userstuff").First()
		}
		if body.Length() == 0 {
			return fmt.Errorf("%w: chapter %s has no text", ErrLayout, chapter.Name)
		}

		// Drop the hidden "Chapter Text" heading before counting
		text := body.Clone()
		text.Find("h3.landmark").Remove()

		st.AddChapter(story.Chapter{
			Name:          chapter.Name,
			WordCount:     countWords(text.Text()),
			ProcessedBody: outerHTML(text),
			RawBody:       documentHTML(doc),
		})
	}

	return nil
}
