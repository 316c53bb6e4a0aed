package sites

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/ffscrape/standardize"
	"github.com/pevans/ffscrape/story"
)

const fanfictionRoot = "https://www.fanfiction.net/"

var fanfictionPairing = regexp.MustCompile(`\[.*?\]`)

// Fanfiction scrapes stories from fanfiction.net.
type Fanfiction struct {
	base
}

var _ Site = (*Fanfiction)(nil)

// NewFanfiction creates the fanfiction.net site.
func NewFanfiction(opts Options) *Fanfiction {
	return &Fanfiction{base: newBase(opts, "Fanfiction.net")}
}

func (f *Fanfiction) Name() string { return "Fanfiction.net" }

func (f *Fanfiction) SetDomain(st *story.Story) {
	st.Domain = f.Name()
}

func (f *Fanfiction) CanHandle(url string) bool {
	return strings.Contains(strings.ToLower(url), "fanfiction.net/")
}

// CorrectURL returns https://www.fanfiction.net/s/<id>/1 for any chapter of
// a story, dropping the title slug.
func (f *Fanfiction) CorrectURL(rawURL string) (string, error) {
	// Story pages take no query, and a leftover one would end up in front of
	// every chapter number
	fixed := stripQuery(prepareURL(rawURL, "http"))

	parts := strings.Split(fixed, "/")
	if len(parts) < 5 {
		return "", urlError(rawURL, ReasonUnknownFormat)
	}
	if parts[0] == "http:" {
		parts[0] = "https:"
	}
	parts[2] = strings.ToLower(parts[2])
	// The mobile site serves the same stories
	if parts[2] == "m.fanfiction.net" {
		parts[2] = "www.fanfiction.net"
	}
	// Only /s/ paths are stories; /u/ is a profile
	if parts[3] != "s" {
		return "", urlError(rawURL, ReasonUnknownFormat)
	}
	if parts[4] == "" {
		return "", urlError(rawURL, ReasonNoStoryID)
	}

	// 5 parts: /s/<id>, 6: /s/<id>/<chapter>, 7: /s/<id>/<chapter>/<slug>
	switch len(parts) {
	case 5, 6, 7:
		parts = append(parts[:5], "1")
	default:
		return "", urlError(rawURL, ReasonUnknownFormat)
	}

	return strings.Join(parts, "/"), nil
}

func (f *Fanfiction) CheckStoryExists(doc *goquery.Document) bool {
	if doc.Find("div.panel_warning").Length() == 1 {
		f.logger.Warn("story doesn't exist")
		return false
	}
	return true
}

func (f *Fanfiction) RecordStoryMetadata(doc *goquery.Document, st *story.Story, pageURL string) ([]ChapterRef, error) {
	// The last breadcrumb link names the fandom, or "A + B Crossover"
	universeLinks := doc.Find("div#pre_story_links a[href]")
	if universeLinks.Length() == 0 {
		return nil, fmt.Errorf("%w: no fandom links", ErrLayout)
	}
	universes := strings.ReplaceAll(universeLinks.Last().Text(), " Crossover", "")
	for _, universe := range strings.Split(universes, " + ") {
		st.AddUniverse(standardize.Universe(universe))
	}

	profile := doc.Find("#profile_top").First()
	if profile.Length() == 0 {
		return nil, fmt.Errorf("%w: no story profile", ErrLayout)
	}
	st.RawIndexPage = documentHTML(doc)

	st.Title = strings.TrimSpace(profile.Find("b").First().Text())

	author := profile.Find(`a[href^="/u/"]`).First()
	if author.Length() == 0 {
		author = profile.Find("a").First()
	}
	authorURL := ""
	if href, ok := author.Attr("href"); ok {
		profileURL, err := resolve(fanfictionRoot, href)
		if err == nil {
			// Drop the trailing name segment, which changes when the author
			// renames themselves
			authorURL, _ = resolve(profileURL, ".")
		}
	}
	st.SetAuthor(strings.TrimSpace(author.Text()), authorURL)

	st.Summary = strings.TrimSpace(profile.Find("div.xcontrast_txt").First().Text())

	// Published and updated are unix stamps; a story never updated has one
	var stamps []time.Time
	profile.Find("[data-xutime]").Each(func(_ int, s *goquery.Selection) {
		raw, _ := s.Attr("data-xutime")
		sec, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			f.logger.Debug("unparseable timestamp", "value", raw)
			return
		}
		stamps = append(stamps, time.Unix(sec, 0).UTC())
	})
	if len(stamps) > 0 {
		published := slices.MinFunc(stamps, time.Time.Compare)
		updated := slices.MaxFunc(stamps, time.Time.Compare)
		st.Published = &published
		st.Updated = &updated
	}

	// "Fiction  T" -> "T"
	if words := strings.Fields(profile.Find("a[target=rating]").First().Text()); len(words) > 0 {
		st.Rating = standardize.Rating(words[len(words)-1])
	}

	f.recordDetails(doc, st)

	var chapters []ChapterRef
	if sel := doc.Find("#chap_select").First(); sel.Length() > 0 {
		sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
			link, _ := opt.Attr("value")
			chapters = append(chapters, ChapterRef{Name: opt.Text(), Link: link})
		})
	} else {
		chapters = append(chapters, ChapterRef{Name: st.Title, Link: "1"})
	}

	return chapters, nil
}

// recordDetails reads the hyphen separated detail line, e.g.
//
//	Rated: Fiction T - English - Romance/Drama - [Harry P., Ginny W.] Ron W. - Chapters: 3 - Complete
//
// Fields are positional: index 2 holds genres and index 3 holds characters.
func (f *Fanfiction) recordDetails(doc *goquery.Document, st *story.Story) {
	line := doc.Find("span.xgray.xcontrast_txt").First().Text()
	var details []string
	for _, field := range strings.Split(line, "-") {
		details = append(details, strings.TrimSpace(field))
	}

	if len(details) > 2 {
		for _, genre := range strings.Split(details[2], "/") {
			st.AddGenre(standardize.Genre(genre))
		}
	}

	if slices.Contains(details, "Complete") {
		st.Status = standardize.Status("Complete")
	} else {
		st.Status = standardize.Status("WIP")
	}

	if len(details) <= 3 {
		return
	}
	people := details[3]

	// Bracketed groups are pairings; their members also count as characters
	for _, group := range fanfictionPairing.FindAllString(people, -1) {
		group = strings.NewReplacer("[", "", "]", "").Replace(group)
		var pairing []string
		for _, person := range strings.Split(group, ", ") {
			person = standardize.Character(person)
			st.AddCharacter(person)
			pairing = append(pairing, person)
		}
		st.AddPairing(pairing)
	}

	rest := strings.TrimSpace(fanfictionPairing.ReplaceAllString(people, ""))
	for _, person := range strings.Split(rest, ", ") {
		st.AddCharacter(standardize.Character(person))
	}
}

func (f *Fanfiction) RecordStoryChapters(ctx context.Context, load PageLoader, st *story.Story, pageURL string, chapters []ChapterRef) error {
	// pageURL ends in the chapter number 1
	prefix := strings.TrimSuffix(pageURL, "1")

	for _, chapter := range chapters {
		f.wait()
		f.logger.Debug("downloading chapter", "chapter", chapter.Link)

		doc, err := load.Load(ctx, prefix+chapter.Link)
		if err != nil {
			return fmt.Errorf("failed to load chapter %s: %w", chapter.Link, err)
		}

		text := doc.Find("#storytextp").First()
		if text.Length() == 0 {
			return fmt.Errorf("%w: chapter %s has no story text", ErrLayout, chapter.Link)
		}

		parts := text.Find("p, hr")
		words := 0
		parts.Each(func(_ int, s *goquery.Selection) {
			words += countWords(s.Text())
		})

		st.AddChapter(story.Chapter{
			Name:          chapter.Name,
			WordCount:     words,
			ProcessedBody: outerHTML(parts),
			RawBody:       documentHTML(doc),
		})
	}

	return nil
}
