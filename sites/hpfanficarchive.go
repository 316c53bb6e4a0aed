package sites

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/ffscrape/standardize"
	"github.com/pevans/ffscrape/story"
)

// Dates on the archive look like "December 10, 2011"
const hpfaDateLayout = "January 2, 2006"

var hpfaChapterLink = regexp.MustCompile(`^viewstory\.php.*`)

// HPFanficArchive scrapes stories from hpfanficarchive.com. The archive only
// hosts Harry Potter stories.
type HPFanficArchive struct {
	base
}

var _ Site = (*HPFanficArchive)(nil)

// NewHPFanficArchive creates the hpfanficarchive.com site.
func NewHPFanficArchive(opts Options) *HPFanficArchive {
	return &HPFanficArchive{base: newBase(opts, "HP Fanfic Archive")}
}

func (h *HPFanficArchive) Name() string { return "HP Fanfic Archive" }

func (h *HPFanficArchive) SetDomain(st *story.Story) {
	st.Domain = h.Name()
}

func (h *HPFanficArchive) CanHandle(url string) bool {
	return strings.Contains(strings.ToLower(url), "hpfanficarchive.com/")
}

// CorrectURL accepts any viewstory.php URL and returns the index page for its
// sid, e.g. http://www.hpfanficarchive.com/stories/viewstory.php?sid=123.
func (h *HPFanficArchive) CorrectURL(rawURL string) (string, error) {
	fixed := prepareURL(rawURL, "http")
	fixed, _, _ = strings.Cut(fixed, "#")

	parts := strings.Split(fixed, "/")
	if len(parts) != 5 || parts[4] == "" {
		return "", urlError(rawURL, ReasonUnknownFormat)
	}

	_, query, found := strings.Cut(parts[4], "?")
	if !found || strings.Contains(query, "?") {
		return "", urlError(rawURL, ReasonUnknownFormat)
	}

	// "sid=1&chapter=2" -> [sid 1 chapter 2]
	fields := strings.Split(strings.ReplaceAll(query, "&", "="), "=")
	if len(fields) < 2 {
		return "", urlError(rawURL, ReasonNoStoryID)
	}
	sid := fields[1]
	for i := 0; i+1 < len(fields); i += 2 {
		if fields[i] == "sid" {
			sid = fields[i+1]
			break
		}
	}
	if sid == "" {
		return "", urlError(rawURL, ReasonNoStoryID)
	}

	corrected, err := resolve(strings.Join(parts, "/"), "viewstory.php?sid="+sid)
	if err != nil {
		return "", urlError(rawURL, ReasonUnknownFormat)
	}
	return corrected, nil
}

func (h *HPFanficArchive) CheckStoryExists(doc *goquery.Document) bool {
	if doc.Find("div.errortext").Length() > 0 {
		h.logger.Warn("story doesn't exist")
		return false
	}
	return true
}

// RecordStoryMetadata reads the page's .content blocks:
//
//	0 story tags
//	1 story info wrapper
//	2 story info
//	3 story notes
//	4 chapter list
func (h *HPFanficArchive) RecordStoryMetadata(doc *goquery.Document, st *story.Story, pageURL string) ([]ChapterRef, error) {
	blocks := doc.Find(".content")
	if blocks.Length() < 5 {
		return nil, fmt.Errorf("%w: expected 5 content blocks, found %d", ErrLayout, blocks.Length())
	}
	st.RawIndexPage = documentHTML(doc)

	var chapters []ChapterRef
	blocks.Eq(4).Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if ok && hpfaChapterLink.MatchString(href) {
			chapters = append(chapters, ChapterRef{Name: a.Text(), Link: href})
		}
	})

	h.recordInfo(blocks.Eq(2), st)

	titleLinks := doc.Find("#pagetitle a")
	if titleLinks.Length() < 2 {
		return nil, fmt.Errorf("%w: page title lacks title and author links", ErrLayout)
	}
	st.Title = titleLinks.Eq(0).Text()
	author := titleLinks.Eq(1)
	authorURL := ""
	if href, ok := author.Attr("href"); ok {
		authorURL, _ = resolve(pageURL, href)
	}
	st.SetAuthor(author.Text(), authorURL)

	st.AddUniverse(standardize.Universe("Harry Potter"))

	return chapters, nil
}

// recordInfo walks the info block in document order. Each span is a label
// such as "Rated:"; the p and a elements that follow it are its values. Some
// labels keep their value in the text right after the span instead.
func (h *HPFanficArchive) recordInfo(info *goquery.Selection, st *story.Story) {
	var summary strings.Builder
	key := ""

	info.Find("span, p, a").Each(func(_ int, item *goquery.Selection) {
		if goquery.NodeName(item) == "span" {
			key = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(item.Text(), ":", "")))

			switch key {
			case "rated":
				st.Rating = standardize.Rating(siblingText(item, 1))
			case "published":
				if t, ok := h.parseDate(siblingText(item, 2)); ok {
					st.Published = &t
				}
			case "updated":
				if t, ok := h.parseDate(siblingText(item, 3)); ok {
					st.Updated = &t
				}
			case "completed":
				if strings.TrimSpace(siblingText(item, 1)) == "Yes" {
					st.Status = standardize.Status("Complete")
				}
			}
			return
		}

		text := item.Text()
		switch key {
		case "summary":
			summary.WriteString(text)
		case "categories":
			st.AddCategory(standardize.Category(text))
		case "status":
			st.Status = standardize.Status(text)
		case "characters":
			st.AddCharacter(standardize.Character(text))
		case "pairings":
			var pairing []string
			for _, name := range strings.Split(text, "/") {
				pairing = append(pairing, standardize.Character(name))
			}
			st.AddPairing(pairing)
		case "genres":
			st.AddGenre(standardize.Genre(text))
		case "warnings":
			st.AddWarning(standardize.Warning(text))
		}
	})

	st.Summary = summary.String()

	if st.Published != nil && st.Updated != nil && st.Updated.Before(*st.Published) {
		st.Published, st.Updated = st.Updated, st.Published
	}
}

func (h *HPFanficArchive) parseDate(raw string) (time.Time, bool) {
	t, err := time.Parse(hpfaDateLayout, strings.TrimSpace(raw))
	if err != nil {
		h.logger.Debug("unparseable date", "value", raw)
		return time.Time{}, false
	}
	return t, true
}

func (h *HPFanficArchive) RecordStoryChapters(ctx context.Context, load PageLoader, st *story.Story, pageURL string, chapters []ChapterRef) error {
	for _, chapter := range chapters {
		h.wait()
		h.logger.Debug("downloading chapter", "chapter", chapter.Name)

		chapterURL, err := resolve(pageURL, chapter.Link)
		if err != nil {
			return fmt.Errorf("failed to build chapter URL: %w", err)
		}

		doc, err := load.Load(ctx, chapterURL)
		if err != nil {
			return fmt.Errorf("failed to load chapter %s: %w", chapter.Name, err)
		}

		body := doc.Find("#story").First()
		if body.Length() == 0 {
			return fmt.Errorf("%w: chapter %s has no story text", ErrLayout, chapter.Name)
		}

		st.AddChapter(story.Chapter{
			Name:          chapter.Name,
			WordCount:     countWords(body.Text()),
			ProcessedBody: outerHTML(body),
			RawBody:       documentHTML(doc),
		})
	}

	return nil
}
