package scrape

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/util"
)

type item struct {
	Title        string
	Organization string
	Location     string
	Description  string
	Salary       string
	Link         string
}

// parsePage applies the portal selectors to the first maxItems containers.
func parsePage(r io.Reader, p domain.Portal, maxItems int) ([]item, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.Name, err)
	}

	sel := p.Selectors
	var out []item
	doc.Find(sel.Container).EachWithBreak(func(i int, c *goquery.Selection) bool {
		if i >= maxItems {
			return false
		}
		title := textOf(c, sel.Title)
		if sel.Title == "" {
			title = util.CleanText(c.Text())
		}
		out = append(out, item{
			Title:        title,
			Organization: textOf(c, sel.Organization),
			Location:     textOf(c, sel.Location),
			Description:  textOf(c, sel.Description),
			Salary:       textOf(c, sel.Salary),
			Link:         linkOf(c, sel.Link, p.BaseURL),
		})
		return true
	})
	return out, nil
}

func textOf(c *goquery.Selection, sel string) string {
	if sel == "" {
		return ""
	}
	return util.CleanText(c.Find(sel).First().Text())
}

func linkOf(c *goquery.Selection, sel, base string) string {
	var href string
	if sel != "" {
		href, _ = c.Find(sel).First().Attr("href")
	}
	if href == "" {
		if h, ok := c.Attr("href"); ok {
			href = h
		} else {
			href, _ = c.Find("a[href]").First().Attr("href")
		}
	}
	return util.ResolveURL(base, href)
}
