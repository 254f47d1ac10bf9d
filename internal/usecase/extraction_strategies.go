package usecase

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/pricewatch-service/pkg/price"
)

// strategy is one named lookup over a parsed page. It returns "" when it
// has nothing to offer.
type strategy struct {
	name string
	find func(doc *goquery.Document) string
}

// Ordered from most to least specific. The first non-empty result wins.
var nameStrategies = []strategy{
	{name: "platform-title", find: firstText(
		"#productTitle",                  // amazon
		"h1[data-qa^='pdp-name']",        // noon
		"h1.-fs20",                       // jumia
		"h1.x-item-title__mainTitle",     // ebay
		"h1[data-pl='product-title']",    // aliexpress
		"h1[itemprop='name']",            // walmart and schema.org markup
		"[data-testid='product-title']",
	)},
	{name: "meta-title", find: firstAttr("content",
		"meta[property='og:title']",
		"meta[name='twitter:title']",
		"meta[itemprop='name']",
	)},
	{name: "json-ld-name", find: func(doc *goquery.Document) string {
		if offer, ok := productFromJSONLD(doc); ok {
			return offer.name
		}
		return ""
	}},
	{name: "heading", find: firstText("h1", "h2")},
	{name: "document-title", find: firstText("title")},
}

var priceStrategies = []strategy{
	{name: "platform-price", find: firstText(
		"#corePrice_feature_div .a-price .a-offscreen", // amazon
		"#corePriceDisplay_desktop_feature_div .a-price .a-offscreen",
		"#priceblock_dealprice",
		"#priceblock_ourprice",
		"#price_inside_buybox",
		".a-price .a-offscreen",
		"[data-qa='div-price-now']", // noon
		".priceNow",
		"span.-b.-ltr.-tal.-fs24",            // jumia
		".x-price-primary span.ux-textspans", // ebay
		".product-price-current",             // aliexpress
		"[itemprop='price']",
	)},
	{name: "meta-price", find: metaPrice},
	{name: "json-ld-offer", find: func(doc *goquery.Document) string {
		if offer, ok := productFromJSONLD(doc); ok {
			return offer.priceText()
		}
		return ""
	}},
	{name: "generic-price", find: firstPriceLike(
		"[data-price]",
		"[class*='price']",
		"[id*='price']",
	)},
	{name: "visible-text", find: scanVisibleText},
}

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	numberPattern     = regexp.MustCompile(`\d[\d,.]*`)

	currencyTokenPattern = regexp.MustCompile(
		`(?i)(?:US\$|C\$|A\$|\$|€|£|¥|₹|E£|\bEGP|\bUSD|\bEUR|\bGBP|\bSAR|\bAED|\bINR|\bKWD|\bQAR|\bRs\.?)\s?\d[\d,]*(?:\.\d{1,2})?` +
			`|\d[\d,]*(?:\.\d{1,2})?\s?(?:EGP|USD|EUR|GBP|SAR|AED|INR|€|ج\.م)`)
)

// maxPriceLikeRunes bounds generic matches so a whole product card does not
// pass for a price.
const maxPriceLikeRunes = 40

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

func runStrategies(doc *goquery.Document, strategies []strategy) (string, string) {
	for _, s := range strategies {
		if v := collapseWhitespace(s.find(doc)); v != "" {
			return v, s.name
		}
	}
	return "", ""
}

func firstText(selectors ...string) func(*goquery.Document) string {
	return func(doc *goquery.Document) string {
		for _, sel := range selectors {
			var found string
			doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				found = collapseWhitespace(s.Text())
				return found == ""
			})
			if found != "" {
				return found
			}
		}
		return ""
	}
}

func firstAttr(attr string, selectors ...string) func(*goquery.Document) string {
	return func(doc *goquery.Document) string {
		for _, sel := range selectors {
			if v, ok := doc.Find(sel).First().Attr(attr); ok {
				if v = collapseWhitespace(v); v != "" {
					return v
				}
			}
		}
		return ""
	}
}

func firstPriceLike(selectors ...string) func(*goquery.Document) string {
	return func(doc *goquery.Document) string {
		for _, sel := range selectors {
			var found string
			doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				text := collapseWhitespace(s.Text())
				if looksLikePrice(text) {
					found = text
					return false
				}
				return true
			})
			if found != "" {
				return found
			}
		}
		return ""
	}
}

// looksLikePrice accepts short text carrying exactly one number, so that
// "Was $120 Now $99" style containers are left to later strategies.
func looksLikePrice(text string) bool {
	return text != "" &&
		utf8.RuneCountInString(text) <= maxPriceLikeRunes &&
		len(numberPattern.FindAllString(text, 2)) == 1
}

func metaPrice(doc *goquery.Document) string {
	amount := firstAttr("content",
		"meta[property='product:price:amount']",
		"meta[property='og:price:amount']",
		"meta[itemprop='price']",
	)(doc)
	if amount == "" {
		return ""
	}
	currency := firstAttr("content",
		"meta[property='product:price:currency']",
		"meta[property='og:price:currency']",
		"meta[itemprop='priceCurrency']",
	)(doc)
	return strings.TrimSpace(currency + " " + amount)
}

func scanVisibleText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	for _, m := range currencyTokenPattern.FindAllString(body.Text(), -1) {
		if !price.IsZeroOrEmpty(m) {
			return m
		}
	}
	return ""
}

type jsonLDProduct struct {
	name     string
	price    string
	currency string
}

func (p jsonLDProduct) priceText() string {
	if p.price == "" {
		return ""
	}
	return strings.TrimSpace(p.currency + " " + p.price)
}

// productFromJSONLD returns the first schema.org Product found in the page's
// ld+json blocks, following arrays and @graph containers.
func productFromJSONLD(doc *goquery.Document) (jsonLDProduct, bool) {
	var out jsonLDProduct
	found := false
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return true
		}
		out, found = findProductNode(payload)
		return !found
	})
	return out, found
}

func findProductNode(node any) (jsonLDProduct, bool) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			if p, ok := findProductNode(item); ok {
				return p, true
			}
		}
	case map[string]any:
		if hasType(v["@type"], "Product") {
			p := jsonLDProduct{name: scalarString(v["name"])}
			p.price, p.currency = offerPrice(v["offers"])
			return p, true
		}
		if graph, ok := v["@graph"]; ok {
			return findProductNode(graph)
		}
	}
	return jsonLDProduct{}, false
}

func offerPrice(offers any) (string, string) {
	switch v := offers.(type) {
	case []any:
		for _, o := range v {
			if p, c := offerPrice(o); p != "" {
				return p, c
			}
		}
	case map[string]any:
		currency := scalarString(v["priceCurrency"])
		for _, key := range []string{"price", "lowPrice"} {
			if p := scalarString(v[key]); p != "" {
				return p, currency
			}
		}
		if spec, ok := v["priceSpecification"]; ok {
			return offerPrice(spec)
		}
	}
	return "", ""
}

func hasType(t any, want string) bool {
	switch v := t.(type) {
	case string:
		return strings.EqualFold(v, want)
	case []any:
		for _, item := range v {
			if hasType(item, want) {
				return true
			}
		}
	}
	return false
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return ""
}
