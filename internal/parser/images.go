package parser

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const mediaHost = "m.media-amazon.com"

var amazonImageHosts = []string{
	"m.media-amazon.com",
	"images-na.ssl-images-amazon.com",
	"images-eu.ssl-images-amazon.com",
}

var (
	// Resolution tokens look like ._SL1500_. / ._SX466_. / ._AC_SR300,300_.
	sizeTokenRe = regexp.MustCompile(`\._[^.]+_\.`)
	imagePathRe = regexp.MustCompile(`(?i)(/images/I/[^?]+?)\.(jpg|jpeg|png|webp)$`)

	imageBlockATFRe    = regexp.MustCompile(`(?s)P\.register\("ImageBlockATF",\s*(\{.*?\})\s*\);`)
	imageGalleryDataRe = regexp.MustCompile(`(?s)"imageGalleryData"\s*:\s*(\[[^\]]+\])`)
)

// Attribute and JSON keys that may carry gallery image URLs, in lookup order.
var (
	thumbAttrs     = []string{"src", "data-src", "data-old-hires"}
	galleryURLKeys = []string{"hiRes", "zoomed", "superUrl", "mainUrl", "large", "main", "url"}
)

const thumbSelector = "img.imageThumbnail, " +
	"#altImages li.imageThumbnail img, " +
	"#altImages ul.a-unordered-list li img, " +
	"#imageBlockThumbs img, " +
	"li[data-csa-c-type='image-block-image'] img, " +
	"button[aria-label*='image'] img"

func isAmazonImageURL(u string) bool {
	if !strings.HasPrefix(u, "https://") {
		return false
	}
	for _, host := range amazonImageHosts {
		if strings.Contains(u, host) {
			return true
		}
	}
	return false
}

// isNonProductAsset filters sprites, play-button overlays and similar
// gallery chrome out of the candidate set.
func isNonProductAsset(u string) bool {
	for _, marker := range []string{".svg", "sprite", "play-button", ".gif"} {
		if strings.Contains(u, marker) {
			return true
		}
	}
	return false
}

// stripSizeToken removes any embedded resolution token and the query string,
// yielding the base form used for candidate de-duplication.
func stripSizeToken(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	return sizeTokenRe.ReplaceAllString(u, ".")
}

// canonicalImageURL rewrites any Amazon gallery image URL to the canonical
// https://m.media-amazon.com/images/I/<KEY>._SL<size>_.jpg form. The rewrite
// only touches the resolution token in the path; the image is never re-fetched.
func canonicalImageURL(raw string, size int) (string, bool) {
	if raw == "" || !strings.Contains(raw, "/images/I/") {
		return "", false
	}

	stripped := stripSizeToken(raw)
	parsed, err := url.Parse(stripped)
	if err != nil {
		return "", false
	}

	m := imagePathRe.FindStringSubmatch(parsed.Path)
	if m == nil {
		return "", false
	}

	return fmt.Sprintf("https://%s%s._SL%d_.jpg", mediaHost, m[1], size), true
}

// railCandidates returns base image URLs from the left-side thumbnail rail,
// in document order, de-duplicated.
func railCandidates(doc *goquery.Document) []string {
	var out []string
	seen := make(map[string]struct{})

	add := func(raw string) {
		if !isAmazonImageURL(raw) {
			return
		}
		base := stripSizeToken(raw)
		if !strings.Contains(base, "/images/I/") || isNonProductAsset(base) {
			return
		}
		if _, dup := seen[base]; dup {
			return
		}
		seen[base] = struct{}{}
		out = append(out, base)
	}

	doc.Find(thumbSelector).Each(func(_ int, img *goquery.Selection) {
		if dyn, ok := img.Attr("data-a-dynamic-image"); ok {
			var byURL map[string][]float64
			if err := json.Unmarshal([]byte(dyn), &byURL); err == nil {
				for u := range byURL {
					add(u)
				}
			}
		}
		for _, attr := range thumbAttrs {
			if v, ok := img.Attr(attr); ok && v != "" {
				add(v)
			}
		}
		if srcset, ok := img.Attr("srcset"); ok && srcset != "" {
			first := strings.TrimSpace(strings.SplitN(srcset, ",", 2)[0])
			if i := strings.IndexByte(first, ' '); i >= 0 {
				first = first[:i]
			}
			add(first)
		}
	})

	return out
}

// scriptCandidates harvests gallery URLs from the ImageBlockATF and
// imageGalleryData script payloads embedded in the page.
func scriptCandidates(html string) []string {
	var out []string
	seen := make(map[string]struct{})

	add := func(raw string) {
		if !isAmazonImageURL(raw) {
			return
		}
		base := stripSizeToken(raw)
		if !strings.Contains(base, "/images/I/") || isNonProductAsset(base) {
			return
		}
		if _, dup := seen[base]; dup {
			return
		}
		seen[base] = struct{}{}
		out = append(out, base)
	}

	if m := imageBlockATFRe.FindStringSubmatch(html); m != nil {
		var block struct {
			ColorImages struct {
				Initial []map[string]any `json:"initial"`
			} `json:"colorImages"`
		}
		if err := json.Unmarshal([]byte(m[1]), &block); err == nil {
			for _, item := range block.ColorImages.Initial {
				addGalleryNode(item, add)
			}
		}
	}

	if m := imageGalleryDataRe.FindStringSubmatch(html); m != nil {
		var nodes []map[string]any
		if err := json.Unmarshal([]byte(m[1]), &nodes); err == nil {
			for _, node := range nodes {
				addGalleryNode(node, add)
				if variants, ok := node["variants"].([]any); ok {
					for _, v := range variants {
						if vm, ok := v.(map[string]any); ok {
							addGalleryNode(vm, add)
						}
					}
				}
			}
		}
	}

	return out
}

// addGalleryNode pulls image URLs out of one gallery JSON node, skipping
// video/spin/360 media entries.
func addGalleryNode(node map[string]any, add func(string)) {
	mediaType := "IMAGE"
	for _, key := range []string{"type", "variant", "mediaType"} {
		if v, ok := node[key].(string); ok && v != "" {
			mediaType = strings.ToUpper(v)
			break
		}
	}
	for _, marker := range []string{"VIDEO", "SPIN", "360"} {
		if strings.Contains(mediaType, marker) {
			return
		}
	}
	for _, key := range galleryURLKeys {
		if v, ok := node[key].(string); ok && v != "" {
			add(v)
		}
	}
}

// collectImages runs the full gallery algorithm: harvest candidates from the
// thumbnail rail and the script JSON, keep the script ordering restricted to
// rail URLs when both sources agree, canonicalize to the requested resolution
// and de-duplicate until the cap is reached.
func collectImages(doc *goquery.Document, html string, size, limit int) []string {
	rail := railCandidates(doc)
	script := scriptCandidates(html)

	allowed := rail
	if len(rail) == 0 {
		allowed = script
	} else if len(script) > 0 {
		railSet := make(map[string]struct{}, len(rail))
		for _, u := range rail {
			railSet[u] = struct{}{}
		}
		var both []string
		for _, u := range script {
			if _, ok := railSet[u]; ok {
				both = append(both, u)
			}
		}
		if len(both) > 0 {
			allowed = both
		}
	}

	var out []string
	seen := make(map[string]struct{}, limit)
	for _, base := range allowed {
		normalized, ok := canonicalImageURL(base, size)
		if !ok {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
		if len(out) >= limit {
			break
		}
	}

	return out
}
