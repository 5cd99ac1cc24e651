package parser

import "strings"

// multiResolutionTier is the number of srcset entries from which the last entry is
// treated as the highest-resolution image.
const multiResolutionTier = 4

const filterDirective = "filters:"

var absoluteURLPrefixes = []string{"https://", "http://"}

// ImageURL picks the preferred image URL from an img element's srcset and src.
// With at least four srcset candidates the last one wins, otherwise the first.
// Thumbor-style filter segments are stripped by keeping the last embedded absolute URL.
func ImageURL(srcset, src string) string {
	url := strings.TrimSpace(src)

	if candidates := splitSrcset(srcset); len(candidates) > 0 {
		chosen := candidates[0]
		if len(candidates) >= multiResolutionTier {
			chosen = candidates[len(candidates)-1]
		}
		if chosen != "" {
			url = chosen
		}
	}

	url = strings.TrimSuffix(url, ",")

	if strings.Contains(url, filterDirective) {
		url = stripFilters(url)
	}

	return url
}

// splitSrcset returns the URL of every srcset candidate. Candidates are separated by
// the comma that ends a descriptor (or a bare URL), so commas inside a URL, as in
// "filters:fill(FFF,true)", stay part of it.
func splitSrcset(srcset string) []string {
	var out []string
	inDescriptors := false

	for _, tok := range strings.Fields(srcset) {
		if inDescriptors {
			i := strings.IndexByte(tok, ',')
			if i < 0 {
				continue
			}
			inDescriptors = false
			if tok = tok[i+1:]; tok == "" {
				continue
			}
		}

		if url, ok := strings.CutSuffix(tok, ","); ok {
			out = append(out, url)
			continue
		}
		out = append(out, tok)
		inDescriptors = true
	}
	return out
}

func stripFilters(url string) string {
	segments := strings.Split(url, filterDirective)
	if len(segments) < 2 {
		return url
	}

	for i := len(segments) - 1; i >= 0; i-- {
		if idx := absoluteURLIndex(segments[i]); idx >= 0 {
			return segments[i][idx:]
		}
	}
	return url
}

func absoluteURLIndex(s string) int {
	best := -1
	for _, prefix := range absoluteURLPrefixes {
		if idx := strings.Index(s, prefix); idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	return best
}
